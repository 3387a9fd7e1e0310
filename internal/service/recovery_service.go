package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/academy-reconcile-api/internal/dto"
	"github.com/noah-isme/academy-reconcile-api/internal/events"
	"github.com/noah-isme/academy-reconcile-api/internal/models"
	"github.com/noah-isme/academy-reconcile-api/internal/reconcile"
	"github.com/noah-isme/academy-reconcile-api/internal/repository"
)

var (
	// ErrRecoveryNotFound indicates the recovery session does not exist.
	ErrRecoveryNotFound = errors.New("recovery session not found")
	// ErrRecoveryNotPending indicates the session was already completed or cancelled.
	ErrRecoveryNotPending = errors.New("recovery session is not pending")
	// ErrRecoveryReasonRequired indicates the resolution reason was empty after sanitizing.
	ErrRecoveryReasonRequired = errors.New("resolution reason is required")
)

// RecoveryService lists and resolves make-up sessions.
type RecoveryService interface {
	ListPending(ctx context.Context, studentID *uint) (dto.RecoveryListResponse, error)
	Complete(ctx context.Context, id uint, req dto.RecoveryResolveRequest, actor ActivityActor) (models.RecoverySession, error)
	Cancel(ctx context.Context, id uint, req dto.RecoveryResolveRequest, actor ActivityActor) (models.RecoverySession, error)
}

type recoveryService struct {
	repo      repository.RecoveryRepository
	activity  ActivityRecorder
	events    events.Publisher
	cache     CacheInvalidator
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	timeout   time.Duration
	location  *time.Location
	logger    zerolog.Logger
	now       func() time.Time
}

// NewRecoveryService constructs the recovery session service.
func NewRecoveryService(repo repository.RecoveryRepository, activity ActivityRecorder, publisher events.Publisher, cache CacheInvalidator, validate *validator.Validate, clock ClockConfig, logger zerolog.Logger) RecoveryService {
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}
	if publisher == nil {
		publisher = events.NewNopPublisher()
	}
	location := clock.Location
	if location == nil {
		location = time.UTC
	}
	return &recoveryService{
		repo:      repo,
		activity:  activity,
		events:    publisher,
		cache:     cache,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		timeout:   clock.StoreTimeout,
		location:  location,
		logger:    logger.With().Str("component", "recovery_service").Logger(),
		now:       time.Now,
	}
}

func (s *recoveryService) ListPending(ctx context.Context, studentID *uint) (dto.RecoveryListResponse, error) {
	var sessions []models.RecoverySession
	if err := fetch(ctx, s.timeout, "recovery_sessions", func(ctx context.Context) error {
		rows, err := s.repo.List(ctx, repository.RecoveryFilter{StudentID: studentID, Status: models.RecoveryStatusPending})
		sessions = rows
		return err
	}); err != nil {
		return dto.RecoveryListResponse{}, err
	}
	if sessions == nil {
		sessions = []models.RecoverySession{}
	}
	return dto.RecoveryListResponse{Items: sessions, Total: len(sessions)}, nil
}

func (s *recoveryService) Complete(ctx context.Context, id uint, req dto.RecoveryResolveRequest, actor ActivityActor) (models.RecoverySession, error) {
	return s.resolve(ctx, id, req, models.RecoveryStatusCompleted, actor)
}

func (s *recoveryService) Cancel(ctx context.Context, id uint, req dto.RecoveryResolveRequest, actor ActivityActor) (models.RecoverySession, error) {
	return s.resolve(ctx, id, req, models.RecoveryStatusCancelled, actor)
}

func (s *recoveryService) resolve(ctx context.Context, id uint, req dto.RecoveryResolveRequest, status models.RecoveryStatus, actor ActivityActor) (models.RecoverySession, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.RecoverySession{}, err
	}
	reason := strings.TrimSpace(s.sanitizer.Sanitize(req.Reason))
	if reason == "" {
		return models.RecoverySession{}, ErrRecoveryReasonRequired
	}

	resolvedOn := reconcile.Day(s.now().In(s.location))
	if strings.TrimSpace(req.Date) != "" {
		parsed, err := parseDay(req.Date, s.location)
		if err != nil {
			return models.RecoverySession{}, err
		}
		resolvedOn = parsed
	}

	var session models.RecoverySession
	err := fetch(ctx, s.timeout, "recovery_sessions", func(ctx context.Context) error {
		row, err := s.repo.GetByID(ctx, id)
		session = row
		return err
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.RecoverySession{}, ErrRecoveryNotFound
	}
	if err != nil {
		return models.RecoverySession{}, err
	}
	if !session.Pending() {
		return models.RecoverySession{}, ErrRecoveryNotPending
	}

	session.Status = status
	session.ResolutionReason = reason
	session.ResolvedOn = &resolvedOn

	var resolved bool
	if err := fetch(ctx, s.timeout, "recovery_sessions", func(ctx context.Context) error {
		ok, err := s.repo.ResolvePending(ctx, &session)
		resolved = ok
		return err
	}); err != nil {
		s.logger.Error().Err(err).Uint("recovery_id", id).Msg("failed to resolve recovery session")
		return models.RecoverySession{}, err
	}
	if !resolved {
		return models.RecoverySession{}, ErrRecoveryNotPending
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("failed to invalidate reconciliation cache after recovery resolution")
		}
	}

	metadata := map[string]interface{}{
		"student_id": session.StudentID,
		"class_id":   session.ClassID,
		"status":     string(status),
		"reason":     reason,
	}
	if s.activity != nil {
		if _, err := s.activity.Record(ctx, ActivityEntry{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     "recovery." + string(status),
			EntityType: "recovery_session",
			EntityID:   uintPtr(session.ID),
			Metadata:   metadata,
		}); err != nil {
			s.logger.Warn().Err(err).Uint("recovery_id", id).Msg("failed to record recovery activity")
		}
	}
	if err := s.events.Publish(ctx, events.New(events.TypeRecoveryResolved, actor.ID, metadata)); err != nil {
		s.logger.Warn().Err(err).Uint("recovery_id", id).Msg("failed to publish recovery event")
	}

	return session, nil
}
