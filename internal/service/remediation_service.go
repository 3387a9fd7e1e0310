package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/academy-reconcile-api/internal/dto"
	"github.com/noah-isme/academy-reconcile-api/internal/events"
	"github.com/noah-isme/academy-reconcile-api/internal/models"
	"github.com/noah-isme/academy-reconcile-api/internal/observability"
	"github.com/noah-isme/academy-reconcile-api/internal/reconcile"
	"github.com/noah-isme/academy-reconcile-api/internal/repository"
)

// debtReleaseDays is how long a debt suspension keeps a seat released.
const debtReleaseDays = 30

const (
	actionSuspend   = "suspend"
	actionReinstate = "reinstate"
	actionRelieve   = "relieve"
)

var (
	// ErrStudentNotFound indicates the student does not exist.
	ErrStudentNotFound = errors.New("student not found")
	// ErrClassNotFound indicates the class does not exist.
	ErrClassNotFound = errors.New("class not found")
	// ErrRelieveExceedsExcess indicates more students were selected than the class is over capacity.
	ErrRelieveExceedsExcess = errors.New("selection exceeds over-capacity seats")
	// ErrStudentNotAssigned indicates a selected student holds no seat on the class.
	ErrStudentNotAssigned = errors.New("student is not assigned to class")
)

// DebtRemediationService moves students between held and released seats.
type DebtRemediationService interface {
	Suspend(ctx context.Context, studentID uint, actor ActivityActor) (dto.RemediationResponse, error)
	Reinstate(ctx context.Context, studentID uint, actor ActivityActor) (dto.RemediationResponse, error)
	State(ctx context.Context, studentID uint) (dto.RemediationStateResponse, error)
	RelieveOverCapacity(ctx context.Context, classID uint, studentIDs []uint, actor ActivityActor) (dto.RelieveCapacityResponse, error)
}

// RemediationDeps wires the collaborators of the remediation workflow.
type RemediationDeps struct {
	Students     repository.StudentRepository
	Classes      repository.ClassRepository
	Assignments  repository.AssignmentRepository
	SeatReleases repository.SeatReleaseRepository
	Store        repository.Transactor
	Locker       Locker
	Cache        CacheInvalidator
	Activity     ActivityRecorder
	Events       events.Publisher
}

type debtRemediationService struct {
	deps     RemediationDeps
	timeout  time.Duration
	location *time.Location
	logger   zerolog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewDebtRemediationService constructs the remediation workflow.
func NewDebtRemediationService(deps RemediationDeps, clock ClockConfig, logger zerolog.Logger) DebtRemediationService {
	if deps.Locker == nil {
		deps.Locker = NewLocalLocker()
	}
	if deps.Events == nil {
		deps.Events = events.NewNopPublisher()
	}
	location := clock.Location
	if location == nil {
		location = time.UTC
	}
	timeout := clock.StoreTimeout
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return &debtRemediationService{
		deps:     deps,
		timeout:  timeout,
		location: location,
		logger:   logger.With().Str("component", "debt_remediation_service").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/academy-reconcile-api/internal/service/remediation"),
		now:      time.Now,
	}
}

func (s *debtRemediationService) today() time.Time {
	return reconcile.Day(s.now().In(s.location))
}

func (s *debtRemediationService) lock(ctx context.Context, key string) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.deps.Locker.Lock(lockCtx, key)
}

func (s *debtRemediationService) Suspend(ctx context.Context, studentID uint, actor ActivityActor) (dto.RemediationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "remediation.suspend", trace.WithAttributes(attribute.Int64("student.id", int64(studentID))))
	defer span.End()

	if err := s.ensureStudent(ctx, studentID); err != nil {
		return dto.RemediationResponse{}, s.fail(span, actionSuspend, err)
	}

	unlock, err := s.lock(ctx, studentLockKey(studentID))
	if err != nil {
		return dto.RemediationResponse{}, s.fail(span, actionSuspend, err)
	}
	defer unlock()

	payable, err := s.payableClassIDs(ctx)
	if err != nil {
		return dto.RemediationResponse{}, s.fail(span, actionSuspend, err)
	}

	today := s.today()
	response := dto.RemediationResponse{StudentID: studentID, Action: actionSuspend, ClassIDs: []uint{}}

	err = s.transaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		held, err := tx.Assignments.List(ctx, repository.AssignmentFilter{
			Origin:    models.AssignmentOriginSchool,
			StudentID: &studentID,
		})
		if err != nil {
			return err
		}

		classIDs := distinctClassIDs(held, payable)
		if len(classIDs) == 0 {
			return nil
		}

		releases := make([]models.SeatRelease, 0, len(classIDs))
		for _, classID := range classIDs {
			releases = append(releases, models.SeatRelease{
				StudentID: studentID,
				ClassID:   classID,
				StartDate: today,
				EndDate:   today.AddDate(0, 0, debtReleaseDays),
				Reason:    models.SeatReleaseReasonDebt,
				Status:    models.SeatReleaseStatusActive,
			})
		}
		if err := tx.SeatReleases.Create(ctx, releases); err != nil {
			return err
		}

		removed, err := tx.Assignments.DeleteForStudent(ctx, studentID, repository.AssignmentFilter{
			Origin:   models.AssignmentOriginSchool,
			ClassIDs: classIDs,
		})
		if err != nil {
			return err
		}

		response.Changed = true
		response.ClassIDs = classIDs
		response.Releases = len(releases)
		response.Removed = removed
		return nil
	})
	if err != nil {
		return dto.RemediationResponse{}, s.fail(span, actionSuspend, err)
	}

	state, err := s.State(ctx, studentID)
	if err != nil {
		return dto.RemediationResponse{}, s.fail(span, actionSuspend, err)
	}
	response.State = state.State

	s.afterMutation(ctx, actor, actionSuspend, response.Changed, studentID, events.TypeStudentSuspended, map[string]interface{}{
		"student_id": studentID,
		"class_ids":  response.ClassIDs,
		"until":      today.AddDate(0, 0, debtReleaseDays).Format(dto.DateLayout),
	})
	return response, nil
}

func (s *debtRemediationService) Reinstate(ctx context.Context, studentID uint, actor ActivityActor) (dto.RemediationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "remediation.reinstate", trace.WithAttributes(attribute.Int64("student.id", int64(studentID))))
	defer span.End()

	if err := s.ensureStudent(ctx, studentID); err != nil {
		return dto.RemediationResponse{}, s.fail(span, actionReinstate, err)
	}

	unlock, err := s.lock(ctx, studentLockKey(studentID))
	if err != nil {
		return dto.RemediationResponse{}, s.fail(span, actionReinstate, err)
	}
	defer unlock()

	response := dto.RemediationResponse{StudentID: studentID, Action: actionReinstate, ClassIDs: []uint{}}

	err = s.transaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		releases, err := tx.SeatReleases.List(ctx, repository.SeatReleaseFilter{
			StudentID: &studentID,
			Reason:    models.SeatReleaseReasonDebt,
			Status:    models.SeatReleaseStatusActive,
		})
		if err != nil {
			return err
		}
		if len(releases) == 0 {
			return nil
		}

		ids := make([]uint, 0, len(releases))
		classSet := make(map[uint]struct{}, len(releases))
		for _, release := range releases {
			ids = append(ids, release.ID)
			classSet[release.ClassID] = struct{}{}
		}
		if _, err := tx.SeatReleases.SetStatus(ctx, ids, models.SeatReleaseStatusCancelled); err != nil {
			return err
		}

		classIDs := sortedClassIDs(classSet)
		existing, err := tx.Assignments.List(ctx, repository.AssignmentFilter{StudentID: &studentID, ClassIDs: classIDs})
		if err != nil {
			return err
		}
		for _, assignment := range existing {
			delete(classSet, assignment.ClassID)
		}

		restore := sortedClassIDs(classSet)
		if len(restore) > 0 {
			assignments := make([]models.ClassAssignment, 0, len(restore))
			for _, classID := range restore {
				assignments = append(assignments, models.ClassAssignment{
					StudentID: studentID,
					ClassID:   classID,
					Origin:    models.AssignmentOriginSchool,
				})
			}
			if err := tx.Assignments.Create(ctx, assignments); err != nil {
				return err
			}
		}

		response.Changed = true
		response.ClassIDs = classIDs
		response.Releases = len(ids)
		response.Restored = len(restore)
		return nil
	})
	if err != nil {
		return dto.RemediationResponse{}, s.fail(span, actionReinstate, err)
	}

	state, err := s.State(ctx, studentID)
	if err != nil {
		return dto.RemediationResponse{}, s.fail(span, actionReinstate, err)
	}
	response.State = state.State

	s.afterMutation(ctx, actor, actionReinstate, response.Changed, studentID, events.TypeStudentReinstated, map[string]interface{}{
		"student_id": studentID,
		"class_ids":  response.ClassIDs,
	})
	return response, nil
}

func (s *debtRemediationService) State(ctx context.Context, studentID uint) (dto.RemediationStateResponse, error) {
	if err := s.ensureStudent(ctx, studentID); err != nil {
		return dto.RemediationStateResponse{}, err
	}

	var assignments []models.ClassAssignment
	if err := fetch(ctx, s.timeout, "assignments", func(ctx context.Context) error {
		rows, err := s.deps.Assignments.List(ctx, repository.AssignmentFilter{StudentID: &studentID})
		assignments = rows
		return err
	}); err != nil {
		return dto.RemediationStateResponse{}, err
	}

	var releases []models.SeatRelease
	if err := fetch(ctx, s.timeout, "seat_releases", func(ctx context.Context) error {
		rows, err := s.deps.SeatReleases.List(ctx, repository.SeatReleaseFilter{
			StudentID: &studentID,
			Reason:    models.SeatReleaseReasonDebt,
			Status:    models.SeatReleaseStatusActive,
		})
		releases = rows
		return err
	}); err != nil {
		return dto.RemediationStateResponse{}, err
	}

	if assignments == nil {
		assignments = []models.ClassAssignment{}
	}
	if releases == nil {
		releases = []models.SeatRelease{}
	}

	state := dto.RemediationStateNone
	switch {
	case len(releases) > 0:
		state = dto.RemediationStateReleased
	case len(assignments) > 0:
		state = dto.RemediationStateAssigned
	}

	return dto.RemediationStateResponse{
		StudentID:      studentID,
		State:          state,
		Assignments:    assignments,
		ActiveReleases: releases,
	}, nil
}

func (s *debtRemediationService) RelieveOverCapacity(ctx context.Context, classID uint, studentIDs []uint, actor ActivityActor) (dto.RelieveCapacityResponse, error) {
	ctx, span := s.tracer.Start(ctx, "remediation.relieve", trace.WithAttributes(attribute.Int64("class.id", int64(classID))))
	defer span.End()

	var class models.TeachingClass
	err := fetch(ctx, s.timeout, "classes", func(ctx context.Context) error {
		row, err := s.deps.Classes.GetClass(ctx, classID)
		class = row
		return err
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.RelieveCapacityResponse{}, s.fail(span, actionRelieve, ErrClassNotFound)
	}
	if err != nil {
		return dto.RelieveCapacityResponse{}, s.fail(span, actionRelieve, err)
	}

	selected := dedupeIDs(studentIDs)

	unlock, err := s.lock(ctx, classLockKey(classID))
	if err != nil {
		return dto.RelieveCapacityResponse{}, s.fail(span, actionRelieve, err)
	}
	defer unlock()

	today := s.today()
	response := dto.RelieveCapacityResponse{ClassID: classID, Removed: []uint{}}

	err = s.transaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		assignments, err := tx.Assignments.List(ctx, repository.AssignmentFilter{ClassID: &classID})
		if err != nil {
			return err
		}
		releases, err := tx.SeatReleases.List(ctx, repository.SeatReleaseFilter{ActiveOn: &today, ClassID: &classID})
		if err != nil {
			return err
		}

		seats := reconcile.ComputeSeats(class, assignments, releases, today)
		if len(selected) > seats.ExcessSeats() {
			return fmt.Errorf("%w: class %d allows %d, got %d", ErrRelieveExceedsExcess, classID, seats.ExcessSeats(), len(selected))
		}

		holders := make(map[uint]struct{}, len(assignments))
		for _, assignment := range assignments {
			holders[assignment.StudentID] = struct{}{}
		}
		for _, studentID := range selected {
			if _, ok := holders[studentID]; !ok {
				return fmt.Errorf("%w: student %d", ErrStudentNotAssigned, studentID)
			}
		}

		var removed int64
		for _, studentID := range selected {
			count, err := tx.Assignments.DeleteForStudent(ctx, studentID, repository.AssignmentFilter{ClassID: &classID})
			if err != nil {
				return err
			}
			removed += count
		}

		response.Removed = selected
		response.MaxSeats = seats.MaxSeats
		response.Assigned = seats.AssignedCount - int(removed)
		response.Remaining = response.Assigned - seats.MaxSeats
		if response.Remaining < 0 {
			response.Remaining = 0
		}
		return nil
	})
	if err != nil {
		return dto.RelieveCapacityResponse{}, s.fail(span, actionRelieve, err)
	}

	s.afterMutation(ctx, actor, actionRelieve, len(response.Removed) > 0, classID, events.TypeCapacityRelieved, map[string]interface{}{
		"class_id":    classID,
		"student_ids": response.Removed,
	})
	return response, nil
}

// transaction runs fn atomically under the store timeout.
func (s *debtRemediationService) transaction(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fetch(ctx, s.timeout, "remediation", func(ctx context.Context) error {
		return s.deps.Store.WithinTransaction(ctx, fn)
	})
}

func (s *debtRemediationService) ensureStudent(ctx context.Context, studentID uint) error {
	err := fetch(ctx, s.timeout, "students", func(ctx context.Context) error {
		_, err := s.deps.Students.GetByID(ctx, studentID)
		return err
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrStudentNotFound
	}
	return err
}

func (s *debtRemediationService) payableClassIDs(ctx context.Context) (map[uint]struct{}, error) {
	var classes []models.TeachingClass
	if err := fetch(ctx, s.timeout, "classes", func(ctx context.Context) error {
		rows, err := s.deps.Classes.ListClasses(ctx)
		classes = rows
		return err
	}); err != nil {
		return nil, err
	}

	payable := make(map[uint]struct{}, len(classes))
	for _, class := range classes {
		if reconcile.ClassifyClass(class).Payable {
			payable[class.ID] = struct{}{}
		}
	}
	return payable, nil
}

// afterMutation runs the post-write side effects. Failures are logged, never returned.
func (s *debtRemediationService) afterMutation(ctx context.Context, actor ActivityActor, action string, changed bool, entityID uint, eventType string, data map[string]interface{}) {
	outcome := "noop"
	if changed {
		outcome = "applied"
	}
	observability.RemediationActions().WithLabelValues(action, outcome).Inc()
	if !changed {
		s.logger.Debug().Str("action", action).Uint("entity_id", entityID).Msg("remediation made no changes")
		return
	}

	if s.deps.Cache != nil {
		if err := s.deps.Cache.Invalidate(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("failed to invalidate reconciliation cache after remediation")
		}
	}

	entityType := "student"
	if action == actionRelieve {
		entityType = "class"
	}
	if s.deps.Activity != nil {
		if _, err := s.deps.Activity.Record(ctx, ActivityEntry{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     "remediation." + action,
			EntityType: entityType,
			EntityID:   uintPtr(entityID),
			Metadata:   data,
		}); err != nil {
			s.logger.Warn().Err(err).Str("action", action).Msg("failed to record remediation activity")
		}
	}

	if err := s.deps.Events.Publish(ctx, events.New(eventType, actor.ID, data)); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to publish remediation event")
	}

	s.logger.Info().Str("action", action).Uint("entity_id", entityID).Uint("actor_id", actor.ID).Msg("remediation applied")
}

func (s *debtRemediationService) fail(span trace.Span, action string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, action+"_failed")
	observability.RemediationActions().WithLabelValues(action, "error").Inc()
	return err
}

func studentLockKey(studentID uint) string {
	return fmt.Sprintf("remediation:student:%d", studentID)
}

func classLockKey(classID uint) string {
	return fmt.Sprintf("remediation:class:%d", classID)
}

func distinctClassIDs(assignments []models.ClassAssignment, payable map[uint]struct{}) []uint {
	set := make(map[uint]struct{}, len(assignments))
	for _, assignment := range assignments {
		if _, ok := payable[assignment.ClassID]; ok {
			set[assignment.ClassID] = struct{}{}
		}
	}
	return sortedClassIDs(set)
}

func sortedClassIDs(set map[uint]struct{}) []uint {
	ids := make([]uint, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func dedupeIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
