package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/academy-reconcile-api/internal/dto"
	"github.com/noah-isme/academy-reconcile-api/internal/models"
	"github.com/noah-isme/academy-reconcile-api/internal/reconcile"
	"github.com/noah-isme/academy-reconcile-api/internal/repository"
)

// ErrAttendanceDuplicate indicates the student already has a record for that class and day.
var ErrAttendanceDuplicate = errors.New("attendance already recorded for this class and date")

// AttendanceService records attendance and opens recovery sessions for justified absences.
type AttendanceService interface {
	Record(ctx context.Context, req dto.AttendanceCreateRequest) (dto.AttendanceResponse, error)
}

// AttendanceDeps wires the collaborators of the attendance service.
type AttendanceDeps struct {
	Students repository.StudentRepository
	Classes  repository.ClassRepository
	Store    repository.Transactor
	Cache    CacheInvalidator
}

type attendanceService struct {
	deps      AttendanceDeps
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	timeout   time.Duration
	location  *time.Location
	logger    zerolog.Logger
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(deps AttendanceDeps, validate *validator.Validate, clock ClockConfig, logger zerolog.Logger) AttendanceService {
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}
	location := clock.Location
	if location == nil {
		location = time.UTC
	}
	return &attendanceService{
		deps:      deps,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		timeout:   clock.StoreTimeout,
		location:  location,
		logger:    logger.With().Str("component", "attendance_service").Logger(),
	}
}

func (s *attendanceService) Record(ctx context.Context, req dto.AttendanceCreateRequest) (dto.AttendanceResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AttendanceResponse{}, err
	}

	date, err := parseDay(req.Date, s.location)
	if err != nil {
		return dto.AttendanceResponse{}, err
	}

	if err := fetch(ctx, s.timeout, "students", func(ctx context.Context) error {
		_, err := s.deps.Students.GetByID(ctx, req.StudentID)
		return err
	}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AttendanceResponse{}, ErrStudentNotFound
		}
		return dto.AttendanceResponse{}, err
	}
	if err := fetch(ctx, s.timeout, "classes", func(ctx context.Context) error {
		_, err := s.deps.Classes.GetClass(ctx, req.ClassID)
		return err
	}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AttendanceResponse{}, ErrClassNotFound
		}
		return dto.AttendanceResponse{}, err
	}

	record := models.AttendanceRecord{
		StudentID: req.StudentID,
		ClassID:   req.ClassID,
		Date:      date,
		Status:    models.AttendanceStatus(req.Status),
		Notes:     strings.TrimSpace(s.sanitizer.Sanitize(req.Notes)),
	}

	var session *models.RecoverySession
	err = fetch(ctx, s.timeout, "attendance", func(ctx context.Context) error {
		return s.deps.Store.WithinTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
			existing, err := tx.Attendance.List(ctx, repository.AttendanceFilter{
				From:      record.Date,
				To:        record.Date,
				ClassID:   &record.ClassID,
				StudentID: &record.StudentID,
			})
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				return ErrAttendanceDuplicate
			}
			if err := tx.Attendance.Create(ctx, &record); err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return ErrAttendanceDuplicate
				}
				return err
			}
			if record.Status != models.AttendanceStatusJustifiedAbsence {
				return nil
			}
			created := models.RecoverySession{
				StudentID:    record.StudentID,
				ClassID:      record.ClassID,
				AttendanceID: record.ID,
				AbsenceDate:  record.Date,
				Status:       models.RecoveryStatusPending,
			}
			if err := tx.Recoveries.Create(ctx, &created); err != nil {
				return err
			}
			session = &created
			return nil
		})
	})
	if errors.Is(err, ErrAttendanceDuplicate) {
		return dto.AttendanceResponse{}, err
	}
	if err != nil {
		s.logger.Error().Err(err).Uint("student_id", req.StudentID).Msg("failed to record attendance")
		return dto.AttendanceResponse{}, err
	}

	if record.Status.IsAbsence() && s.deps.Cache != nil {
		if err := s.deps.Cache.Invalidate(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("failed to invalidate reconciliation cache after attendance")
		}
	}

	return dto.AttendanceResponse{Attendance: record, RecoverySession: session}, nil
}

func parseDay(value string, location *time.Location) (time.Time, error) {
	parsed, err := time.ParseInLocation(dto.DateLayout, strings.TrimSpace(value), location)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return reconcile.Day(parsed), nil
}
