package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/academy-reconcile-api/internal/dto"
	"github.com/noah-isme/academy-reconcile-api/internal/models"
	"github.com/noah-isme/academy-reconcile-api/internal/observability"
	"github.com/noah-isme/academy-reconcile-api/internal/reconcile"
	"github.com/noah-isme/academy-reconcile-api/internal/repository"
)

// ReconciliationService computes capacity, debt and recovery views from the store.
type ReconciliationService interface {
	Dashboard(ctx context.Context) (dto.DashboardResponse, error)
	Debtors(ctx context.Context) (dto.DebtorListResponse, error)
	Capacity(ctx context.Context, window reconcile.Window) (dto.CapacityResponse, error)
	RecoverySlots(ctx context.Context, window reconcile.Window) (dto.RecoverySlotsResponse, error)
}

// ReconciliationStores groups the repositories the reconciliation views read from.
type ReconciliationStores struct {
	Students     repository.StudentRepository
	Classes      repository.ClassRepository
	Assignments  repository.AssignmentRepository
	Payments     repository.PaymentRepository
	Attendance   repository.AttendanceRepository
	SeatReleases repository.SeatReleaseRepository
	Recoveries   repository.RecoveryRepository
}

// ClockConfig controls how "today" is derived and how long store reads may take.
type ClockConfig struct {
	StoreTimeout time.Duration
	Location     *time.Location
}

var inactiveOccurrenceStates = []models.OccurrenceState{models.OccurrenceStateCancelled, models.OccurrenceStateDeleted}

var absenceStatuses = []models.AttendanceStatus{models.AttendanceStatusAbsence, models.AttendanceStatusJustifiedAbsence}

type reconciliationService struct {
	stores   ReconciliationStores
	timeout  time.Duration
	location *time.Location
	logger   zerolog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewReconciliationService builds the reconciliation service around the pure engine.
func NewReconciliationService(stores ReconciliationStores, clock ClockConfig, logger zerolog.Logger) ReconciliationService {
	location := clock.Location
	if location == nil {
		location = time.UTC
	}
	return &reconciliationService{
		stores:   stores,
		timeout:  clock.StoreTimeout,
		location: location,
		logger:   logger.With().Str("component", "reconciliation_service").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/academy-reconcile-api/internal/service/reconciliation"),
		now:      time.Now,
	}
}

// snapshot holds the rows of one read pass. Each field is written by exactly one goroutine.
type snapshot struct {
	students    []models.Student
	classes     []models.TeachingClass
	assignments []models.ClassAssignment
	payments    []models.Payment
	releases    []models.SeatRelease
	occurrences []models.ClassOccurrence
	attendance  []models.AttendanceRecord
	pending     int64
}

type snapshotPlan struct {
	debt        bool
	recoveries  bool
	occurrences reconcile.Window
	attendance  *reconcile.Window
}

func (s *reconciliationService) today() time.Time {
	return reconcile.Day(s.now().In(s.location))
}

// load fans the reads of a pass out concurrently. Joins are keyed, so the reads
// may complete in any order.
func (s *reconciliationService) load(ctx context.Context, today time.Time, plan snapshotPlan) (snapshot, error) {
	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return fetch(gctx, s.timeout, "classes", func(ctx context.Context) error {
			rows, err := s.stores.Classes.ListClasses(ctx)
			snap.classes = rows
			return err
		})
	})
	g.Go(func() error {
		return fetch(gctx, s.timeout, "assignments", func(ctx context.Context) error {
			rows, err := s.stores.Assignments.List(ctx, repository.AssignmentFilter{})
			snap.assignments = rows
			return err
		})
	})
	g.Go(func() error {
		return fetch(gctx, s.timeout, "seat_releases", func(ctx context.Context) error {
			rows, err := s.stores.SeatReleases.List(ctx, repository.SeatReleaseFilter{ActiveOn: &today})
			snap.releases = rows
			return err
		})
	})
	g.Go(func() error {
		return fetch(gctx, s.timeout, "occurrences", func(ctx context.Context) error {
			rows, err := s.stores.Classes.ListOccurrences(ctx, repository.OccurrenceFilter{
				From:          plan.occurrences.From,
				To:            plan.occurrences.To,
				ExcludeStates: inactiveOccurrenceStates,
			})
			snap.occurrences = rows
			return err
		})
	})

	if plan.attendance != nil {
		window := *plan.attendance
		g.Go(func() error {
			return fetch(gctx, s.timeout, "attendance", func(ctx context.Context) error {
				rows, err := s.stores.Attendance.List(ctx, repository.AttendanceFilter{
					From:     window.From,
					To:       window.To,
					Statuses: absenceStatuses,
				})
				snap.attendance = rows
				return err
			})
		})
	}

	if plan.debt {
		g.Go(func() error {
			return fetch(gctx, s.timeout, "students", func(ctx context.Context) error {
				rows, err := s.stores.Students.ListActive(ctx)
				snap.students = rows
				return err
			})
		})
		g.Go(func() error {
			return fetch(gctx, s.timeout, "payments", func(ctx context.Context) error {
				rows, err := s.stores.Payments.List(ctx)
				snap.payments = rows
				return err
			})
		})
	}

	if plan.recoveries && s.stores.Recoveries != nil {
		g.Go(func() error {
			return fetch(gctx, s.timeout, "recovery_sessions", func(ctx context.Context) error {
				total, err := s.stores.Recoveries.CountByStatus(ctx, models.RecoveryStatusPending)
				snap.pending = total
				return err
			})
		})
	}

	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

func (s *reconciliationService) Dashboard(ctx context.Context) (resp dto.DashboardResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "reconciliation.dashboard")
	defer span.End()
	defer s.observe("dashboard", time.Now(), &err)

	today := s.today()
	forward := reconcile.ForwardWindow(today, reconcile.ForwardWindowDays)
	month := reconcile.MonthWindow(today)

	snap, err := s.load(ctx, today, snapshotPlan{
		debt:        true,
		recoveries:  true,
		occurrences: spanning(forward, month),
		attendance:  &forward,
	})
	if err != nil {
		return dto.DashboardResponse{}, s.fail(span, "dashboard", err)
	}

	input := reconcile.GapInput{
		Classes:     snap.classes,
		Occurrences: snap.occurrences,
		Assignments: snap.assignments,
		Releases:    snap.releases,
		Attendance:  snap.attendance,
		Window:      forward,
		Today:       today,
	}

	var dated []reconcile.OccurrenceGap
	resolution, err := reconcile.ResolveWithFallback(ctx,
		func(context.Context) ([]reconcile.OccurrenceGap, error) {
			dated = reconcile.ComputeAbsenceGaps(input)
			return dated, nil
		},
		func(ctx context.Context) ([]reconcile.OccurrenceGap, error) {
			return s.structuralVacancies(ctx, input)
		},
	)
	if err != nil {
		return dto.DashboardResponse{}, s.fail(span, "dashboard", err)
	}

	debtors := reconcile.RankDebtors(s.detectDebtors(snap, today))
	slots := reconcile.RecoverySlots(dated)

	span.SetAttributes(
		attribute.Int("reconciliation.incomplete", len(resolution.Items)),
		attribute.Bool("reconciliation.fallback", resolution.FromFallback),
		attribute.Int("reconciliation.debtors", len(debtors)),
	)
	if resolution.FromFallback {
		s.logger.Debug().Int("vacancies", len(resolution.Items)).Msg("no dated gaps in window, using class-level vacancies")
	}

	return dto.DashboardResponse{
		GeneratedAt:           s.now().UTC(),
		ReconciliationMonth:   reconcile.MonthOf(today),
		Window:                forward,
		IncompleteOccurrences: resolution.Items,
		FromFallback:          resolution.FromFallback,
		Debtors:               debtors,
		RecoverySlots:         slots,
		PendingRecoveries:     snap.pending,
	}, nil
}

// structuralVacancies is the class-level secondary query. It reads every future
// occurrence so classes with a sparse calendar still get an anchor date.
func (s *reconciliationService) structuralVacancies(ctx context.Context, input reconcile.GapInput) ([]reconcile.OccurrenceGap, error) {
	var future []models.ClassOccurrence
	err := fetch(ctx, s.timeout, "occurrences", func(ctx context.Context) error {
		rows, err := s.stores.Classes.ListOccurrences(ctx, repository.OccurrenceFilter{
			From:          input.Today,
			ExcludeStates: inactiveOccurrenceStates,
		})
		future = rows
		return err
	})
	if err != nil {
		return nil, err
	}

	input.Occurrences = future
	return reconcile.ComputeStructuralVacancies(input), nil
}

func (s *reconciliationService) Debtors(ctx context.Context) (resp dto.DebtorListResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "reconciliation.debtors")
	defer span.End()
	defer s.observe("debtors", time.Now(), &err)

	today := s.today()
	month := reconcile.MonthWindow(today)

	snap, err := s.load(ctx, today, snapshotPlan{debt: true, occurrences: month})
	if err != nil {
		return dto.DebtorListResponse{}, s.fail(span, "debtors", err)
	}

	debtors := reconcile.RankDebtors(s.detectDebtors(snap, today))
	span.SetAttributes(attribute.Int("reconciliation.debtors", len(debtors)))

	return dto.DebtorListResponse{
		GeneratedAt:         s.now().UTC(),
		ReconciliationMonth: reconcile.MonthOf(today),
		Debtors:             debtors,
	}, nil
}

func (s *reconciliationService) detectDebtors(snap snapshot, today time.Time) []reconcile.Debtor {
	month := reconcile.MonthWindow(today)
	inMonth := make([]models.ClassOccurrence, 0, len(snap.occurrences))
	for _, occurrence := range snap.occurrences {
		if month.Contains(occurrence.Date) {
			inMonth = append(inMonth, occurrence)
		}
	}

	debtors := reconcile.DetectDebtors(reconcile.DebtInput{
		Students:            snap.students,
		Assignments:         snap.assignments,
		Payments:            snap.payments,
		Classes:             snap.classes,
		OccurrencesInWindow: inMonth,
		Today:               today,
	})
	observability.DebtorsDetected().Set(float64(len(debtors)))
	return debtors
}

func (s *reconciliationService) Capacity(ctx context.Context, window reconcile.Window) (resp dto.CapacityResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "reconciliation.capacity")
	defer span.End()
	defer s.observe("capacity", time.Now(), &err)

	today := s.today()
	window = s.defaultWindow(window, today)

	snap, err := s.load(ctx, today, snapshotPlan{occurrences: window, attendance: &window})
	if err != nil {
		return dto.CapacityResponse{}, s.fail(span, "capacity", err)
	}

	seats := reconcile.ComputeSeatsByClass(snap.classes, snap.assignments, snap.releases, today)
	classes := make([]dto.ClassCapacity, 0, len(snap.classes))
	for _, class := range snap.classes {
		classes = append(classes, dto.NewClassCapacity(class, seats[class.ID]))
	}

	gaps := reconcile.ComputeAbsenceGaps(reconcile.GapInput{
		Classes:     snap.classes,
		Occurrences: snap.occurrences,
		Assignments: snap.assignments,
		Releases:    snap.releases,
		Attendance:  snap.attendance,
		Window:      window,
		Today:       today,
	})

	return dto.CapacityResponse{
		GeneratedAt: s.now().UTC(),
		Window:      window,
		Classes:     classes,
		Gaps:        gaps,
	}, nil
}

func (s *reconciliationService) RecoverySlots(ctx context.Context, window reconcile.Window) (resp dto.RecoverySlotsResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "reconciliation.recovery_slots")
	defer span.End()
	defer s.observe("recovery_slots", time.Now(), &err)

	today := s.today()
	window = s.defaultWindow(window, today)

	snap, err := s.load(ctx, today, snapshotPlan{occurrences: window, attendance: &window})
	if err != nil {
		return dto.RecoverySlotsResponse{}, s.fail(span, "recovery_slots", err)
	}

	gaps := reconcile.ComputeAbsenceGaps(reconcile.GapInput{
		Classes:     snap.classes,
		Occurrences: snap.occurrences,
		Assignments: snap.assignments,
		Releases:    snap.releases,
		Attendance:  snap.attendance,
		Window:      window,
		Today:       today,
	})

	return dto.RecoverySlotsResponse{
		GeneratedAt: s.now().UTC(),
		Window:      window,
		Slots:       reconcile.RecoverySlots(gaps),
	}, nil
}

func (s *reconciliationService) defaultWindow(window reconcile.Window, today time.Time) reconcile.Window {
	if window.From.IsZero() && window.To.IsZero() {
		return reconcile.ForwardWindow(today, reconcile.ForwardWindowDays)
	}
	if window.To.IsZero() {
		return reconcile.NewWindow(window.From, window.From.AddDate(0, 0, reconcile.ForwardWindowDays))
	}
	if window.From.IsZero() {
		return reconcile.NewWindow(today, window.To)
	}
	return reconcile.NewWindow(window.From, window.To)
}

func (s *reconciliationService) observe(operation string, started time.Time, err *error) {
	observability.ReconciliationDuration().WithLabelValues(operation).Observe(time.Since(started).Seconds())
	outcome := "ok"
	if *err != nil {
		outcome = "error"
	}
	observability.ReconciliationRuns().WithLabelValues(operation, outcome).Inc()
}

func (s *reconciliationService) fail(span trace.Span, operation string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, operation+"_failed")
	s.logger.Error().Err(err).Str("operation", operation).Msg("reconciliation read failed")
	return err
}

// spanning returns the smallest window covering both a and b.
func spanning(a, b reconcile.Window) reconcile.Window {
	from, to := a.From, a.To
	if b.From.Before(from) {
		from = b.From
	}
	if b.To.After(to) {
		to = b.To
	}
	return reconcile.Window{From: from, To: to}
}
