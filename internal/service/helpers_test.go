package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/academy-reconcile-api/internal/models"
	"github.com/noah-isme/academy-reconcile-api/internal/repository"
)

var testToday = time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func fixedNow() time.Time {
	return testToday.Add(9 * time.Hour)
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func storesFor(db *gorm.DB) ReconciliationStores {
	return ReconciliationStores{
		Students:     repository.NewStudentRepository(db),
		Classes:      repository.NewClassRepository(db),
		Assignments:  repository.NewAssignmentRepository(db),
		Payments:     repository.NewPaymentRepository(db),
		Attendance:   repository.NewAttendanceRepository(db),
		SeatReleases: repository.NewSeatReleaseRepository(db),
		Recoveries:   repository.NewRecoveryRepository(db),
	}
}

func day(offset int) time.Time {
	return testToday.AddDate(0, 0, offset)
}

type academyFixture struct {
	ana, bruno        models.Student
	group, private    models.TeachingClass
	groupOccurrence   models.ClassOccurrence
	privateOccurrence models.ClassOccurrence
}

// seedAcademy creates two students sharing a group class, one of them also holding
// an individual class. Bruno has paid March, Ana never paid.
func seedAcademy(t *testing.T, db *gorm.DB) academyFixture {
	t.Helper()
	f := academyFixture{
		ana:     models.Student{Name: "Ana", Active: true},
		bruno:   models.Student{Name: "Bruno", Active: true},
		group:   models.TeachingClass{Name: "Grupo Martes", Kind: models.ClassKindGroup},
		private: models.TeachingClass{Name: "Particular Luis", Kind: models.ClassKindIndividual},
	}
	require.NoError(t, db.Create(&f.ana).Error)
	require.NoError(t, db.Create(&f.bruno).Error)
	require.NoError(t, db.Create(&f.group).Error)
	require.NoError(t, db.Create(&f.private).Error)

	f.groupOccurrence = models.ClassOccurrence{ClassID: f.group.ID, Date: day(2), State: models.OccurrenceStateScheduled}
	f.privateOccurrence = models.ClassOccurrence{ClassID: f.private.ID, Date: day(3), State: models.OccurrenceStateScheduled}
	cancelled := models.ClassOccurrence{ClassID: f.group.ID, Date: day(9), State: models.OccurrenceStateCancelled}
	require.NoError(t, db.Create(&f.groupOccurrence).Error)
	require.NoError(t, db.Create(&f.privateOccurrence).Error)
	require.NoError(t, db.Create(&cancelled).Error)

	require.NoError(t, db.Create(&[]models.ClassAssignment{
		{StudentID: f.ana.ID, ClassID: f.group.ID, Origin: models.AssignmentOriginSchool},
		{StudentID: f.bruno.ID, ClassID: f.group.ID, Origin: models.AssignmentOriginSchool},
		{StudentID: f.bruno.ID, ClassID: f.private.ID, Origin: models.AssignmentOriginSchool},
	}).Error)

	require.NoError(t, db.Create(&models.Payment{
		StudentID:    f.bruno.ID,
		Amount:       120,
		PaidAt:       day(-9),
		Kind:         models.PaymentKindMonthly,
		CoveredMonth: "Marzo 2025",
	}).Error)

	return f
}

// countingClassRepository delegates to a real repository, counts open-ended
// occurrence lookups and can fail class listing on demand.
type countingClassRepository struct {
	repository.ClassRepository
	listErr       error
	futureLookups atomic.Int32
}

func (r *countingClassRepository) ListClasses(ctx context.Context) ([]models.TeachingClass, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.ClassRepository.ListClasses(ctx)
}

func (r *countingClassRepository) ListOccurrences(ctx context.Context, filter repository.OccurrenceFilter) ([]models.ClassOccurrence, error) {
	if filter.To.IsZero() {
		r.futureLookups.Add(1)
	}
	return r.ClassRepository.ListOccurrences(ctx, filter)
}
