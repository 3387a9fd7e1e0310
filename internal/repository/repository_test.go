package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/academy-reconcile-api/internal/models"
)

var repoDay = time.Date(2025, time.April, 7, 0, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func TestStudentRepositoryListActiveAndDeactivate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStudentRepository(db)
	ctx := context.Background()

	active := models.Student{Name: "Ana", Active: true}
	inactive := models.Student{Name: "Bruno", Active: false}
	require.NoError(t, repo.Create(ctx, &active))
	require.NoError(t, repo.Create(ctx, &inactive))

	students, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, students, 1)
	require.Equal(t, "Ana", students[0].Name)

	require.NoError(t, repo.Deactivate(ctx, active.ID, repoDay))
	students, err = repo.ListActive(ctx)
	require.NoError(t, err)
	require.Empty(t, students)

	stored, err := repo.GetByID(ctx, active.ID)
	require.NoError(t, err)
	require.False(t, stored.Active)
	require.NotNil(t, stored.DeactivatedAt)

	require.ErrorIs(t, repo.Deactivate(ctx, 999, repoDay), gorm.ErrRecordNotFound)
}

func TestClassRepositoryListOccurrencesFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewClassRepository(db)
	ctx := context.Background()

	class := models.TeachingClass{Name: "Padel", Kind: models.ClassKindGroup}
	require.NoError(t, repo.CreateClass(ctx, &class))
	require.NoError(t, repo.CreateOccurrences(ctx, []models.ClassOccurrence{
		{ClassID: class.ID, Date: repoDay, State: models.OccurrenceStateScheduled},
		{ClassID: class.ID, Date: repoDay.AddDate(0, 0, 7), State: models.OccurrenceStateCancelled},
		{ClassID: class.ID, Date: repoDay.AddDate(0, 0, 14), State: models.OccurrenceStateDeleted},
		{ClassID: class.ID, Date: repoDay.AddDate(0, 0, 40), State: models.OccurrenceStateScheduled},
	}))

	occurrences, err := repo.ListOccurrences(ctx, OccurrenceFilter{
		From:          repoDay,
		To:            repoDay.AddDate(0, 0, 30),
		ExcludeStates: []models.OccurrenceState{models.OccurrenceStateCancelled, models.OccurrenceStateDeleted},
	})
	require.NoError(t, err)
	require.Len(t, occurrences, 1)
	require.True(t, occurrences[0].Date.Equal(repoDay))

	occurrences, err = repo.ListOccurrences(ctx, OccurrenceFilter{ClassID: &class.ID})
	require.NoError(t, err)
	require.Len(t, occurrences, 4)
}

func TestDateFiltersIncludeWholeBoundaryDays(t *testing.T) {
	db := setupTestDB(t)
	classes := NewClassRepository(db)
	attendance := NewAttendanceRepository(db)
	ctx := context.Background()

	class := models.TeachingClass{Name: "Tenis", Kind: models.ClassKindGroup}
	require.NoError(t, classes.CreateClass(ctx, &class))

	lastDay := repoDay.AddDate(0, 0, 30)
	require.NoError(t, classes.CreateOccurrences(ctx, []models.ClassOccurrence{
		{ClassID: class.ID, Date: repoDay.Add(7 * time.Hour), State: models.OccurrenceStateScheduled},
		{ClassID: class.ID, Date: lastDay.Add(18 * time.Hour), State: models.OccurrenceStateScheduled},
		{ClassID: class.ID, Date: lastDay.AddDate(0, 0, 1), State: models.OccurrenceStateScheduled},
		{ClassID: class.ID, Date: repoDay.Add(-time.Minute), State: models.OccurrenceStateScheduled},
	}))

	occurrences, err := classes.ListOccurrences(ctx, OccurrenceFilter{From: repoDay, To: lastDay})
	require.NoError(t, err)
	require.Len(t, occurrences, 2)
	require.True(t, occurrences[1].Date.Equal(lastDay.Add(18*time.Hour)))

	for _, at := range []time.Time{lastDay.Add(19 * time.Hour), lastDay.AddDate(0, 0, 1).Add(time.Hour)} {
		require.NoError(t, attendance.Create(ctx, &models.AttendanceRecord{StudentID: 1, ClassID: class.ID, Date: at, Status: models.AttendanceStatusAbsence}))
	}
	records, err := attendance.List(ctx, AttendanceFilter{From: repoDay, To: lastDay})
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestAssignmentRepositoryDeleteForStudent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssignmentRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, []models.ClassAssignment{
		{StudentID: 1, ClassID: 10, Origin: models.AssignmentOriginSchool},
		{StudentID: 1, ClassID: 11, Origin: models.AssignmentOriginInternal},
		{StudentID: 2, ClassID: 10, Origin: models.AssignmentOriginSchool},
	}))

	removed, err := repo.DeleteForStudent(ctx, 1, AssignmentFilter{Origin: models.AssignmentOriginSchool})
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	remaining, err := repo.List(ctx, AssignmentFilter{})
	require.NoError(t, err)
	require.Len(t, remaining, 2)

	classID := uint(10)
	byClass, err := repo.List(ctx, AssignmentFilter{ClassID: &classID})
	require.NoError(t, err)
	require.Len(t, byClass, 1)
	require.Equal(t, uint(2), byClass[0].StudentID)
}

func TestSeatReleaseRepositoryActiveOn(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSeatReleaseRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, []models.SeatRelease{
		{StudentID: 1, ClassID: 10, StartDate: repoDay, EndDate: repoDay.AddDate(0, 0, 30), Reason: models.SeatReleaseReasonDebt, Status: models.SeatReleaseStatusActive},
		{StudentID: 2, ClassID: 10, StartDate: repoDay.AddDate(0, 0, -40), EndDate: repoDay.AddDate(0, 0, -10), Reason: models.SeatReleaseReasonDebt, Status: models.SeatReleaseStatusActive},
		{StudentID: 3, ClassID: 10, StartDate: repoDay, EndDate: repoDay.AddDate(0, 0, 30), Reason: models.SeatReleaseReasonDebt, Status: models.SeatReleaseStatusCancelled},
	}))

	releases, err := repo.List(ctx, SeatReleaseFilter{ActiveOn: &repoDay})
	require.NoError(t, err)
	require.Len(t, releases, 1)
	require.Equal(t, uint(1), releases[0].StudentID)

	require.NoError(t, repo.Create(ctx, []models.SeatRelease{
		{StudentID: 4, ClassID: 11, StartDate: repoDay.Add(10 * time.Hour), EndDate: repoDay.AddDate(0, 0, 30), Reason: models.SeatReleaseReasonDebt, Status: models.SeatReleaseStatusActive},
	}))
	classID := uint(11)
	sameDay, err := repo.List(ctx, SeatReleaseFilter{ActiveOn: &repoDay, ClassID: &classID})
	require.NoError(t, err)
	require.Len(t, sameDay, 1)

	updated, err := repo.SetStatus(ctx, []uint{releases[0].ID}, models.SeatReleaseStatusCancelled)
	require.NoError(t, err)
	require.Equal(t, int64(1), updated)

	releases, err = repo.List(ctx, SeatReleaseFilter{ActiveOn: &repoDay})
	require.NoError(t, err)
	require.Empty(t, releases)
}

func TestTransactorRollsBack(t *testing.T) {
	db := setupTestDB(t)
	store := NewTransactor(db)
	assignments := NewAssignmentRepository(db)
	ctx := context.Background()

	require.NoError(t, assignments.Create(ctx, []models.ClassAssignment{{StudentID: 1, ClassID: 10, Origin: models.AssignmentOriginSchool}}))

	boom := errors.New("boom")
	err := store.WithinTransaction(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.SeatReleases.Create(ctx, []models.SeatRelease{{
			StudentID: 1, ClassID: 10, StartDate: repoDay, EndDate: repoDay.AddDate(0, 0, 30),
			Reason: models.SeatReleaseReasonDebt, Status: models.SeatReleaseStatusActive,
		}}); err != nil {
			return err
		}
		if _, err := tx.Assignments.DeleteForStudent(ctx, 1, AssignmentFilter{}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	remaining, err := assignments.List(ctx, AssignmentFilter{})
	require.NoError(t, err)
	require.Len(t, remaining, 1)

	releases, err := NewSeatReleaseRepository(db).List(ctx, SeatReleaseFilter{})
	require.NoError(t, err)
	require.Empty(t, releases)
}

func TestRecoveryRepositoryLifecycle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRecoveryRepository(db)
	ctx := context.Background()

	session := models.RecoverySession{StudentID: 1, ClassID: 10, AttendanceID: 5, AbsenceDate: repoDay, Status: models.RecoveryStatusPending}
	require.NoError(t, repo.Create(ctx, &session))

	pending, err := repo.CountByStatus(ctx, models.RecoveryStatusPending)
	require.NoError(t, err)
	require.Equal(t, int64(1), pending)

	resolvedOn := repoDay.AddDate(0, 0, 2)
	session.Status = models.RecoveryStatusCompleted
	session.ResolutionReason = "recovered"
	session.ResolvedOn = &resolvedOn
	ok, err := repo.ResolvePending(ctx, &session)
	require.NoError(t, err)
	require.True(t, ok)

	session.Status = models.RecoveryStatusCancelled
	ok, err = repo.ResolvePending(ctx, &session)
	require.NoError(t, err)
	require.False(t, ok)

	stored, err := repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, models.RecoveryStatusCompleted, stored.Status)
	require.Equal(t, "recovered", stored.ResolutionReason)

	sessions, err := repo.List(ctx, RecoveryFilter{Status: models.RecoveryStatusPending})
	require.NoError(t, err)
	require.Empty(t, sessions)
}
