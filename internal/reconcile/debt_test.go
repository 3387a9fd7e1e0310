package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-reconcile-api/internal/models"
)

var debtToday = time.Date(2025, time.January, 20, 10, 0, 0, 0, time.UTC)

func debtFixture() DebtInput {
	return DebtInput{
		Students: []models.Student{{ID: 1, Name: "Lucia", Active: true}},
		Classes: []models.TeachingClass{
			{ID: 100, Name: "Tenis", Kind: models.ClassKindIndividual},
			{ID: 200, Name: "Equipo", Kind: models.ClassKindInternal},
		},
		Assignments: []models.ClassAssignment{
			{StudentID: 1, ClassID: 100, Origin: models.AssignmentOriginSchool},
		},
		Today: debtToday,
	}
}

func datePtr(t time.Time) *time.Time {
	return &t
}

func TestDetectDebtorsNeverPaid(t *testing.T) {
	debtors := DetectDebtors(debtFixture())
	require.Len(t, debtors, 1)
	require.Equal(t, uint(1), debtors[0].StudentID)
	require.Equal(t, NeverPaidDays, debtors[0].DaysSincePayment)
	require.True(t, debtors[0].NeverPaid)
	require.Equal(t, []uint{100}, debtors[0].ClassIDs)
	require.Equal(t, "2025-01", debtors[0].ReconciliationFor)
}

func TestDetectDebtorsMonthlyCoverage(t *testing.T) {
	in := debtFixture()
	in.Payments = []models.Payment{
		{StudentID: 1, Kind: models.PaymentKindMonthly, CoveredMonth: "Enero 2025", PaidAt: debtToday.AddDate(0, 0, -15)},
		{StudentID: 1, Kind: models.PaymentKindPerSession, CoverageStart: datePtr(debtToday.AddDate(0, 0, -90)), PaidAt: debtToday.AddDate(0, 0, -90)},
	}
	require.Empty(t, DetectDebtors(in))

	in.Payments[0].CoveredMonth = "2025-01"
	require.Empty(t, DetectDebtors(in))

	in.Payments[0].CoveredMonth = "Diciembre 2024"
	debtors := DetectDebtors(in)
	require.Len(t, debtors, 1)
	require.Equal(t, 15, debtors[0].DaysSincePayment)
	require.False(t, debtors[0].NeverPaid)

	in.Payments[0].CoveredMonth = "pagado"
	require.Len(t, DetectDebtors(in), 1)
}

func TestDetectDebtorsPerSessionBoundary(t *testing.T) {
	cases := []struct {
		daysAgo int
		debtor  bool
	}{
		{29, false},
		{30, false},
		{31, true},
	}

	for _, tc := range cases {
		in := debtFixture()
		start := debtToday.AddDate(0, 0, -tc.daysAgo)
		in.Payments = []models.Payment{
			{StudentID: 1, Kind: models.PaymentKindPerSession, CoverageStart: datePtr(start), PaidAt: start},
		}
		debtors := DetectDebtors(in)
		if tc.debtor {
			require.Len(t, debtors, 1, "days ago %d", tc.daysAgo)
			require.Equal(t, tc.daysAgo, debtors[0].DaysSincePayment)
		} else {
			require.Empty(t, debtors, "days ago %d", tc.daysAgo)
		}
	}
}

func TestDetectDebtorsSkipsIneligibleRows(t *testing.T) {
	in := debtFixture()
	in.Students = append(in.Students,
		models.Student{ID: 2, Name: "Inactive", Active: false},
		models.Student{ID: 3, Name: "Internal", Active: true},
		models.Student{ID: 4, Name: "Team", Active: true},
	)
	in.Assignments = append(in.Assignments,
		models.ClassAssignment{StudentID: 2, ClassID: 100, Origin: models.AssignmentOriginSchool},
		models.ClassAssignment{StudentID: 3, ClassID: 100, Origin: models.AssignmentOriginInternal},
		models.ClassAssignment{StudentID: 4, ClassID: 200, Origin: models.AssignmentOriginSchool},
	)

	debtors := DetectDebtors(in)
	require.Len(t, debtors, 1)
	require.Equal(t, uint(1), debtors[0].StudentID)
}

func TestDetectDebtorsOccurrenceWindow(t *testing.T) {
	in := debtFixture()
	in.OccurrencesInWindow = []models.ClassOccurrence{
		{ClassID: 100, Date: debtToday, State: models.OccurrenceStateCancelled},
		{ClassID: 200, Date: debtToday, State: models.OccurrenceStateScheduled},
	}
	require.Empty(t, DetectDebtors(in))

	in.OccurrencesInWindow = append(in.OccurrencesInWindow, models.ClassOccurrence{ClassID: 100, Date: debtToday, State: models.OccurrenceStateScheduled})
	require.Len(t, DetectDebtors(in), 1)

	in.OccurrencesInWindow = []models.ClassOccurrence{}
	require.NotNil(t, DetectDebtors(in))
	require.Empty(t, DetectDebtors(in))
}

func TestRankDebtors(t *testing.T) {
	ranked := RankDebtors([]Debtor{
		{StudentID: 1, DaysSincePayment: 40},
		{StudentID: 2, DaysSincePayment: NeverPaidDays},
		{StudentID: 3, DaysSincePayment: 40},
		{StudentID: 4, DaysSincePayment: 35},
	})

	ids := make([]uint, 0, len(ranked))
	for _, debtor := range ranked {
		ids = append(ids, debtor.StudentID)
	}
	require.Equal(t, []uint{2, 1, 3, 4}, ids)
}
