package reconcile

import (
	"sort"
	"time"

	"github.com/noah-isme/academy-reconcile-api/internal/models"
)

// DebtInput gathers the rows the debt detector joins.
type DebtInput struct {
	Students    []models.Student
	Assignments []models.ClassAssignment
	Payments    []models.Payment
	Classes     []models.TeachingClass
	// OccurrencesInWindow restricts payable classes to those with a scheduled
	// occurrence in the reconciliation window. Nil disables the restriction.
	OccurrencesInWindow []models.ClassOccurrence
	Today               time.Time
}

// Debtor is a student with payable enrollments and no coverage for the current month.
type Debtor struct {
	StudentID         uint       `json:"student_id"`
	StudentName       string     `json:"student_name"`
	ClassIDs          []uint     `json:"class_ids"`
	LastPaymentAt     *time.Time `json:"last_payment_at,omitempty"`
	DaysSincePayment  int        `json:"days_since_payment"`
	NeverPaid         bool       `json:"never_paid"`
	ReconciliationFor string     `json:"reconciliation_month"`
}

// DetectDebtors flags active students holding school-origin seats on payable
// classes without a monthly payment for the current month or a per-session
// payment started within the trailing coverage window.
func DetectDebtors(in DebtInput) []Debtor {
	today := Day(in.Today)
	month := MonthOf(today)

	payable := make(map[uint]bool, len(in.Classes))
	for _, class := range in.Classes {
		if ClassifyClass(class).Payable {
			payable[class.ID] = true
		}
	}

	if in.OccurrencesInWindow != nil {
		scheduled := make(map[uint]bool)
		for _, occurrence := range in.OccurrencesInWindow {
			if occurrence.Scheduled() && payable[occurrence.ClassID] {
				scheduled[occurrence.ClassID] = true
			}
		}
		if len(scheduled) == 0 {
			return []Debtor{}
		}
		payable = scheduled
	}

	active := make(map[uint]models.Student, len(in.Students))
	for _, student := range in.Students {
		if student.Active {
			active[student.ID] = student
		}
	}

	classesByStudent := make(map[uint]map[uint]struct{})
	for _, assignment := range in.Assignments {
		if assignment.Origin != models.AssignmentOriginSchool || !payable[assignment.ClassID] {
			continue
		}
		if _, ok := active[assignment.StudentID]; !ok {
			continue
		}
		set, ok := classesByStudent[assignment.StudentID]
		if !ok {
			set = make(map[uint]struct{})
			classesByStudent[assignment.StudentID] = set
		}
		set[assignment.ClassID] = struct{}{}
	}

	paymentsByStudent := make(map[uint][]models.Payment)
	for _, payment := range in.Payments {
		if _, ok := classesByStudent[payment.StudentID]; ok {
			paymentsByStudent[payment.StudentID] = append(paymentsByStudent[payment.StudentID], payment)
		}
	}

	sessionCutoff := today.AddDate(0, 0, -PerSessionCoverageDays)
	debtors := make([]Debtor, 0)
	for studentID, classSet := range classesByStudent {
		payments := paymentsByStudent[studentID]
		if covered(payments, month, sessionCutoff) {
			continue
		}

		debtor := Debtor{
			StudentID:         studentID,
			StudentName:       active[studentID].Name,
			ClassIDs:          sortedIDs(classSet),
			DaysSincePayment:  NeverPaidDays,
			NeverPaid:         true,
			ReconciliationFor: month,
		}
		if latest, ok := latestPayment(payments); ok {
			paidAt := latest.PaidAt
			days := DaysBetween(paidAt, today)
			if days < 0 {
				days = 0
			}
			debtor.LastPaymentAt = &paidAt
			debtor.DaysSincePayment = days
			debtor.NeverPaid = false
		}
		debtors = append(debtors, debtor)
	}

	sort.Slice(debtors, func(i, j int) bool { return debtors[i].StudentID < debtors[j].StudentID })
	return debtors
}

// RankDebtors orders debtors most overdue first. Ties keep student id order.
func RankDebtors(debtors []Debtor) []Debtor {
	ranked := make([]Debtor, len(debtors))
	copy(ranked, debtors)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].DaysSincePayment != ranked[j].DaysSincePayment {
			return ranked[i].DaysSincePayment > ranked[j].DaysSincePayment
		}
		return ranked[i].StudentID < ranked[j].StudentID
	})
	return ranked
}

// covered checks monthly coverage for month and per-session coverage starting
// on or after cutoff.
func covered(payments []models.Payment, month string, cutoff time.Time) bool {
	for _, payment := range payments {
		switch payment.Kind {
		case models.PaymentKindMonthly:
			if MonthsEqual(payment.CoveredMonth, month) {
				return true
			}
		case models.PaymentKindPerSession:
			if payment.CoverageStart != nil && !Day(*payment.CoverageStart).Before(cutoff) {
				return true
			}
		}
	}
	return false
}

func latestPayment(payments []models.Payment) (models.Payment, bool) {
	if len(payments) == 0 {
		return models.Payment{}, false
	}
	latest := payments[0]
	for _, payment := range payments[1:] {
		if payment.PaidAt.After(latest.PaidAt) {
			latest = payment
		}
	}
	return latest, true
}

func sortedIDs(set map[uint]struct{}) []uint {
	ids := make([]uint, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
