package dto

import (
	"time"

	"github.com/noah-isme/academy-reconcile-api/internal/models"
	"github.com/noah-isme/academy-reconcile-api/internal/reconcile"
)

// DashboardResponse aggregates capacity, debt and recovery information for the console.
type DashboardResponse struct {
	GeneratedAt           time.Time                 `json:"generated_at"`
	ReconciliationMonth   string                    `json:"reconciliation_month"`
	Window                reconcile.Window          `json:"window"`
	IncompleteOccurrences []reconcile.OccurrenceGap `json:"incomplete_occurrences"`
	FromFallback          bool                      `json:"from_fallback"`
	Debtors               []reconcile.Debtor        `json:"debtors"`
	RecoverySlots         []reconcile.OccurrenceGap `json:"recovery_slots"`
	PendingRecoveries     int64                     `json:"pending_recoveries"`
	CacheHit              bool                      `json:"cache_hit"`
}

// DebtorListResponse lists debtors ranked most overdue first.
type DebtorListResponse struct {
	GeneratedAt         time.Time          `json:"generated_at"`
	ReconciliationMonth string             `json:"reconciliation_month"`
	Debtors             []reconcile.Debtor `json:"debtors"`
	CacheHit            bool               `json:"cache_hit"`
}

// ClassCapacity is the seat picture of one class.
type ClassCapacity struct {
	ClassID        uint                           `json:"class_id"`
	Name           string                         `json:"name"`
	Kind           models.ClassKind               `json:"kind"`
	Payable        bool                           `json:"payable"`
	Classification reconcile.ClassificationSource `json:"classification_source"`
	Seats          reconcile.Seats                `json:"seats"`
}

// CapacityResponse reports seat accounting for every class and the dated gaps in the window.
type CapacityResponse struct {
	GeneratedAt time.Time                 `json:"generated_at"`
	Window      reconcile.Window          `json:"window"`
	Classes     []ClassCapacity           `json:"classes"`
	Gaps        []reconcile.OccurrenceGap `json:"gaps"`
}

// RecoverySlotsResponse lists occurrences where a justified absence frees a seat.
type RecoverySlotsResponse struct {
	GeneratedAt time.Time                 `json:"generated_at"`
	Window      reconcile.Window          `json:"window"`
	Slots       []reconcile.OccurrenceGap `json:"slots"`
}

// NewClassCapacity builds the capacity row of a class.
func NewClassCapacity(class models.TeachingClass, seats reconcile.Seats) ClassCapacity {
	classification := reconcile.ClassifyClass(class)
	return ClassCapacity{
		ClassID:        class.ID,
		Name:           class.Name,
		Kind:           classification.Kind,
		Payable:        classification.Payable,
		Classification: classification.Source,
		Seats:          seats,
	}
}
