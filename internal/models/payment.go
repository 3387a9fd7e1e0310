package models

import "time"

// PaymentKind distinguishes monthly fees from per-session packs.
type PaymentKind string

const (
	PaymentKindMonthly    PaymentKind = "monthly"
	PaymentKindPerSession PaymentKind = "per-session"
)

// Payment is an append-only record of money received from a student.
// CoveredMonth holds either a canonical YYYY-MM value or a legacy free-text label.
type Payment struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	StudentID     uint        `gorm:"not null;index" json:"student_id"`
	Amount        float64     `gorm:"not null" json:"amount"`
	PaidAt        time.Time   `gorm:"not null;index" json:"paid_at"`
	Kind          PaymentKind `gorm:"size:16;not null" json:"kind"`
	CoveredMonth  string      `gorm:"size:64" json:"covered_month,omitempty"`
	CoverageStart *time.Time  `json:"coverage_start,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}
