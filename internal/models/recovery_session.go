package models

import "time"

// RecoveryStatus is the lifecycle of a make-up obligation.
type RecoveryStatus string

const (
	RecoveryStatusPending   RecoveryStatus = "pending"
	RecoveryStatusCompleted RecoveryStatus = "completed"
	RecoveryStatusCancelled RecoveryStatus = "cancelled"
)

// RecoverySession is created from a justified absence and resolved by an operator.
type RecoverySession struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	StudentID        uint           `gorm:"not null;index" json:"student_id"`
	ClassID          uint           `gorm:"not null;index" json:"class_id"`
	AttendanceID     uint           `gorm:"not null;uniqueIndex" json:"attendance_id"`
	AbsenceDate      time.Time      `gorm:"not null" json:"absence_date"`
	Status           RecoveryStatus `gorm:"size:16;not null;default:pending;index" json:"status"`
	ResolutionReason string         `gorm:"type:text" json:"resolution_reason,omitempty"`
	ResolvedOn       *time.Time     `json:"resolved_on,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// Pending reports whether the session still awaits resolution.
func (r RecoverySession) Pending() bool {
	return r.Status == RecoveryStatusPending
}
