package models

import "time"

// SeatReleaseStatus is the lifecycle of a temporary seat release.
type SeatReleaseStatus string

const (
	SeatReleaseStatusActive    SeatReleaseStatus = "active"
	SeatReleaseStatusCancelled SeatReleaseStatus = "cancelled"
)

// SeatReleaseReasonDebt marks releases created by the debt remediation workflow.
const SeatReleaseReasonDebt = "debt"

// SeatRelease is a time-boxed surrender of a seat held by a student.
type SeatRelease struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	StudentID uint              `gorm:"not null;index" json:"student_id"`
	ClassID   uint              `gorm:"not null;index" json:"class_id"`
	StartDate time.Time         `gorm:"not null" json:"start_date"`
	EndDate   time.Time         `gorm:"not null" json:"end_date"`
	Reason    string            `gorm:"size:64;not null" json:"reason"`
	Status    SeatReleaseStatus `gorm:"size:16;not null;default:active;index" json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// ActiveOn reports whether the release suppresses its seat on the given day.
// Both bounds are inclusive; callers pass values truncated to the calendar day.
func (r SeatRelease) ActiveOn(day time.Time) bool {
	if r.Status != SeatReleaseStatusActive {
		return false
	}
	return !day.Before(r.StartDate) && !day.After(r.EndDate)
}
