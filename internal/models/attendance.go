package models

import "time"

// AttendanceStatus represents the outcome recorded for a student on a class date.
type AttendanceStatus string

const (
	AttendanceStatusAttended         AttendanceStatus = "attended"
	AttendanceStatusAbsence          AttendanceStatus = "absence"
	AttendanceStatusJustifiedAbsence AttendanceStatus = "justified-absence"
	AttendanceStatusInjury           AttendanceStatus = "injury"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusAttended, AttendanceStatusAbsence, AttendanceStatusJustifiedAbsence, AttendanceStatusInjury:
		return true
	default:
		return false
	}
}

// IsAbsence returns true for the statuses that free a seat on the day.
func (s AttendanceStatus) IsAbsence() bool {
	return s == AttendanceStatusAbsence || s == AttendanceStatusJustifiedAbsence
}

// AttendanceRecord captures a student's attendance on a class date.
type AttendanceRecord struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	StudentID uint             `gorm:"not null;index;uniqueIndex:idx_attendance_student_class_date" json:"student_id"`
	ClassID   uint             `gorm:"not null;index:idx_attendance_class_date;uniqueIndex:idx_attendance_student_class_date" json:"class_id"`
	Date      time.Time        `gorm:"not null;index:idx_attendance_class_date;uniqueIndex:idx_attendance_student_class_date" json:"date"`
	Status    AttendanceStatus `gorm:"size:32;not null" json:"status"`
	Notes     string           `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
