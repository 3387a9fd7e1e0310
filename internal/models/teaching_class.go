package models

import "time"

// ClassKind describes how a recurring class is sold and staffed.
type ClassKind string

const (
	ClassKindIndividual ClassKind = "individual"
	ClassKindGroup      ClassKind = "group"
	ClassKindInternal   ClassKind = "internal"
	ClassKindSchool     ClassKind = "school"
)

// Valid returns true when the kind is one of the supported values.
func (k ClassKind) Valid() bool {
	switch k {
	case ClassKindIndividual, ClassKindGroup, ClassKindInternal, ClassKindSchool:
		return true
	default:
		return false
	}
}

// TeachingClass is a recurring class definition. Kind may be empty on legacy rows.
type TeachingClass struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Kind      ClassKind `gorm:"size:32;index" json:"kind"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OccurrenceState is the lifecycle of a dated class occurrence.
type OccurrenceState string

const (
	OccurrenceStateScheduled OccurrenceState = "scheduled"
	OccurrenceStateCancelled OccurrenceState = "cancelled"
	OccurrenceStateDeleted   OccurrenceState = "deleted"
)

// ClassOccurrence is one dated instance of a TeachingClass.
type ClassOccurrence struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	ClassID   uint            `gorm:"not null;index:idx_occurrence_class_date" json:"class_id"`
	Date      time.Time       `gorm:"not null;index:idx_occurrence_class_date" json:"date"`
	State     OccurrenceState `gorm:"size:16;not null;default:scheduled;index" json:"state"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Scheduled reports whether the occurrence takes part in capacity and debt computation.
func (o ClassOccurrence) Scheduled() bool {
	return o.State == OccurrenceStateScheduled
}
