package models

import "time"

// AssignmentOrigin records who placed the student in the class.
type AssignmentOrigin string

const (
	AssignmentOriginSchool   AssignmentOrigin = "school"
	AssignmentOriginInternal AssignmentOrigin = "internal"
)

// ClassAssignment is a standing seat reservation of a student across all future
// occurrences of a class.
type ClassAssignment struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	StudentID uint             `gorm:"not null;index" json:"student_id"`
	ClassID   uint             `gorm:"not null;index" json:"class_id"`
	Origin    AssignmentOrigin `gorm:"size:16;not null;default:school" json:"origin"`
	CreatedAt time.Time        `json:"created_at"`
}
