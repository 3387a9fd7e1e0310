package models

import "time"

// Student represents an academy member who can hold class seats.
type Student struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Name          string     `gorm:"size:255;not null" json:"name"`
	Email         string     `gorm:"size:255;index" json:"email"`
	Active        bool       `gorm:"not null;index" json:"active"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Deactivate flips the active flag. Dependent rows are left untouched.
func (s *Student) Deactivate(at time.Time) {
	s.Active = false
	s.DeactivatedAt = &at
}
