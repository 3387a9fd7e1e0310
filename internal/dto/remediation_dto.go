package dto

import "github.com/noah-isme/academy-reconcile-api/internal/models"

// RemediationState names where a student stands in the debt remediation workflow.
type RemediationState string

const (
	RemediationStateAssigned RemediationState = "assigned"
	RemediationStateReleased RemediationState = "released"
	RemediationStateNone     RemediationState = "none"
)

// RemediationResponse describes the outcome of a suspend or reinstate action.
type RemediationResponse struct {
	StudentID uint             `json:"student_id"`
	Action    string           `json:"action"`
	State     RemediationState `json:"state"`
	Changed   bool             `json:"changed"`
	ClassIDs  []uint           `json:"class_ids"`
	Releases  int              `json:"releases"`
	Removed   int64            `json:"assignments_removed"`
	Restored  int              `json:"assignments_restored"`
}

// RemediationStateResponse reports the seats a student holds and has released.
type RemediationStateResponse struct {
	StudentID      uint                     `json:"student_id"`
	State          RemediationState         `json:"state"`
	Assignments    []models.ClassAssignment `json:"assignments"`
	ActiveReleases []models.SeatRelease     `json:"active_releases"`
}

// RelieveCapacityRequest selects the students removed from an over-capacity class.
type RelieveCapacityRequest struct {
	StudentIDs []uint `json:"student_ids" validate:"required,min=1,dive,gt=0"`
}

// RelieveCapacityResponse reports the permanent removals and the resulting seats.
type RelieveCapacityResponse struct {
	ClassID   uint   `json:"class_id"`
	Removed   []uint `json:"removed_student_ids"`
	Assigned  int    `json:"assigned_count"`
	MaxSeats  int    `json:"max_seats"`
	Remaining int    `json:"remaining_excess"`
}
