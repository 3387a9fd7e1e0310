package dto

import "github.com/noah-isme/academy-reconcile-api/internal/models"

// DateLayout is the calendar date format accepted by request payloads.
const DateLayout = "2006-01-02"

// AttendanceCreateRequest records a student's attendance on a class date.
type AttendanceCreateRequest struct {
	StudentID uint   `json:"student_id" validate:"required,gt=0"`
	ClassID   uint   `json:"class_id" validate:"required,gt=0"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Status    string `json:"status" validate:"required,oneof=attended absence justified-absence injury"`
	Notes     string `json:"notes" validate:"max=1000"`
}

// AttendanceResponse returns the stored record and, for justified absences, the recovery session it opened.
type AttendanceResponse struct {
	Attendance      models.AttendanceRecord `json:"attendance"`
	RecoverySession *models.RecoverySession `json:"recovery_session,omitempty"`
}

// RecoveryResolveRequest completes or cancels a pending recovery session.
type RecoveryResolveRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
	Date   string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// RecoveryListResponse lists recovery sessions.
type RecoveryListResponse struct {
	Items []models.RecoverySession `json:"items"`
	Total int                      `json:"total"`
}
