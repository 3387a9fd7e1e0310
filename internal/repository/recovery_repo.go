package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/academy-reconcile-api/internal/models"
)

// RecoveryFilter narrows recovery session queries.
type RecoveryFilter struct {
	StudentID *uint
	Status    models.RecoveryStatus
}

// RecoveryRepository persists recovery sessions.
type RecoveryRepository interface {
	Create(ctx context.Context, session *models.RecoverySession) error
	GetByID(ctx context.Context, id uint) (models.RecoverySession, error)
	List(ctx context.Context, filter RecoveryFilter) ([]models.RecoverySession, error)
	CountByStatus(ctx context.Context, status models.RecoveryStatus) (int64, error)
	// ResolvePending moves a pending session to its resolved state. It reports
	// false when the session was no longer pending.
	ResolvePending(ctx context.Context, session *models.RecoverySession) (bool, error)
}

type recoveryRepository struct {
	db *gorm.DB
}

// NewRecoveryRepository instantiates a GORM-backed repository.
func NewRecoveryRepository(db *gorm.DB) RecoveryRepository {
	return &recoveryRepository{db: db}
}

func (r *recoveryRepository) Create(ctx context.Context, session *models.RecoverySession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *recoveryRepository) GetByID(ctx context.Context, id uint) (models.RecoverySession, error) {
	var session models.RecoverySession
	if err := r.db.WithContext(ctx).First(&session, id).Error; err != nil {
		return models.RecoverySession{}, err
	}
	return session, nil
}

func (r *recoveryRepository) List(ctx context.Context, filter RecoveryFilter) ([]models.RecoverySession, error) {
	query := r.db.WithContext(ctx).Model(&models.RecoverySession{})
	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var sessions []models.RecoverySession
	if err := query.Order("absence_date ASC, id ASC").Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *recoveryRepository) CountByStatus(ctx context.Context, status models.RecoveryStatus) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.RecoverySession{}).Where("status = ?", status).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *recoveryRepository) ResolvePending(ctx context.Context, session *models.RecoverySession) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.RecoverySession{}).
		Where("id = ? AND status = ?", session.ID, models.RecoveryStatusPending).
		Updates(map[string]interface{}{
			"status":            session.Status,
			"resolution_reason": session.ResolutionReason,
			"resolved_on":       session.ResolvedOn,
			"updated_at":        time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
