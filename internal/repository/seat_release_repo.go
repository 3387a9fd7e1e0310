package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/academy-reconcile-api/internal/models"
)

// SeatReleaseFilter narrows seat release queries.
type SeatReleaseFilter struct {
	// ActiveOn keeps active releases whose range contains the day.
	ActiveOn  *time.Time
	StudentID *uint
	ClassID   *uint
	Reason    string
	Status    models.SeatReleaseStatus
}

// SeatReleaseRepository persists temporary seat releases.
type SeatReleaseRepository interface {
	List(ctx context.Context, filter SeatReleaseFilter) ([]models.SeatRelease, error)
	Create(ctx context.Context, releases []models.SeatRelease) error
	SetStatus(ctx context.Context, ids []uint, status models.SeatReleaseStatus) (int64, error)
}

type seatReleaseRepository struct {
	db *gorm.DB
}

// NewSeatReleaseRepository instantiates a GORM-backed repository.
func NewSeatReleaseRepository(db *gorm.DB) SeatReleaseRepository {
	return &seatReleaseRepository{db: db}
}

func (r *seatReleaseRepository) List(ctx context.Context, filter SeatReleaseFilter) ([]models.SeatRelease, error) {
	query := r.db.WithContext(ctx).Model(&models.SeatRelease{})

	if filter.ActiveOn != nil {
		query = query.Where("status = ?", models.SeatReleaseStatusActive).
			Where("start_date < ? AND end_date >= ?", nextDay(*filter.ActiveOn), startOfDay(*filter.ActiveOn))
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.ClassID != nil {
		query = query.Where("class_id = ?", *filter.ClassID)
	}
	if filter.Reason != "" {
		query = query.Where("reason = ?", filter.Reason)
	}

	var releases []models.SeatRelease
	if err := query.Order("id ASC").Find(&releases).Error; err != nil {
		return nil, err
	}
	return releases, nil
}

func (r *seatReleaseRepository) Create(ctx context.Context, releases []models.SeatRelease) error {
	if len(releases) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&releases).Error
}

func (r *seatReleaseRepository) SetStatus(ctx context.Context, ids []uint, status models.SeatReleaseStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Model(&models.SeatRelease{}).
		Where("id IN ?", ids).
		Update("status", status)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
