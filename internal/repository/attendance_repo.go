package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/academy-reconcile-api/internal/models"
)

// AttendanceFilter narrows attendance queries. From and To are inclusive calendar days.
type AttendanceFilter struct {
	From      time.Time
	To        time.Time
	Statuses  []models.AttendanceStatus
	ClassID   *uint
	StudentID *uint
}

// AttendanceRepository persists attendance records.
type AttendanceRepository interface {
	List(ctx context.Context, filter AttendanceFilter) ([]models.AttendanceRecord, error)
	Create(ctx context.Context, record *models.AttendanceRecord) error
}

type attendanceRepository struct {
	db *gorm.DB
}

// NewAttendanceRepository instantiates a GORM-backed repository.
func NewAttendanceRepository(db *gorm.DB) AttendanceRepository {
	return &attendanceRepository{db: db}
}

func (r *attendanceRepository) List(ctx context.Context, filter AttendanceFilter) ([]models.AttendanceRecord, error) {
	query := r.db.WithContext(ctx).Model(&models.AttendanceRecord{})

	if !filter.From.IsZero() {
		query = query.Where("date >= ?", startOfDay(filter.From))
	}
	if !filter.To.IsZero() {
		query = query.Where("date < ?", nextDay(filter.To))
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.ClassID != nil {
		query = query.Where("class_id = ?", *filter.ClassID)
	}
	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	var records []models.AttendanceRecord
	if err := query.Order("date ASC, id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *attendanceRepository) Create(ctx context.Context, record *models.AttendanceRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}
