package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/academy-reconcile-api/internal/models"
)

// OccurrenceFilter narrows occurrence queries. Bounds are inclusive calendar days;
// zero dates leave that bound open.
type OccurrenceFilter struct {
	From          time.Time
	To            time.Time
	ClassID       *uint
	ExcludeStates []models.OccurrenceState
}

// ClassRepository reads class definitions and their dated occurrences.
type ClassRepository interface {
	ListClasses(ctx context.Context) ([]models.TeachingClass, error)
	GetClass(ctx context.Context, id uint) (models.TeachingClass, error)
	CreateClass(ctx context.Context, class *models.TeachingClass) error
	ListOccurrences(ctx context.Context, filter OccurrenceFilter) ([]models.ClassOccurrence, error)
	CreateOccurrences(ctx context.Context, occurrences []models.ClassOccurrence) error
}

type classRepository struct {
	db *gorm.DB
}

// NewClassRepository instantiates a GORM-backed repository.
func NewClassRepository(db *gorm.DB) ClassRepository {
	return &classRepository{db: db}
}

func (r *classRepository) ListClasses(ctx context.Context) ([]models.TeachingClass, error) {
	var classes []models.TeachingClass
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&classes).Error; err != nil {
		return nil, err
	}
	return classes, nil
}

func (r *classRepository) GetClass(ctx context.Context, id uint) (models.TeachingClass, error) {
	var class models.TeachingClass
	if err := r.db.WithContext(ctx).First(&class, id).Error; err != nil {
		return models.TeachingClass{}, err
	}
	return class, nil
}

func (r *classRepository) CreateClass(ctx context.Context, class *models.TeachingClass) error {
	return r.db.WithContext(ctx).Create(class).Error
}

func (r *classRepository) ListOccurrences(ctx context.Context, filter OccurrenceFilter) ([]models.ClassOccurrence, error) {
	query := r.db.WithContext(ctx).Model(&models.ClassOccurrence{})

	if !filter.From.IsZero() {
		query = query.Where("date >= ?", startOfDay(filter.From))
	}
	if !filter.To.IsZero() {
		query = query.Where("date < ?", nextDay(filter.To))
	}
	if filter.ClassID != nil {
		query = query.Where("class_id = ?", *filter.ClassID)
	}
	if len(filter.ExcludeStates) > 0 {
		query = query.Where("state NOT IN ?", filter.ExcludeStates)
	}

	var occurrences []models.ClassOccurrence
	if err := query.Order("date ASC, id ASC").Find(&occurrences).Error; err != nil {
		return nil, err
	}
	return occurrences, nil
}

func (r *classRepository) CreateOccurrences(ctx context.Context, occurrences []models.ClassOccurrence) error {
	if len(occurrences) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&occurrences).Error
}
