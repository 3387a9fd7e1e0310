package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/academy-reconcile-api/internal/models"
)

// AssignmentFilter narrows assignment queries and deletions.
type AssignmentFilter struct {
	Origin    models.AssignmentOrigin
	ClassID   *uint
	ClassIDs  []uint
	StudentID *uint
}

// AssignmentRepository defines persistence operations for standing seat assignments.
type AssignmentRepository interface {
	List(ctx context.Context, filter AssignmentFilter) ([]models.ClassAssignment, error)
	Create(ctx context.Context, assignments []models.ClassAssignment) error
	DeleteForStudent(ctx context.Context, studentID uint, filter AssignmentFilter) (int64, error)
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository instantiates a GORM-backed repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) List(ctx context.Context, filter AssignmentFilter) ([]models.ClassAssignment, error) {
	query := applyAssignmentFilter(r.db.WithContext(ctx).Model(&models.ClassAssignment{}), filter)

	var assignments []models.ClassAssignment
	if err := query.Order("id ASC").Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *assignmentRepository) Create(ctx context.Context, assignments []models.ClassAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&assignments).Error
}

func (r *assignmentRepository) DeleteForStudent(ctx context.Context, studentID uint, filter AssignmentFilter) (int64, error) {
	filter.StudentID = &studentID
	result := applyAssignmentFilter(r.db.WithContext(ctx), filter).Delete(&models.ClassAssignment{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func applyAssignmentFilter(query *gorm.DB, filter AssignmentFilter) *gorm.DB {
	if filter.Origin != "" {
		query = query.Where("origin = ?", filter.Origin)
	}
	if filter.ClassID != nil {
		query = query.Where("class_id = ?", *filter.ClassID)
	}
	if len(filter.ClassIDs) > 0 {
		query = query.Where("class_id IN ?", filter.ClassIDs)
	}
	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	return query
}
