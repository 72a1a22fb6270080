package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-exam-api/internal/models"
)

// ExamFilter narrows exam listings.
type ExamFilter struct {
	EntityID uint
	Active   *bool
	Type     string
	// EnrolledUserID restricts the listing to exams the user is enrolled in.
	EnrolledUserID *uint
}

// ExamRepository persists exams.
type ExamRepository interface {
	Create(ctx context.Context, exam *models.Exam) error
	Update(ctx context.Context, exam *models.Exam) error
	GetByID(ctx context.Context, id uint) (models.Exam, error)
	List(ctx context.Context, filter ExamFilter) ([]models.Exam, error)
}

type examRepository struct {
	db *gorm.DB
}

// NewExamRepository constructs an exam repository.
func NewExamRepository(db *gorm.DB) ExamRepository {
	return &examRepository{db: db}
}

func (r *examRepository) Create(ctx context.Context, exam *models.Exam) error {
	return r.db.WithContext(ctx).Create(exam).Error
}

func (r *examRepository) Update(ctx context.Context, exam *models.Exam) error {
	return r.db.WithContext(ctx).Save(exam).Error
}

func (r *examRepository) GetByID(ctx context.Context, id uint) (models.Exam, error) {
	var exam models.Exam
	if err := r.db.WithContext(ctx).First(&exam, id).Error; err != nil {
		return models.Exam{}, err
	}
	return exam, nil
}

func (r *examRepository) List(ctx context.Context, filter ExamFilter) ([]models.Exam, error) {
	query := r.db.WithContext(ctx).Model(&models.Exam{}).Where("exams.entity_id = ?", filter.EntityID)

	if filter.Active != nil {
		query = query.Where("exams.active = ?", *filter.Active)
	}
	if filter.Type != "" {
		query = query.Where("exams.type = ?", filter.Type)
	}
	if filter.EnrolledUserID != nil {
		query = query.Joins("JOIN enrollments ON enrollments.exam_id = exams.id").
			Where("enrollments.user_id = ?", *filter.EnrolledUserID)
	}

	var exams []models.Exam
	if err := query.Order("exams.created_at DESC").Order("exams.id DESC").Find(&exams).Error; err != nil {
		return nil, err
	}
	return exams, nil
}
