package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-exam-api/internal/models"
)

// StatisticsRepository supplies the raw rows behind exam statistics.
type StatisticsRepository interface {
	CountInvitedUsers(ctx context.Context, examID uint) (int64, error)
	CountCompleted(ctx context.Context, examID uint) (int64, error)
	ListCompletedWithUsers(ctx context.Context, examID uint) ([]models.Enrollment, error)
	ListScoredResults(ctx context.Context, examID uint) ([]models.Result, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

// NewStatisticsRepository constructs the statistics repository.
func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) CountInvitedUsers(ctx context.Context, examID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("exam_id = ?", examID).
		Distinct("user_id").
		Count(&count).Error
	return count, err
}

func (r *statisticsRepository) CountCompleted(ctx context.Context, examID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("exam_id = ? AND status = ?", examID, models.EnrollmentStatusCompleted).
		Count(&count).Error
	return count, err
}

func (r *statisticsRepository) ListCompletedWithUsers(ctx context.Context, examID uint) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("exam_id = ? AND status = ?", examID, models.EnrollmentStatusCompleted).
		Order("id ASC").
		Find(&enrollments).Error
	return enrollments, err
}

func (r *statisticsRepository) ListScoredResults(ctx context.Context, examID uint) ([]models.Result, error) {
	var results []models.Result
	err := r.db.WithContext(ctx).
		Joins("JOIN enrollments ON enrollments.exam_id = results.exam_id AND enrollments.user_id = results.user_id").
		Where("results.exam_id = ? AND results.score IS NOT NULL AND enrollments.status = ?", examID, models.EnrollmentStatusCompleted).
		Find(&results).Error
	return results, err
}
