package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-exam-api/internal/models"
)

// ResultRepository persists the single scored outcome per (user, exam).
type ResultRepository interface {
	// FindOrCreate returns the result of (user, exam), creating an unscored shell when absent.
	FindOrCreate(ctx context.Context, userID, examID uint) (models.Result, error)
	Get(ctx context.Context, userID, examID uint) (models.Result, error)
	Update(ctx context.Context, result *models.Result) error
	ListByExam(ctx context.Context, examID uint) ([]models.Result, error)
}

type resultRepository struct {
	db *gorm.DB
}

// NewResultRepository constructs a result repository.
func NewResultRepository(db *gorm.DB) ResultRepository {
	return &resultRepository{db: db}
}

func (r *resultRepository) FindOrCreate(ctx context.Context, userID, examID uint) (models.Result, error) {
	result := models.Result{}
	err := r.db.WithContext(ctx).
		Where(models.Result{UserID: userID, ExamID: examID}).
		FirstOrCreate(&result).Error
	if err != nil {
		existing, getErr := r.Get(ctx, userID, examID)
		if getErr != nil {
			return models.Result{}, err
		}
		return existing, nil
	}
	return result, nil
}

func (r *resultRepository) Get(ctx context.Context, userID, examID uint) (models.Result, error) {
	var result models.Result
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND exam_id = ?", userID, examID).
		First(&result).Error; err != nil {
		return models.Result{}, err
	}
	return result, nil
}

func (r *resultRepository) Update(ctx context.Context, result *models.Result) error {
	return r.db.WithContext(ctx).Model(&models.Result{}).
		Where("id = ?", result.ID).
		Updates(map[string]interface{}{
			"score":    result.Score,
			"metadata": result.Metadata,
		}).Error
}

func (r *resultRepository) ListByExam(ctx context.Context, examID uint) ([]models.Result, error) {
	var results []models.Result
	if err := r.db.WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("user_id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
