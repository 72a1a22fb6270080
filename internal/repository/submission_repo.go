package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-exam-api/internal/models"
)

// SubmissionRepository stores the latest answer per (user, exam, question).
type SubmissionRepository interface {
	// Upsert inserts the answer or overwrites the stored one and its timestamp.
	Upsert(ctx context.Context, submission *models.Submission) error
	Delete(ctx context.Context, userID, examID, questionID uint) (bool, error)
	ListByUserAndExam(ctx context.Context, userID, examID uint) ([]models.Submission, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Upsert(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "exam_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"metadata", "last_updated"}),
	}).Create(submission).Error
}

func (r *submissionRepository) Delete(ctx context.Context, userID, examID, questionID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND exam_id = ? AND question_id = ?", userID, examID, questionID).
		Delete(&models.Submission{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *submissionRepository) ListByUserAndExam(ctx context.Context, userID, examID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND exam_id = ?", userID, examID).
		Order("question_id ASC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}
