package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-exam-api/internal/models"
)

// EnrollmentRepository persists enrollments and guards their status transitions.
type EnrollmentRepository interface {
	GetByID(ctx context.Context, id uint) (models.Enrollment, error)
	GetByExamAndUser(ctx context.Context, examID, userID uint) (models.Enrollment, error)
	// FindOrCreate returns the enrollment of (exam, user), inserting the given
	// defaults when none exists. The boolean reports whether a row was created.
	FindOrCreate(ctx context.Context, enrollment *models.Enrollment) (bool, error)
	// MarkStarted moves an UPCOMING or ASSIGNED enrollment to ONGOING. It reports
	// false when the row was no longer in an entry state.
	MarkStarted(ctx context.Context, id uint, metadata models.EnrollmentMetadata) (bool, error)
	// MarkCompleted moves a non-completed enrollment to COMPLETED. It reports
	// false when another caller completed it first.
	MarkCompleted(ctx context.Context, id uint, metadata models.EnrollmentMetadata) (bool, error)
	ListByExam(ctx context.Context, examID uint, statuses ...string) ([]models.Enrollment, error)
}

type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository constructs an enrollment repository.
func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) GetByID(ctx context.Context, id uint) (models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := r.db.WithContext(ctx).First(&enrollment, id).Error; err != nil {
		return models.Enrollment{}, err
	}
	return enrollment, nil
}

func (r *enrollmentRepository) GetByExamAndUser(ctx context.Context, examID, userID uint) (models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := r.db.WithContext(ctx).
		Where("exam_id = ? AND user_id = ?", examID, userID).
		First(&enrollment).Error; err != nil {
		return models.Enrollment{}, err
	}
	return enrollment, nil
}

func (r *enrollmentRepository) FindOrCreate(ctx context.Context, enrollment *models.Enrollment) (bool, error) {
	result := r.db.WithContext(ctx).
		Where(models.Enrollment{ExamID: enrollment.ExamID, UserID: enrollment.UserID}).
		Attrs(models.Enrollment{Status: enrollment.Status, Metadata: enrollment.Metadata}).
		FirstOrCreate(enrollment)
	if result.Error != nil {
		// A concurrent insert may win the unique index; fall back to the stored row.
		existing, err := r.GetByExamAndUser(ctx, enrollment.ExamID, enrollment.UserID)
		if err != nil {
			return false, result.Error
		}
		*enrollment = existing
		return false, nil
	}
	return result.RowsAffected > 0, nil
}

func (r *enrollmentRepository) MarkStarted(ctx context.Context, id uint, metadata models.EnrollmentMetadata) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("id = ?", id).
		Where("status IN ?", []string{models.EnrollmentStatusUpcoming, models.EnrollmentStatusAssigned}).
		Updates(map[string]interface{}{
			"status":   models.EnrollmentStatusOngoing,
			"metadata": datatypes.NewJSONType(metadata),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *enrollmentRepository) MarkCompleted(ctx context.Context, id uint, metadata models.EnrollmentMetadata) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("id = ?", id).
		Where("status <> ?", models.EnrollmentStatusCompleted).
		Updates(map[string]interface{}{
			"status":   models.EnrollmentStatusCompleted,
			"metadata": datatypes.NewJSONType(metadata),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *enrollmentRepository) ListByExam(ctx context.Context, examID uint, statuses ...string) ([]models.Enrollment, error) {
	query := r.db.WithContext(ctx).Preload("User").Where("exam_id = ?", examID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}

	var enrollments []models.Enrollment
	if err := query.Order("id ASC").Find(&enrollments).Error; err != nil {
		return nil, err
	}
	return enrollments, nil
}

// IsNotFound reports whether err is a missing-row error from the store.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicate reports whether err is a unique constraint violation.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint") || strings.Contains(message, "duplicate key")
}
