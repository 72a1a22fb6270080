package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-exam-api/internal/models"
)

// ResumptionRepository persists resumption requests.
type ResumptionRepository interface {
	Create(ctx context.Context, request *models.ResumptionRequest) error
	GetByID(ctx context.Context, id uint) (models.ResumptionRequest, error)
	FindByEnrollmentAndStatus(ctx context.Context, enrollmentID uint, status string) (models.ResumptionRequest, error)
	ListByEnrollment(ctx context.Context, enrollmentID uint) ([]models.ResumptionRequest, error)
	// Resolve applies the terminal state only while the request is still PENDING.
	Resolve(ctx context.Context, request *models.ResumptionRequest) (bool, error)
	DeleteApproved(ctx context.Context, enrollmentID uint) (int64, error)
}

type resumptionRepository struct {
	db *gorm.DB
}

// NewResumptionRepository constructs a resumption request repository.
func NewResumptionRepository(db *gorm.DB) ResumptionRepository {
	return &resumptionRepository{db: db}
}

func (r *resumptionRepository) Create(ctx context.Context, request *models.ResumptionRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *resumptionRepository) GetByID(ctx context.Context, id uint) (models.ResumptionRequest, error) {
	var request models.ResumptionRequest
	if err := r.db.WithContext(ctx).First(&request, id).Error; err != nil {
		return models.ResumptionRequest{}, err
	}
	return request, nil
}

func (r *resumptionRepository) FindByEnrollmentAndStatus(ctx context.Context, enrollmentID uint, status string) (models.ResumptionRequest, error) {
	var request models.ResumptionRequest
	if err := r.db.WithContext(ctx).
		Where("enrollment_id = ? AND status = ?", enrollmentID, status).
		Order("requested_at DESC").
		First(&request).Error; err != nil {
		return models.ResumptionRequest{}, err
	}
	return request, nil
}

func (r *resumptionRepository) ListByEnrollment(ctx context.Context, enrollmentID uint) ([]models.ResumptionRequest, error) {
	var requests []models.ResumptionRequest
	if err := r.db.WithContext(ctx).
		Where("enrollment_id = ?", enrollmentID).
		Order("requested_at DESC").
		Order("id DESC").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *resumptionRepository) Resolve(ctx context.Context, request *models.ResumptionRequest) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.ResumptionRequest{}).
		Where("id = ? AND status = ?", request.ID, models.ResumptionStatusPending).
		Updates(map[string]interface{}{
			"status":           request.Status,
			"approved_at":      request.ApprovedAt,
			"approved_by":      request.ApprovedBy,
			"rejected_at":      request.RejectedAt,
			"rejected_by":      request.RejectedBy,
			"rejection_reason": request.RejectionReason,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *resumptionRepository) DeleteApproved(ctx context.Context, enrollmentID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("enrollment_id = ? AND status = ?", enrollmentID, models.ResumptionStatusApproved).
		Delete(&models.ResumptionRequest{})
	return result.RowsAffected, result.Error
}
