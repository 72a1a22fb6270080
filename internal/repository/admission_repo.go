package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-exam-api/internal/models"
)

// AdmissionFormRepository persists per-exam admission forms.
type AdmissionFormRepository interface {
	Create(ctx context.Context, form *models.AdmissionForm) error
	Update(ctx context.Context, form *models.AdmissionForm) error
	GetByExam(ctx context.Context, examID uint) (models.AdmissionForm, error)
	GetByPublicToken(ctx context.Context, token string) (models.AdmissionForm, error)
}

// AdmissionSubmissionFilter narrows submission listings.
type AdmissionSubmissionFilter struct {
	ExamID           uint
	RepresentativeID *uint
	Status           string
}

// AdmissionSubmissionRepository persists filled-in admission forms.
type AdmissionSubmissionRepository interface {
	Create(ctx context.Context, submission *models.AdmissionFormSubmission) error
	GetByID(ctx context.Context, id uint) (models.AdmissionFormSubmission, error)
	List(ctx context.Context, filter AdmissionSubmissionFilter) ([]models.AdmissionFormSubmission, error)
	// Claim moves a PENDING submission to PROCESSING. It reports false when
	// another reviewer got there first.
	Claim(ctx context.Context, id uint) (bool, error)
	// Release hands a claimed submission back to PENDING.
	Release(ctx context.Context, id uint) error
	// Finalize records the terminal decision of a claimed submission.
	Finalize(ctx context.Context, submission *models.AdmissionFormSubmission) (bool, error)
}

type admissionFormRepository struct {
	db *gorm.DB
}

// NewAdmissionFormRepository constructs an admission form repository.
func NewAdmissionFormRepository(db *gorm.DB) AdmissionFormRepository {
	return &admissionFormRepository{db: db}
}

func (r *admissionFormRepository) Create(ctx context.Context, form *models.AdmissionForm) error {
	return r.db.WithContext(ctx).Create(form).Error
}

func (r *admissionFormRepository) Update(ctx context.Context, form *models.AdmissionForm) error {
	return r.db.WithContext(ctx).Save(form).Error
}

func (r *admissionFormRepository) GetByExam(ctx context.Context, examID uint) (models.AdmissionForm, error) {
	var form models.AdmissionForm
	if err := r.db.WithContext(ctx).Where("exam_id = ?", examID).First(&form).Error; err != nil {
		return models.AdmissionForm{}, err
	}
	return form, nil
}

func (r *admissionFormRepository) GetByPublicToken(ctx context.Context, token string) (models.AdmissionForm, error) {
	var form models.AdmissionForm
	if err := r.db.WithContext(ctx).Where("public_token = ?", token).First(&form).Error; err != nil {
		return models.AdmissionForm{}, err
	}
	return form, nil
}

type admissionSubmissionRepository struct {
	db *gorm.DB
}

// NewAdmissionSubmissionRepository constructs an admission submission repository.
func NewAdmissionSubmissionRepository(db *gorm.DB) AdmissionSubmissionRepository {
	return &admissionSubmissionRepository{db: db}
}

func (r *admissionSubmissionRepository) Create(ctx context.Context, submission *models.AdmissionFormSubmission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *admissionSubmissionRepository) GetByID(ctx context.Context, id uint) (models.AdmissionFormSubmission, error) {
	var submission models.AdmissionFormSubmission
	if err := r.db.WithContext(ctx).First(&submission, id).Error; err != nil {
		return models.AdmissionFormSubmission{}, err
	}
	return submission, nil
}

func (r *admissionSubmissionRepository) List(ctx context.Context, filter AdmissionSubmissionFilter) ([]models.AdmissionFormSubmission, error) {
	query := r.db.WithContext(ctx).Where("exam_id = ?", filter.ExamID)
	if filter.RepresentativeID != nil {
		query = query.Where("representative_id = ?", *filter.RepresentativeID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var submissions []models.AdmissionFormSubmission
	if err := query.Order("created_at DESC").Order("id DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *admissionSubmissionRepository) Claim(ctx context.Context, id uint) (bool, error) {
	return r.swapStatus(ctx, id, models.AdmissionStatusPending, models.AdmissionStatusProcessing)
}

func (r *admissionSubmissionRepository) Release(ctx context.Context, id uint) error {
	_, err := r.swapStatus(ctx, id, models.AdmissionStatusProcessing, models.AdmissionStatusPending)
	return err
}

func (r *admissionSubmissionRepository) swapStatus(ctx context.Context, id uint, from, to string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.AdmissionFormSubmission{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *admissionSubmissionRepository) Finalize(ctx context.Context, submission *models.AdmissionFormSubmission) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.AdmissionFormSubmission{}).
		Where("id = ? AND status = ?", submission.ID, models.AdmissionStatusProcessing).
		Updates(map[string]interface{}{
			"status":       submission.Status,
			"processed_by": submission.ProcessedBy,
			"processed_at": submission.ProcessedAt,
			"user_id":      submission.UserID,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
