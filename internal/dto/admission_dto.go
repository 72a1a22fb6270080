package dto

import (
	"time"

	"github.com/noah-isme/gema-exam-api/internal/models"
)

// Admission decisions.
const (
	AdmissionActionApprove = "approve"
	AdmissionActionReject  = "reject"
)

// AdmissionFormRequest defines or replaces the form structure of an exam.
type AdmissionFormRequest struct {
	FormStructure []models.FormField `json:"form_structure" validate:"required,min=1,dive"`
}

// AdmissionFormResponse serializes an admission form.
type AdmissionFormResponse struct {
	ID            uint               `json:"id"`
	ExamID        uint               `json:"exam_id"`
	ExamTitle     string             `json:"exam_title,omitempty"`
	FormStructure []models.FormField `json:"form_structure"`
	PublicToken   *string            `json:"public_token,omitempty"`
	PublicURL     string             `json:"public_url,omitempty"`
}

// NewAdmissionFormResponse converts a model into its DTO.
func NewAdmissionFormResponse(form models.AdmissionForm) AdmissionFormResponse {
	return AdmissionFormResponse{
		ID:            form.ID,
		ExamID:        form.ExamID,
		FormStructure: form.Fields(),
		PublicToken:   form.PublicToken,
	}
}

// AdmissionSubmitRequest carries filled-in form responses.
type AdmissionSubmitRequest struct {
	FormResponses map[string]interface{} `json:"form_responses" validate:"required"`
}

// AdmissionStatusRequest approves or rejects a submission. Password is only
// honoured for admin-entered submissions.
type AdmissionStatusRequest struct {
	Action   string `json:"action" validate:"required,oneof=approve reject"`
	Password string `json:"password" validate:"omitempty,min=8,max=72"`
}

// AdmissionSubmissionResponse serializes an admission submission.
type AdmissionSubmissionResponse struct {
	ID               uint                   `json:"id"`
	ExamID           uint                   `json:"exam_id"`
	RepresentativeID *uint                  `json:"representative_id"`
	Source           string                 `json:"source"`
	FormResponses    map[string]interface{} `json:"form_responses"`
	Status           string                 `json:"status"`
	ProcessedBy      *uint                  `json:"processed_by,omitempty"`
	ProcessedAt      *time.Time             `json:"processed_at,omitempty"`
	UserID           *uint                  `json:"user_id,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
}

// NewAdmissionSubmissionResponse converts a model into its DTO.
func NewAdmissionSubmissionResponse(submission models.AdmissionFormSubmission) AdmissionSubmissionResponse {
	return AdmissionSubmissionResponse{
		ID:               submission.ID,
		ExamID:           submission.ExamID,
		RepresentativeID: submission.RepresentativeID,
		Source:           submission.Source,
		FormResponses:    metadataFromJSON(submission.FormResponses),
		Status:           submission.Status,
		ProcessedBy:      submission.ProcessedBy,
		ProcessedAt:      submission.ProcessedAt,
		UserID:           submission.UserID,
		CreatedAt:        submission.CreatedAt,
	}
}
