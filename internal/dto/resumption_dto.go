package dto

import (
	"time"

	"github.com/noah-isme/gema-exam-api/internal/models"
)

// ResumptionEnrollmentRequest targets the resumption state of an enrollment.
type ResumptionEnrollmentRequest struct {
	EnrollmentID uint `json:"enrollment_id" validate:"required"`
}

// ResumptionDecisionRequest approves or rejects a pending request.
type ResumptionDecisionRequest struct {
	RequestID uint   `json:"request_id" validate:"required"`
	Reason    string `json:"reason" validate:"omitempty,max=1000"`
}

// ResumptionResponse serializes a resumption request.
type ResumptionResponse struct {
	ID              uint       `json:"id"`
	EnrollmentID    uint       `json:"enrollment_id"`
	Status          string     `json:"status"`
	RequestedAt     time.Time  `json:"requested_at"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	ApprovedBy      *uint      `json:"approved_by,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectedBy      *uint      `json:"rejected_by,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
}

// NewResumptionResponse converts a model into its DTO.
func NewResumptionResponse(request models.ResumptionRequest) ResumptionResponse {
	return ResumptionResponse{
		ID:              request.ID,
		EnrollmentID:    request.EnrollmentID,
		Status:          request.Status,
		RequestedAt:     request.RequestedAt,
		ApprovedAt:      request.ApprovedAt,
		ApprovedBy:      request.ApprovedBy,
		RejectedAt:      request.RejectedAt,
		RejectedBy:      request.RejectedBy,
		RejectionReason: request.RejectionReason,
	}
}
