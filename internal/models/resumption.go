package models

import "time"

// Resumption request states.
const (
	ResumptionStatusPending  = "PENDING"
	ResumptionStatusApproved = "APPROVED"
	ResumptionStatusRejected = "REJECTED"
)

// ResumptionRequest asks an administrator to let a student re-enter an interrupted exam.
type ResumptionRequest struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	EnrollmentID    uint       `gorm:"not null;index" json:"enrollment_id"`
	Status          string     `gorm:"size:16;not null;index" json:"status"`
	RequestedAt     time.Time  `gorm:"not null" json:"requested_at"`
	ApprovedAt      *time.Time `json:"approved_at"`
	RejectedAt      *time.Time `json:"rejected_at"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason"`
	ApprovedBy      *uint      `json:"approved_by"`
	RejectedBy      *uint      `json:"rejected_by"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
