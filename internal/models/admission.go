package models

import (
	"time"

	"gorm.io/datatypes"
)

// Admission form field types.
const (
	FieldTypeText     = "TEXT"
	FieldTypeNumber   = "NUMBER"
	FieldTypeEmail    = "EMAIL"
	FieldTypePhone    = "PHONE"
	FieldTypeGender   = "GENDER"
	FieldTypeDate     = "DATE"
	FieldTypeTextarea = "TEXTAREA"
)

// Admission submission states.
const (
	AdmissionStatusPending  = "PENDING"
	AdmissionStatusApproved = "APPROVED"
	AdmissionStatusRejected = "REJECTED"
	// AdmissionStatusProcessing marks a submission claimed by one reviewer
	// while its decision is being applied.
	AdmissionStatusProcessing = "PROCESSING"
)

// Admission submission sources.
const (
	AdmissionSourceRepresentative = "REPRESENTATIVE"
	AdmissionSourcePublic         = "PUBLIC"
	AdmissionSourceAdmin          = "ADMIN"
)

// FieldValidation carries optional per-field constraints.
type FieldValidation struct {
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Pattern string   `json:"pattern,omitempty"`
}

// FormField declares one admin-defined admission form input.
type FormField struct {
	ID         string           `json:"id,omitempty"`
	Label      string           `json:"label"`
	Type       string           `json:"type"`
	Required   bool             `json:"required"`
	Validation *FieldValidation `json:"validation,omitempty"`
}

// AdmissionForm is the intake schema of one exam.
type AdmissionForm struct {
	ID            uint                            `gorm:"primaryKey" json:"id"`
	ExamID        uint                            `gorm:"not null;uniqueIndex" json:"exam_id"`
	FormStructure datatypes.JSONType[[]FormField] `gorm:"type:json" json:"form_structure"`
	PublicToken   *string                         `gorm:"size:64;uniqueIndex" json:"public_token"`
	CreatedAt     time.Time                       `json:"created_at"`
	UpdatedAt     time.Time                       `json:"updated_at"`
}

// Fields returns the declared form structure.
func (f AdmissionForm) Fields() []FormField {
	return f.FormStructure.Data()
}

// AdmissionFormSubmission is one filled-in admission form awaiting review.
type AdmissionFormSubmission struct {
	ID               uint              `gorm:"primaryKey" json:"id"`
	ExamID           uint              `gorm:"not null;index" json:"exam_id"`
	RepresentativeID *uint             `gorm:"index" json:"representative_id"`
	Source           string            `gorm:"size:16;not null" json:"source"`
	FormResponses    datatypes.JSONMap `gorm:"type:json" json:"form_responses"`
	Status           string            `gorm:"size:16;not null;index" json:"status"`
	ProcessedBy      *uint             `json:"processed_by"`
	ProcessedAt      *time.Time        `json:"processed_at"`
	UserID           *uint             `json:"user_id"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// IsPublic reports whether the submission came through the anonymous public link.
func (s AdmissionFormSubmission) IsPublic() bool {
	return s.RepresentativeID == nil && s.Source != AdmissionSourceAdmin
}
