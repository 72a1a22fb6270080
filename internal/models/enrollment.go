package models

import (
	"time"

	"gorm.io/datatypes"
)

// Enrollment states. ASSIGNED is the representative entry state.
const (
	EnrollmentStatusUpcoming  = "UPCOMING"
	EnrollmentStatusAssigned  = "ASSIGNED"
	EnrollmentStatusOngoing   = "ONGOING"
	EnrollmentStatusCompleted = "COMPLETED"
)

// EnrollmentMetadata tracks lifecycle timestamps and invitation provenance.
type EnrollmentMetadata struct {
	StartedAt      *time.Time `json:"started_at,omitempty"`
	SubmittedAt    *time.Time `json:"submitted_at,omitempty"`
	InvitedBy      *uint      `json:"invited_by,omitempty"`
	InvitedAt      *time.Time `json:"invited_at,omitempty"`
	FromSubmission *uint      `json:"from_submission,omitempty"`
}

// Enrollment joins a user to an exam and carries the attempt state.
type Enrollment struct {
	ID        uint                                   `gorm:"primaryKey" json:"id"`
	ExamID    uint                                   `gorm:"not null;uniqueIndex:idx_enrollment_exam_user" json:"exam_id"`
	UserID    uint                                   `gorm:"not null;uniqueIndex:idx_enrollment_exam_user;index" json:"user_id"`
	Status    string                                 `gorm:"size:16;not null;index" json:"status"`
	Metadata  datatypes.JSONType[EnrollmentMetadata] `gorm:"type:json" json:"metadata"`
	CreatedAt time.Time                              `json:"created_at"`
	UpdatedAt time.Time                              `json:"updated_at"`
	User      *User                                  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"user,omitempty"`
	Exam      *Exam                                  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"exam,omitempty"`
}

// IsCompleted reports whether the attempt has been submitted.
func (e Enrollment) IsCompleted() bool {
	return e.Status == EnrollmentStatusCompleted
}

// CanStart reports whether the enrollment is still in an entry state.
func (e Enrollment) CanStart() bool {
	return e.Status == EnrollmentStatusUpcoming || e.Status == EnrollmentStatusAssigned
}
