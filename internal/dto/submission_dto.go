package dto

import (
	"time"

	"github.com/noah-isme/gema-exam-api/internal/models"
)

// ExamRefRequest identifies the exam an attempt operation targets.
type ExamRefRequest struct {
	ExamID uint `json:"exam_id" validate:"required"`
}

// AnswerRequest saves the answer to one question.
type AnswerRequest struct {
	ExamID     uint        `json:"exam_id" validate:"required"`
	QuestionID uint        `json:"question_id" validate:"required"`
	Answer     interface{} `json:"answer"`
}

// AnswerDeleteRequest removes the stored answer to one question.
type AnswerDeleteRequest struct {
	ExamID     uint `json:"exam_id" validate:"required"`
	QuestionID uint `json:"question_id" validate:"required"`
}

// EnrollmentResponse serializes an enrollment.
type EnrollmentResponse struct {
	ID          uint       `json:"id"`
	ExamID      uint       `json:"exam_id"`
	UserID      uint       `json:"user_id"`
	Status      string     `json:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	InvitedAt   *time.Time `json:"invited_at,omitempty"`
}

// NewEnrollmentResponse converts a model into its DTO.
func NewEnrollmentResponse(enrollment models.Enrollment) EnrollmentResponse {
	metadata := enrollment.Metadata.Data()
	return EnrollmentResponse{
		ID:          enrollment.ID,
		ExamID:      enrollment.ExamID,
		UserID:      enrollment.UserID,
		Status:      enrollment.Status,
		StartedAt:   metadata.StartedAt,
		SubmittedAt: metadata.SubmittedAt,
		InvitedAt:   metadata.InvitedAt,
	}
}

// AnswerResponse serializes one stored answer.
type AnswerResponse struct {
	QuestionID  uint        `json:"question_id"`
	Answer      interface{} `json:"answer"`
	LastUpdated time.Time   `json:"last_updated"`
}

// NewAnswerResponse converts a submission into its DTO.
func NewAnswerResponse(submission models.Submission) AnswerResponse {
	return AnswerResponse{
		QuestionID:  submission.QuestionID,
		Answer:      submission.Answer(),
		LastUpdated: submission.LastUpdated,
	}
}

// AttemptResponse lists the caller's stored answers for an exam.
type AttemptResponse struct {
	Enrollment EnrollmentResponse `json:"enrollment"`
	Answers    []AnswerResponse   `json:"answers"`
}

// SubmitExamResponse reports the completed enrollment and, when scoring
// succeeded and results are visible, the computed result.
type SubmitExamResponse struct {
	Enrollment EnrollmentResponse `json:"enrollment"`
	Result     *ResultResponse    `json:"result,omitempty"`
}
