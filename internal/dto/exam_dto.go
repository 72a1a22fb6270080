package dto

import (
	"time"

	"github.com/noah-isme/gema-exam-api/internal/models"
)

// ExamCreateRequest captures the payload for creating an exam.
type ExamCreateRequest struct {
	Title           string                 `json:"title" validate:"required,min=3,max=255"`
	Type            string                 `json:"type" validate:"required,oneof=QUIZ OTHER"`
	DurationSeconds int                    `json:"duration_seconds" validate:"gte=0"`
	Metadata        map[string]interface{} `json:"metadata"`
	ResultsVisible  bool                   `json:"results_visible"`
	Active          *bool                  `json:"active"`
}

// ExamUpdateRequest captures partial exam updates.
type ExamUpdateRequest struct {
	Title           *string                `json:"title" validate:"omitempty,min=3,max=255"`
	Active          *bool                  `json:"active"`
	DurationSeconds *int                   `json:"duration_seconds" validate:"omitempty,gte=0"`
	Metadata        map[string]interface{} `json:"metadata"`
	ResultsVisible  *bool                  `json:"results_visible"`
}

// ExamResponse serializes an exam.
type ExamResponse struct {
	ID              uint                   `json:"id"`
	Title           string                 `json:"title"`
	Type            string                 `json:"type"`
	EntityID        uint                   `json:"entity_id"`
	OwnerID         uint                   `json:"owning_user_id"`
	Active          bool                   `json:"active"`
	DurationSeconds int                    `json:"duration_seconds"`
	Metadata        map[string]interface{} `json:"metadata"`
	ResultsVisible  bool                   `json:"results_visible"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// NewExamResponse converts a model into its DTO.
func NewExamResponse(exam models.Exam) ExamResponse {
	return ExamResponse{
		ID:              exam.ID,
		Title:           exam.Title,
		Type:            exam.Type,
		EntityID:        exam.EntityID,
		OwnerID:         exam.OwnerID,
		Active:          exam.Active,
		DurationSeconds: exam.DurationSeconds,
		Metadata:        metadataFromJSON(exam.Metadata),
		ResultsVisible:  exam.ResultsVisible,
		CreatedAt:       exam.CreatedAt,
		UpdatedAt:       exam.UpdatedAt,
	}
}

// QuestionCreateRequest captures the payload for adding a question to an exam.
type QuestionCreateRequest struct {
	ExamID       uint                   `json:"exam_id" validate:"required"`
	QuestionText string                 `json:"question_text" validate:"required,min=1"`
	Type         string                 `json:"type" validate:"required,oneof=MCQ_SINGLE MCQ_MULTIPLE SINGLE_WORD"`
	Metadata     map[string]interface{} `json:"metadata" validate:"required"`
}

// QuestionOption is one rendered answer choice.
type QuestionOption struct {
	Text     string `json:"text"`
	ImageID  string `json:"image_id,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// QuestionResponse serializes a question. Answer keys are omitted for students.
type QuestionResponse struct {
	ID             uint             `json:"id"`
	ExamID         uint             `json:"exam_id"`
	QuestionText   string           `json:"question_text"`
	Type           string           `json:"type"`
	Options        []QuestionOption `json:"options,omitempty"`
	CorrectAnswers []int            `json:"correct_answers,omitempty"`
	CorrectAnswer  string           `json:"correct_answer,omitempty"`
}

// InviteRequest lists the accounts to enroll into an exam.
type InviteRequest struct {
	ExamID uint     `json:"exam_id" validate:"required"`
	Emails []string `json:"emails" validate:"required,min=1,dive,required"`
}

// InviteResponse reports the outcome of an invitation batch.
type InviteResponse struct {
	TotalInvited  int      `json:"totalInvited"`
	InvalidEmails []string `json:"invalidEmails"`
}
