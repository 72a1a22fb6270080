package models

import (
	"time"

	"gorm.io/datatypes"
)

// Submission stores the latest answer of a user to one exam question.
type Submission struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	UserID      uint              `gorm:"not null;uniqueIndex:idx_submission_user_exam_question" json:"user_id"`
	ExamID      uint              `gorm:"not null;uniqueIndex:idx_submission_user_exam_question;index" json:"exam_id"`
	QuestionID  uint              `gorm:"not null;uniqueIndex:idx_submission_user_exam_question" json:"question_id"`
	Metadata    datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	LastUpdated time.Time         `gorm:"not null" json:"last_updated"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Answer returns metadata.answer; nil means the question was left blank.
func (s Submission) Answer() interface{} {
	if s.Metadata == nil {
		return nil
	}
	return s.Metadata["answer"]
}
