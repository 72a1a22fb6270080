package models

import (
	"time"

	"gorm.io/datatypes"
)

// Question types understood by the scoring engine.
const (
	QuestionTypeMCQSingle   = "MCQ_SINGLE"
	QuestionTypeMCQMultiple = "MCQ_MULTIPLE"
	QuestionTypeSingleWord  = "SINGLE_WORD"
)

// Question belongs to an exam. Metadata holds options and the answer key:
// {options: [{text, image_id?}], correct_answers: [index...]} or {correct_answer: string}.
type Question struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	ExamID       uint              `gorm:"not null;index" json:"exam_id"`
	QuestionText string            `gorm:"type:text;not null" json:"question_text"`
	Type         string            `gorm:"size:32;not null" json:"type"`
	Metadata     datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}
