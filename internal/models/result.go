package models

import (
	"time"

	"gorm.io/datatypes"
)

// ResultMetadata is the diagnostic snapshot written by the result calculator.
type ResultMetadata struct {
	CorrectAnswer    int     `json:"correct_answer"`
	IncorrectAnswer  int     `json:"incorrect_answer"`
	NoAnswers        int     `json:"no_answers"`
	TotalQuestions   int     `json:"total_questions"`
	TotalMarks       float64 `json:"total_marks"`
	MarksPerQuestion float64 `json:"marks_per_question"`
}

// Result is the single scored outcome of a user in an exam. Score stays nil until calculated.
type Result struct {
	ID        uint                               `gorm:"primaryKey" json:"id"`
	UserID    uint                               `gorm:"not null;uniqueIndex:idx_result_user_exam" json:"user_id"`
	ExamID    uint                               `gorm:"not null;uniqueIndex:idx_result_user_exam;index" json:"exam_id"`
	Score     *float64                           `json:"score"`
	Metadata  datatypes.JSONType[ResultMetadata] `gorm:"type:json" json:"metadata"`
	CreatedAt time.Time                          `json:"created_at"`
	UpdatedAt time.Time                          `json:"updated_at"`
}
