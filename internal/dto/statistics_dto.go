package dto

import "time"

// ScoreBucket counts results whose percentage falls in Range.
type ScoreBucket struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

// ExamStatisticsResponse summarises how an exam went.
type ExamStatisticsResponse struct {
	ExamID         uint          `json:"exam_id"`
	TotalInvited   int64         `json:"total_invited"`
	TotalCompleted int64         `json:"total_completed"`
	CompletionRate float64       `json:"completion_rate"`
	TotalMarks     float64       `json:"total_marks"`
	PassingMarks   float64       `json:"passing_marks"`
	Scored         int           `json:"scored"`
	Passed         int           `json:"passed"`
	Failed         int           `json:"failed"`
	AverageScore   float64       `json:"average_score"`
	HighestScore   float64       `json:"highest_score"`
	LowestScore    float64       `json:"lowest_score"`
	Distribution   []ScoreBucket `json:"distribution"`
	GeneratedAt    time.Time     `json:"generated_at"`
}

// LeaderboardEntry is one ranked attempt.
type LeaderboardEntry struct {
	Rank        int        `json:"rank"`
	UserID      uint       `json:"user_id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Score       float64    `json:"score"`
	Percentage  int        `json:"percentage"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}
