package models

import (
	"math"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Exam types.
const (
	ExamTypeQuiz  = "QUIZ"
	ExamTypeOther = "OTHER"
)

// Exam is an assessment created by an administrator of an entity.
type Exam struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	Title           string            `gorm:"size:255;not null" json:"title"`
	Type            string            `gorm:"size:16;not null" json:"type"`
	EntityID        uint              `gorm:"not null;index" json:"entity_id"`
	OwnerID         uint              `gorm:"column:owning_user_id;not null" json:"owning_user_id"`
	Active          bool              `gorm:"not null" json:"active"`
	DurationSeconds int               `json:"duration_seconds"`
	Metadata        datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	ResultsVisible  bool              `gorm:"not null;default:false" json:"results_visible"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// TotalMarks returns metadata.totalMarks, or zero when it is absent or malformed.
func (e Exam) TotalMarks() float64 {
	return metadataNumber(e.Metadata, "totalMarks")
}

// PassingMarks returns metadata.passingMarks, or zero when it is absent or malformed.
func (e Exam) PassingMarks() float64 {
	return metadataNumber(e.Metadata, "passingMarks")
}

func metadataNumber(data datatypes.JSONMap, key string) float64 {
	if data == nil {
		return 0
	}
	switch v := data[key].(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			return 0
		}
		return parsed
	default:
		return 0
	}
}
