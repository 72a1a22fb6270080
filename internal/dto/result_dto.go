package dto

import "github.com/noah-isme/gema-exam-api/internal/models"

// ResultResponse serializes a scored result.
type ResultResponse struct {
	ID       uint                  `json:"id"`
	UserID   uint                  `json:"user_id"`
	ExamID   uint                  `json:"exam_id"`
	Score    *float64              `json:"score"`
	Metadata models.ResultMetadata `json:"metadata"`
}

// NewResultResponse converts a model into its DTO.
func NewResultResponse(result models.Result) ResultResponse {
	return ResultResponse{
		ID:       result.ID,
		UserID:   result.UserID,
		ExamID:   result.ExamID,
		Score:    result.Score,
		Metadata: result.Metadata.Data(),
	}
}

// RecalculateRequest re-runs scoring for one user or every completed attempt.
type RecalculateRequest struct {
	ExamID uint  `json:"exam_id" validate:"required"`
	UserID *uint `json:"user_id" validate:"omitempty,gt=0"`
}

// RecalculateResponse reports a recompute batch.
type RecalculateResponse struct {
	Recalculated int    `json:"recalculated"`
	Failed       []uint `json:"failed"`
}
