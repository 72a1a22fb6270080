package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-exam-api/internal/service"
	"github.com/noah-isme/gema-exam-api/internal/utils"
)

// StatisticsHandler serves exam summaries and leaderboards.
type StatisticsHandler struct {
	service   service.StatisticsService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewStatisticsHandler constructs a StatisticsHandler.
func NewStatisticsHandler(service service.StatisticsService, validator *validator.Validate, logger zerolog.Logger) *StatisticsHandler {
	return &StatisticsHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "statistics_handler").Logger(),
	}
}

// Register wires statistics routes.
func (h *StatisticsHandler) Register(router fiber.Router) {
	router.Get("/exams/:exam_id", h.exam)
	router.Get("/exams/:exam_id/leaderboard", h.leaderboard)
}

func (h *StatisticsHandler) exam(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "exam_id")
	if err != nil {
		return badRequest(c, "invalid exam id")
	}

	stats, err := h.service.ExamStatistics(c.UserContext(), actorFromContext(c), examID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, CodeStatisticsFetched, "Statistics fetched", stats)
}

func (h *StatisticsHandler) leaderboard(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "exam_id")
	if err != nil {
		return badRequest(c, "invalid exam id")
	}

	limit, err := parseQueryInt(c, "limit")
	if err != nil || limit < 0 {
		return badRequest(c, "invalid limit")
	}

	entries, err := h.service.Leaderboard(c.UserContext(), actorFromContext(c), examID, limit)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, CodeLeaderboardFetched, "Leaderboard fetched", entries)
}
