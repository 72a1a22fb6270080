package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-exam-api/internal/dto"
	"github.com/noah-isme/gema-exam-api/internal/service"
	"github.com/noah-isme/gema-exam-api/internal/utils"
)

// ResultHandler serves computed results.
type ResultHandler struct {
	service   service.ResultService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewResultHandler constructs a ResultHandler.
func NewResultHandler(service service.ResultService, validator *validator.Validate, logger zerolog.Logger) *ResultHandler {
	return &ResultHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "result_handler").Logger(),
	}
}

// Register wires result routes.
func (h *ResultHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("/recalculate", h.recalculate)
}

func (h *ResultHandler) list(c *fiber.Ctx) error {
	examID, err := parseQueryUint(c, "exam_id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	results, err := h.service.List(c.UserContext(), actorFromContext(c), examID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, CodeResultsFetched, "Results fetched", results)
}

func (h *ResultHandler) recalculate(c *fiber.Ctx) error {
	var payload dto.RecalculateRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	response, err := h.service.Recalculate(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, CodeResultsRecalculated, "Results recalculated", response)
}
