package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-exam-api/internal/dto"
	"github.com/noah-isme/gema-exam-api/internal/service"
	"github.com/noah-isme/gema-exam-api/internal/utils"
)

// ResumptionHandler exposes the resumption request workflow.
type ResumptionHandler struct {
	service   service.ResumptionService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewResumptionHandler constructs a ResumptionHandler.
func NewResumptionHandler(service service.ResumptionService, validator *validator.Validate, logger zerolog.Logger) *ResumptionHandler {
	return &ResumptionHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "resumption_handler").Logger(),
	}
}

// Register wires resumption routes.
func (h *ResumptionHandler) Register(router fiber.Router) {
	router.Post("/request", h.request)
	router.Post("/approve", h.approve)
	router.Post("/reject", h.reject)
	router.Post("/invalidate", h.invalidate)
	router.Get("/:enrollment_id", h.list)
}

func (h *ResumptionHandler) request(c *fiber.Ctx) error {
	var payload dto.ResumptionEnrollmentRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	response, err := h.service.Request(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, CodeResumptionRequested, "Resumption requested", response)
}

func (h *ResumptionHandler) approve(c *fiber.Ctx) error {
	var payload dto.ResumptionDecisionRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	response, err := h.service.Approve(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, CodeResumptionApproved, "Resumption approved", response)
}

func (h *ResumptionHandler) reject(c *fiber.Ctx) error {
	var payload dto.ResumptionDecisionRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	response, err := h.service.Reject(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, CodeResumptionRejected, "Resumption rejected", response)
}

func (h *ResumptionHandler) invalidate(c *fiber.Ctx) error {
	var payload dto.ResumptionEnrollmentRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	if err := h.service.Invalidate(c.UserContext(), actorFromContext(c), payload); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, CodeResumptionInvalidated, "Resumption invalidated", fiber.Map{"enrollment_id": payload.EnrollmentID})
}

func (h *ResumptionHandler) list(c *fiber.Ctx) error {
	enrollmentID, err := parseUintParam(c, "enrollment_id")
	if err != nil {
		return badRequest(c, "invalid enrollment id")
	}

	requests, err := h.service.List(c.UserContext(), actorFromContext(c), enrollmentID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, CodeResumptionsFetched, "Resumption requests fetched", requests)
}
