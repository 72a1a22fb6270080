package handler

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-exam-api/internal/dto"
	"github.com/noah-isme/gema-exam-api/internal/models"
	"github.com/noah-isme/gema-exam-api/internal/service"
	"github.com/noah-isme/gema-exam-api/internal/utils"
)

// AdmissionHandler serves admission forms and their submissions.
type AdmissionHandler struct {
	service   service.AdmissionService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAdmissionHandler constructs an AdmissionHandler.
func NewAdmissionHandler(service service.AdmissionService, validator *validator.Validate, logger zerolog.Logger) *AdmissionHandler {
	return &AdmissionHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "admission_handler").Logger(),
	}
}

// RegisterPublic wires the unauthenticated token routes.
func (h *AdmissionHandler) RegisterPublic(router fiber.Router) {
	router.Get("/:token", h.getPublic)
	router.Post("/:token", h.submitPublic)
}

// Register wires the authenticated form routes.
func (h *AdmissionHandler) Register(router fiber.Router) {
	router.Post("/:exam_id", h.createForm)
	router.Get("/:exam_id", h.getForm)
	router.Patch("/:exam_id", h.updateForm)
	router.Post("/:exam_id/submit", h.submit)
	router.Post("/:exam_id/public-link", h.publicLink)
	router.Get("/:exam_id/submissions", h.listSubmissions)
}

// RegisterSubmissions wires the submission review routes.
func (h *AdmissionHandler) RegisterSubmissions(router fiber.Router) {
	router.Patch("/:id/status", h.updateStatus)
}

func (h *AdmissionHandler) createForm(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "exam_id")
	if err != nil {
		return badRequest(c, "invalid exam id")
	}

	var payload dto.AdmissionFormRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	form, err := h.service.CreateForm(c.UserContext(), actorFromContext(c), examID, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, CodeFormCreated, "Admission form created", form)
}

func (h *AdmissionHandler) getForm(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "exam_id")
	if err != nil {
		return badRequest(c, "invalid exam id")
	}

	form, err := h.service.GetForm(c.UserContext(), actorFromContext(c), examID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, CodeFormFetched, "Admission form fetched", form)
}

func (h *AdmissionHandler) updateForm(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "exam_id")
	if err != nil {
		return badRequest(c, "invalid exam id")
	}

	var payload dto.AdmissionFormRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	form, err := h.service.UpdateForm(c.UserContext(), actorFromContext(c), examID, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, CodeFormUpdated, "Admission form updated", form)
}

func (h *AdmissionHandler) publicLink(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "exam_id")
	if err != nil {
		return badRequest(c, "invalid exam id")
	}

	form, err := h.service.GeneratePublicLink(c.UserContext(), actorFromContext(c), examID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, CodePublicLinkGenerated, "Public link generated", form)
}

func (h *AdmissionHandler) submit(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "exam_id")
	if err != nil {
		return badRequest(c, "invalid exam id")
	}

	var payload dto.AdmissionSubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	submission, err := h.service.Submit(c.UserContext(), actorFromContext(c), examID, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, CodeFormSubmitted, "Admission form submitted", submission)
}

func (h *AdmissionHandler) listSubmissions(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "exam_id")
	if err != nil {
		return badRequest(c, "invalid exam id")
	}

	submissions, err := h.service.ListSubmissions(c.UserContext(), actorFromContext(c), examID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, CodeSubmissionsFetched, "Admission submissions fetched", submissions)
}

func (h *AdmissionHandler) updateStatus(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid submission id")
	}

	var payload dto.AdmissionStatusRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}
	payload.Action = strings.ToLower(strings.TrimSpace(payload.Action))

	submission, err := h.service.UpdateSubmissionStatus(c.UserContext(), actorFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	if submission.Status == models.AdmissionStatusRejected {
		return utils.SendSuccess(c, CodeSubmissionRejected, "Admission submission rejected", submission)
	}
	return utils.SendSuccess(c, CodeSubmissionApproved, "Admission submission approved", submission)
}

func (h *AdmissionHandler) getPublic(c *fiber.Ctx) error {
	form, err := h.service.GetPublicForm(c.UserContext(), c.Params("token"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, CodeFormFetched, "Admission form fetched", form)
}

func (h *AdmissionHandler) submitPublic(c *fiber.Ctx) error {
	var payload dto.AdmissionSubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	submission, err := h.service.SubmitPublic(c.UserContext(), c.Params("token"), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, CodeFormSubmitted, "Admission form submitted", submission)
}
