package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-exam-api/internal/dto"
	"github.com/noah-isme/gema-exam-api/internal/service"
	"github.com/noah-isme/gema-exam-api/internal/utils"
)

// SubmissionHandler manages the attempt lifecycle endpoints.
type SubmissionHandler struct {
	service   service.SubmissionService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewSubmissionHandler builds a submission handler instance.
func NewSubmissionHandler(service service.SubmissionService, validator *validator.Validate, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group. answerLimiter
// guards the autosave endpoints; nil disables it.
func (h *SubmissionHandler) Register(router fiber.Router, answerLimiter fiber.Handler) {
	answer := []fiber.Handler{}
	if answerLimiter != nil {
		answer = append(answer, answerLimiter)
	}

	router.Get("", h.get)
	router.Post("/start", h.start)
	router.Post("/answer", append(answer, h.saveAnswer)...)
	router.Delete("/answer", append(answer, h.deleteAnswer)...)
	router.Post("/submit", h.submit)
}

func (h *SubmissionHandler) start(c *fiber.Ctx) error {
	var payload dto.ExamRefRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	enrollment, err := h.service.Start(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, CodeExamStarted, "Exam started", enrollment)
}

func (h *SubmissionHandler) saveAnswer(c *fiber.Ctx) error {
	var payload dto.AnswerRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	answer, err := h.service.SaveAnswer(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, CodeAnswerSaved, "Answer saved", answer)
}

func (h *SubmissionHandler) deleteAnswer(c *fiber.Ctx) error {
	var payload dto.AnswerDeleteRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	if err := h.service.DeleteAnswer(c.UserContext(), actorFromContext(c), payload); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, CodeAnswerDeleted, "Answer deleted", fiber.Map{
		"exam_id":     payload.ExamID,
		"question_id": payload.QuestionID,
	})
}

func (h *SubmissionHandler) submit(c *fiber.Ctx) error {
	var payload dto.ExamRefRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	response, err := h.service.Submit(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, CodeExamSubmitted, "Exam submitted", response)
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	examID, err := parseQueryUint(c, "exam_id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	attempt, err := h.service.Get(c.UserContext(), actorFromContext(c), examID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, CodeSubmissionFetched, "Submission fetched", attempt)
}
