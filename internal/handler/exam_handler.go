package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-exam-api/internal/dto"
	"github.com/noah-isme/gema-exam-api/internal/service"
	"github.com/noah-isme/gema-exam-api/internal/utils"
)

// ExamHandler exposes exam, question and invitation endpoints.
type ExamHandler struct {
	service   service.ExamService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewExamHandler constructs an ExamHandler.
func NewExamHandler(service service.ExamService, validator *validator.Validate, logger zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "exam_handler").Logger(),
	}
}

// Register wires the exam routes. Static segments go first so they are not
// captured by the :id parameter.
func (h *ExamHandler) Register(router fiber.Router) {
	router.Post("/question", h.createQuestion)
	router.Get("/question", h.listQuestions)
	router.Delete("/question/:id", h.deleteQuestion)
	router.Post("/invite-student", h.inviteStudents)
	router.Post("/invite-representative", h.inviteRepresentatives)

	router.Post("", h.create)
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
}

func (h *ExamHandler) create(c *fiber.Ctx) error {
	var payload dto.ExamCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	exam, err := h.service.Create(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, CodeExamCreated, "Exam created", exam)
}

func (h *ExamHandler) list(c *fiber.Ctx) error {
	exams, err := h.service.List(c.UserContext(), actorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, CodeExamsFetched, "Exams fetched", exams)
}

func (h *ExamHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid exam id")
	}

	exam, err := h.service.Get(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, CodeExamFetched, "Exam fetched", exam)
}

func (h *ExamHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid exam id")
	}

	var payload dto.ExamUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	exam, err := h.service.Update(c.UserContext(), actorFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, CodeExamUpdated, "Exam updated", exam)
}

func (h *ExamHandler) createQuestion(c *fiber.Ctx) error {
	var payload dto.QuestionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	question, err := h.service.CreateQuestion(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, CodeQuestionCreated, "Question created", question)
}

func (h *ExamHandler) listQuestions(c *fiber.Ctx) error {
	examID, err := parseQueryUint(c, "exam_id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	questions, err := h.service.ListQuestions(c.UserContext(), actorFromContext(c), examID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, CodeQuestionsFetched, "Questions fetched", questions)
}

func (h *ExamHandler) deleteQuestion(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid question id")
	}

	if err := h.service.DeleteQuestion(c.UserContext(), actorFromContext(c), id); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, CodeQuestionDeleted, "Question deleted", fiber.Map{"id": id})
}

func (h *ExamHandler) inviteStudents(c *fiber.Ctx) error {
	var payload dto.InviteRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	response, err := h.service.InviteStudents(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, CodeStudentInvited, "Students invited", response)
}

func (h *ExamHandler) inviteRepresentatives(c *fiber.Ctx) error {
	var payload dto.InviteRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	response, err := h.service.InviteRepresentatives(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, CodeRepresentativeInvited, "Representatives invited", response)
}
