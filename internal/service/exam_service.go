package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/gema-exam-api/internal/apperror"
	"github.com/noah-isme/gema-exam-api/internal/dto"
	"github.com/noah-isme/gema-exam-api/internal/models"
	"github.com/noah-isme/gema-exam-api/internal/observability"
	"github.com/noah-isme/gema-exam-api/internal/repository"
	"github.com/noah-isme/gema-exam-api/internal/scoring"
	"github.com/noah-isme/gema-exam-api/pkg/mailer"
)

// ExamService manages exams, their questions and invitations.
type ExamService interface {
	Create(ctx context.Context, actor Actor, req dto.ExamCreateRequest) (dto.ExamResponse, error)
	List(ctx context.Context, actor Actor) ([]dto.ExamResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.ExamResponse, error)
	Update(ctx context.Context, actor Actor, id uint, req dto.ExamUpdateRequest) (dto.ExamResponse, error)
	CreateQuestion(ctx context.Context, actor Actor, req dto.QuestionCreateRequest) (dto.QuestionResponse, error)
	ListQuestions(ctx context.Context, actor Actor, examID uint) ([]dto.QuestionResponse, error)
	DeleteQuestion(ctx context.Context, actor Actor, id uint) error
	InviteStudents(ctx context.Context, actor Actor, req dto.InviteRequest) (dto.InviteResponse, error)
	InviteRepresentatives(ctx context.Context, actor Actor, req dto.InviteRequest) (dto.InviteResponse, error)
}

// ExamServiceDeps groups the collaborators of the exam service.
type ExamServiceDeps struct {
	Exams       repository.ExamRepository
	Questions   repository.QuestionRepository
	Users       repository.UserRepository
	Enrollments repository.EnrollmentRepository
	Results     repository.ResultRepository
	Activity    ActivityRecorder
	Notifier    mailer.Notifier
	Media       MediaLinker
	Stats       StatisticsInvalidator
	Links       LinkConfig
}

type examService struct {
	exams     repository.ExamRepository
	questions repository.QuestionRepository
	users     repository.UserRepository
	enroller  enroller
	links     linkBuilder
	activity  ActivityRecorder
	notifier  mailer.Notifier
	media     MediaLinker
	stats     StatisticsInvalidator
	validator *validator.Validate
	policy    *bluemonday.Policy
	logger    zerolog.Logger
	now       func() time.Time
}

// NewExamService constructs the exam service.
func NewExamService(deps ExamServiceDeps, validate *validator.Validate, logger zerolog.Logger) ExamService {
	svc := &examService{
		exams:     deps.Exams,
		questions: deps.Questions,
		users:     deps.Users,
		enroller:  enroller{enrollments: deps.Enrollments, results: deps.Results},
		activity:  deps.Activity,
		notifier:  deps.Notifier,
		media:     deps.Media,
		stats:     deps.Stats,
		validator: validate,
		policy:    bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "exam_service").Logger(),
		now:       time.Now,
	}
	svc.links = linkBuilder{users: deps.Users, config: deps.Links, now: func() time.Time { return svc.now() }}
	return svc
}

func (s *examService) Create(ctx context.Context, actor Actor, req dto.ExamCreateRequest) (dto.ExamResponse, error) {
	if !actor.IsAdmin() {
		return dto.ExamResponse{}, apperror.Forbidden("Only administrators can create exams")
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.ExamResponse{}, err
	}

	title := strings.TrimSpace(s.policy.Sanitize(req.Title))
	if title == "" {
		return dto.ExamResponse{}, apperror.BadRequest("title is required")
	}

	exam := models.Exam{
		Title:           title,
		Type:            req.Type,
		EntityID:        actor.EntityID,
		OwnerID:         actor.ID,
		Active:          true,
		DurationSeconds: req.DurationSeconds,
		Metadata:        datatypes.JSONMap(req.Metadata),
		ResultsVisible:  req.ResultsVisible,
	}
	if req.Active != nil {
		exam.Active = *req.Active
	}
	if exam.Metadata == nil {
		exam.Metadata = datatypes.JSONMap{}
	}

	if err := s.exams.Create(ctx, &exam); err != nil {
		return dto.ExamResponse{}, apperror.Internal(err)
	}

	loggerFor(ctx, s.logger).Info().Uint("exam_id", exam.ID).Msg("exam created")
	return dto.NewExamResponse(exam), nil
}

func (s *examService) List(ctx context.Context, actor Actor) ([]dto.ExamResponse, error) {
	filter := repository.ExamFilter{EntityID: actor.EntityID}
	if !actor.IsAdmin() {
		filter.EnrolledUserID = uintPtr(actor.ID)
	}

	exams, err := s.exams.List(ctx, filter)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	responses := make([]dto.ExamResponse, 0, len(exams))
	for _, exam := range exams {
		responses = append(responses, dto.NewExamResponse(exam))
	}
	return responses, nil
}

func (s *examService) Get(ctx context.Context, actor Actor, id uint) (dto.ExamResponse, error) {
	exam, err := s.exams.GetByID(ctx, id)
	if err != nil {
		return dto.ExamResponse{}, storeError(err, "Exam not found")
	}
	if actor.IsAdmin() {
		if !actor.CanManage(exam) {
			return dto.ExamResponse{}, apperror.Forbidden("You are not allowed to manage this exam")
		}
		return dto.NewExamResponse(exam), nil
	}
	if _, err := s.enroller.enrollments.GetByExamAndUser(ctx, exam.ID, actor.ID); err != nil {
		return dto.ExamResponse{}, storeError(err, msgNotEnrolled)
	}
	return dto.NewExamResponse(exam), nil
}

func (s *examService) Update(ctx context.Context, actor Actor, id uint, req dto.ExamUpdateRequest) (dto.ExamResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ExamResponse{}, err
	}

	exam, err := loadManagedExam(ctx, s.exams, actor, id)
	if err != nil {
		return dto.ExamResponse{}, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(s.policy.Sanitize(*req.Title))
		if title == "" {
			return dto.ExamResponse{}, apperror.BadRequest("title is required")
		}
		exam.Title = title
	}
	if req.Active != nil {
		exam.Active = *req.Active
	}
	if req.DurationSeconds != nil {
		exam.DurationSeconds = *req.DurationSeconds
	}
	if req.ResultsVisible != nil {
		exam.ResultsVisible = *req.ResultsVisible
	}
	if req.Metadata != nil {
		if exam.Metadata == nil {
			exam.Metadata = datatypes.JSONMap{}
		}
		for key, value := range req.Metadata {
			exam.Metadata[key] = value
		}
	}

	if err := s.exams.Update(ctx, &exam); err != nil {
		return dto.ExamResponse{}, apperror.Internal(err)
	}
	if s.stats != nil {
		s.stats.Invalidate(ctx, exam.ID)
	}
	return dto.NewExamResponse(exam), nil
}

func (s *examService) CreateQuestion(ctx context.Context, actor Actor, req dto.QuestionCreateRequest) (dto.QuestionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.QuestionResponse{}, err
	}
	if _, err := loadManagedExam(ctx, s.exams, actor, req.ExamID); err != nil {
		return dto.QuestionResponse{}, err
	}
	if err := scoring.ValidateDefinition(req.Type, req.Metadata); err != nil {
		return dto.QuestionResponse{}, apperror.BadRequest(err.Error())
	}

	text := strings.TrimSpace(s.policy.Sanitize(req.QuestionText))
	if text == "" {
		return dto.QuestionResponse{}, apperror.BadRequest("question_text is required")
	}

	question := models.Question{
		ExamID:       req.ExamID,
		QuestionText: text,
		Type:         req.Type,
		Metadata:     datatypes.JSONMap(req.Metadata),
	}
	if err := s.questions.Create(ctx, &question); err != nil {
		return dto.QuestionResponse{}, apperror.Internal(err)
	}

	return s.questionResponse(question, true), nil
}

func (s *examService) ListQuestions(ctx context.Context, actor Actor, examID uint) ([]dto.QuestionResponse, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, storeError(err, "Exam not found")
	}

	withAnswers := actor.IsAdmin()
	switch {
	case withAnswers:
		if !actor.CanManage(exam) {
			return nil, apperror.Forbidden("You are not allowed to manage this exam")
		}
	case strings.ToUpper(actor.Role) == models.RoleStudent:
		if _, err := s.enroller.enrollments.GetByExamAndUser(ctx, exam.ID, actor.ID); err != nil {
			return nil, storeError(err, msgNotEnrolled)
		}
	default:
		return nil, apperror.Forbidden("You are not allowed to view these questions")
	}

	questions, err := s.questions.ListByExam(ctx, examID)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	responses := make([]dto.QuestionResponse, 0, len(questions))
	for _, question := range questions {
		responses = append(responses, s.questionResponse(question, withAnswers))
	}
	return responses, nil
}

func (s *examService) DeleteQuestion(ctx context.Context, actor Actor, id uint) error {
	question, err := s.questions.GetByID(ctx, id)
	if err != nil {
		return storeError(err, "Question not found")
	}
	if _, err := loadManagedExam(ctx, s.exams, actor, question.ExamID); err != nil {
		return err
	}
	if err := s.questions.Delete(ctx, id); err != nil {
		return storeError(err, "Question not found")
	}
	return nil
}

func (s *examService) InviteStudents(ctx context.Context, actor Actor, req dto.InviteRequest) (dto.InviteResponse, error) {
	return s.invite(ctx, actor, req, models.RoleStudent, models.EnrollmentStatusUpcoming)
}

func (s *examService) InviteRepresentatives(ctx context.Context, actor Actor, req dto.InviteRequest) (dto.InviteResponse, error) {
	return s.invite(ctx, actor, req, models.RoleRepresentative, models.EnrollmentStatusAssigned)
}

// invite enrolls existing accounts of the given role. Unknown addresses and
// accounts of another role or entity are reported back, not created.
func (s *examService) invite(ctx context.Context, actor Actor, req dto.InviteRequest, role, status string) (dto.InviteResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.InviteResponse{}, err
	}

	exam, err := loadManagedExam(ctx, s.exams, actor, req.ExamID)
	if err != nil {
		return dto.InviteResponse{}, err
	}

	emails := uniqueEmails(req.Emails)
	users, err := s.users.ListByEmails(ctx, exam.EntityID, role, emails)
	if err != nil {
		return dto.InviteResponse{}, apperror.Internal(err)
	}

	known := make(map[string]models.User, len(users))
	for _, user := range users {
		known[strings.ToLower(user.Email)] = user
	}

	logger := loggerFor(ctx, s.logger)
	response := dto.InviteResponse{InvalidEmails: []string{}}
	invitedAt := s.now().UTC()
	for _, email := range emails {
		user, ok := known[email]
		if !ok {
			response.InvalidEmails = append(response.InvalidEmails, email)
			continue
		}

		_, created, err := s.enroller.enroll(ctx, exam.ID, user.ID, status, models.EnrollmentMetadata{
			InvitedBy: uintPtr(actor.ID),
			InvitedAt: &invitedAt,
		})
		if err != nil {
			return dto.InviteResponse{}, apperror.Internal(err)
		}
		response.TotalInvited++

		switch {
		case created:
			s.sendInvitation(ctx, logger, exam, user)
		case !user.HasPassword():
			s.resendPasswordSetup(ctx, logger, exam, user)
		}
	}

	if response.TotalInvited > 0 {
		if s.stats != nil {
			s.stats.Invalidate(ctx, exam.ID)
		}
		recordActivity(ctx, s.activity, s.logger, ActivityEntry{
			Actor:      actor,
			Action:     models.ActionStudentsInvited,
			EntityType: "exam",
			EntityID:   uintPtr(exam.ID),
			Metadata:   map[string]interface{}{"role": role, "invited": response.TotalInvited},
		})
	}

	return response, nil
}

func (s *examService) sendInvitation(ctx context.Context, logger *zerolog.Logger, exam models.Exam, user models.User) {
	if s.notifier == nil {
		return
	}

	link := s.links.examLink(exam.ID)
	if !user.HasPassword() {
		setup, err := s.links.passwordSetupLink(ctx, &user)
		if err != nil {
			logger.Warn().Err(err).Uint("user_id", user.ID).Msg("unable to issue password setup link")
		} else {
			link = setup
		}
	}

	sent := s.notifier.SendInvitation(ctx, user.Email, user.Role, link, mailer.ExamInfo{ID: exam.ID, Title: exam.Title})
	observability.MailDispatches().WithLabelValues(mailer.KindInvitation, outcomeLabel(sent)).Inc()
	if !sent {
		logger.Warn().Uint("user_id", user.ID).Uint("exam_id", exam.ID).Msg("invitation email not sent")
	}
}

// resendPasswordSetup mails a fresh setup link to an already enrolled account
// that never set its password. The previous link stops working.
func (s *examService) resendPasswordSetup(ctx context.Context, logger *zerolog.Logger, exam models.Exam, user models.User) {
	if s.notifier == nil {
		return
	}
	link, err := s.links.passwordSetupLink(ctx, &user)
	if err != nil {
		logger.Warn().Err(err).Uint("user_id", user.ID).Msg("unable to issue password setup link")
		return
	}

	sent := s.notifier.SendPasswordReset(ctx, user.Email, user.Name, link, mailer.ExamInfo{ID: exam.ID, Title: exam.Title})
	observability.MailDispatches().WithLabelValues(mailer.KindPasswordReset, outcomeLabel(sent)).Inc()
	if !sent {
		logger.Warn().Uint("user_id", user.ID).Uint("exam_id", exam.ID).Msg("password setup email not sent")
	}
}

func (s *examService) questionResponse(question models.Question, withAnswers bool) dto.QuestionResponse {
	response := dto.QuestionResponse{
		ID:           question.ID,
		ExamID:       question.ExamID,
		QuestionText: question.QuestionText,
		Type:         question.Type,
	}

	for _, option := range scoring.Options(question.Metadata) {
		rendered := dto.QuestionOption{Text: option.Text, ImageID: option.ImageID}
		if option.ImageID != "" && s.media != nil {
			rendered.ImageURL = s.media.MediaLink(option.ImageID)
		}
		response.Options = append(response.Options, rendered)
	}

	if withAnswers {
		response.CorrectAnswers = scoring.CorrectIndexes(question.Metadata)
		if answer, ok := question.Metadata["correct_answer"].(string); ok {
			response.CorrectAnswer = answer
		}
	}
	return response
}

func uniqueEmails(emails []string) []string {
	seen := make(map[string]struct{}, len(emails))
	result := make([]string, 0, len(emails))
	for _, email := range emails {
		normalized := strings.ToLower(strings.TrimSpace(email))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		result = append(result, normalized)
	}
	return result
}

func outcomeLabel(ok bool) string {
	if ok {
		return "sent"
	}
	return "failed"
}
