package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"

	"github.com/noah-isme/gema-exam-api/internal/apperror"
	"github.com/noah-isme/gema-exam-api/internal/dto"
	"github.com/noah-isme/gema-exam-api/internal/formschema"
	"github.com/noah-isme/gema-exam-api/internal/models"
	"github.com/noah-isme/gema-exam-api/internal/observability"
	"github.com/noah-isme/gema-exam-api/internal/repository"
	"github.com/noah-isme/gema-exam-api/pkg/mailer"
)

// AdmissionService manages admission forms and turns approved submissions into accounts.
type AdmissionService interface {
	CreateForm(ctx context.Context, actor Actor, examID uint, req dto.AdmissionFormRequest) (dto.AdmissionFormResponse, error)
	GetForm(ctx context.Context, actor Actor, examID uint) (dto.AdmissionFormResponse, error)
	UpdateForm(ctx context.Context, actor Actor, examID uint, req dto.AdmissionFormRequest) (dto.AdmissionFormResponse, error)
	GeneratePublicLink(ctx context.Context, actor Actor, examID uint) (dto.AdmissionFormResponse, error)
	GetPublicForm(ctx context.Context, token string) (dto.AdmissionFormResponse, error)
	Submit(ctx context.Context, actor Actor, examID uint, req dto.AdmissionSubmitRequest) (dto.AdmissionSubmissionResponse, error)
	SubmitPublic(ctx context.Context, token string, req dto.AdmissionSubmitRequest) (dto.AdmissionSubmissionResponse, error)
	ListSubmissions(ctx context.Context, actor Actor, examID uint) ([]dto.AdmissionSubmissionResponse, error)
	UpdateSubmissionStatus(ctx context.Context, actor Actor, submissionID uint, req dto.AdmissionStatusRequest) (dto.AdmissionSubmissionResponse, error)
}

// AdmissionServiceDeps groups the collaborators of the admission service.
type AdmissionServiceDeps struct {
	Forms       repository.AdmissionFormRepository
	Submissions repository.AdmissionSubmissionRepository
	Exams       repository.ExamRepository
	Users       repository.UserRepository
	Enrollments repository.EnrollmentRepository
	Results     repository.ResultRepository
	Activity    ActivityRecorder
	Notifier    mailer.Notifier
	Stats       StatisticsInvalidator
	Links       LinkConfig
}

type admissionService struct {
	forms       repository.AdmissionFormRepository
	submissions repository.AdmissionSubmissionRepository
	exams       repository.ExamRepository
	users       repository.UserRepository
	enroller    enroller
	links       linkBuilder
	activity    ActivityRecorder
	notifier    mailer.Notifier
	stats       StatisticsInvalidator
	validator   *validator.Validate
	policy      *bluemonday.Policy
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewAdmissionService constructs the admission service.
func NewAdmissionService(deps AdmissionServiceDeps, validate *validator.Validate, logger zerolog.Logger) AdmissionService {
	svc := &admissionService{
		forms:       deps.Forms,
		submissions: deps.Submissions,
		exams:       deps.Exams,
		users:       deps.Users,
		enroller:    enroller{enrollments: deps.Enrollments, results: deps.Results},
		activity:    deps.Activity,
		notifier:    deps.Notifier,
		stats:       deps.Stats,
		validator:   validate,
		policy:      bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "admission_service").Logger(),
		tracer:      otel.Tracer(tracerPrefix + "admission"),
		now:         time.Now,
	}
	svc.links = linkBuilder{users: deps.Users, config: deps.Links, now: func() time.Time { return svc.now() }}
	return svc
}

func (s *admissionService) CreateForm(ctx context.Context, actor Actor, examID uint, req dto.AdmissionFormRequest) (dto.AdmissionFormResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AdmissionFormResponse{}, err
	}
	exam, err := loadManagedExam(ctx, s.exams, actor, examID)
	if err != nil {
		return dto.AdmissionFormResponse{}, err
	}

	fields, err := formschema.NormalizeStructure(req.FormStructure)
	if err != nil {
		return dto.AdmissionFormResponse{}, apperror.BadRequest(err.Error())
	}

	if _, err := s.forms.GetByExam(ctx, exam.ID); err == nil {
		return dto.AdmissionFormResponse{}, apperror.Conflict("Admission form already exists for this exam")
	} else if !repository.IsNotFound(err) {
		return dto.AdmissionFormResponse{}, apperror.Internal(err)
	}

	form := models.AdmissionForm{ExamID: exam.ID, FormStructure: datatypes.NewJSONType(fields)}
	if err := s.forms.Create(ctx, &form); err != nil {
		return dto.AdmissionFormResponse{}, apperror.Internal(err)
	}

	return s.formResponse(form, exam), nil
}

func (s *admissionService) GetForm(ctx context.Context, actor Actor, examID uint) (dto.AdmissionFormResponse, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return dto.AdmissionFormResponse{}, storeError(err, "Exam not found")
	}
	if err := s.authorizeFormReader(ctx, actor, exam); err != nil {
		return dto.AdmissionFormResponse{}, err
	}

	form, err := s.forms.GetByExam(ctx, exam.ID)
	if err != nil {
		return dto.AdmissionFormResponse{}, storeError(err, "Admission form not found")
	}

	response := s.formResponse(form, exam)
	if !actor.IsAdmin() {
		response.PublicToken = nil
		response.PublicURL = ""
	}
	return response, nil
}

func (s *admissionService) UpdateForm(ctx context.Context, actor Actor, examID uint, req dto.AdmissionFormRequest) (dto.AdmissionFormResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AdmissionFormResponse{}, err
	}
	exam, err := loadManagedExam(ctx, s.exams, actor, examID)
	if err != nil {
		return dto.AdmissionFormResponse{}, err
	}

	fields, err := formschema.NormalizeStructure(req.FormStructure)
	if err != nil {
		return dto.AdmissionFormResponse{}, apperror.BadRequest(err.Error())
	}

	form, err := s.forms.GetByExam(ctx, exam.ID)
	if err != nil {
		return dto.AdmissionFormResponse{}, storeError(err, "Admission form not found")
	}

	form.FormStructure = datatypes.NewJSONType(fields)
	if err := s.forms.Update(ctx, &form); err != nil {
		return dto.AdmissionFormResponse{}, apperror.Internal(err)
	}
	return s.formResponse(form, exam), nil
}

func (s *admissionService) GeneratePublicLink(ctx context.Context, actor Actor, examID uint) (dto.AdmissionFormResponse, error) {
	exam, err := loadManagedExam(ctx, s.exams, actor, examID)
	if err != nil {
		return dto.AdmissionFormResponse{}, err
	}

	form, err := s.forms.GetByExam(ctx, exam.ID)
	if err != nil {
		return dto.AdmissionFormResponse{}, storeError(err, "Admission form not found")
	}

	token := uuid.NewString()
	form.PublicToken = &token
	if err := s.forms.Update(ctx, &form); err != nil {
		return dto.AdmissionFormResponse{}, apperror.Internal(err)
	}

	loggerFor(ctx, s.logger).Info().Uint("exam_id", exam.ID).Msg("admission public link generated")
	return s.formResponse(form, exam), nil
}

func (s *admissionService) GetPublicForm(ctx context.Context, token string) (dto.AdmissionFormResponse, error) {
	form, exam, err := s.publicForm(ctx, token)
	if err != nil {
		return dto.AdmissionFormResponse{}, err
	}

	response := s.formResponse(form, exam)
	response.PublicToken = nil
	response.PublicURL = ""
	return response, nil
}

func (s *admissionService) Submit(ctx context.Context, actor Actor, examID uint, req dto.AdmissionSubmitRequest) (dto.AdmissionSubmissionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AdmissionSubmissionResponse{}, err
	}

	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return dto.AdmissionSubmissionResponse{}, storeError(err, "Exam not found")
	}

	submission := models.AdmissionFormSubmission{ExamID: exam.ID}
	switch strings.ToUpper(actor.Role) {
	case models.RoleRepresentative:
		if exam.EntityID != actor.EntityID {
			return dto.AdmissionSubmissionResponse{}, apperror.Forbidden("You are not assigned to this exam")
		}
		if _, err := s.enroller.enrollments.GetByExamAndUser(ctx, exam.ID, actor.ID); err != nil {
			if repository.IsNotFound(err) {
				return dto.AdmissionSubmissionResponse{}, apperror.Forbidden("You are not assigned to this exam")
			}
			return dto.AdmissionSubmissionResponse{}, apperror.Internal(err)
		}
		submission.RepresentativeID = uintPtr(actor.ID)
		submission.Source = models.AdmissionSourceRepresentative
	case models.RoleAdmin, models.RoleSuperAdmin:
		if !actor.CanManage(exam) {
			return dto.AdmissionSubmissionResponse{}, apperror.Forbidden("You are not allowed to manage this exam")
		}
		submission.Source = models.AdmissionSourceAdmin
	default:
		return dto.AdmissionSubmissionResponse{}, apperror.Forbidden("Only representatives and administrators can submit admission forms")
	}

	form, err := s.forms.GetByExam(ctx, exam.ID)
	if err != nil {
		return dto.AdmissionSubmissionResponse{}, storeError(err, "Admission form not found")
	}

	return s.store(ctx, form, submission, req.FormResponses)
}

func (s *admissionService) SubmitPublic(ctx context.Context, token string, req dto.AdmissionSubmitRequest) (dto.AdmissionSubmissionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AdmissionSubmissionResponse{}, err
	}

	form, exam, err := s.publicForm(ctx, token)
	if err != nil {
		return dto.AdmissionSubmissionResponse{}, err
	}

	submission := models.AdmissionFormSubmission{ExamID: exam.ID, Source: models.AdmissionSourcePublic}
	return s.store(ctx, form, submission, req.FormResponses)
}

func (s *admissionService) store(ctx context.Context, form models.AdmissionForm, submission models.AdmissionFormSubmission, responses map[string]interface{}) (dto.AdmissionSubmissionResponse, error) {
	if err := formschema.ValidateResponses(form.Fields(), responses); err != nil {
		observability.AdmissionEvents().WithLabelValues("invalid").Inc()
		return dto.AdmissionSubmissionResponse{}, apperror.Validation(err.Error())
	}

	submission.FormResponses = datatypes.JSONMap(formschema.SanitizeResponses(s.policy, form.Fields(), responses))
	submission.Status = models.AdmissionStatusPending
	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.AdmissionSubmissionResponse{}, apperror.Internal(err)
	}

	observability.AdmissionEvents().WithLabelValues("submitted").Inc()
	loggerFor(ctx, s.logger).Info().
		Uint("exam_id", submission.ExamID).
		Uint("submission_id", submission.ID).
		Str("source", submission.Source).
		Msg("admission form submitted")
	return dto.NewAdmissionSubmissionResponse(submission), nil
}

func (s *admissionService) ListSubmissions(ctx context.Context, actor Actor, examID uint) ([]dto.AdmissionSubmissionResponse, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, storeError(err, "Exam not found")
	}

	filter := repository.AdmissionSubmissionFilter{ExamID: exam.ID}
	switch {
	case actor.IsAdmin():
		if !actor.CanManage(exam) {
			return nil, apperror.Forbidden("You are not allowed to manage this exam")
		}
	case strings.ToUpper(actor.Role) == models.RoleRepresentative && exam.EntityID == actor.EntityID:
		filter.RepresentativeID = uintPtr(actor.ID)
	default:
		return nil, apperror.Forbidden("You are not allowed to view these submissions")
	}

	submissions, err := s.submissions.List(ctx, filter)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	responses := make([]dto.AdmissionSubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, dto.NewAdmissionSubmissionResponse(submission))
	}
	return responses, nil
}

// UpdateSubmissionStatus approves or rejects a PENDING submission. Approval
// provisions the account, enrollment and result shell; re-processing a
// decided submission is rejected.
func (s *admissionService) UpdateSubmissionStatus(ctx context.Context, actor Actor, submissionID uint, req dto.AdmissionStatusRequest) (dto.AdmissionSubmissionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AdmissionSubmissionResponse{}, err
	}
	if !actor.IsAdmin() {
		return dto.AdmissionSubmissionResponse{}, apperror.Forbidden("Only administrators can process admission submissions")
	}

	ctx, span := s.tracer.Start(ctx, "admission.update_status", trace.WithAttributes(
		attribute.Int64("submission.id", int64(submissionID)),
		attribute.String("admission.action", req.Action),
	))
	defer span.End()

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return dto.AdmissionSubmissionResponse{}, storeError(err, "Admission submission not found")
	}
	exam, err := loadManagedExam(ctx, s.exams, actor, submission.ExamID)
	if err != nil {
		return dto.AdmissionSubmissionResponse{}, err
	}
	if submission.Status != models.AdmissionStatusPending {
		return dto.AdmissionSubmissionResponse{}, submissionProcessed(submission.Status)
	}

	claimed, err := s.submissions.Claim(ctx, submission.ID)
	if err != nil {
		return dto.AdmissionSubmissionResponse{}, apperror.Internal(err)
	}
	if !claimed {
		return dto.AdmissionSubmissionResponse{}, s.currentProcessedError(ctx, submission.ID)
	}

	now := s.now().UTC()
	submission.ProcessedBy = uintPtr(actor.ID)
	submission.ProcessedAt = &now

	action := models.ActionAdmissionRejected
	if req.Action == dto.AdmissionActionApprove {
		action = models.ActionAdmissionApproved
		user, err := s.provision(ctx, actor, exam, submission, req.Password)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "provisioning failed")
			s.release(ctx, submission.ID)
			return dto.AdmissionSubmissionResponse{}, err
		}
		submission.UserID = uintPtr(user.ID)
		submission.Status = models.AdmissionStatusApproved
	} else {
		submission.Status = models.AdmissionStatusRejected
	}

	finalized, err := s.submissions.Finalize(ctx, &submission)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "finalize failed")
		return dto.AdmissionSubmissionResponse{}, apperror.Internal(err)
	}
	if !finalized {
		return dto.AdmissionSubmissionResponse{}, s.currentProcessedError(ctx, submission.ID)
	}

	observability.AdmissionEvents().WithLabelValues(req.Action).Inc()
	if submission.Status == models.AdmissionStatusApproved && s.stats != nil {
		s.stats.Invalidate(ctx, exam.ID)
	}
	metadata := map[string]interface{}{"exam_id": exam.ID, "source": submission.Source}
	if submission.UserID != nil {
		metadata["user_id"] = *submission.UserID
	}
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     action,
		EntityType: "admission_submission",
		EntityID:   uintPtr(submission.ID),
		Metadata:   metadata,
	})

	return dto.NewAdmissionSubmissionResponse(submission), nil
}

// release hands the submission back to PENDING after a failed approval.
func (s *admissionService) release(ctx context.Context, submissionID uint) {
	if err := s.submissions.Release(context.WithoutCancel(ctx), submissionID); err != nil {
		loggerFor(ctx, s.logger).Error().Err(err).Uint("submission_id", submissionID).Msg("failed to release admission submission")
	}
}

func (s *admissionService) currentProcessedError(ctx context.Context, submissionID uint) error {
	current, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return storeError(err, "Admission submission not found")
	}
	return submissionProcessed(current.Status)
}

// provision creates or merges the candidate account and enrolls it.
func (s *admissionService) provision(ctx context.Context, actor Actor, exam models.Exam, submission models.AdmissionFormSubmission, password string) (models.User, error) {
	var fields []models.FormField
	if form, err := s.forms.GetByExam(ctx, exam.ID); err == nil {
		fields = form.Fields()
	} else if !repository.IsNotFound(err) {
		return models.User{}, apperror.Internal(err)
	}

	candidate := formschema.ExtractCandidate(fields, submission.FormResponses)
	if candidate.Email == nil {
		return models.User{}, apperror.BadRequest("Submission does not contain an email address")
	}

	// Admin-chosen passwords only apply to submissions an admin entered.
	password = strings.TrimSpace(password)
	if submission.Source != models.AdmissionSourceAdmin {
		password = ""
	}

	user, err := s.users.GetByEmail(ctx, *candidate.Email)
	switch {
	case err == nil:
		if user.EntityID != exam.EntityID {
			return models.User{}, apperror.Conflict("A user with this email belongs to another entity")
		}
		if user.Role != models.RoleStudent {
			return models.User{}, apperror.Conflict("A non-student account already uses this email")
		}
		mergeCandidate(&user, candidate)
		if !user.HasPassword() && password != "" {
			if err := setPassword(&user, password); err != nil {
				return models.User{}, err
			}
		}
		user.Status = mergedStatus(user, submission.Source)
		if err := s.users.Update(ctx, &user); err != nil {
			return models.User{}, apperror.Internal(err)
		}
	case repository.IsNotFound(err):
		user = models.User{
			Email:    *candidate.Email,
			Role:     models.RoleStudent,
			EntityID: exam.EntityID,
		}
		mergeCandidate(&user, candidate)
		if password != "" {
			if err := setPassword(&user, password); err != nil {
				return models.User{}, err
			}
		}
		user.Status = provisionedStatus(user)
		if err := s.users.Create(ctx, &user); err != nil {
			return models.User{}, apperror.Internal(err)
		}
	default:
		return models.User{}, apperror.Internal(err)
	}

	logger := loggerFor(ctx, s.logger)
	if !user.HasPassword() {
		s.sendApproval(ctx, logger, exam, &user)
	}

	invitedAt := s.now().UTC()
	if _, _, err := s.enroller.enroll(ctx, exam.ID, user.ID, models.EnrollmentStatusUpcoming, models.EnrollmentMetadata{
		InvitedBy:      uintPtr(actor.ID),
		InvitedAt:      &invitedAt,
		FromSubmission: uintPtr(submission.ID),
	}); err != nil {
		return models.User{}, apperror.Internal(err)
	}

	return user, nil
}

// sendApproval mails a password-setup link. Failure never blocks approval.
func (s *admissionService) sendApproval(ctx context.Context, logger *zerolog.Logger, exam models.Exam, user *models.User) {
	if s.notifier == nil {
		return
	}
	link, err := s.links.passwordSetupLink(ctx, user)
	if err != nil {
		logger.Warn().Err(err).Uint("user_id", user.ID).Msg("unable to issue password setup link")
		return
	}

	sent := s.notifier.SendStudentApproval(ctx, user.Email, user.Name, link, mailer.ExamInfo{ID: exam.ID, Title: exam.Title})
	observability.MailDispatches().WithLabelValues(mailer.KindStudentApproval, outcomeLabel(sent)).Inc()
	if !sent {
		logger.Warn().Uint("user_id", user.ID).Uint("exam_id", exam.ID).Msg("approval email not sent")
	}
}

func (s *admissionService) publicForm(ctx context.Context, token string) (models.AdmissionForm, models.Exam, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.AdmissionForm{}, models.Exam{}, apperror.NotFound("Admission form not found")
	}

	form, err := s.forms.GetByPublicToken(ctx, token)
	if err != nil {
		return models.AdmissionForm{}, models.Exam{}, storeError(err, "Admission form not found")
	}
	exam, err := s.exams.GetByID(ctx, form.ExamID)
	if err != nil {
		return models.AdmissionForm{}, models.Exam{}, storeError(err, "Exam not found")
	}
	if !exam.Active {
		return models.AdmissionForm{}, models.Exam{}, apperror.BadRequest("Exam is not accepting admissions")
	}
	return form, exam, nil
}

func (s *admissionService) authorizeFormReader(ctx context.Context, actor Actor, exam models.Exam) error {
	if actor.IsAdmin() {
		if !actor.CanManage(exam) {
			return apperror.Forbidden("You are not allowed to manage this exam")
		}
		return nil
	}
	if strings.ToUpper(actor.Role) != models.RoleRepresentative || exam.EntityID != actor.EntityID {
		return apperror.Forbidden("You are not allowed to view this admission form")
	}
	if _, err := s.enroller.enrollments.GetByExamAndUser(ctx, exam.ID, actor.ID); err != nil {
		if repository.IsNotFound(err) {
			return apperror.Forbidden("You are not assigned to this exam")
		}
		return apperror.Internal(err)
	}
	return nil
}

func (s *admissionService) formResponse(form models.AdmissionForm, exam models.Exam) dto.AdmissionFormResponse {
	response := dto.NewAdmissionFormResponse(form)
	response.ExamTitle = exam.Title
	if form.PublicToken != nil {
		response.PublicURL = s.links.publicFormLink(*form.PublicToken)
	}
	return response
}

// mergeCandidate copies every extracted value onto the user.
func mergeCandidate(user *models.User, candidate formschema.Candidate) {
	if candidate.Name != nil {
		user.Name = *candidate.Name
	}
	if candidate.Phone != nil {
		user.Phone = *candidate.Phone
	}
	if candidate.Address != nil {
		user.Address = *candidate.Address
	}
	if candidate.Gender != nil {
		user.Gender = *candidate.Gender
	}
	if candidate.RollNumber != nil {
		user.RollNumber = *candidate.RollNumber
	}
}

// mergedStatus normalizes an existing account. Only passwordless accounts
// arriving through a representative or the public link stay pending; an
// admin-entered submission activates the account.
func mergedStatus(user models.User, source string) string {
	if !user.HasPassword() && source != models.AdmissionSourceAdmin {
		return models.UserStatusActivationPending
	}
	return models.UserStatusActive
}

func provisionedStatus(user models.User) string {
	if user.HasPassword() {
		return models.UserStatusActive
	}
	return models.UserStatusActivationPending
}

func setPassword(user *models.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return apperror.BadRequest("password is too long")
		}
		return apperror.Internal(fmt.Errorf("hash password: %w", err))
	}
	user.PasswordHash = string(hash)
	return nil
}

func submissionProcessed(status string) error {
	if status == models.AdmissionStatusProcessing {
		return apperror.Conflict("Submission is already being processed")
	}
	return apperror.BadRequest(fmt.Sprintf("Submission has already been %s", strings.ToLower(status)))
}
