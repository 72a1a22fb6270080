package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/noah-isme/gema-exam-api/internal/apperror"
	"github.com/noah-isme/gema-exam-api/internal/dto"
	"github.com/noah-isme/gema-exam-api/internal/models"
	"github.com/noah-isme/gema-exam-api/internal/observability"
	"github.com/noah-isme/gema-exam-api/internal/repository"
)

// Messages surfaced by the attempt lifecycle.
const (
	msgAlreadySubmitted = "Exam has already been submitted"
	msgNotEnrolled      = "You are not enrolled in this exam"
)

// SubmissionService drives an enrollment through its attempt lifecycle:
// start, answer, submit.
type SubmissionService interface {
	Start(ctx context.Context, actor Actor, req dto.ExamRefRequest) (dto.EnrollmentResponse, error)
	SaveAnswer(ctx context.Context, actor Actor, req dto.AnswerRequest) (dto.AnswerResponse, error)
	DeleteAnswer(ctx context.Context, actor Actor, req dto.AnswerDeleteRequest) error
	Submit(ctx context.Context, actor Actor, req dto.ExamRefRequest) (dto.SubmitExamResponse, error)
	Get(ctx context.Context, actor Actor, examID uint) (dto.AttemptResponse, error)
}

// SubmissionServiceDeps groups the collaborators of the submission service.
type SubmissionServiceDeps struct {
	Exams       repository.ExamRepository
	Questions   repository.QuestionRepository
	Enrollments repository.EnrollmentRepository
	Submissions repository.SubmissionRepository
	Calculator  ResultCalculator
	Stats       StatisticsInvalidator
}

type submissionService struct {
	exams       repository.ExamRepository
	questions   repository.QuestionRepository
	enrollments repository.EnrollmentRepository
	submissions repository.SubmissionRepository
	calculator  ResultCalculator
	stats       StatisticsInvalidator
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewSubmissionService constructs the submission service.
func NewSubmissionService(deps SubmissionServiceDeps, validate *validator.Validate, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		exams:       deps.Exams,
		questions:   deps.Questions,
		enrollments: deps.Enrollments,
		submissions: deps.Submissions,
		calculator:  deps.Calculator,
		stats:       deps.Stats,
		validator:   validate,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		tracer:      otel.Tracer(tracerPrefix + "submission"),
		now:         time.Now,
	}
}

func (s *submissionService) Start(ctx context.Context, actor Actor, req dto.ExamRefRequest) (dto.EnrollmentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.EnrollmentResponse{}, err
	}

	exam, err := s.exams.GetByID(ctx, req.ExamID)
	if err != nil {
		return dto.EnrollmentResponse{}, storeError(err, "Exam not found")
	}

	enrollment, err := s.enrollmentOf(ctx, actor, exam.ID)
	if err != nil {
		return dto.EnrollmentResponse{}, err
	}
	if enrollment.IsCompleted() {
		return dto.EnrollmentResponse{}, apperror.BadRequest(msgAlreadySubmitted)
	}
	if enrollment.CanStart() && !exam.Active {
		return dto.EnrollmentResponse{}, errExamInactive()
	}

	enrollment, err = s.ensureStarted(ctx, enrollment)
	if err != nil {
		return dto.EnrollmentResponse{}, err
	}
	return dto.NewEnrollmentResponse(enrollment), nil
}

func (s *submissionService) SaveAnswer(ctx context.Context, actor Actor, req dto.AnswerRequest) (dto.AnswerResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AnswerResponse{}, err
	}

	question, err := s.questions.GetByID(ctx, req.QuestionID)
	if err != nil {
		return dto.AnswerResponse{}, storeError(err, "Question not found")
	}
	if question.ExamID != req.ExamID {
		return dto.AnswerResponse{}, apperror.BadRequest("Question does not belong to this exam")
	}

	enrollment, err := s.enrollmentOf(ctx, actor, req.ExamID)
	if err != nil {
		return dto.AnswerResponse{}, err
	}
	if enrollment.IsCompleted() {
		return dto.AnswerResponse{}, apperror.BadRequest(msgAlreadySubmitted)
	}
	// The first saved answer starts the attempt.
	if enrollment.CanStart() {
		exam, err := s.exams.GetByID(ctx, req.ExamID)
		if err != nil {
			return dto.AnswerResponse{}, storeError(err, "Exam not found")
		}
		if !exam.Active {
			return dto.AnswerResponse{}, errExamInactive()
		}
	}
	enrollment, err = s.ensureStarted(ctx, enrollment)
	if err != nil {
		return dto.AnswerResponse{}, err
	}
	if enrollment.IsCompleted() {
		return dto.AnswerResponse{}, apperror.BadRequest(msgAlreadySubmitted)
	}

	submission := models.Submission{
		UserID:      actor.ID,
		ExamID:      req.ExamID,
		QuestionID:  req.QuestionID,
		Metadata:    datatypes.JSONMap{"answer": req.Answer},
		LastUpdated: s.now().UTC(),
	}
	if err := s.submissions.Upsert(ctx, &submission); err != nil {
		return dto.AnswerResponse{}, apperror.Internal(err)
	}

	return dto.NewAnswerResponse(submission), nil
}

func (s *submissionService) DeleteAnswer(ctx context.Context, actor Actor, req dto.AnswerDeleteRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return err
	}

	enrollment, err := s.enrollmentOf(ctx, actor, req.ExamID)
	if err != nil {
		return err
	}
	if enrollment.IsCompleted() {
		return apperror.BadRequest(msgAlreadySubmitted)
	}

	deleted, err := s.submissions.Delete(ctx, actor.ID, req.ExamID, req.QuestionID)
	if err != nil {
		return apperror.Internal(err)
	}
	if !deleted {
		return apperror.NotFound("Answer not found")
	}
	return nil
}

// Submit completes the enrollment, then scores it. A scoring failure is
// logged and leaves the enrollment COMPLETED; POST /results/recalculate
// repairs it later.
func (s *submissionService) Submit(ctx context.Context, actor Actor, req dto.ExamRefRequest) (dto.SubmitExamResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.SubmitExamResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "submission.submit", trace.WithAttributes(
		attribute.Int64("exam.id", int64(req.ExamID)),
		attribute.Int64("user.id", int64(actor.ID)),
	))
	defer span.End()

	enrollment, err := s.enrollmentOf(ctx, actor, req.ExamID)
	if err != nil {
		span.SetStatus(codes.Error, "enrollment lookup failed")
		return dto.SubmitExamResponse{}, err
	}
	if enrollment.IsCompleted() {
		span.SetStatus(codes.Error, "already submitted")
		return dto.SubmitExamResponse{}, apperror.BadRequest(msgAlreadySubmitted)
	}

	metadata := enrollment.Metadata.Data()
	submittedAt := s.now().UTC()
	metadata.SubmittedAt = &submittedAt

	completed, err := s.enrollments.MarkCompleted(ctx, enrollment.ID, metadata)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return dto.SubmitExamResponse{}, apperror.Internal(err)
	}
	if !completed {
		span.SetStatus(codes.Error, "already submitted")
		return dto.SubmitExamResponse{}, apperror.BadRequest(msgAlreadySubmitted)
	}
	observability.EnrollmentTransitions().WithLabelValues(models.EnrollmentStatusCompleted).Inc()

	enrollment.Status = models.EnrollmentStatusCompleted
	enrollment.Metadata = datatypes.NewJSONType(metadata)
	response := dto.SubmitExamResponse{Enrollment: dto.NewEnrollmentResponse(enrollment)}

	result, err := s.calculator.Calculate(ctx, actor.ID, req.ExamID)
	if err != nil {
		span.RecordError(err)
		loggerFor(ctx, s.logger).Error().Err(err).
			Uint("enrollment_id", enrollment.ID).
			Uint("exam_id", req.ExamID).
			Uint("user_id", actor.ID).
			Msg("result calculation failed after submission")
	} else if exam, examErr := s.exams.GetByID(ctx, req.ExamID); examErr == nil && exam.ResultsVisible {
		resultResponse := dto.NewResultResponse(result)
		response.Result = &resultResponse
	}

	if s.stats != nil {
		s.stats.Invalidate(ctx, req.ExamID)
	}

	return response, nil
}

func (s *submissionService) Get(ctx context.Context, actor Actor, examID uint) (dto.AttemptResponse, error) {
	if examID == 0 {
		return dto.AttemptResponse{}, apperror.BadRequest("exam_id is required")
	}

	enrollment, err := s.enrollmentOf(ctx, actor, examID)
	if err != nil {
		return dto.AttemptResponse{}, err
	}

	submissions, err := s.submissions.ListByUserAndExam(ctx, actor.ID, examID)
	if err != nil {
		return dto.AttemptResponse{}, apperror.Internal(err)
	}

	answers := make([]dto.AnswerResponse, 0, len(submissions))
	for _, submission := range submissions {
		answers = append(answers, dto.NewAnswerResponse(submission))
	}

	return dto.AttemptResponse{Enrollment: dto.NewEnrollmentResponse(enrollment), Answers: answers}, nil
}

func (s *submissionService) enrollmentOf(ctx context.Context, actor Actor, examID uint) (models.Enrollment, error) {
	enrollment, err := s.enrollments.GetByExamAndUser(ctx, examID, actor.ID)
	if err != nil {
		return models.Enrollment{}, storeError(err, msgNotEnrolled)
	}
	return enrollment, nil
}

// ensureStarted moves an entry-state enrollment to ONGOING. Already started
// attempts keep their original started_at.
func (s *submissionService) ensureStarted(ctx context.Context, enrollment models.Enrollment) (models.Enrollment, error) {
	if !enrollment.CanStart() {
		return enrollment, nil
	}

	metadata := enrollment.Metadata.Data()
	if metadata.StartedAt == nil {
		startedAt := s.now().UTC()
		metadata.StartedAt = &startedAt
	}

	started, err := s.enrollments.MarkStarted(ctx, enrollment.ID, metadata)
	if err != nil {
		return models.Enrollment{}, apperror.Internal(err)
	}
	if !started {
		// Another request moved it first; report the stored state.
		current, err := s.enrollments.GetByID(ctx, enrollment.ID)
		if err != nil {
			return models.Enrollment{}, storeError(err, msgNotEnrolled)
		}
		return current, nil
	}

	observability.EnrollmentTransitions().WithLabelValues(models.EnrollmentStatusOngoing).Inc()
	enrollment.Status = models.EnrollmentStatusOngoing
	enrollment.Metadata = datatypes.NewJSONType(metadata)
	return enrollment, nil
}

func errExamInactive() error {
	return apperror.BadRequest("Exam is not active")
}
