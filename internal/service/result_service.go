package service

import (
	"context"
	"fmt"

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
	"github.com/noah-isme/gema-exam-api/internal/scoring"
)

// ResultCalculator scores one attempt and persists the outcome.
type ResultCalculator interface {
	Calculate(ctx context.Context, userID, examID uint) (models.Result, error)
}

// ResultService computes and exposes exam results.
type ResultService interface {
	ResultCalculator
	List(ctx context.Context, actor Actor, examID uint) ([]dto.ResultResponse, error)
	Recalculate(ctx context.Context, actor Actor, req dto.RecalculateRequest) (dto.RecalculateResponse, error)
}

type resultService struct {
	exams       repository.ExamRepository
	questions   repository.QuestionRepository
	submissions repository.SubmissionRepository
	results     repository.ResultRepository
	enrollments repository.EnrollmentRepository
	activity    ActivityRecorder
	stats       StatisticsInvalidator
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// ResultServiceDeps groups the collaborators of the result service.
type ResultServiceDeps struct {
	Exams       repository.ExamRepository
	Questions   repository.QuestionRepository
	Submissions repository.SubmissionRepository
	Results     repository.ResultRepository
	Enrollments repository.EnrollmentRepository
	Activity    ActivityRecorder
	Stats       StatisticsInvalidator
}

// NewResultService constructs the result service.
func NewResultService(deps ResultServiceDeps, validate *validator.Validate, logger zerolog.Logger) ResultService {
	return &resultService{
		exams:       deps.Exams,
		questions:   deps.Questions,
		submissions: deps.Submissions,
		results:     deps.Results,
		enrollments: deps.Enrollments,
		activity:    deps.Activity,
		stats:       deps.Stats,
		validator:   validate,
		logger:      logger.With().Str("component", "result_service").Logger(),
		tracer:      otel.Tracer(tracerPrefix + "result"),
	}
}

// Calculate rebuilds the result of (user, exam) from the stored answers.
// Every run overwrites the previous score and metadata.
func (s *resultService) Calculate(ctx context.Context, userID, examID uint) (models.Result, error) {
	ctx, span := s.tracer.Start(ctx, "result.calculate", trace.WithAttributes(
		attribute.Int64("exam.id", int64(examID)),
		attribute.Int64("user.id", int64(userID)),
	))
	defer span.End()

	result, err := s.calculate(ctx, userID, examID)
	if err != nil {
		observability.ResultCalculations().WithLabelValues("failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "calculation failed")
		return models.Result{}, err
	}

	observability.ResultCalculations().WithLabelValues("success").Inc()
	if result.Score != nil {
		span.SetAttributes(attribute.Float64("result.score", *result.Score))
	}
	return result, nil
}

func (s *resultService) calculate(ctx context.Context, userID, examID uint) (models.Result, error) {
	submissions, err := s.submissions.ListByUserAndExam(ctx, userID, examID)
	if err != nil {
		return models.Result{}, fmt.Errorf("load submissions: %w", err)
	}
	questions, err := s.questions.ListByExam(ctx, examID)
	if err != nil {
		return models.Result{}, fmt.Errorf("load questions: %w", err)
	}
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return models.Result{}, storeError(err, "Exam not found")
	}

	answers := make(map[uint]interface{}, len(submissions))
	for _, submission := range submissions {
		answers[submission.QuestionID] = submission.Answer()
	}

	tally := scoring.Calculate(questions, answers, exam.TotalMarks())

	result, err := s.results.FindOrCreate(ctx, userID, examID)
	if err != nil {
		return models.Result{}, fmt.Errorf("load result: %w", err)
	}

	score := tally.Score
	result.Score = &score
	result.Metadata = datatypes.NewJSONType(tally.Metadata())
	if err := s.results.Update(ctx, &result); err != nil {
		return models.Result{}, fmt.Errorf("store result: %w", err)
	}

	return result, nil
}

func (s *resultService) List(ctx context.Context, actor Actor, examID uint) ([]dto.ResultResponse, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, storeError(err, "Exam not found")
	}

	if actor.IsAdmin() {
		if !actor.CanManage(exam) {
			return nil, apperror.Forbidden("You are not allowed to manage this exam")
		}
		results, err := s.results.ListByExam(ctx, examID)
		if err != nil {
			return nil, apperror.Internal(err)
		}
		responses := make([]dto.ResultResponse, 0, len(results))
		for _, result := range results {
			responses = append(responses, dto.NewResultResponse(result))
		}
		return responses, nil
	}

	if exam.EntityID != actor.EntityID {
		return nil, apperror.Forbidden("You are not allowed to view this exam")
	}
	if !exam.ResultsVisible {
		return nil, apperror.Forbidden("Results have not been published yet")
	}

	result, err := s.results.Get(ctx, actor.ID, examID)
	if err != nil {
		return nil, storeError(err, "Result not found")
	}
	return []dto.ResultResponse{dto.NewResultResponse(result)}, nil
}

func (s *resultService) Recalculate(ctx context.Context, actor Actor, req dto.RecalculateRequest) (dto.RecalculateResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.RecalculateResponse{}, err
	}

	exam, err := loadManagedExam(ctx, s.exams, actor, req.ExamID)
	if err != nil {
		return dto.RecalculateResponse{}, err
	}

	var userIDs []uint
	if req.UserID != nil {
		enrollment, err := s.enrollments.GetByExamAndUser(ctx, exam.ID, *req.UserID)
		if err != nil {
			return dto.RecalculateResponse{}, storeError(err, "Enrollment not found")
		}
		if !enrollment.IsCompleted() {
			return dto.RecalculateResponse{}, apperror.BadRequest("Attempt has not been submitted yet")
		}
		userIDs = []uint{*req.UserID}
	} else {
		enrollments, err := s.enrollments.ListByExam(ctx, exam.ID, models.EnrollmentStatusCompleted)
		if err != nil {
			return dto.RecalculateResponse{}, apperror.Internal(err)
		}
		for _, enrollment := range enrollments {
			userIDs = append(userIDs, enrollment.UserID)
		}
	}

	logger := loggerFor(ctx, s.logger)
	response := dto.RecalculateResponse{Failed: []uint{}}
	for _, userID := range userIDs {
		if _, err := s.Calculate(ctx, userID, exam.ID); err != nil {
			logger.Error().Err(err).Uint("exam_id", exam.ID).Uint("user_id", userID).Msg("result recalculation failed")
			response.Failed = append(response.Failed, userID)
			continue
		}
		response.Recalculated++
	}

	if s.stats != nil {
		s.stats.Invalidate(ctx, exam.ID)
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     models.ActionResultRecomputed,
		EntityType: "exam",
		EntityID:   uintPtr(exam.ID),
		Metadata: map[string]interface{}{
			"recalculated": response.Recalculated,
			"failed":       len(response.Failed),
		},
	})

	return response, nil
}
