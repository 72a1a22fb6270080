package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-exam-api/internal/apperror"
	"github.com/noah-isme/gema-exam-api/internal/dto"
	"github.com/noah-isme/gema-exam-api/internal/models"
	"github.com/noah-isme/gema-exam-api/internal/observability"
	"github.com/noah-isme/gema-exam-api/internal/repository"
)

const msgResumptionPending = "A resumption request is already pending for this exam"

// ResumptionService lets students ask to re-enter an interrupted attempt.
type ResumptionService interface {
	Request(ctx context.Context, actor Actor, req dto.ResumptionEnrollmentRequest) (dto.ResumptionResponse, error)
	Approve(ctx context.Context, actor Actor, req dto.ResumptionDecisionRequest) (dto.ResumptionResponse, error)
	Reject(ctx context.Context, actor Actor, req dto.ResumptionDecisionRequest) (dto.ResumptionResponse, error)
	Invalidate(ctx context.Context, actor Actor, req dto.ResumptionEnrollmentRequest) error
	List(ctx context.Context, actor Actor, enrollmentID uint) ([]dto.ResumptionResponse, error)
}

// ResumptionServiceDeps groups the collaborators of the resumption service.
type ResumptionServiceDeps struct {
	Requests    repository.ResumptionRepository
	Enrollments repository.EnrollmentRepository
	Exams       repository.ExamRepository
	Activity    ActivityRecorder
}

type resumptionService struct {
	requests    repository.ResumptionRepository
	enrollments repository.EnrollmentRepository
	exams       repository.ExamRepository
	activity    ActivityRecorder
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewResumptionService constructs the resumption service.
func NewResumptionService(deps ResumptionServiceDeps, validate *validator.Validate, logger zerolog.Logger) ResumptionService {
	return &resumptionService{
		requests:    deps.Requests,
		enrollments: deps.Enrollments,
		exams:       deps.Exams,
		activity:    deps.Activity,
		validator:   validate,
		logger:      logger.With().Str("component", "resumption_service").Logger(),
		now:         time.Now,
	}
}

func (s *resumptionService) Request(ctx context.Context, actor Actor, req dto.ResumptionEnrollmentRequest) (dto.ResumptionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ResumptionResponse{}, err
	}

	enrollment, err := s.ownedEnrollment(ctx, actor, req.EnrollmentID)
	if err != nil {
		return dto.ResumptionResponse{}, err
	}
	if enrollment.Status != models.EnrollmentStatusOngoing {
		return dto.ResumptionResponse{}, apperror.BadRequest("Resumption can only be requested for ongoing exams")
	}

	if _, err := s.requests.FindByEnrollmentAndStatus(ctx, enrollment.ID, models.ResumptionStatusPending); err == nil {
		return dto.ResumptionResponse{}, apperror.Conflict(msgResumptionPending)
	} else if !repository.IsNotFound(err) {
		return dto.ResumptionResponse{}, apperror.Internal(err)
	}

	if approved, err := s.requests.FindByEnrollmentAndStatus(ctx, enrollment.ID, models.ResumptionStatusApproved); err == nil {
		return dto.NewResumptionResponse(approved), nil
	} else if !repository.IsNotFound(err) {
		return dto.ResumptionResponse{}, apperror.Internal(err)
	}

	request := models.ResumptionRequest{
		EnrollmentID: enrollment.ID,
		Status:       models.ResumptionStatusPending,
		RequestedAt:  s.now().UTC(),
	}
	if err := s.requests.Create(ctx, &request); err != nil {
		if repository.IsDuplicate(err) {
			return dto.ResumptionResponse{}, apperror.Conflict(msgResumptionPending)
		}
		return dto.ResumptionResponse{}, apperror.Internal(err)
	}

	observability.ResumptionEvents().WithLabelValues("requested").Inc()
	loggerFor(ctx, s.logger).Info().Uint("enrollment_id", enrollment.ID).Uint("request_id", request.ID).Msg("resumption requested")
	return dto.NewResumptionResponse(request), nil
}

func (s *resumptionService) Approve(ctx context.Context, actor Actor, req dto.ResumptionDecisionRequest) (dto.ResumptionResponse, error) {
	return s.resolve(ctx, actor, req, models.ResumptionStatusApproved)
}

func (s *resumptionService) Reject(ctx context.Context, actor Actor, req dto.ResumptionDecisionRequest) (dto.ResumptionResponse, error) {
	return s.resolve(ctx, actor, req, models.ResumptionStatusRejected)
}

// resolve applies a terminal decision. Deciding a request that is no longer
// PENDING is an error so double processing surfaces to the caller.
func (s *resumptionService) resolve(ctx context.Context, actor Actor, req dto.ResumptionDecisionRequest, status string) (dto.ResumptionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ResumptionResponse{}, err
	}
	if !actor.IsAdmin() {
		return dto.ResumptionResponse{}, apperror.Forbidden("Only administrators can process resumption requests")
	}

	request, err := s.requests.GetByID(ctx, req.RequestID)
	if err != nil {
		return dto.ResumptionResponse{}, storeError(err, "Resumption request not found")
	}

	enrollment, err := s.enrollments.GetByID(ctx, request.EnrollmentID)
	if err != nil {
		return dto.ResumptionResponse{}, storeError(err, "Enrollment not found")
	}
	if _, err := loadManagedExam(ctx, s.exams, actor, enrollment.ExamID); err != nil {
		return dto.ResumptionResponse{}, err
	}

	if request.Status != models.ResumptionStatusPending {
		return dto.ResumptionResponse{}, alreadyProcessed(request.Status)
	}

	now := s.now().UTC()
	request.Status = status
	action := models.ActionResumptionApproved
	if status == models.ResumptionStatusApproved {
		request.ApprovedAt = &now
		request.ApprovedBy = uintPtr(actor.ID)
	} else {
		action = models.ActionResumptionRejected
		request.RejectedAt = &now
		request.RejectedBy = uintPtr(actor.ID)
		request.RejectionReason = strings.TrimSpace(req.Reason)
	}

	resolved, err := s.requests.Resolve(ctx, &request)
	if err != nil {
		return dto.ResumptionResponse{}, apperror.Internal(err)
	}
	if !resolved {
		current, err := s.requests.GetByID(ctx, request.ID)
		if err != nil {
			return dto.ResumptionResponse{}, storeError(err, "Resumption request not found")
		}
		return dto.ResumptionResponse{}, alreadyProcessed(current.Status)
	}

	observability.ResumptionEvents().WithLabelValues(strings.ToLower(status)).Inc()
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     action,
		EntityType: "resumption_request",
		EntityID:   uintPtr(request.ID),
		Metadata: map[string]interface{}{
			"enrollment_id": enrollment.ID,
			"exam_id":       enrollment.ExamID,
		},
	})

	return dto.NewResumptionResponse(request), nil
}

// Invalidate consumes the one-time grant. A missing APPROVED request is not an error.
func (s *resumptionService) Invalidate(ctx context.Context, actor Actor, req dto.ResumptionEnrollmentRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return err
	}

	enrollment, err := s.ownedEnrollment(ctx, actor, req.EnrollmentID)
	if err != nil {
		return err
	}

	removed, err := s.requests.DeleteApproved(ctx, enrollment.ID)
	if err != nil {
		return apperror.Internal(err)
	}
	if removed > 0 {
		observability.ResumptionEvents().WithLabelValues("invalidated").Inc()
	}
	return nil
}

func (s *resumptionService) List(ctx context.Context, actor Actor, enrollmentID uint) ([]dto.ResumptionResponse, error) {
	enrollment, err := s.enrollments.GetByID(ctx, enrollmentID)
	if err != nil {
		return nil, storeError(err, "Enrollment not found")
	}

	if actor.IsAdmin() {
		if _, err := loadManagedExam(ctx, s.exams, actor, enrollment.ExamID); err != nil {
			return nil, err
		}
	} else if enrollment.UserID != actor.ID {
		return nil, apperror.Forbidden("You do not own this enrollment")
	}

	requests, err := s.requests.ListByEnrollment(ctx, enrollment.ID)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	responses := make([]dto.ResumptionResponse, 0, len(requests))
	for _, request := range requests {
		responses = append(responses, dto.NewResumptionResponse(request))
	}
	return responses, nil
}

func (s *resumptionService) ownedEnrollment(ctx context.Context, actor Actor, enrollmentID uint) (models.Enrollment, error) {
	enrollment, err := s.enrollments.GetByID(ctx, enrollmentID)
	if err != nil {
		return models.Enrollment{}, storeError(err, "Enrollment not found")
	}
	if enrollment.UserID != actor.ID {
		return models.Enrollment{}, apperror.Forbidden("You do not own this enrollment")
	}
	return enrollment, nil
}

func alreadyProcessed(status string) error {
	return apperror.BadRequest(fmt.Sprintf("Resumption request has already been %s", strings.ToLower(status)))
}
