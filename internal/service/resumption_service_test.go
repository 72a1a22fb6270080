package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-exam-api/internal/apperror"
	"github.com/noah-isme/gema-exam-api/internal/dto"
	"github.com/noah-isme/gema-exam-api/internal/models"
	"github.com/noah-isme/gema-exam-api/internal/repository"
)

// staleResumptionRepo never sees existing rows, like a request racing another.
type staleResumptionRepo struct {
	repository.ResumptionRepository
}

func (staleResumptionRepo) FindByEnrollmentAndStatus(context.Context, uint, string) (models.ResumptionRequest, error) {
	return models.ResumptionRequest{}, gorm.ErrRecordNotFound
}

func TestResumptionConcurrentRequestIsConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student := env.createUser(t, "a@x.com", models.RoleStudent, 1)
	exam := env.createExam(t, 1, nil)
	enrollment := env.enroll(t, exam.ID, student.ID, models.EnrollmentStatusOngoing)

	svc := NewResumptionService(ResumptionServiceDeps{
		Requests:    staleResumptionRepo{repository.NewResumptionRepository(env.db)},
		Enrollments: repository.NewEnrollmentRepository(env.db),
		Exams:       repository.NewExamRepository(env.db),
		Activity:    env.activity,
	}, validator.New(validator.WithRequiredStructEnabled()), testLogger())
	ref := dto.ResumptionEnrollmentRequest{EnrollmentID: enrollment.ID}

	_, err := svc.Request(ctx, studentActor(student), ref)
	require.NoError(t, err)
	_, err = svc.Request(ctx, studentActor(student), ref)
	requireAppError(t, err, apperror.CodeConflict, "A resumption request is already pending for this exam")

	var pending int64
	require.NoError(t, env.db.Model(&models.ResumptionRequest{}).
		Where("enrollment_id = ? AND status = ?", enrollment.ID, models.ResumptionStatusPending).
		Count(&pending).Error)
	require.Equal(t, int64(1), pending)
}

func TestResumptionRequiresOngoingEnrollment(t *testing.T) {
	env := newTestEnv(t)
	student := env.createUser(t, "a@x.com", models.RoleStudent, 1)
	exam := env.createExam(t, 1, nil)
	enrollment := env.enroll(t, exam.ID, student.ID, models.EnrollmentStatusUpcoming)

	_, err := env.resumptions.Request(context.Background(), studentActor(student), dto.ResumptionEnrollmentRequest{EnrollmentID: enrollment.ID})
	requireAppError(t, err, apperror.CodeBadRequest, "Resumption can only be requested for ongoing exams")
}

func TestResumptionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.createUser(t, "admin@x.com", models.RoleAdmin, 1)
	student := env.createUser(t, "a@x.com", models.RoleStudent, 1)
	exam := env.createExam(t, 1, nil)
	enrollment := env.enroll(t, exam.ID, student.ID, models.EnrollmentStatusOngoing)
	ref := dto.ResumptionEnrollmentRequest{EnrollmentID: enrollment.ID}

	requested, err := env.resumptions.Request(ctx, studentActor(student), ref)
	require.NoError(t, err)
	require.Equal(t, models.ResumptionStatusPending, requested.Status)

	_, err = env.resumptions.Request(ctx, studentActor(student), ref)
	requireAppError(t, err, apperror.CodeConflict, "A resumption request is already pending for this exam")

	_, err = env.resumptions.Approve(ctx, studentActor(student), dto.ResumptionDecisionRequest{RequestID: requested.ID})
	requireAppError(t, err, apperror.CodeAuthorizationFailed, "")

	approved, err := env.resumptions.Approve(ctx, studentActor(admin), dto.ResumptionDecisionRequest{RequestID: requested.ID})
	require.NoError(t, err)
	require.Equal(t, models.ResumptionStatusApproved, approved.Status)

	_, err = env.resumptions.Approve(ctx, studentActor(admin), dto.ResumptionDecisionRequest{RequestID: requested.ID})
	requireAppError(t, err, apperror.CodeBadRequest, "Resumption request has already been approved")

	_, err = env.resumptions.Reject(ctx, studentActor(admin), dto.ResumptionDecisionRequest{RequestID: requested.ID, Reason: "late"})
	requireAppError(t, err, apperror.CodeBadRequest, "Resumption request has already been approved")

	again, err := env.resumptions.Request(ctx, studentActor(student), ref)
	require.NoError(t, err)
	require.Equal(t, approved.ID, again.ID)

	require.NoError(t, env.resumptions.Invalidate(ctx, studentActor(student), ref))
	require.NoError(t, env.resumptions.Invalidate(ctx, studentActor(student), ref))

	history, err := env.resumptions.List(ctx, studentActor(admin), enrollment.ID)
	require.NoError(t, err)
	require.Empty(t, history)

	require.Equal(t, []string{models.ActionResumptionApproved}, env.activity.actions())
}

func TestResumptionRejectKeepsReason(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.createUser(t, "admin@x.com", models.RoleAdmin, 1)
	student := env.createUser(t, "a@x.com", models.RoleStudent, 1)
	other := env.createUser(t, "b@x.com", models.RoleStudent, 1)
	exam := env.createExam(t, 1, nil)
	enrollment := env.enroll(t, exam.ID, student.ID, models.EnrollmentStatusOngoing)

	_, err := env.resumptions.Request(ctx, studentActor(other), dto.ResumptionEnrollmentRequest{EnrollmentID: enrollment.ID})
	requireAppError(t, err, apperror.CodeAuthorizationFailed, "You do not own this enrollment")

	requested, err := env.resumptions.Request(ctx, studentActor(student), dto.ResumptionEnrollmentRequest{EnrollmentID: enrollment.ID})
	require.NoError(t, err)

	rejected, err := env.resumptions.Reject(ctx, studentActor(admin), dto.ResumptionDecisionRequest{RequestID: requested.ID, Reason: " left the room "})
	require.NoError(t, err)
	require.Equal(t, models.ResumptionStatusRejected, rejected.Status)

	var stored models.ResumptionRequest
	require.NoError(t, env.db.First(&stored, requested.ID).Error)
	require.Equal(t, "left the room", stored.RejectionReason)
	require.NotNil(t, stored.RejectedBy)
	require.Equal(t, admin.ID, *stored.RejectedBy)
}
