package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-exam-api/internal/apperror"
	"github.com/noah-isme/gema-exam-api/internal/dto"
	"github.com/noah-isme/gema-exam-api/internal/models"
	"github.com/noah-isme/gema-exam-api/internal/repository"
	"github.com/noah-isme/gema-exam-api/pkg/mailer"
)

func admissionFields() []models.FormField {
	return []models.FormField{
		{ID: "email", Label: "Email", Type: "email", Required: true},
		{Label: "Full Name", Type: models.FieldTypeText, Required: true},
		{Label: "Phone", Type: models.FieldTypePhone},
	}
}

func setupAdmission(t *testing.T) (*testEnv, models.User, models.Exam) {
	t.Helper()
	env := newTestEnv(t)
	admin := env.createUser(t, "admin@x.com", models.RoleAdmin, 1)
	exam := env.createExam(t, 1, nil)

	form, err := env.admissions.CreateForm(context.Background(), studentActor(admin), exam.ID, dto.AdmissionFormRequest{FormStructure: admissionFields()})
	require.NoError(t, err)
	require.Equal(t, models.FieldTypeEmail, form.FormStructure[0].Type)
	return env, admin, exam
}

func TestCreateFormRejectsDuplicates(t *testing.T) {
	env, admin, exam := setupAdmission(t)

	_, err := env.admissions.CreateForm(context.Background(), studentActor(admin), exam.ID, dto.AdmissionFormRequest{FormStructure: admissionFields()})
	requireAppError(t, err, apperror.CodeConflict, "")

	_, err = env.admissions.UpdateForm(context.Background(), studentActor(admin), exam.ID, dto.AdmissionFormRequest{
		FormStructure: []models.FormField{{Label: "Email", Type: "COLOR"}},
	})
	requireAppError(t, err, apperror.CodeBadRequest, "")
}

func TestPublicSubmissionIsValidated(t *testing.T) {
	env, admin, exam := setupAdmission(t)
	ctx := context.Background()

	link, err := env.admissions.GeneratePublicLink(ctx, studentActor(admin), exam.ID)
	require.NoError(t, err)
	require.NotNil(t, link.PublicToken)
	require.Equal(t, "https://exams.example.com/admission/"+*link.PublicToken, link.PublicURL)

	public, err := env.admissions.GetPublicForm(ctx, *link.PublicToken)
	require.NoError(t, err)
	require.Nil(t, public.PublicToken)
	require.Len(t, public.FormStructure, 3)

	_, err = env.admissions.SubmitPublic(ctx, *link.PublicToken, dto.AdmissionSubmitRequest{FormResponses: map[string]interface{}{
		"Full Name": "Ada",
	}})
	requireAppError(t, err, apperror.CodeValidationError, "Email is required")

	_, err = env.admissions.SubmitPublic(ctx, *link.PublicToken, dto.AdmissionSubmitRequest{FormResponses: map[string]interface{}{
		"email": "ada@x.com", "Full Name": "Ada", "Nickname": "A",
	}})
	requireAppError(t, err, apperror.CodeValidationError, "Unknown field: Nickname")

	submitted, err := env.admissions.SubmitPublic(ctx, *link.PublicToken, dto.AdmissionSubmitRequest{FormResponses: map[string]interface{}{
		"email": "ada@x.com", "Full Name": "<b>Ada</b> Lovelace",
	}})
	require.NoError(t, err)
	require.Equal(t, models.AdmissionSourcePublic, submitted.Source)
	require.Equal(t, models.AdmissionStatusPending, submitted.Status)
	require.Equal(t, "Ada Lovelace", submitted.FormResponses["Full Name"])

	_, err = env.admissions.GetPublicForm(ctx, "missing")
	requireAppError(t, err, apperror.CodeNotFound, "")
}

func TestApproveCreatesStudentAndEnrollment(t *testing.T) {
	env, admin, exam := setupAdmission(t)
	ctx := context.Background()

	link, err := env.admissions.GeneratePublicLink(ctx, studentActor(admin), exam.ID)
	require.NoError(t, err)
	submitted, err := env.admissions.SubmitPublic(ctx, *link.PublicToken, dto.AdmissionSubmitRequest{FormResponses: map[string]interface{}{
		"email": "Ada@X.com", "Full Name": "Ada Lovelace", "Phone": "0812 3456 7890",
	}})
	require.NoError(t, err)

	approved, err := env.admissions.UpdateSubmissionStatus(ctx, studentActor(admin), submitted.ID, dto.AdmissionStatusRequest{Action: dto.AdmissionActionApprove})
	require.NoError(t, err)
	require.Equal(t, models.AdmissionStatusApproved, approved.Status)
	require.NotNil(t, approved.UserID)

	var user models.User
	require.NoError(t, env.db.First(&user, *approved.UserID).Error)
	require.Equal(t, "ada@x.com", user.Email)
	require.Equal(t, "Ada Lovelace", user.Name)
	require.Equal(t, models.RoleStudent, user.Role)
	require.Equal(t, models.UserStatusActivationPending, user.Status)
	require.Equal(t, exam.EntityID, user.EntityID)
	require.NotNil(t, user.InvitationToken)

	var enrollment models.Enrollment
	require.NoError(t, env.db.Where("exam_id = ? AND user_id = ?", exam.ID, user.ID).First(&enrollment).Error)
	require.Equal(t, models.EnrollmentStatusUpcoming, enrollment.Status)
	require.NotNil(t, enrollment.Metadata.Data().FromSubmission)
	require.Equal(t, submitted.ID, *enrollment.Metadata.Data().FromSubmission)

	var results int64
	require.NoError(t, env.db.Model(&models.Result{}).Where("exam_id = ? AND user_id = ?", exam.ID, user.ID).Count(&results).Error)
	require.Equal(t, int64(1), results)

	require.Len(t, env.notifier.sent, 1)
	require.Equal(t, mailer.KindStudentApproval, env.notifier.sent[0].Kind)
	require.True(t, strings.HasSuffix(env.notifier.sent[0].Link, *user.InvitationToken))
	require.Contains(t, env.activity.actions(), models.ActionAdmissionApproved)

	_, err = env.admissions.UpdateSubmissionStatus(ctx, studentActor(admin), submitted.ID, dto.AdmissionStatusRequest{Action: dto.AdmissionActionReject})
	requireAppError(t, err, apperror.CodeBadRequest, "Submission has already been approved")
}

func TestAdminEnteredSubmissionCanSetPassword(t *testing.T) {
	env, admin, exam := setupAdmission(t)
	ctx := context.Background()

	submitted, err := env.admissions.Submit(ctx, studentActor(admin), exam.ID, dto.AdmissionSubmitRequest{FormResponses: map[string]interface{}{
		"email": "grace@x.com", "Full Name": "Grace Hopper",
	}})
	require.NoError(t, err)
	require.Equal(t, models.AdmissionSourceAdmin, submitted.Source)

	approved, err := env.admissions.UpdateSubmissionStatus(ctx, studentActor(admin), submitted.ID, dto.AdmissionStatusRequest{
		Action:   dto.AdmissionActionApprove,
		Password: "correct-horse",
	})
	require.NoError(t, err)

	var user models.User
	require.NoError(t, env.db.First(&user, *approved.UserID).Error)
	require.Equal(t, models.UserStatusActive, user.Status)
	require.True(t, user.HasPassword())
	require.NotEqual(t, "correct-horse", user.PasswordHash)
	require.Empty(t, env.notifier.sent)
}

func TestApproveRejectsForeignAccount(t *testing.T) {
	env, admin, exam := setupAdmission(t)
	ctx := context.Background()
	env.createUser(t, "taken@x.com", models.RoleStudent, 2)

	submitted, err := env.admissions.Submit(ctx, studentActor(admin), exam.ID, dto.AdmissionSubmitRequest{FormResponses: map[string]interface{}{
		"email": "taken@x.com", "Full Name": "Someone",
	}})
	require.NoError(t, err)

	_, err = env.admissions.UpdateSubmissionStatus(ctx, studentActor(admin), submitted.ID, dto.AdmissionStatusRequest{Action: dto.AdmissionActionApprove})
	requireAppError(t, err, apperror.CodeConflict, "")

	var stored models.AdmissionFormSubmission
	require.NoError(t, env.db.First(&stored, submitted.ID).Error)
	require.Equal(t, models.AdmissionStatusPending, stored.Status)
}

func TestRejectFinalizesSubmission(t *testing.T) {
	env, admin, exam := setupAdmission(t)
	ctx := context.Background()

	submitted, err := env.admissions.Submit(ctx, studentActor(admin), exam.ID, dto.AdmissionSubmitRequest{FormResponses: map[string]interface{}{
		"email": "late@x.com", "Full Name": "Late",
	}})
	require.NoError(t, err)

	rejected, err := env.admissions.UpdateSubmissionStatus(ctx, studentActor(admin), submitted.ID, dto.AdmissionStatusRequest{Action: dto.AdmissionActionReject})
	require.NoError(t, err)
	require.Equal(t, models.AdmissionStatusRejected, rejected.Status)
	require.Nil(t, rejected.UserID)
	require.Equal(t, admin.ID, *rejected.ProcessedBy)

	var users int64
	require.NoError(t, env.db.Model(&models.User{}).Where("email = ?", "late@x.com").Count(&users).Error)
	require.Zero(t, users)
	require.Contains(t, env.activity.actions(), models.ActionAdmissionRejected)
}

func TestRepresentativeSubmissionsAreScoped(t *testing.T) {
	env, admin, exam := setupAdmission(t)
	ctx := context.Background()
	rep := env.createUser(t, "rep@x.com", models.RoleRepresentative, 1)
	other := env.createUser(t, "rep2@x.com", models.RoleRepresentative, 1)
	responses := dto.AdmissionSubmitRequest{FormResponses: map[string]interface{}{"email": "kid@x.com", "Full Name": "Kid"}}

	_, err := env.admissions.Submit(ctx, studentActor(rep), exam.ID, responses)
	requireAppError(t, err, apperror.CodeAuthorizationFailed, "")

	_, err = env.admissions.GetForm(ctx, studentActor(rep), exam.ID)
	requireAppError(t, err, apperror.CodeAuthorizationFailed, "")

	env.enroll(t, exam.ID, rep.ID, models.EnrollmentStatusAssigned)
	env.enroll(t, exam.ID, other.ID, models.EnrollmentStatusAssigned)

	form, err := env.admissions.GetForm(ctx, studentActor(rep), exam.ID)
	require.NoError(t, err)
	require.Nil(t, form.PublicToken)

	mine, err := env.admissions.Submit(ctx, studentActor(rep), exam.ID, responses)
	require.NoError(t, err)
	require.Equal(t, models.AdmissionSourceRepresentative, mine.Source)
	require.Equal(t, rep.ID, *mine.RepresentativeID)

	_, err = env.admissions.Submit(ctx, studentActor(other), exam.ID, responses)
	require.NoError(t, err)

	own, err := env.admissions.ListSubmissions(ctx, studentActor(rep), exam.ID)
	require.NoError(t, err)
	require.Len(t, own, 1)
	require.Equal(t, mine.ID, own[0].ID)

	all, err := env.admissions.ListSubmissions(ctx, studentActor(admin), exam.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)

	_, err = env.admissions.UpdateSubmissionStatus(ctx, studentActor(rep), mine.ID, dto.AdmissionStatusRequest{Action: dto.AdmissionActionApprove})
	requireAppError(t, err, apperror.CodeAuthorizationFailed, "")
}

func TestApproveKeepsPunctuationInAccountFields(t *testing.T) {
	env, admin, exam := setupAdmission(t)
	ctx := context.Background()
	existing := env.createUser(t, "o'brien@x.com", models.RoleStudent, 1)

	link, err := env.admissions.GeneratePublicLink(ctx, studentActor(admin), exam.ID)
	require.NoError(t, err)
	submitted, err := env.admissions.SubmitPublic(ctx, *link.PublicToken, dto.AdmissionSubmitRequest{FormResponses: map[string]interface{}{
		"email": "o'brien@x.com", "Full Name": "Tom O'Brien & Sons",
	}})
	require.NoError(t, err)
	require.Equal(t, "o'brien@x.com", submitted.FormResponses["email"])
	require.Equal(t, "Tom O'Brien & Sons", submitted.FormResponses["Full Name"])

	approved, err := env.admissions.UpdateSubmissionStatus(ctx, studentActor(admin), submitted.ID, dto.AdmissionStatusRequest{Action: dto.AdmissionActionApprove})
	require.NoError(t, err)
	require.Equal(t, existing.ID, *approved.UserID)

	var user models.User
	require.NoError(t, env.db.First(&user, existing.ID).Error)
	require.Equal(t, "Tom O'Brien & Sons", user.Name)

	var count int64
	require.NoError(t, env.db.Model(&models.User{}).Where("role = ?", models.RoleStudent).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestApproveRefusesSubmissionClaimedByAnotherReviewer(t *testing.T) {
	env, admin, exam := setupAdmission(t)
	ctx := context.Background()

	submitted, err := env.admissions.Submit(ctx, studentActor(admin), exam.ID, dto.AdmissionSubmitRequest{FormResponses: map[string]interface{}{
		"email": "busy@x.com", "Full Name": "Busy",
	}})
	require.NoError(t, err)

	claimed, err := repository.NewAdmissionSubmissionRepository(env.db).Claim(ctx, submitted.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	_, err = env.admissions.UpdateSubmissionStatus(ctx, studentActor(admin), submitted.ID, dto.AdmissionStatusRequest{Action: dto.AdmissionActionApprove})
	requireAppError(t, err, apperror.CodeConflict, "Submission is already being processed")

	var users int64
	require.NoError(t, env.db.Model(&models.User{}).Where("email = ?", "busy@x.com").Count(&users).Error)
	require.Zero(t, users)
	require.Empty(t, env.notifier.sent)
}

func TestApproveMergedStatusFollowsSource(t *testing.T) {
	env, admin, exam := setupAdmission(t)
	ctx := context.Background()

	passwordless := func(email string) models.User {
		user := models.User{Name: email, Email: email, Role: models.RoleStudent, Status: models.UserStatusInactive, EntityID: 1}
		require.NoError(t, env.db.Create(&user).Error)
		return user
	}
	viaAdmin := passwordless("admin-entered@x.com")
	viaPublic := passwordless("public@x.com")

	adminSubmission, err := env.admissions.Submit(ctx, studentActor(admin), exam.ID, dto.AdmissionSubmitRequest{FormResponses: map[string]interface{}{
		"email": viaAdmin.Email, "Full Name": "Admin Entered",
	}})
	require.NoError(t, err)
	_, err = env.admissions.UpdateSubmissionStatus(ctx, studentActor(admin), adminSubmission.ID, dto.AdmissionStatusRequest{Action: dto.AdmissionActionApprove})
	require.NoError(t, err)

	link, err := env.admissions.GeneratePublicLink(ctx, studentActor(admin), exam.ID)
	require.NoError(t, err)
	publicSubmission, err := env.admissions.SubmitPublic(ctx, *link.PublicToken, dto.AdmissionSubmitRequest{FormResponses: map[string]interface{}{
		"email": viaPublic.Email, "Full Name": "Public Applicant",
	}})
	require.NoError(t, err)
	_, err = env.admissions.UpdateSubmissionStatus(ctx, studentActor(admin), publicSubmission.ID, dto.AdmissionStatusRequest{Action: dto.AdmissionActionApprove})
	require.NoError(t, err)

	var stored models.User
	require.NoError(t, env.db.First(&stored, viaAdmin.ID).Error)
	require.Equal(t, models.UserStatusActive, stored.Status)
	require.NoError(t, env.db.First(&stored, viaPublic.ID).Error)
	require.Equal(t, models.UserStatusActivationPending, stored.Status)
}
