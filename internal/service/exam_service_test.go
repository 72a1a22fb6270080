package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-exam-api/internal/apperror"
	"github.com/noah-isme/gema-exam-api/internal/dto"
	"github.com/noah-isme/gema-exam-api/internal/models"
	"github.com/noah-isme/gema-exam-api/pkg/mailer"
)

func TestInviteStudentsReportsUnknownEmails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.createUser(t, "admin@x.com", models.RoleAdmin, 1)
	student := env.createUser(t, "a@x.com", models.RoleStudent, 1)
	exam := env.createExam(t, 1, nil)

	resp, err := env.exams.InviteStudents(ctx, studentActor(admin), dto.InviteRequest{
		ExamID: exam.ID,
		Emails: []string{"a@x.com", "bad@x.com"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, resp.TotalInvited)
	require.Equal(t, []string{"bad@x.com"}, resp.InvalidEmails)

	var enrollment models.Enrollment
	require.NoError(t, env.db.Where("exam_id = ? AND user_id = ?", exam.ID, student.ID).First(&enrollment).Error)
	require.Equal(t, models.EnrollmentStatusUpcoming, enrollment.Status)

	var results int64
	require.NoError(t, env.db.Model(&models.Result{}).Where("exam_id = ? AND user_id = ?", exam.ID, student.ID).Count(&results).Error)
	require.Equal(t, int64(1), results)

	require.Len(t, env.notifier.sent, 1)
	require.Equal(t, "a@x.com", env.notifier.sent[0].To)
	require.Equal(t, "https://exams.example.com/exams/"+itoa(exam.ID), env.notifier.sent[0].Link)
	require.Contains(t, env.activity.actions(), models.ActionStudentsInvited)
}

func TestInviteIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.createUser(t, "admin@x.com", models.RoleAdmin, 1)
	env.createUser(t, "a@x.com", models.RoleStudent, 1)
	exam := env.createExam(t, 1, nil)
	req := dto.InviteRequest{ExamID: exam.ID, Emails: []string{"A@x.com", "a@x.com "}}

	first, err := env.exams.InviteStudents(ctx, studentActor(admin), req)
	require.NoError(t, err)
	require.Equal(t, 1, first.TotalInvited)

	second, err := env.exams.InviteStudents(ctx, studentActor(admin), req)
	require.NoError(t, err)
	require.Equal(t, 1, second.TotalInvited)

	var enrollments int64
	require.NoError(t, env.db.Model(&models.Enrollment{}).Where("exam_id = ?", exam.ID).Count(&enrollments).Error)
	require.Equal(t, int64(1), enrollments)
	require.Len(t, env.notifier.sent, 1)
}

func TestInviteIssuesPasswordSetupLink(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.createUser(t, "admin@x.com", models.RoleAdmin, 1)
	rep := models.User{Email: "rep@x.com", Role: models.RoleRepresentative, Status: models.UserStatusActivationPending, EntityID: 1}
	require.NoError(t, env.db.Create(&rep).Error)
	exam := env.createExam(t, 1, nil)

	resp, err := env.exams.InviteRepresentatives(ctx, studentActor(admin), dto.InviteRequest{ExamID: exam.ID, Emails: []string{"rep@x.com"}})
	require.NoError(t, err)
	require.Equal(t, 1, resp.TotalInvited)

	var enrollment models.Enrollment
	require.NoError(t, env.db.Where("exam_id = ? AND user_id = ?", exam.ID, rep.ID).First(&enrollment).Error)
	require.Equal(t, models.EnrollmentStatusAssigned, enrollment.Status)

	var stored models.User
	require.NoError(t, env.db.First(&stored, rep.ID).Error)
	require.NotNil(t, stored.InvitationToken)
	require.Len(t, env.notifier.sent, 1)
	require.Equal(t, "https://exams.example.com/set-password?token="+*stored.InvitationToken, env.notifier.sent[0].Link)
}

func TestReinviteResendsPasswordSetupLink(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.createUser(t, "admin@x.com", models.RoleAdmin, 1)
	pending := models.User{Email: "new@x.com", Name: "New", Role: models.RoleStudent, Status: models.UserStatusActivationPending, EntityID: 1}
	require.NoError(t, env.db.Create(&pending).Error)
	exam := env.createExam(t, 1, nil)
	req := dto.InviteRequest{ExamID: exam.ID, Emails: []string{"new@x.com"}}

	_, err := env.exams.InviteStudents(ctx, studentActor(admin), req)
	require.NoError(t, err)
	var first models.User
	require.NoError(t, env.db.First(&first, pending.ID).Error)

	again, err := env.exams.InviteStudents(ctx, studentActor(admin), req)
	require.NoError(t, err)
	require.Equal(t, 1, again.TotalInvited)

	var second models.User
	require.NoError(t, env.db.First(&second, pending.ID).Error)
	require.NotEqual(t, *first.InvitationToken, *second.InvitationToken)

	require.Len(t, env.notifier.sent, 2)
	require.Equal(t, mailer.KindInvitation, env.notifier.sent[0].Kind)
	require.Equal(t, mailer.KindPasswordReset, env.notifier.sent[1].Kind)
	require.Equal(t, "https://exams.example.com/set-password?token="+*second.InvitationToken, env.notifier.sent[1].Link)

	var enrollments int64
	require.NoError(t, env.db.Model(&models.Enrollment{}).Where("exam_id = ? AND user_id = ?", exam.ID, pending.ID).Count(&enrollments).Error)
	require.Equal(t, int64(1), enrollments)
}

func TestInviteRejectsForeignAdmin(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "admin@y.com", models.RoleAdmin, 2)
	exam := env.createExam(t, 1, nil)

	_, err := env.exams.InviteStudents(context.Background(), studentActor(admin), dto.InviteRequest{ExamID: exam.ID, Emails: []string{"a@x.com"}})
	requireAppError(t, err, apperror.CodeAuthorizationFailed, "")
}

func TestQuestionsHideAnswerKeysFromStudents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.createUser(t, "admin@x.com", models.RoleAdmin, 1)
	student := env.createUser(t, "a@x.com", models.RoleStudent, 1)
	exam := env.createExam(t, 1, nil)
	env.enroll(t, exam.ID, student.ID, models.EnrollmentStatusUpcoming)

	created, err := env.exams.CreateQuestion(ctx, studentActor(admin), dto.QuestionCreateRequest{
		ExamID:       exam.ID,
		QuestionText: "<b>Pick B</b>",
		Type:         models.QuestionTypeMCQSingle,
		Metadata:     singleChoice(),
	})
	require.NoError(t, err)
	require.Equal(t, "Pick B", created.QuestionText)
	require.Equal(t, []int{1}, created.CorrectAnswers)

	listed, err := env.exams.ListQuestions(ctx, studentActor(student), exam.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Empty(t, listed[0].CorrectAnswers)
	require.Len(t, listed[0].Options, 3)

	rep := env.createUser(t, "rep@x.com", models.RoleRepresentative, 1)
	_, err = env.exams.ListQuestions(ctx, studentActor(rep), exam.ID)
	requireAppError(t, err, apperror.CodeAuthorizationFailed, "")
}

func TestCreateQuestionValidatesAnswerKey(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "admin@x.com", models.RoleAdmin, 1)
	exam := env.createExam(t, 1, nil)

	_, err := env.exams.CreateQuestion(context.Background(), studentActor(admin), dto.QuestionCreateRequest{
		ExamID:       exam.ID,
		QuestionText: "Pick",
		Type:         models.QuestionTypeMCQSingle,
		Metadata: map[string]interface{}{
			"options":         []interface{}{"A", "B"},
			"correct_answers": []interface{}{float64(0), float64(1)},
		},
	})
	requireAppError(t, err, apperror.CodeBadRequest, "")
}

func TestDeleteQuestionRemovesAnswers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.createUser(t, "admin@x.com", models.RoleAdmin, 1)
	student := env.createUser(t, "a@x.com", models.RoleStudent, 1)
	exam := env.createExam(t, 1, nil)
	question := env.createQuestion(t, exam.ID, models.QuestionTypeSingleWord, map[string]interface{}{"correct_answer": "x"})
	env.enroll(t, exam.ID, student.ID, models.EnrollmentStatusOngoing)

	_, err := env.submissions.SaveAnswer(ctx, studentActor(student), dto.AnswerRequest{ExamID: exam.ID, QuestionID: question.ID, Answer: "x"})
	require.NoError(t, err)

	require.NoError(t, env.exams.DeleteQuestion(ctx, studentActor(admin), question.ID))

	var answers int64
	require.NoError(t, env.db.Model(&models.Submission{}).Where("question_id = ?", question.ID).Count(&answers).Error)
	require.Zero(t, answers)

	err = env.exams.DeleteQuestion(ctx, studentActor(admin), question.ID)
	requireAppError(t, err, apperror.CodeNotFound, "Question not found")
}

func TestExamCreateAndUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.createUser(t, "admin@x.com", models.RoleAdmin, 1)
	inactive := false

	created, err := env.exams.Create(ctx, studentActor(admin), dto.ExamCreateRequest{
		Title:    "  Mechanics <script>x</script>",
		Type:     models.ExamTypeQuiz,
		Metadata: map[string]interface{}{"totalMarks": float64(50)},
		Active:   &inactive,
	})
	require.NoError(t, err)
	require.False(t, created.Active)
	require.Equal(t, uint(1), created.EntityID)
	require.False(t, strings.Contains(created.Title, "<"))

	visible := true
	updated, err := env.exams.Update(ctx, studentActor(admin), created.ID, dto.ExamUpdateRequest{
		ResultsVisible: &visible,
		Metadata:       map[string]interface{}{"passingMarks": float64(20)},
	})
	require.NoError(t, err)
	require.True(t, updated.ResultsVisible)
	require.Equal(t, float64(50), updated.Metadata["totalMarks"])
	require.Equal(t, float64(20), updated.Metadata["passingMarks"])
	require.Contains(t, env.invalidator.exams, created.ID)

	student := env.createUser(t, "a@x.com", models.RoleStudent, 1)
	_, err = env.exams.Create(ctx, studentActor(student), dto.ExamCreateRequest{Title: "Nope", Type: models.ExamTypeQuiz})
	requireAppError(t, err, apperror.CodeAuthorizationFailed, "")
}
