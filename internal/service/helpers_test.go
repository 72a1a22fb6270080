package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-exam-api/internal/apperror"
	"github.com/noah-isme/gema-exam-api/internal/database"
	"github.com/noah-isme/gema-exam-api/internal/models"
	"github.com/noah-isme/gema-exam-api/internal/repository"
	"github.com/noah-isme/gema-exam-api/pkg/mailer"
)

var fixedNow = time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type recordingActivity struct {
	mu      sync.Mutex
	entries []ActivityEntry
}

func (r *recordingActivity) Record(_ context.Context, entry ActivityEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *recordingActivity) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	actions := make([]string, 0, len(r.entries))
	for _, entry := range r.entries {
		actions = append(actions, entry.Action)
	}
	return actions
}

type sentMail struct {
	Kind string
	To   string
	Link string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (f *fakeNotifier) record(kind, to, link string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{Kind: kind, To: to, Link: link})
	return !f.fail
}

func (f *fakeNotifier) SendInvitation(_ context.Context, to, _, link string, _ mailer.ExamInfo) bool {
	return f.record(mailer.KindInvitation, to, link)
}

func (f *fakeNotifier) SendPasswordReset(_ context.Context, to, _, link string, _ mailer.ExamInfo) bool {
	return f.record(mailer.KindPasswordReset, to, link)
}

func (f *fakeNotifier) SendStudentApproval(_ context.Context, to, _, link string, _ mailer.ExamInfo) bool {
	return f.record(mailer.KindStudentApproval, to, link)
}

type countingInvalidator struct {
	mu    sync.Mutex
	exams []uint
}

func (c *countingInvalidator) Invalidate(_ context.Context, examID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exams = append(c.exams, examID)
}

// testEnv wires every exam service against one in-memory database.
type testEnv struct {
	db          *gorm.DB
	redis       *miniredis.Miniredis
	activity    *recordingActivity
	notifier    *fakeNotifier
	invalidator *countingInvalidator

	exams       ExamService
	submissions SubmissionService
	results     ResultService
	resumptions ResumptionService
	admissions  AdmissionService
	statistics  StatisticsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:service_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := testLogger()

	examRepo := repository.NewExamRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	userRepo := repository.NewUserRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	resultRepo := repository.NewResultRepository(db)

	env := &testEnv{
		db:          db,
		redis:       mr,
		activity:    &recordingActivity{},
		notifier:    &fakeNotifier{},
		invalidator: &countingInvalidator{},
	}
	links := LinkConfig{FrontendURL: "https://exams.example.com", InvitationTTL: 24 * time.Hour}

	env.results = NewResultService(ResultServiceDeps{
		Exams:       examRepo,
		Questions:   questionRepo,
		Submissions: submissionRepo,
		Results:     resultRepo,
		Enrollments: enrollmentRepo,
		Activity:    env.activity,
		Stats:       env.invalidator,
	}, validate, logger)

	env.submissions = NewSubmissionService(SubmissionServiceDeps{
		Exams:       examRepo,
		Questions:   questionRepo,
		Enrollments: enrollmentRepo,
		Submissions: submissionRepo,
		Calculator:  env.results,
		Stats:       env.invalidator,
	}, validate, logger)

	env.exams = NewExamService(ExamServiceDeps{
		Exams:       examRepo,
		Questions:   questionRepo,
		Users:       userRepo,
		Enrollments: enrollmentRepo,
		Results:     resultRepo,
		Activity:    env.activity,
		Notifier:    env.notifier,
		Stats:       env.invalidator,
		Links:       links,
	}, validate, logger)

	env.resumptions = NewResumptionService(ResumptionServiceDeps{
		Requests:    repository.NewResumptionRepository(db),
		Enrollments: enrollmentRepo,
		Exams:       examRepo,
		Activity:    env.activity,
	}, validate, logger)

	env.admissions = NewAdmissionService(AdmissionServiceDeps{
		Forms:       repository.NewAdmissionFormRepository(db),
		Submissions: repository.NewAdmissionSubmissionRepository(db),
		Exams:       examRepo,
		Users:       userRepo,
		Enrollments: enrollmentRepo,
		Results:     resultRepo,
		Activity:    env.activity,
		Notifier:    env.notifier,
		Stats:       env.invalidator,
		Links:       links,
	}, validate, logger)

	env.statistics = NewStatisticsService(repository.NewStatisticsRepository(db), examRepo, cache, time.Minute, logger)

	return env
}

func (e *testEnv) createUser(t *testing.T, email, role string, entityID uint) models.User {
	t.Helper()
	user := models.User{
		Name:         email,
		Email:        email,
		Role:         role,
		Status:       models.UserStatusActive,
		EntityID:     entityID,
		PasswordHash: "$2a$10$existinghash",
	}
	require.NoError(t, e.db.Create(&user).Error)
	return user
}

func (e *testEnv) createExam(t *testing.T, entityID uint, metadata map[string]interface{}) models.Exam {
	t.Helper()
	exam := models.Exam{
		Title:    "Physics",
		Type:     models.ExamTypeQuiz,
		EntityID: entityID,
		OwnerID:  1,
		Active:   true,
		Metadata: datatypes.JSONMap(metadata),
	}
	require.NoError(t, e.db.Create(&exam).Error)
	return exam
}

func (e *testEnv) createQuestion(t *testing.T, examID uint, questionType string, metadata map[string]interface{}) models.Question {
	t.Helper()
	question := models.Question{ExamID: examID, QuestionText: "Q", Type: questionType, Metadata: datatypes.JSONMap(metadata)}
	require.NoError(t, e.db.Create(&question).Error)
	return question
}

func (e *testEnv) enroll(t *testing.T, examID, userID uint, status string) models.Enrollment {
	t.Helper()
	enrollment := models.Enrollment{ExamID: examID, UserID: userID, Status: status}
	require.NoError(t, e.db.Create(&enrollment).Error)
	require.NoError(t, e.db.Create(&models.Result{ExamID: examID, UserID: userID}).Error)
	return enrollment
}

func studentActor(user models.User) Actor {
	return Actor{ID: user.ID, Role: user.Role, EntityID: user.EntityID}
}

func requireAppError(t *testing.T, err error, code, message string) {
	t.Helper()
	appErr, ok := apperror.As(err)
	require.True(t, ok, "expected an application error, got %v", err)
	require.Equal(t, code, appErr.Code)
	if message != "" {
		require.Equal(t, message, appErr.Message)
	}
}

func itoa(value uint) string {
	return strconv.FormatUint(uint64(value), 10)
}
