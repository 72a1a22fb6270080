package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-exam-api/internal/apperror"
	"github.com/noah-isme/gema-exam-api/internal/config"
	"github.com/noah-isme/gema-exam-api/internal/database"
	"github.com/noah-isme/gema-exam-api/internal/handler"
	"github.com/noah-isme/gema-exam-api/internal/middleware"
	"github.com/noah-isme/gema-exam-api/internal/models"
	"github.com/noah-isme/gema-exam-api/internal/repository"
	"github.com/noah-isme/gema-exam-api/internal/requestctx"
	"github.com/noah-isme/gema-exam-api/internal/router"
	"github.com/noah-isme/gema-exam-api/internal/service"
	"github.com/noah-isme/gema-exam-api/internal/utils"
	"github.com/noah-isme/gema-exam-api/pkg/mailer"
)

type testApp struct {
	app *fiber.App
	db  *gorm.DB
}

type envelope struct {
	Status       string          `json:"status"`
	ResponseCode string          `json:"responseCode"`
	Message      string          `json:"message"`
	Payload      json.RawMessage `json:"payload"`
}

// stubJWT authenticates from test headers and rejects requests without them.
func stubJWT(c *fiber.Ctx) error {
	raw := c.Get("X-Test-User")
	if raw == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, apperror.CodeAuthenticationFailed, "missing token")
	}
	userID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return utils.SendError(c, fiber.StatusUnauthorized, apperror.CodeAuthenticationFailed, "invalid token")
	}
	entityID, _ := strconv.ParseUint(c.Get("X-Test-Entity"), 10, 64)

	middleware.BindIdentity(c, requestctx.Identity{
		UserID:   uint(userID),
		Role:     c.Get("X-Test-Role"),
		EntityID: uint(entityID),
	})
	return c.Next()
}

func setupApp(t *testing.T) *testApp {
	t.Helper()

	dsn := fmt.Sprintf("file:handler_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)
	notifier := mailer.New(mailer.NewLogSender(logger), logger)
	links := service.LinkConfig{FrontendURL: "https://exams.example.com", InvitationTTL: time.Hour}

	examRepo := repository.NewExamRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	userRepo := repository.NewUserRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	resultRepo := repository.NewResultRepository(db)

	activity := service.NewActivityService(repository.NewActivityLogRepository(db), logger)
	statistics := service.NewStatisticsService(repository.NewStatisticsRepository(db), examRepo, cache, time.Minute, logger)
	results := service.NewResultService(service.ResultServiceDeps{
		Exams:       examRepo,
		Questions:   questionRepo,
		Submissions: submissionRepo,
		Results:     resultRepo,
		Enrollments: enrollmentRepo,
		Activity:    activity,
		Stats:       statistics,
	}, validate, logger)
	exams := service.NewExamService(service.ExamServiceDeps{
		Exams:       examRepo,
		Questions:   questionRepo,
		Users:       userRepo,
		Enrollments: enrollmentRepo,
		Results:     resultRepo,
		Activity:    activity,
		Notifier:    notifier,
		Stats:       statistics,
		Links:       links,
	}, validate, logger)
	submissions := service.NewSubmissionService(service.SubmissionServiceDeps{
		Exams:       examRepo,
		Questions:   questionRepo,
		Enrollments: enrollmentRepo,
		Submissions: submissionRepo,
		Calculator:  results,
		Stats:       statistics,
	}, validate, logger)
	resumptions := service.NewResumptionService(service.ResumptionServiceDeps{
		Requests:    repository.NewResumptionRepository(db),
		Enrollments: enrollmentRepo,
		Exams:       examRepo,
		Activity:    activity,
	}, validate, logger)
	admissions := service.NewAdmissionService(service.AdmissionServiceDeps{
		Forms:       repository.NewAdmissionFormRepository(db),
		Submissions: repository.NewAdmissionSubmissionRepository(db),
		Exams:       examRepo,
		Users:       userRepo,
		Enrollments: enrollmentRepo,
		Results:     resultRepo,
		Activity:    activity,
		Notifier:    notifier,
		Stats:       statistics,
		Links:       links,
	}, validate, logger)

	app := fiber.New(fiber.Config{ErrorHandler: router.ErrorHandler(logger)})
	router.Register(app, config.Config{AppName: "Test", JWTSecret: "secret", AnswerRateLimit: 100}, router.Dependencies{
		ExamHandler:       handler.NewExamHandler(exams, validate, logger),
		SubmissionHandler: handler.NewSubmissionHandler(submissions, validate, logger),
		ResultHandler:     handler.NewResultHandler(results, validate, logger),
		ResumptionHandler: handler.NewResumptionHandler(resumptions, validate, logger),
		AdmissionHandler:  handler.NewAdmissionHandler(admissions, validate, logger),
		StatisticsHandler: handler.NewStatisticsHandler(statistics, validate, logger),
		MediaHandler:      handler.NewMediaHandler(service.NewMediaService(nil, 1, logger), logger),
		ActivityHandler:   handler.NewActivityHandler(activity, logger),
		JWTMiddleware:     stubJWT,
	})

	return &testApp{app: app, db: db}
}

func (a *testApp) createUser(t *testing.T, email, role string, entityID uint) models.User {
	t.Helper()
	user := models.User{Name: email, Email: email, Role: role, Status: models.UserStatusActive, EntityID: entityID}
	require.NoError(t, a.db.Create(&user).Error)
	return user
}

func (a *testApp) createExam(t *testing.T, owner models.User, metadata map[string]interface{}) models.Exam {
	t.Helper()
	exam := models.Exam{
		Title:          "Chemistry",
		Type:           models.ExamTypeQuiz,
		EntityID:       owner.EntityID,
		OwnerID:        owner.ID,
		Active:         true,
		Metadata:       datatypes.JSONMap(metadata),
		ResultsVisible: true,
	}
	require.NoError(t, a.db.Create(&exam).Error)
	return exam
}

// do sends a JSON request as user; a zero-ID user sends no credentials.
func (a *testApp) do(t *testing.T, method, path string, user models.User, body interface{}) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user.ID != 0 {
		req.Header.Set("X-Test-User", strconv.FormatUint(uint64(user.ID), 10))
		req.Header.Set("X-Test-Role", user.Role)
		req.Header.Set("X-Test-Entity", strconv.FormatUint(uint64(user.EntityID), 10))
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func decodePayload(t *testing.T, env envelope, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Payload, target))
}

var anonymous = models.User{}
