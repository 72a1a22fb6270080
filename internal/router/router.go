package router

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-exam-api/internal/apperror"
	"github.com/noah-isme/gema-exam-api/internal/config"
	"github.com/noah-isme/gema-exam-api/internal/handler"
	"github.com/noah-isme/gema-exam-api/internal/middleware"
	"github.com/noah-isme/gema-exam-api/internal/models"
	"github.com/noah-isme/gema-exam-api/internal/observability"
	"github.com/noah-isme/gema-exam-api/internal/utils"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ExamHandler       *handler.ExamHandler
	SubmissionHandler *handler.SubmissionHandler
	ResultHandler     *handler.ResultHandler
	ResumptionHandler *handler.ResumptionHandler
	AdmissionHandler  *handler.AdmissionHandler
	StatisticsHandler *handler.StatisticsHandler
	MediaHandler      *handler.MediaHandler
	ActivityHandler   *handler.ActivityHandler
	JWTMiddleware     fiber.Handler
	// HealthProbes are reported by /health keyed by dependency name.
	HealthProbes map[string]handler.HealthProbe
	// AnswerLimiter throttles answer autosaves; nil disables throttling.
	AnswerLimiter fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	adminOnly := middleware.RequireRole(models.RoleAdmin, models.RoleSuperAdmin)

	// Public admission routes must be matched before the protected group.
	if deps.AdmissionHandler != nil {
		deps.AdmissionHandler.RegisterPublic(api.Group("/admission-form/public"))
	}

	if deps.ExamHandler != nil {
		deps.ExamHandler.Register(api.Group("/exams", jwtMiddleware))
	}

	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(api.Group("/submission", jwtMiddleware), deps.AnswerLimiter)
	}

	if deps.ResultHandler != nil {
		deps.ResultHandler.Register(api.Group("/results", jwtMiddleware))
	}

	if deps.ResumptionHandler != nil {
		deps.ResumptionHandler.Register(api.Group("/resumption-request", jwtMiddleware))
	}

	if deps.AdmissionHandler != nil {
		deps.AdmissionHandler.Register(api.Group("/admission-form", jwtMiddleware))
		deps.AdmissionHandler.RegisterSubmissions(api.Group("/admission-form-submission", jwtMiddleware, adminOnly))
	}

	if deps.StatisticsHandler != nil {
		deps.StatisticsHandler.Register(api.Group("/statistics", jwtMiddleware, adminOnly))
	}

	if deps.MediaHandler != nil {
		deps.MediaHandler.Register(api.Group("/media", jwtMiddleware, adminOnly))
	}

	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(api.Group("/activity", jwtMiddleware, adminOnly))
	}
}

// AnswerLimiter builds the per-user limiter for answer autosaves.
func AnswerLimiter(cfg config.Config) fiber.Handler {
	return middleware.RateLimit("answers", cfg.AnswerRateLimit, time.Second)
}

// ErrorHandler renders errors that escape handlers, such as unknown routes,
// in the standard envelope.
func ErrorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code := apperror.CodeBadRequest
			switch fiberErr.Code {
			case fiber.StatusNotFound:
				code = apperror.CodeNotFound
			case fiber.StatusMethodNotAllowed:
				code = "METHOD_NOT_ALLOWED"
			case fiber.StatusRequestEntityTooLarge:
				code = "PAYLOAD_TOO_LARGE"
			}
			if fiberErr.Code >= fiber.StatusInternalServerError {
				code = apperror.CodeInternalServerError
			}
			return utils.SendError(c, fiberErr.Code, code, fiberErr.Message)
		}

		if appErr, ok := apperror.As(err); ok {
			return utils.SendError(c, appErr.Status, appErr.Code, appErr.Message)
		}

		logger.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
		return utils.SendError(c, fiber.StatusInternalServerError, apperror.CodeInternalServerError, "internal server error")
	}
}
