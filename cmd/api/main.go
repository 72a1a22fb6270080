package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-exam-api/internal/config"
	"github.com/noah-isme/gema-exam-api/internal/database"
	"github.com/noah-isme/gema-exam-api/internal/handler"
	"github.com/noah-isme/gema-exam-api/internal/middleware"
	"github.com/noah-isme/gema-exam-api/internal/observability"
	"github.com/noah-isme/gema-exam-api/internal/repository"
	"github.com/noah-isme/gema-exam-api/internal/router"
	"github.com/noah-isme/gema-exam-api/internal/service"
	cloud "github.com/noah-isme/gema-exam-api/pkg/cloudinary"
	"github.com/noah-isme/gema-exam-api/pkg/mailer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	observability.RegisterMetrics()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	probes := map[string]handler.HealthProbe{
		"postgres": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		probes["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	} else {
		logger.Warn().Msg("redis url not configured; statistics caching disabled")
	}

	rootCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	var sender mailer.Sender = mailer.NewLogSender(logger)
	if cfg.NATSURL != "" {
		conn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer conn.Close()

		mailer.NewWorker(conn, cfg.NATSMailSubject, mailer.NewLogSender(logger), logger).Start(rootCtx)
		sender = mailer.NewNATSSender(conn, cfg.NATSMailSubject)
	} else {
		logger.Warn().Msg("nats url not configured; mail jobs are only logged")
	}
	notifier := mailer.New(sender, logger)

	var (
		mediaStorage service.MediaStorage
		mediaLinker  service.MediaLinker
	)
	if cfg.CloudinaryEnabled() {
		uploader, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		mediaStorage = uploader
		mediaLinker = uploader
	} else {
		logger.Warn().Msg("cloudinary credentials missing; media uploads disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	examRepo := repository.NewExamRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	userRepo := repository.NewUserRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	resultRepo := repository.NewResultRepository(db)
	resumptionRepo := repository.NewResumptionRepository(db)
	formRepo := repository.NewAdmissionFormRepository(db)
	admissionRepo := repository.NewAdmissionSubmissionRepository(db)
	statisticsRepo := repository.NewStatisticsRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	links := service.LinkConfig{FrontendURL: cfg.FrontendURL, InvitationTTL: cfg.InvitationTokenTTL}

	activityService := service.NewActivityService(activityRepo, logger)
	statisticsService := service.NewStatisticsService(statisticsRepo, examRepo, redisClient, cfg.StatisticsCacheTTL, logger)
	resultService := service.NewResultService(service.ResultServiceDeps{
		Exams:       examRepo,
		Questions:   questionRepo,
		Submissions: submissionRepo,
		Results:     resultRepo,
		Enrollments: enrollmentRepo,
		Activity:    activityService,
		Stats:       statisticsService,
	}, validate, logger)
	examService := service.NewExamService(service.ExamServiceDeps{
		Exams:       examRepo,
		Questions:   questionRepo,
		Users:       userRepo,
		Enrollments: enrollmentRepo,
		Results:     resultRepo,
		Activity:    activityService,
		Notifier:    notifier,
		Media:       mediaLinker,
		Stats:       statisticsService,
		Links:       links,
	}, validate, logger)
	submissionService := service.NewSubmissionService(service.SubmissionServiceDeps{
		Exams:       examRepo,
		Questions:   questionRepo,
		Enrollments: enrollmentRepo,
		Submissions: submissionRepo,
		Calculator:  resultService,
		Stats:       statisticsService,
	}, validate, logger)
	resumptionService := service.NewResumptionService(service.ResumptionServiceDeps{
		Requests:    resumptionRepo,
		Enrollments: enrollmentRepo,
		Exams:       examRepo,
		Activity:    activityService,
	}, validate, logger)
	admissionService := service.NewAdmissionService(service.AdmissionServiceDeps{
		Forms:       formRepo,
		Submissions: admissionRepo,
		Exams:       examRepo,
		Users:       userRepo,
		Enrollments: enrollmentRepo,
		Results:     resultRepo,
		Activity:    activityService,
		Notifier:    notifier,
		Stats:       statisticsService,
		Links:       links,
	}, validate, logger)
	mediaService := service.NewMediaService(mediaStorage, cfg.MediaMaxSizeMB, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.MediaMaxSizeMB + 1) * 1024 * 1024,
		ErrorHandler: router.ErrorHandler(logger),
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ExamHandler:       handler.NewExamHandler(examService, validate, logger),
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, validate, logger),
		ResultHandler:     handler.NewResultHandler(resultService, validate, logger),
		ResumptionHandler: handler.NewResumptionHandler(resumptionService, validate, logger),
		AdmissionHandler:  handler.NewAdmissionHandler(admissionService, validate, logger),
		StatisticsHandler: handler.NewStatisticsHandler(statisticsService, validate, logger),
		MediaHandler:      handler.NewMediaHandler(mediaService, logger),
		ActivityHandler:   handler.NewActivityHandler(activityService, logger),
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
		AnswerLimiter:     router.AnswerLimiter(cfg),
		HealthProbes:      probes,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, cancelWorkers)
}

func waitForShutdown(app *fiber.App, stopWorkers context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
