package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/civicworks/civic-api/docs"
	"github.com/civicworks/civic-api/internal/auth"
	"github.com/civicworks/civic-api/internal/config"
	"github.com/civicworks/civic-api/internal/database"
	"github.com/civicworks/civic-api/internal/http/handler"
	"github.com/civicworks/civic-api/internal/http/middleware"
	"github.com/civicworks/civic-api/internal/http/router"
	"github.com/civicworks/civic-api/internal/jobs"
	"github.com/civicworks/civic-api/internal/logger"
	"github.com/civicworks/civic-api/internal/media"
	"github.com/civicworks/civic-api/internal/progress"
	"github.com/civicworks/civic-api/internal/repository"
	"github.com/civicworks/civic-api/internal/service"
	"github.com/civicworks/civic-api/internal/storage"
	"github.com/civicworks/civic-api/internal/telemetry"
	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

// progressFolder is the storage folder for progress photos
const progressFolder = "progress"

// @title Civic Issues API
// @version 1.0
// @description Citizen issue reporting and the municipal workflow that resolves them: triage, department hand-off, tendering, contractor progress.

// @contact.name API Support
// @contact.email support@civicworks.example

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token from the identity provider

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description API Key for system operations

// @securityDefinitions.apikey WebhookKey
// @in header
// @name x-webhook-key
// @description Shared key for identity provider callbacks
// @Security BearerAuth
// @Security ApiKeyAuth

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.String("version", version),
		zap.Int("port", basicCfg.App.Port),
	)

	if host := os.Getenv("SWAGGER_HOST"); host != "" {
		docs.SwaggerInfo.Host = host
	} else {
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	// Development reads secrets from the environment; staging and production
	// resolve them from Key Vault.
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	if err := telemetry.Init(ctx, &cfg.Telemetry, version); err != nil {
		log.Warn("Telemetry disabled: exporter setup failed", zap.Error(err))
	}

	db, err := database.NewDatabase(ctx, &cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	fileStorage, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	// Repositories
	areaRepo := repository.NewAreaRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	issueRepo := repository.NewIssueRepository(db)
	voteRepo := repository.NewVoteRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	tenderRepo := repository.NewTenderRepository(db)
	bidRepo := repository.NewBidRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)
	progressRepo := repository.NewProgressRepository(db)

	// Services
	profileService := service.NewProfileService(profileRepo, areaRepo, departmentRepo, log, db)
	areaService := service.NewAreaService(areaRepo, log, db)
	departmentService := service.NewDepartmentService(departmentRepo, areaRepo, log, db)
	issueService := service.NewIssueService(issueRepo, areaRepo, departmentRepo, assignmentRepo, cfg.Workflow.EnforceForwardOnly, log, db)
	voteService := service.NewVoteService(issueRepo, voteRepo, log, db)
	tenderService := service.NewTenderService(tenderRepo, issueRepo, departmentRepo, bidRepo, log, db)
	bidService := service.NewBidService(bidRepo, tenderRepo, log)
	evaluationService := service.NewEvaluationService(evaluationRepo, tenderRepo, bidRepo, log)
	assignmentService := service.NewAssignmentService(assignmentRepo, issueRepo, log, db)
	progressService := service.NewProgressService(progressRepo, log, db)

	uploader := media.NewUploader(fileStorage, cfg.Storage.PublicBaseURL, progressFolder, cfg.Storage.UploadConcurrency, log)
	submitter := progress.NewSubmitter(uploader, progressService, log)

	// Middleware
	authMiddleware := auth.NewMiddleware(&cfg.Auth, profileService, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	rt := router.NewRouter(cfg, log, db, authMiddleware, rateLimiter, router.Handlers{
		Auth:       handler.NewAuthHandler(profileService, log),
		Profile:    handler.NewProfileHandler(profileService, log),
		Area:       handler.NewAreaHandler(areaService, departmentService, log),
		Issue:      handler.NewIssueHandler(issueService, voteService, progressService, log),
		Tender:     handler.NewTenderHandler(tenderService, bidService, evaluationService, log),
		Assignment: handler.NewAssignmentHandler(assignmentService, log),
		Progress:   handler.NewProgressHandler(progressService, submitter, cfg.Storage.MaxUploadSizeMB, log),
		Media:      handler.NewMediaHandler(fileStorage, log),
	})

	var scheduler *jobs.Scheduler
	if cfg.Workflow.TriageSweepEnabled {
		scheduler = jobs.NewScheduler(log)
		if err := jobs.RegisterTriageSweepJob(scheduler, issueService, log, cfg.Workflow.TriageSweepCron); err != nil {
			log.Error("Failed to register triage sweep job", zap.Error(err))
			scheduler = nil
		} else {
			scheduler.Start()
			log.Info("Scheduler started with triage sweep",
				zap.String("cron_expr", cfg.Workflow.TriageSweepCron),
			)
		}
	} else {
		log.Info("Triage sweep disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}
		telemetry.Shutdown(ctx)

		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		log.Info("Server stopped gracefully")
	}

	return nil
}
