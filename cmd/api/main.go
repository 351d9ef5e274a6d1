package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"travel_quote_backend/internal/activity"
	"travel_quote_backend/internal/adapters/storage"
	"travel_quote_backend/internal/booking"
	bookingservice "travel_quote_backend/internal/booking/service"
	"travel_quote_backend/internal/config"
	"travel_quote_backend/internal/crm"
	apphttp "travel_quote_backend/internal/http"
	"travel_quote_backend/internal/http/router"
	"travel_quote_backend/internal/travelapi"
	"travel_quote_backend/internal/travelapi/mockapi"
	"travel_quote_backend/platform/db"
	"travel_quote_backend/platform/logger"
	"travel_quote_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var pool *pgxpool.Pool
	var health apphttp.HealthChecker
	recorder := activity.Recorder(activity.NoopRecorder{})
	var activityModule *activity.Module

	if cfg.DatabaseURL != "" {
		if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
			return db.RunMigrations(ctx, cfg.DatabaseURL, "migrations")
		}); err != nil {
			log.Error("failed to run database migrations", "error", err)
			panic("failed to run database migrations: " + err.Error())
		}
		log.Info("database migrations complete")

		if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
			p, err := db.NewPool(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			pool = p
			return nil
		}); err != nil {
			log.Error("failed to connect to database", "error", err)
			panic("failed to connect to database: " + err.Error())
		}
		defer pool.Close()
		log.Info("database connection established")

		health = db.NewPoolAdapter(pool)
		activityModule = activity.NewModule(pool, log)
		recorder = activityModule.Recorder()
	} else {
		log.Warn("DATABASE_URL not configured; activity log disabled")
	}

	// Storage service for archived quote PDFs (MinIO)
	var archiver bookingservice.Archiver
	if cfg.MinioEndpoint != "" {
		storageSvc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		if err := withRetry(ctx, log, "ensure quote-pdfs bucket", 5, 2*time.Second, func() error {
			return storageSvc.EnsureBucketExists(ctx, cfg.MinioBucketQuotePDFs)
		}); err != nil {
			log.Error("failed to ensure storage bucket exists", "error", err, "bucket", cfg.MinioBucketQuotePDFs)
			panic("failed to ensure storage bucket exists: " + err.Error())
		}
		archiver = storage.NewQuotePDFArchiver(storageSvc, cfg.MinioBucketQuotePDFs, log)
		log.Info("storage service initialized", "quotePDFsBucket", cfg.MinioBucketQuotePDFs)
	} else {
		log.Warn("MINIO_ENDPOINT not configured; quote pdf archive disabled")
	}

	// Remote booking API client, or the in-memory conformance server
	var api travelapi.API
	if cfg.UseMockAPI {
		api = mockapi.New()
		log.Warn("using in-memory mock booking API")
	} else {
		api = travelapi.NewClient(travelapi.Config{
			BaseURL:   cfg.APIBaseURL,
			AgencyID:  cfg.APIAgencyID,
			APIKey:    cfg.APIKey,
			Language:  cfg.APILanguage,
			Timeout:   cfg.APITimeout,
			RateLimit: cfg.APIRateLimit,
		}, log)
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	bookingModule := booking.NewModule(api, recorder, val, log, booking.Options{
		DefaultTemplateID:   cfg.DefaultTemplateID,
		DeliveryMaxAttempts: cfg.DeliveryMaxAttempts,
		DeliveryBaseDelay:   cfg.DeliveryBaseDelay,
		Archiver:            archiver,
	})
	crmModule := crm.NewModule(api, recorder, val, log)

	modules := []apphttp.Module{bookingModule, crmModule}
	if activityModule != nil {
		modules = append(modules, activityModule)
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:  cfg,
		Logger:  log,
		Health:  health,
		Modules: modules,
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
