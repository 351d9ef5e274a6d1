package http

import (
	"context"

	"travel_quote_backend/internal/config"
	"travel_quote_backend/platform/logger"
)

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App holds the fully initialized application dependencies.
// This is populated by main.go (the composition root) and passed to the router.
type App struct {
	// Config holds the router configuration.
	Config *config.Config
	// Logger is the structured logger.
	Logger *logger.Logger
	// Health is used for readiness checks. Nil when no database is
	// configured; the health endpoint then reports the process alone.
	Health HealthChecker
	// Modules contains all HTTP-facing domain modules.
	Modules []Module
}
