// Package booking provides the booking workflow bounded context module.
// It drives the remote multi-step search protocol through to a placed
// reservation with a delivered quote document.
package booking

import (
	"time"

	"travel_quote_backend/internal/activity"
	"travel_quote_backend/internal/booking/handler"
	"travel_quote_backend/internal/booking/service"
	apphttp "travel_quote_backend/internal/http"
	"travel_quote_backend/internal/travelapi"
	"travel_quote_backend/platform/logger"
	"travel_quote_backend/platform/validator"
)

// Module is the booking bounded context module implementing http.Module.
type Module struct {
	handler      *handler.Handler
	orchestrator *service.Orchestrator
}

// Options configures quote delivery behavior.
type Options struct {
	// DefaultTemplateID is the fallback print template when the
	// requested one is unknown to the remote account.
	DefaultTemplateID string
	// DeliveryMaxAttempts bounds document-not-ready retries.
	DeliveryMaxAttempts int
	// DeliveryBaseDelay is the first backoff delay between retries.
	DeliveryBaseDelay time.Duration
	// Archiver stores delivered quote PDFs; may be nil.
	Archiver service.Archiver
}

// NewModule creates and initializes the booking module with all its dependencies.
func NewModule(api travelapi.API, rec activity.Recorder, val *validator.Validator, log *logger.Logger, opts Options) *Module {
	seq := service.NewSequencer(api, rec, log)
	carts := service.NewCartManager(api, rec, log)
	disp := service.NewQuoteDispatcher(api, rec, log, opts.Archiver,
		opts.DefaultTemplateID, opts.DeliveryMaxAttempts, opts.DeliveryBaseDelay)
	orc := service.NewOrchestrator(seq, carts, disp, log)

	return &Module{
		handler:      handler.New(orc, val),
		orchestrator: orc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "booking"
}

// Orchestrator returns the workflow service for external use.
func (m *Module) Orchestrator() *service.Orchestrator {
	return m.orchestrator
}

// RegisterRoutes mounts booking routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/booking")
	group.POST("", m.handler.Start)
	group.GET("/:attemptId", m.handler.Status)
	group.POST("/:attemptId/steps", m.handler.PickStep)
	group.POST("/:attemptId/results", m.handler.Results)
	group.POST("/:attemptId/cart", m.handler.ConfirmCart)
	group.DELETE("/:attemptId/cart", m.handler.DiscardCart)
	group.POST("/:attemptId/quote", m.handler.PlaceAndSend)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
