// Package crm provides the master-data clients bounded context module.
// Clients live on the remote booking service; this module proxies
// lookups and writes, adding the phone search the remote lacks.
package crm

import (
	"travel_quote_backend/internal/activity"
	"travel_quote_backend/internal/crm/handler"
	"travel_quote_backend/internal/crm/service"
	apphttp "travel_quote_backend/internal/http"
	"travel_quote_backend/internal/travelapi"
	"travel_quote_backend/platform/logger"
	"travel_quote_backend/platform/validator"
)

// Module is the crm bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the crm module with all its dependencies.
func NewModule(api travelapi.API, rec activity.Recorder, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(api, rec, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "crm"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts crm routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/crm/clients")
	group.GET("", m.handler.Search)
	group.POST("", m.handler.Create)
	group.GET("/:id", m.handler.Get)
	group.PUT("/:id", m.handler.Update)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
