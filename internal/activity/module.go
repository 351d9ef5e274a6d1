package activity

import (
	"context"
	"net/http"
	"strconv"
	"time"

	apphttp "travel_quote_backend/internal/http"
	"travel_quote_backend/platform/httpkit"
	"travel_quote_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Module wires the activity log: a Recorder for other modules and a
// read-only HTTP listing endpoint.
type Module struct {
	repo *Repository
	log  *logger.Logger
}

// NewModule creates the activity module backed by Postgres.
func NewModule(pool *pgxpool.Pool, log *logger.Logger) *Module {
	return &Module{repo: NewRepository(pool), log: log}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "activity"
}

// Recorder returns the Recorder other modules record through.
func (m *Module) Recorder() Recorder {
	return m
}

// Record implements Recorder. Persistence failures are logged, never
// propagated: the activity log must not fail a booking operation.
func (m *Module) Record(ctx context.Context, action, method, endpoint string, callErr error) {
	e := Entry{
		ID:        uuid.New(),
		Action:    action,
		Method:    method,
		Endpoint:  endpoint,
		Status:    StatusSuccess,
		CreatedAt: time.Now().UTC(),
	}
	if callErr != nil {
		e.Status = StatusError
		e.Message = callErr.Error()
	}

	if err := m.repo.Insert(ctx, e); err != nil {
		m.log.DatabaseError("activity_log.insert", err)
	}
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/activity", m.list)
}

func (m *Module) list(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			httpkit.Error(c, http.StatusBadRequest, "limit must be between 1 and 500", nil)
			return
		}
		limit = parsed
	}

	entries, err := m.repo.List(c.Request.Context(), limit)
	if httpkit.HandleError(c, err) {
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	httpkit.OK(c, gin.H{"items": entries, "total": len(entries)})
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
