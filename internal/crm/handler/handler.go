// Package handler exposes master-data client lookups over HTTP.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"travel_quote_backend/internal/crm/service"
	"travel_quote_backend/internal/crm/transport"
	"travel_quote_backend/internal/travelapi"
	"travel_quote_backend/platform/apperr"
	"travel_quote_backend/platform/httpkit"
	"travel_quote_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid client ID"
)

// Handler handles HTTP requests for master-data clients.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a crm handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Search lists clients matching the query filters.
// GET /api/v1/crm/clients
func (h *Handler) Search(c *gin.Context) {
	var req transport.SearchClientsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	page, err := h.svc.Search(c.Request.Context(), service.Query{
		Surname: req.Surname,
		Email:   req.Email,
		Phone:   req.Phone,
		ID:      req.ID,
		Page:    req.Page,
		PerPage: req.PerPage,
	})
	if handleRemoteError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewClientPageResponse(page))
}

// Get retrieves one client.
// GET /api/v1/crm/clients/:id
func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	client, err := h.svc.Get(c.Request.Context(), id)
	if handleRemoteError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewClientResponse(client))
}

// Create stores a new client.
// POST /api/v1/crm/clients
func (h *Handler) Create(c *gin.Context) {
	var req transport.UpsertClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	created, err := h.svc.Create(c.Request.Context(), req.ToClient())
	if handleRemoteError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.NewClientResponse(created))
}

// Update replaces fields on an existing client.
// PUT /api/v1/crm/clients/:id
func (h *Handler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.UpsertClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	updated, err := h.svc.Update(c.Request.Context(), id, req.ToClient())
	if handleRemoteError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewClientResponse(updated))
}

// handleRemoteError maps remote master-data failures onto HTTP
// responses, keeping the remote's message.
func handleRemoteError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var apiErr *travelapi.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Condition {
		case travelapi.ConditionNotFound:
			return httpkit.HandleError(c, apperr.Wrap(apperr.KindNotFound, apiErr.Message, err))
		case travelapi.ConditionValidation:
			return httpkit.HandleError(c, apperr.Wrap(apperr.KindBadRequest, apiErr.Message, err))
		default:
			return httpkit.HandleError(c, apperr.Wrap(apperr.KindUpstream, apiErr.Message, err))
		}
	}
	return httpkit.HandleError(c, err)
}
