// Package handler exposes the booking workflow over HTTP.
package handler

import (
	"errors"
	"net/http"

	"travel_quote_backend/internal/booking/flow"
	"travel_quote_backend/internal/booking/service"
	"travel_quote_backend/internal/booking/transport"
	"travel_quote_backend/internal/travelapi"
	"travel_quote_backend/platform/apperr"
	"travel_quote_backend/platform/httpkit"
	"travel_quote_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for booking attempts.
type Handler struct {
	orc *service.Orchestrator
	val *validator.Validator
}

// New creates a booking handler.
func New(orc *service.Orchestrator, val *validator.Validator) *Handler {
	return &Handler{orc: orc, val: val}
}

// Start creates a booking attempt and runs the initial search.
// POST /api/v1/booking
func (h *Handler) Start(c *gin.Context) {
	var req transport.StartBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	attemptID, resp, err := h.orc.StartBooking(c.Request.Context(), searchRequest(req))
	if handleFlowError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, stepResponse(attemptID, resp))
}

// PickStep submits the selection for the attempt's next step.
// POST /api/v1/booking/:attemptId/steps
func (h *Handler) PickStep(c *gin.Context) {
	var req transport.PickStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	attemptID := c.Param("attemptId")
	resp, err := h.orc.PickStep(c.Request.Context(), attemptID, req.Step, req.Selection)
	if handleFlowError(c, err) {
		return
	}
	httpkit.OK(c, stepResponse(attemptID, resp))
}

// Results retrieves a further page of the attempt's search results.
// POST /api/v1/booking/:attemptId/results
func (h *Handler) Results(c *gin.Context) {
	var req transport.ResultsPageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	attemptID := c.Param("attemptId")
	resp, err := h.orc.Results(c.Request.Context(), attemptID, travelapi.ResultsRequest{
		Page:    req.Page,
		PerPage: req.PerPage,
		Filters: req.Filters,
		SortBy:  req.SortBy,
	})
	if handleFlowError(c, err) {
		return
	}
	httpkit.OK(c, stepResponse(attemptID, resp))
}

// ConfirmCart exchanges the confirmed search for a cart.
// POST /api/v1/booking/:attemptId/cart
func (h *Handler) ConfirmCart(c *gin.Context) {
	attemptID := c.Param("attemptId")
	cart, err := h.orc.ConfirmAndCart(c.Request.Context(), attemptID)
	if handleFlowError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.NewCartResponse(attemptID, cart))
}

// DiscardCart removes the attempt's cart item.
// DELETE /api/v1/booking/:attemptId/cart
func (h *Handler) DiscardCart(c *gin.Context) {
	attemptID := c.Param("attemptId")
	if handleFlowError(c, h.orc.DiscardCart(c.Request.Context(), attemptID)) {
		return
	}
	httpkit.OK(c, transport.CartDiscardedResponse{AttemptID: attemptID, Discarded: true})
}

// PlaceAndSend finalizes the attempt into a delivered quote.
// POST /api/v1/booking/:attemptId/quote
func (h *Handler) PlaceAndSend(c *gin.Context) {
	var req transport.PlaceAndSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	attemptID := c.Param("attemptId")
	in := service.PlaceAndSendInput{
		Client:     flow.ClientReference{ID: req.ClientID},
		TemplateID: req.TemplateID,
		Send:       req.SendOrDefault(),
		Placement: service.PlacementOptions{
			Due:         req.Due,
			Reference:   req.Reference,
			Description: req.Description,
		},
	}
	for _, contact := range req.Contacts {
		in.Contacts = append(in.Contacts, flow.Contact{
			Name:    contact.Name,
			Surname: contact.Surname,
			Email:   contact.Email,
			Phone:   contact.Phone,
		})
	}

	out, err := h.orc.PlaceAndSend(c.Request.Context(), attemptID, in)
	if handleFlowError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.PlaceAndSendResponse{
		AttemptID:     attemptID,
		ReservationID: out.ReservationID,
		Delivery:      transport.NewDeliveryResponse(out.Delivery),
	})
}

// Status returns a snapshot of an attempt.
// GET /api/v1/booking/:attemptId
func (h *Handler) Status(c *gin.Context) {
	st, err := h.orc.Status(c.Param("attemptId"))
	if handleFlowError(c, err) {
		return
	}

	resp := transport.AttemptResponse{
		AttemptID:     st.AttemptID,
		CreatedAt:     st.CreatedAt,
		SearchID:      st.SearchID,
		CompletedStep: st.CompletedStep,
		NextStep:      st.NextStep,
		CartID:        st.CartID,
		ReservationID: st.ReservationID,
	}
	if st.Delivery != nil {
		d := transport.NewDeliveryResponse(*st.Delivery)
		resp.Delivery = &d
	}
	httpkit.OK(c, resp)
}

// handleFlowError maps workflow errors onto HTTP responses, preserving
// the remote's own message wherever one exists.
func handleFlowError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	return httpkit.HandleError(c, mapFlowError(err))
}

func mapFlowError(err error) error {
	var (
		outOfOrder  *flow.OutOfOrderStepError
		rejected    *flow.RemoteStepRejectedError
		expired     *flow.SearchExpiredError
		mismatch    *flow.PaxCountMismatchError
		placement   *flow.PlacementRejectedError
		noTemplate  *flow.TemplateUnavailableError
		notReady    *flow.DocumentNotReadyError
		cancelled   *flow.CancelledError
		apiErr      *travelapi.APIError
	)

	switch {
	case errors.As(err, &outOfOrder):
		return apperr.Wrap(apperr.KindValidation, outOfOrder.Error(), err)
	case errors.As(err, &mismatch):
		return apperr.Wrap(apperr.KindValidation, mismatch.Error(), err)
	case errors.As(err, &rejected):
		return apperr.Wrap(apperr.KindBadRequest, rejected.Message, err)
	case errors.As(err, &placement):
		return apperr.Wrap(apperr.KindBadRequest, placement.Message, err)
	case errors.As(err, &expired):
		return apperr.Wrap(apperr.KindGone, "search expired, start a new booking attempt", err)
	case errors.As(err, &noTemplate):
		return apperr.Wrap(apperr.KindUpstream, noTemplate.Error(), err)
	case errors.As(err, &notReady):
		return apperr.Wrap(apperr.KindUpstream, notReady.Error(), err)
	case errors.As(err, &cancelled):
		return apperr.Wrap(apperr.KindCancelled, "quote delivery cancelled", err)
	case errors.As(err, &apiErr):
		return apperr.Wrap(apperr.KindUpstream, apiErr.Message, err)
	}
	return err
}

func searchRequest(req transport.StartBookingRequest) travelapi.SearchRequest {
	out := travelapi.SearchRequest{
		Type:          req.Type,
		From:          req.From,
		To:            req.To,
		Geo:           req.Geo,
		IDs:           req.IDs,
		Codes:         req.Codes,
		ClientCountry: req.ClientCountry,
	}
	for _, occ := range req.Occupancy {
		out.Occupancy = append(out.Occupancy, travelapi.Occupancy{Adults: occ.Adults, Children: occ.Children})
	}
	return out
}

func stepResponse(attemptID string, resp travelapi.SearchResponse) transport.StepResponse {
	return transport.StepResponse{
		AttemptID: attemptID,
		SearchID:  resp.SearchID,
		Step:      resp.Step,
		Final:     resp.Final,
		PickType:  resp.PickType,
		Groups:    resp.Groups,
	}
}
