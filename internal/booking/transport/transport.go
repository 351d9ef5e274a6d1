// Package transport defines the booking module's request and response
// payloads.
package transport

import (
	"encoding/json"
	"time"

	"travel_quote_backend/internal/booking/flow"
)

// OccupancyRequest is one room's occupancy in a search.
type OccupancyRequest struct {
	Adults   int   `json:"adults" validate:"required,min=1,max=9"`
	Children []int `json:"children" validate:"omitempty,dive,min=0,max=17"`
}

// StartBookingRequest starts a new booking attempt with a search.
type StartBookingRequest struct {
	Type          string             `json:"type" validate:"required,oneof=hotel package tour"`
	From          string             `json:"from" validate:"required,datetime=2006-01-02"`
	To            string             `json:"to" validate:"required,datetime=2006-01-02"`
	Geo           []int64            `json:"geo" validate:"omitempty,dive,gt=0"`
	IDs           []string           `json:"ids"`
	Codes         []string           `json:"codes"`
	Occupancy     []OccupancyRequest `json:"occupancy" validate:"required,min=1,dive"`
	ClientCountry string             `json:"clientCountry" validate:"omitempty,len=2"`
}

// PickStepRequest submits the selection for one protocol step.
type PickStepRequest struct {
	Step      int             `json:"step" validate:"required,min=1,max=2"`
	Selection json.RawMessage `json:"selection"`
}

// ResultsPageRequest retrieves a further page of the current step's
// option groups. Filters and sort expressions are passed through to the
// supplier opaque.
type ResultsPageRequest struct {
	Page    int             `json:"page" validate:"required,min=1"`
	PerPage int             `json:"perPage" validate:"omitempty,min=1,max=200"`
	Filters json.RawMessage `json:"filters"`
	SortBy  json.RawMessage `json:"sortBy"`
}

// ContactRequest is one traveler contact to reconcile onto the cart.
type ContactRequest struct {
	Name    string `json:"name" validate:"required"`
	Surname string `json:"surname"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone"`
}

// PlaceAndSendRequest finalizes an attempt into a delivered quote.
type PlaceAndSendRequest struct {
	ClientID    int64            `json:"clientId" validate:"required,gt=0"`
	Contacts    []ContactRequest `json:"contacts" validate:"required,min=1,dive"`
	TemplateID  string           `json:"templateId" validate:"required"`
	Send        *bool            `json:"send"`
	Due         string           `json:"due" validate:"omitempty,datetime=2006-01-02"`
	Reference   string           `json:"reference"`
	Description string           `json:"description"`
}

// SendOrDefault defaults Send to true when omitted.
func (r PlaceAndSendRequest) SendOrDefault() bool {
	if r.Send == nil {
		return true
	}
	return *r.Send
}

// StepResponse reports the state of the search after a step.
type StepResponse struct {
	AttemptID string          `json:"attemptId"`
	SearchID  string          `json:"searchId"`
	Step      int             `json:"step"`
	Final     bool            `json:"final"`
	PickType  string          `json:"pickType,omitempty"`
	Groups    json.RawMessage `json:"groups,omitempty"`
}

// PaxResponse is one traveler slot on a cart.
type PaxResponse struct {
	ID      int64  `json:"id"`
	Enabled bool   `json:"enabled"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// CartResponse is the confirmed cart.
type CartResponse struct {
	AttemptID string        `json:"attemptId"`
	CartID    string        `json:"cartId"`
	Pax       []PaxResponse `json:"pax"`
}

// CartDiscardedResponse confirms a cart item removal.
type CartDiscardedResponse struct {
	AttemptID string `json:"attemptId"`
	Discarded bool   `json:"discarded"`
}

// AttemptResponse is a status snapshot of a booking attempt.
type AttemptResponse struct {
	AttemptID     string            `json:"attemptId"`
	CreatedAt     time.Time         `json:"createdAt"`
	SearchID      string            `json:"searchId,omitempty"`
	CompletedStep string            `json:"completedStep"`
	NextStep      int               `json:"nextStep"`
	CartID        string            `json:"cartId,omitempty"`
	ReservationID string            `json:"reservationId,omitempty"`
	Delivery      *DeliveryResponse `json:"delivery,omitempty"`
}

// QuoteAttemptResponse is one recorded delivery attempt.
type QuoteAttemptResponse struct {
	TemplateID string `json:"templateId"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

// DeliveryResponse reports the quote delivery outcome.
type DeliveryResponse struct {
	Status       string                 `json:"status"`
	TemplateUsed string                 `json:"templateUsed"`
	PDFURL       string                 `json:"pdfUrl,omitempty"`
	EmailSent    bool                   `json:"emailSent"`
	Attempts     []QuoteAttemptResponse `json:"attempts"`
}

// PlaceAndSendResponse is the finalized quote.
type PlaceAndSendResponse struct {
	AttemptID     string           `json:"attemptId"`
	ReservationID string           `json:"reservationId"`
	Delivery      DeliveryResponse `json:"delivery"`
}

// NewCartResponse maps a cart record.
func NewCartResponse(attemptID string, cart flow.CartRecord) CartResponse {
	resp := CartResponse{AttemptID: attemptID, CartID: cart.CartID, Pax: make([]PaxResponse, len(cart.Pax))}
	for i, p := range cart.Pax {
		resp.Pax[i] = PaxResponse{
			ID:      p.RemoteID,
			Enabled: p.Enabled,
			Name:    p.Name,
			Surname: p.Surname,
			Email:   p.Email,
			Phone:   p.Phone,
		}
	}
	return resp
}

// NewDeliveryResponse maps a delivery result.
func NewDeliveryResponse(d flow.DeliveryResult) DeliveryResponse {
	resp := DeliveryResponse{
		Status:       d.Status,
		TemplateUsed: d.TemplateUsed,
		PDFURL:       d.PDFURL,
		EmailSent:    d.EmailSent,
		Attempts:     make([]QuoteAttemptResponse, len(d.Attempts)),
	}
	for i, a := range d.Attempts {
		resp.Attempts[i] = QuoteAttemptResponse{
			TemplateID: a.TemplateID,
			Status:     string(a.Status),
			Error:      a.Err,
		}
	}
	return resp
}
