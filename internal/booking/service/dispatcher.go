package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"travel_quote_backend/internal/activity"
	"travel_quote_backend/internal/booking/flow"
	"travel_quote_backend/internal/travelapi"
	"travel_quote_backend/platform/logger"

	"github.com/sethvargo/go-retry"
)

// Archiver stores a copy of a delivered quote document. Archival is
// best-effort: failures are logged and never fail the delivery.
type Archiver interface {
	ArchiveQuotePDF(ctx context.Context, reservationID, pdfURL string) error
}

// PlacementOptions carries the optional reservation fields.
type PlacementOptions struct {
	Status      int
	Due         string
	Reference   string
	Description string
}

// QuoteDispatcher places reservations and delivers quote documents.
//
// Delivery composes two independent recovery policies: an unknown
// template falls back once to the configured default, and a
// document-not-ready response is retried with exponential backoff up to
// the attempt budget. Every wire attempt is recorded, successful or not.
type QuoteDispatcher struct {
	api             travelapi.API
	rec             activity.Recorder
	log             *logger.Logger
	archiver        Archiver
	defaultTemplate string
	maxAttempts     int
	baseDelay       time.Duration
}

// NewQuoteDispatcher creates a dispatcher. archiver may be nil.
func NewQuoteDispatcher(api travelapi.API, rec activity.Recorder, log *logger.Logger, archiver Archiver, defaultTemplate string, maxAttempts int, baseDelay time.Duration) *QuoteDispatcher {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &QuoteDispatcher{
		api:             api,
		rec:             rec,
		log:             log,
		archiver:        archiver,
		defaultTemplate: defaultTemplate,
		maxAttempts:     maxAttempts,
		baseDelay:       baseDelay,
	}
}

// PlaceReservation finalizes a cart into a reservation for the given
// client. The client id travels as a bare number; the remote rejects
// any other encoding with a validation error.
func (d *QuoteDispatcher) PlaceReservation(ctx context.Context, cartID string, client flow.ClientReference, cart flow.CartRecord, opts PlacementOptions) (string, error) {
	req := travelapi.PlacementRequest{
		Client:      client.ID,
		Pax:         paxToWire(cart.Pax),
		Status:      opts.Status,
		Due:         opts.Due,
		Reference:   opts.Reference,
		Description: opts.Description,
	}

	resp, err := d.api.PlaceReservation(ctx, cartID, req)
	d.rec.Record(ctx, "booking.place", "POST", "/booking/place/"+cartID, err)
	if err != nil {
		if travelapi.IsCondition(err, travelapi.ConditionValidation) {
			return "", &flow.PlacementRejectedError{Message: travelapi.Message(err)}
		}
		return "", err
	}

	return strconv.FormatInt(resp.ReservationID, 10), nil
}

// deliveryState threads the fallback decision and the attempt trail
// across backoff retries.
type deliveryState struct {
	requested string
	template  string
	fellBack  bool
	attempts  []flow.QuoteAttempt
	result    travelapi.DeliveryResponse
}

// DeliverQuote asks the remote to render and send the quote document
// for a reservation. The caller's context bounds the whole retry loop;
// cancellation during a backoff wait surfaces as CancelledError.
func (d *QuoteDispatcher) DeliverQuote(ctx context.Context, reservationID, templateID string, send bool) (flow.DeliveryResult, error) {
	state := &deliveryState{requested: templateID, template: templateID}

	backoff := retry.WithMaxRetries(uint64(d.maxAttempts-1), retry.NewExponential(d.baseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := d.deliverWithFallback(ctx, reservationID, send, state)
		if travelapi.IsCondition(err, travelapi.ConditionDocumentNotReady) {
			return retry.RetryableError(err)
		}
		return err
	})

	result := flow.DeliveryResult{
		TemplateUsed: state.template,
		Attempts:     state.attempts,
	}
	if err != nil {
		return result, d.mapDeliveryError(state, err)
	}

	result.Status = state.result.Status
	result.PDFURL = state.result.PDFURL
	result.EmailSent = state.result.EmailSent

	if d.archiver != nil && result.PDFURL != "" {
		if archiveErr := d.archiver.ArchiveQuotePDF(ctx, reservationID, result.PDFURL); archiveErr != nil {
			d.log.WithContext(ctx).Warn("quote pdf archive failed",
				"reservation_id", reservationID, "error", archiveErr)
		}
	}
	return result, nil
}

// deliverWithFallback tries the current template and switches to the
// default exactly once when the remote does not know it. An unknown
// default template is terminal.
func (d *QuoteDispatcher) deliverWithFallback(ctx context.Context, reservationID string, send bool, state *deliveryState) error {
	err := d.deliverOnce(ctx, reservationID, send, state)
	if err == nil || !travelapi.IsCondition(err, travelapi.ConditionTemplateNotFound) {
		return err
	}

	if state.fellBack || state.template == d.defaultTemplate {
		return &flow.TemplateUnavailableError{
			TemplateID: state.requested,
			FallbackID: state.template,
			Message:    travelapi.Message(err),
		}
	}

	d.log.WithContext(ctx).Warn("quote template unknown, falling back",
		"reservation_id", reservationID, "template", state.template, "fallback", d.defaultTemplate)
	state.fellBack = true
	state.template = d.defaultTemplate

	err = d.deliverOnce(ctx, reservationID, send, state)
	if err != nil && travelapi.IsCondition(err, travelapi.ConditionTemplateNotFound) {
		return &flow.TemplateUnavailableError{
			TemplateID: state.requested,
			FallbackID: state.template,
			Message:    travelapi.Message(err),
		}
	}
	return err
}

func (d *QuoteDispatcher) deliverOnce(ctx context.Context, reservationID string, send bool, state *deliveryState) error {
	resp, err := d.api.DeliverQuote(ctx, reservationID, travelapi.DeliveryRequest{
		Template: state.template,
		Send:     send,
		Archive:  true,
	})
	d.rec.Record(ctx, "booking.deliver", "POST", "/tools/print/reservation/"+reservationID, err)

	attempt := flow.QuoteAttempt{
		ReservationID: reservationID,
		TemplateID:    state.template,
		Status:        flow.AttemptSent,
	}
	if err != nil {
		attempt.Status = flow.AttemptFailed
		attempt.Err = travelapi.Message(err)
	}
	state.attempts = append(state.attempts, attempt)

	if err == nil {
		state.result = resp
	}
	return err
}

func (d *QuoteDispatcher) mapDeliveryError(state *deliveryState, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &flow.CancelledError{Err: err}
	}
	if travelapi.IsCondition(err, travelapi.ConditionDocumentNotReady) {
		return &flow.DocumentNotReadyError{Attempts: len(state.attempts), Message: travelapi.Message(err)}
	}
	return err
}
