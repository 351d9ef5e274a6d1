package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"travel_quote_backend/internal/activity"
	"travel_quote_backend/internal/booking/flow"
	"travel_quote_backend/internal/travelapi"
	"travel_quote_backend/internal/travelapi/mockapi"
	"travel_quote_backend/platform/apperr"
	"travel_quote_backend/platform/logger"
)

func newTestOrchestrator(api travelapi.API) *Orchestrator {
	log := logger.New("development")
	rec := activity.NoopRecorder{}
	return NewOrchestrator(
		NewSequencer(api, rec, log),
		NewCartManager(api, rec, log),
		NewQuoteDispatcher(api, rec, log, nil, "2", 3, time.Millisecond),
		log,
	)
}

func TestBookingWorkflowEndToEnd(t *testing.T) {
	api := mockapi.New()
	orc := newTestOrchestrator(api)
	ctx := context.Background()

	attemptID, search, err := orc.StartBooking(ctx, testSearch)
	if err != nil {
		t.Fatalf("StartBooking: %v", err)
	}
	if attemptID == "" || search.SearchID == "" {
		t.Fatalf("attempt=%q search=%+v", attemptID, search)
	}

	if _, err := orc.PickStep(ctx, attemptID, 1, json.RawMessage(`{"group":0,"idx":0,"num":2}`)); err != nil {
		t.Fatalf("PickStep 1: %v", err)
	}
	final, err := orc.PickStep(ctx, attemptID, 2, json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("PickStep 2: %v", err)
	}
	if !final.Final {
		t.Fatalf("step 2 response = %+v, want final", final)
	}

	cart, err := orc.ConfirmAndCart(ctx, attemptID)
	if err != nil {
		t.Fatalf("ConfirmAndCart: %v", err)
	}
	if len(cart.Pax) != 2 {
		t.Fatalf("cart pax = %d", len(cart.Pax))
	}

	out, err := orc.PlaceAndSend(ctx, attemptID, PlaceAndSendInput{
		Client: flow.ClientReference{ID: 101},
		Contacts: []flow.Contact{
			{Name: "Mario", Surname: "Rossi", Email: "mario@example.com", Phone: "055 1234567"},
		},
		TemplateID: "7",
		Send:       true,
	})
	if err != nil {
		t.Fatalf("PlaceAndSend: %v", err)
	}
	if out.ReservationID == "" || out.Delivery.Status != "sent" {
		t.Fatalf("out = %+v", out)
	}

	// The mock recorded what went over the wire.
	res, ok := api.Reservation(out.ReservationID)
	if !ok {
		t.Fatalf("reservation %s not recorded", out.ReservationID)
	}
	if res.Client != 101 {
		t.Fatalf("reservation client = %d", res.Client)
	}
	if res.Pax[0].Name != "Mario" || res.Pax[0].Surname != "Rossi" {
		t.Fatalf("reconciled pax not placed: %+v", res.Pax[0])
	}
	if res.Pax[0].Phone != "+390551234567" {
		t.Fatalf("pax phone = %q", res.Pax[0].Phone)
	}

	st, err := orc.Status(attemptID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.ReservationID != out.ReservationID || st.CartID != cart.CartID {
		t.Fatalf("status = %+v", st)
	}
}

func TestPickStepOutOfOrderDoesNotPoisonAttempt(t *testing.T) {
	api := mockapi.New()
	orc := newTestOrchestrator(api)
	ctx := context.Background()

	attemptID, _, err := orc.StartBooking(ctx, testSearch)
	if err != nil {
		t.Fatalf("StartBooking: %v", err)
	}

	_, err = orc.PickStep(ctx, attemptID, 2, json.RawMessage(`{"num":2}`))
	var oooErr *flow.OutOfOrderStepError
	if !errors.As(err, &oooErr) {
		t.Fatalf("err = %v, want OutOfOrderStepError", err)
	}

	// The attempt continues where it was.
	if _, err := orc.PickStep(ctx, attemptID, 1, json.RawMessage(`{"num":2}`)); err != nil {
		t.Fatalf("PickStep 1 after rejection: %v", err)
	}
}

func TestResultsPagingMidWorkflow(t *testing.T) {
	api := mockapi.New()
	orc := newTestOrchestrator(api)
	ctx := context.Background()

	attemptID, _, err := orc.StartBooking(ctx, testSearch)
	if err != nil {
		t.Fatalf("StartBooking: %v", err)
	}

	first, err := orc.Results(ctx, attemptID, travelapi.ResultsRequest{Page: 1})
	if err != nil {
		t.Fatalf("Results page 1: %v", err)
	}
	if len(first.Groups) == 0 || string(first.Groups) == "[]" {
		t.Fatalf("page 1 groups = %s", first.Groups)
	}
	second, err := orc.Results(ctx, attemptID, travelapi.ResultsRequest{Page: 2})
	if err != nil {
		t.Fatalf("Results page 2: %v", err)
	}
	if string(second.Groups) != "[]" {
		t.Fatalf("page 2 groups = %s, want empty", second.Groups)
	}

	// Paging leaves the workflow where it was.
	if _, err := orc.PickStep(ctx, attemptID, 1, json.RawMessage(`{"num":2}`)); err != nil {
		t.Fatalf("PickStep 1 after paging: %v", err)
	}
}

func TestDiscardCartResetsAttempt(t *testing.T) {
	api := mockapi.New()
	orc := newTestOrchestrator(api)
	ctx := context.Background()

	attemptID, _, err := orc.StartBooking(ctx, testSearch)
	if err != nil {
		t.Fatalf("StartBooking: %v", err)
	}
	if _, err := orc.PickStep(ctx, attemptID, 1, json.RawMessage(`{"num":2}`)); err != nil {
		t.Fatalf("PickStep 1: %v", err)
	}
	if _, err := orc.PickStep(ctx, attemptID, 2, json.RawMessage(`{}`)); err != nil {
		t.Fatalf("PickStep 2: %v", err)
	}
	cart, err := orc.ConfirmAndCart(ctx, attemptID)
	if err != nil {
		t.Fatalf("ConfirmAndCart: %v", err)
	}

	if err := orc.DiscardCart(ctx, attemptID); err != nil {
		t.Fatalf("DiscardCart: %v", err)
	}

	// The remote no longer knows the cart.
	if _, err := api.GetCart(ctx, cart.CartID); !travelapi.IsCondition(err, travelapi.ConditionNotFound) {
		t.Fatalf("remote cart should be gone, got %v", err)
	}

	st, err := orc.Status(attemptID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.CartID != "" || st.SearchID != "" || st.NextStep != 0 {
		t.Fatalf("attempt must reset after discard, status = %+v", st)
	}

	var oooErr *flow.OutOfOrderStepError
	_, err = orc.PlaceAndSend(ctx, attemptID, PlaceAndSendInput{
		Client:     flow.ClientReference{ID: 101},
		Contacts:   []flow.Contact{{Name: "Mario"}},
		TemplateID: "7",
	})
	if !errors.As(err, &oooErr) {
		t.Fatalf("placement after discard: err = %v, want OutOfOrderStepError", err)
	}
	if err := orc.DiscardCart(ctx, attemptID); !errors.As(err, &oooErr) {
		t.Fatalf("second discard: err = %v, want OutOfOrderStepError", err)
	}
}

func TestPlaceAndSendWithoutCart(t *testing.T) {
	api := mockapi.New()
	orc := newTestOrchestrator(api)
	ctx := context.Background()

	attemptID, _, err := orc.StartBooking(ctx, testSearch)
	if err != nil {
		t.Fatalf("StartBooking: %v", err)
	}

	_, err = orc.PlaceAndSend(ctx, attemptID, PlaceAndSendInput{
		Client:     flow.ClientReference{ID: 101},
		Contacts:   []flow.Contact{{Name: "Mario"}},
		TemplateID: "7",
	})
	var oooErr *flow.OutOfOrderStepError
	if !errors.As(err, &oooErr) {
		t.Fatalf("err = %v, want OutOfOrderStepError", err)
	}
}

func TestPlaceAndSendPaxMismatch(t *testing.T) {
	api := mockapi.New()
	orc := newTestOrchestrator(api)
	ctx := context.Background()

	attemptID, _, err := orc.StartBooking(ctx, testSearch)
	if err != nil {
		t.Fatalf("StartBooking: %v", err)
	}
	if _, err := orc.PickStep(ctx, attemptID, 1, json.RawMessage(`{"num":2}`)); err != nil {
		t.Fatalf("PickStep 1: %v", err)
	}
	if _, err := orc.PickStep(ctx, attemptID, 2, json.RawMessage(`{}`)); err != nil {
		t.Fatalf("PickStep 2: %v", err)
	}
	if _, err := orc.ConfirmAndCart(ctx, attemptID); err != nil {
		t.Fatalf("ConfirmAndCart: %v", err)
	}

	_, err = orc.PlaceAndSend(ctx, attemptID, PlaceAndSendInput{
		Client:     flow.ClientReference{ID: 101},
		Contacts:   []flow.Contact{{Name: "A"}, {Name: "B"}, {Name: "C"}},
		TemplateID: "7",
	})
	var mismatch *flow.PaxCountMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("err = %v, want PaxCountMismatchError", err)
	}
}

func TestSessionClearedAfterExpiry(t *testing.T) {
	api := mockapi.New(mockapi.WithSearchTTL(10 * time.Millisecond))
	orc := newTestOrchestrator(api)
	ctx := context.Background()

	attemptID, _, err := orc.StartBooking(ctx, testSearch)
	if err != nil {
		t.Fatalf("StartBooking: %v", err)
	}

	time.Sleep(30 * time.Millisecond)

	_, err = orc.PickStep(ctx, attemptID, 1, json.RawMessage(`{"num":2}`))
	var expired *flow.SearchExpiredError
	if !errors.As(err, &expired) {
		t.Fatalf("err = %v, want SearchExpiredError", err)
	}

	st, err := orc.Status(attemptID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.SearchID != "" || st.NextStep != 0 {
		t.Fatalf("session must be cleared after expiry, status = %+v", st)
	}
}

func TestUnknownAttemptIsNotFound(t *testing.T) {
	orc := newTestOrchestrator(mockapi.New())

	_, err := orc.Status("no-such-attempt")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not-found", err)
	}
}
