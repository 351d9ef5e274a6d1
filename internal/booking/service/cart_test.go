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
	"travel_quote_backend/platform/logger"
)

var testSearch = travelapi.SearchRequest{
	Type: "hotel", From: "2026-09-01", To: "2026-09-05",
	Occupancy: []travelapi.Occupancy{{Adults: 2}},
}

// confirmedSession drives a fresh search through both pick steps.
func confirmedSession(t *testing.T, api travelapi.API) flow.SearchSession {
	t.Helper()
	seq := newTestSequencer(api)

	var session flow.SearchSession
	if _, err := seq.StartSearch(context.Background(), &session, testSearch); err != nil {
		t.Fatalf("StartSearch: %v", err)
	}
	if _, err := seq.SubmitPick(context.Background(), &session, 1, json.RawMessage(`{"group":0,"idx":0,"num":2}`)); err != nil {
		t.Fatalf("SubmitPick 1: %v", err)
	}
	if _, err := seq.SubmitPick(context.Background(), &session, 2, json.RawMessage(`{}`)); err != nil {
		t.Fatalf("SubmitPick 2: %v", err)
	}
	return session
}

func newTestCartManager(api travelapi.API) *CartManager {
	return NewCartManager(api, activity.NoopRecorder{}, logger.New("development"))
}

func TestConfirmCartRequiresFinalStep(t *testing.T) {
	api := mockapi.New()
	carts := newTestCartManager(api)
	session := flow.SearchSession{SearchID: "search_abc", Completed: flow.StepRoomSelection}

	_, err := carts.ConfirmCart(context.Background(), &session)

	var oooErr *flow.OutOfOrderStepError
	if !errors.As(err, &oooErr) {
		t.Fatalf("err = %v, want OutOfOrderStepError", err)
	}
	if oooErr.Expected != 2 {
		t.Fatalf("expected next step 2, got %+v", oooErr)
	}
}

func TestConfirmCartTwiceReportsExpiry(t *testing.T) {
	api := mockapi.New()
	carts := newTestCartManager(api)
	session := confirmedSession(t, api)

	cart, err := carts.ConfirmCart(context.Background(), &session)
	if err != nil {
		t.Fatalf("first ConfirmCart: %v", err)
	}
	if cart.CartID == "" || len(cart.Pax) != 2 {
		t.Fatalf("cart = %+v", cart)
	}

	_, err = carts.ConfirmCart(context.Background(), &session)
	var expired *flow.SearchExpiredError
	if !errors.As(err, &expired) {
		t.Fatalf("second ConfirmCart err = %v, want SearchExpiredError", err)
	}
	if expired.SearchID != session.SearchID {
		t.Fatalf("SearchExpiredError = %+v", expired)
	}
}

func TestConfirmCartAfterTTLExpiry(t *testing.T) {
	api := mockapi.New(mockapi.WithSearchTTL(10 * time.Millisecond))
	carts := newTestCartManager(api)
	session := confirmedSession(t, api)

	time.Sleep(30 * time.Millisecond)

	_, err := carts.ConfirmCart(context.Background(), &session)
	var expired *flow.SearchExpiredError
	if !errors.As(err, &expired) {
		t.Fatalf("err = %v, want SearchExpiredError", err)
	}
}

func TestGetCartIsIdempotent(t *testing.T) {
	api := mockapi.New()
	carts := newTestCartManager(api)
	session := confirmedSession(t, api)

	cart, err := carts.ConfirmCart(context.Background(), &session)
	if err != nil {
		t.Fatalf("ConfirmCart: %v", err)
	}

	for i := 0; i < 2; i++ {
		got, err := carts.GetCart(context.Background(), cart.CartID)
		if err != nil {
			t.Fatalf("GetCart #%d: %v", i+1, err)
		}
		if got.CartID != cart.CartID || len(got.Pax) != len(cart.Pax) {
			t.Fatalf("GetCart #%d = %+v", i+1, got)
		}
	}
}
