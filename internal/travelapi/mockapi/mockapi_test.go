package mockapi

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"travel_quote_backend/internal/travelapi"
)

var searchReq = travelapi.SearchRequest{
	Type: "hotel", From: "2026-09-01", To: "2026-09-05",
	Occupancy: []travelapi.Occupancy{{Adults: 2}},
}

func startSearch(t *testing.T, s *Server) string {
	t.Helper()
	resp, err := s.StartSearch(context.Background(), searchReq)
	if err != nil {
		t.Fatalf("StartSearch: %v", err)
	}
	return resp.SearchID
}

func finalizeSearch(t *testing.T, s *Server, searchID string) {
	t.Helper()
	if _, err := s.SubmitPicks(context.Background(), travelapi.PicksRequest{
		SearchID: searchID, Step: 1, Picks: json.RawMessage(`{"group":0,"idx":0,"num":2}`),
	}); err != nil {
		t.Fatalf("SubmitPicks step 1: %v", err)
	}
	if _, err := s.SubmitPicks(context.Background(), travelapi.PicksRequest{
		SearchID: searchID, Step: 2, Picks: json.RawMessage(`{}`),
	}); err != nil {
		t.Fatalf("SubmitPicks step 2: %v", err)
	}
}

func TestStepOrderEnforced(t *testing.T) {
	s := New()
	searchID := startSearch(t, s)

	_, err := s.SubmitPicks(context.Background(), travelapi.PicksRequest{
		SearchID: searchID, Step: 2, Picks: json.RawMessage(`{"num":1}`),
	})
	if !travelapi.IsCondition(err, travelapi.ConditionValidation) {
		t.Fatalf("skipping a step should be a validation rejection, got %v", err)
	}
	if !strings.Contains(travelapi.Message(err), "step 2 submitted, step 1 expected") {
		t.Fatalf("message = %q", travelapi.Message(err))
	}

	// The rejection must not advance the search.
	if _, err := s.SubmitPicks(context.Background(), travelapi.PicksRequest{
		SearchID: searchID, Step: 1, Picks: json.RawMessage(`{"num":2}`),
	}); err != nil {
		t.Fatalf("correct step after rejection: %v", err)
	}
}

func TestConfirmCartConsumesSearchID(t *testing.T) {
	s := New()
	searchID := startSearch(t, s)
	finalizeSearch(t, s, searchID)

	cart, err := s.ConfirmCart(context.Background(), searchID)
	if err != nil {
		t.Fatalf("ConfirmCart: %v", err)
	}
	if len(cart.Pax) != 2 {
		t.Fatalf("pax = %d, want one slot per adult", len(cart.Pax))
	}
	for _, p := range cart.Pax {
		if p.ID == 0 || !p.Enabled {
			t.Fatalf("placeholder pax must carry a synthetic id and be enabled: %+v", p)
		}
	}

	_, err = s.ConfirmCart(context.Background(), searchID)
	if !travelapi.IsCondition(err, travelapi.ConditionSearchNotFound) {
		t.Fatalf("second confirmation must report the search gone, got %v", err)
	}

	// The cart itself stays readable.
	again, err := s.GetCart(context.Background(), cart.CartID)
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if again.CartID != cart.CartID || len(again.Pax) != len(cart.Pax) {
		t.Fatalf("GetCart = %+v", again)
	}
}

func TestResultsPagingKeepsSearchAlive(t *testing.T) {
	s := New()
	searchID := startSearch(t, s)

	first, err := s.FetchResults(context.Background(), travelapi.ResultsRequest{SearchID: searchID, Page: 1})
	if err != nil {
		t.Fatalf("FetchResults page 1: %v", err)
	}
	if len(first.Groups) == 0 || string(first.Groups) == "[]" {
		t.Fatalf("page 1 groups = %s, want the result set", first.Groups)
	}

	second, err := s.FetchResults(context.Background(), travelapi.ResultsRequest{SearchID: searchID, Page: 2})
	if err != nil {
		t.Fatalf("FetchResults page 2: %v", err)
	}
	if string(second.Groups) != "[]" {
		t.Fatalf("page 2 groups = %s, want empty", second.Groups)
	}

	// Paging must not advance or consume the search.
	if _, err := s.SubmitPicks(context.Background(), travelapi.PicksRequest{
		SearchID: searchID, Step: 1, Picks: json.RawMessage(`{"num":2}`),
	}); err != nil {
		t.Fatalf("SubmitPicks after paging: %v", err)
	}

	_, err = s.FetchResults(context.Background(), travelapi.ResultsRequest{SearchID: "search_dead", Page: 1})
	if !travelapi.IsCondition(err, travelapi.ConditionSearchNotFound) {
		t.Fatalf("unknown search should report not found, got %v", err)
	}
}

func TestRemoveFromCartBySourceSearch(t *testing.T) {
	s := New()
	searchID := startSearch(t, s)
	finalizeSearch(t, s, searchID)
	cart, err := s.ConfirmCart(context.Background(), searchID)
	if err != nil {
		t.Fatalf("ConfirmCart: %v", err)
	}

	if err := s.RemoveFromCart(context.Background(), searchID); err != nil {
		t.Fatalf("RemoveFromCart: %v", err)
	}

	_, err = s.GetCart(context.Background(), cart.CartID)
	if !travelapi.IsCondition(err, travelapi.ConditionNotFound) {
		t.Fatalf("removed cart must be gone, got %v", err)
	}

	err = s.RemoveFromCart(context.Background(), searchID)
	if !travelapi.IsCondition(err, travelapi.ConditionNotFound) {
		t.Fatalf("second removal should report not found, got %v", err)
	}
}

func TestSearchTTLExpiry(t *testing.T) {
	s := New(WithSearchTTL(10 * time.Millisecond))
	searchID := startSearch(t, s)

	time.Sleep(30 * time.Millisecond)

	_, err := s.SubmitPicks(context.Background(), travelapi.PicksRequest{
		SearchID: searchID, Step: 1, Picks: json.RawMessage(`{"num":2}`),
	})
	if !travelapi.IsCondition(err, travelapi.ConditionSearchNotFound) {
		t.Fatalf("expired search must report not found, got %v", err)
	}
}

func TestPlaceReservationRejectsUnknownPax(t *testing.T) {
	s := New()
	searchID := startSearch(t, s)
	finalizeSearch(t, s, searchID)
	cart, err := s.ConfirmCart(context.Background(), searchID)
	if err != nil {
		t.Fatalf("ConfirmCart: %v", err)
	}

	_, err = s.PlaceReservation(context.Background(), cart.CartID, travelapi.PlacementRequest{
		Client: 101,
		Pax:    []travelapi.Pax{{ID: 123456, Enabled: true, Name: "Intruder"}},
	})
	if !travelapi.IsCondition(err, travelapi.ConditionValidation) {
		t.Fatalf("unknown pax id must be rejected, got %v", err)
	}
}

func TestDeliverQuoteFailureInjection(t *testing.T) {
	s := New(WithMissingTemplate("999"), WithDocumentNotReadyCount(1))
	searchID := startSearch(t, s)
	finalizeSearch(t, s, searchID)
	cart, err := s.ConfirmCart(context.Background(), searchID)
	if err != nil {
		t.Fatalf("ConfirmCart: %v", err)
	}
	placed, err := s.PlaceReservation(context.Background(), cart.CartID, travelapi.PlacementRequest{Client: 101, Pax: cart.Pax})
	if err != nil {
		t.Fatalf("PlaceReservation: %v", err)
	}
	resID := "5001"
	if placed.ReservationID != 5001 {
		t.Fatalf("ReservationID = %d", placed.ReservationID)
	}

	_, err = s.DeliverQuote(context.Background(), resID, travelapi.DeliveryRequest{Template: "999", Send: true})
	if !travelapi.IsCondition(err, travelapi.ConditionTemplateNotFound) {
		t.Fatalf("missing template, got %v", err)
	}

	_, err = s.DeliverQuote(context.Background(), resID, travelapi.DeliveryRequest{Template: "2", Send: true})
	if !travelapi.IsCondition(err, travelapi.ConditionDocumentNotReady) {
		t.Fatalf("first good-template attempt should be not-ready, got %v", err)
	}

	resp, err := s.DeliverQuote(context.Background(), resID, travelapi.DeliveryRequest{Template: "2", Send: true})
	if err != nil {
		t.Fatalf("DeliverQuote: %v", err)
	}
	if resp.Status != "sent" || !resp.EmailSent || resp.PDFURL == "" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestConcurrentAttemptsAreIndependent(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := s.StartSearch(context.Background(), searchReq)
			if err != nil {
				t.Errorf("StartSearch: %v", err)
				return
			}
			for step := 1; step <= 2; step++ {
				if _, err := s.SubmitPicks(context.Background(), travelapi.PicksRequest{
					SearchID: resp.SearchID, Step: step, Picks: json.RawMessage(`{"num":2}`),
				}); err != nil {
					t.Errorf("SubmitPicks step %d: %v", step, err)
					return
				}
			}
			cart, err := s.ConfirmCart(context.Background(), resp.SearchID)
			if err != nil {
				t.Errorf("ConfirmCart: %v", err)
				return
			}
			if _, err := s.PlaceReservation(context.Background(), cart.CartID, travelapi.PlacementRequest{Client: 101, Pax: cart.Pax}); err != nil {
				t.Errorf("PlaceReservation: %v", err)
			}
		}()
	}
	wg.Wait()
}
