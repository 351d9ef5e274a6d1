package travelapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"travel_quote_backend/platform/logger"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, API) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(Config{
		BaseURL:  srv.URL,
		AgencyID: 42,
		APIKey:   "secret",
		Language: "it",
	}, logger.New("development"))
	return srv, client
}

func TestClientAuthenticatesOnceAndSetsHeaders(t *testing.T) {
	var authCalls int64
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth":
			atomic.AddInt64(&authCalls, 1)
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode auth body: %v", err)
			}
			if body["id"].(float64) != 42 || body["key"] != "secret" {
				t.Errorf("unexpected auth payload: %v", body)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"token": "tok-1", "expires_in": 3600})
		case "/booking/search":
			if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
				t.Errorf("Authorization = %q", got)
			}
			if got := r.Header.Get("X-Lang"); got != "it" {
				t.Errorf("X-Lang = %q", got)
			}
			_ = json.NewEncoder(w).Encode(SearchResponse{SearchID: "search_abc", Step: 0})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	for i := 0; i < 3; i++ {
		if _, err := client.StartSearch(context.Background(), SearchRequest{
			Type: "hotel", From: "2026-09-01", To: "2026-09-05",
			Occupancy: []Occupancy{{Adults: 2}},
		}); err != nil {
			t.Fatalf("StartSearch: %v", err)
		}
	}

	if n := atomic.LoadInt64(&authCalls); n != 1 {
		t.Fatalf("auth called %d times, want 1 (token should be cached)", n)
	}
}

func TestClientClassifiesErrorResponses(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth" {
			_ = json.NewEncoder(w).Encode(map[string]any{"token": "tok", "expires_in": 3600})
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "Search not found")
	})

	_, err := client.SubmitPicks(context.Background(), PicksRequest{SearchID: "search_dead", Step: 1})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsCondition(err, ConditionSearchNotFound) {
		t.Fatalf("err = %v, want search-not-found condition", err)
	}
	if Message(err) != "Search not found" {
		t.Fatalf("Message = %q, remote text must be preserved", Message(err))
	}
}

func TestPlaceReservationSendsBareClientNumber(t *testing.T) {
	var placeBody []byte
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth":
			_ = json.NewEncoder(w).Encode(map[string]any{"token": "tok", "expires_in": 3600})
		case "/booking/place/cart_1":
			placeBody, _ = io.ReadAll(r.Body)
			_ = json.NewEncoder(w).Encode(PlacementResponse{ReservationID: 5001})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	resp, err := client.PlaceReservation(context.Background(), "cart_1", PlacementRequest{
		Client: 55,
		Pax:    []Pax{{ID: 9001, Enabled: true, Name: "Mario", Surname: "Rossi"}},
	})
	if err != nil {
		t.Fatalf("PlaceReservation: %v", err)
	}
	if resp.ReservationID != 5001 {
		t.Fatalf("ReservationID = %d", resp.ReservationID)
	}

	if !strings.Contains(string(placeBody), `"client":55`) {
		t.Fatalf("placement body = %s, client must serialize as a bare number", placeBody)
	}
	if strings.Contains(string(placeBody), `"client":{`) {
		t.Fatalf("placement body = %s, client must not be an object", placeBody)
	}
}

func TestGetCartKeepsRawBody(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth":
			_ = json.NewEncoder(w).Encode(map[string]any{"token": "tok", "expires_in": 3600})
		case "/booking/cart/cart_9":
			_, _ = io.WriteString(w, `{"id":"cart_9","pax":[{"id":1,"enabled":true,"name":"TBA","surname":"Guest 1"}],"total":420.0}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	cart, err := client.GetCart(context.Background(), "cart_9")
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if cart.CartID != "cart_9" || len(cart.Pax) != 1 {
		t.Fatalf("cart = %+v", cart)
	}
	if !strings.Contains(string(cart.Raw), `"total":420.0`) {
		t.Fatalf("Raw = %s, full body must be preserved", cart.Raw)
	}
}
