// Package mockapi is an in-memory stand-in for the remote booking
// service. It reproduces the live service's state machine and quirks
// deterministically: strict step ordering, transient search ids that die
// on cart confirmation (or a configurable TTL), placeholder pax with
// synthetic remote ids, rejection of nested client objects, and
// injectable "Template not found" / "No document found" failures.
package mockapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"travel_quote_backend/internal/travelapi"

	"github.com/google/uuid"
)

const (
	msgSearchNotFound   = "Search not found"
	msgTemplateNotFound = "Template not found"
	msgDocumentNotReady = "No document found"

	// finalStep is the last pick step; submitting it finalizes a search.
	finalStep = 2
)

// Option configures a Server.
type Option func(*Server)

// WithSearchTTL expires searches that sit unconfirmed for longer than d.
func WithSearchTTL(d time.Duration) Option {
	return func(s *Server) { s.searchTTL = d }
}

// WithMissingTemplate makes delivery fail with "Template not found" for
// the given template ids.
func WithMissingTemplate(ids ...string) Option {
	return func(s *Server) {
		for _, id := range ids {
			s.missingTemplates[id] = true
		}
	}
}

// WithDocumentNotReadyCount makes the first n delivery attempts fail with
// "No document found" before delivery starts succeeding.
func WithDocumentNotReadyCount(n int) Option {
	return func(s *Server) { s.notReadyRemaining = n }
}

type searchState struct {
	id       string
	step     int
	final    bool
	created  time.Time
	criteria travelapi.SearchRequest
	groups   json.RawMessage
}

type cartState struct {
	id string
	// sourceSearch is the search id whose confirmation created the cart
	// item; cart removal is keyed by it, not by the cart id.
	sourceSearch string
	pax          []travelapi.Pax
}

// Reservation is a placed reservation as the mock recorded it, exposed
// for test assertions.
type Reservation struct {
	ID     int64
	CartID string
	Client int64
	Pax    []travelapi.Pax
	Status int
	Due    string
}

// Server implements travelapi.API in memory. All state is guarded by one
// mutex so independent attempts may run concurrently.
type Server struct {
	mu                sync.Mutex
	searches          map[string]*searchState
	carts             map[string]*cartState
	reservations      map[int64]Reservation
	clients           []travelapi.Client
	nextClientID      int64
	nextPaxID         int64
	nextReservationID int64
	searchTTL         time.Duration
	missingTemplates  map[string]bool
	notReadyRemaining int
}

// New creates a mock booking service seeded with two CRM clients.
func New(opts ...Option) *Server {
	s := &Server{
		searches:          make(map[string]*searchState),
		carts:             make(map[string]*cartState),
		reservations:      make(map[int64]Reservation),
		missingTemplates:  make(map[string]bool),
		nextClientID:      103,
		nextPaxID:         9000,
		nextReservationID: 5000,
		clients: []travelapi.Client{
			{
				ID: 101, Name: "Alice", Surname: "Example",
				Profiles: []string{"customer"}, ProfileType: "private", Language: "en",
				Contacts: []travelapi.ClientContact{{
					Name: "Primary", Email: []string{"alice@example.com"}, Phone: []string{"+390000000001"},
				}},
			},
			{
				ID: 102, Name: "Bob", Surname: "Sample",
				Profiles: []string{"customer"}, ProfileType: "private", Language: "en",
				Contacts: []travelapi.ClientContact{{
					Name: "Primary", Email: []string{"bob@example.com"}, Phone: []string{"+390000000002"},
				}},
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ travelapi.API = (*Server)(nil)

// StartSearch begins a new search session with canned result groups.
func (s *Server) StartSearch(_ context.Context, req travelapi.SearchRequest) (travelapi.SearchResponse, error) {
	if req.Type == "" || req.From == "" || req.To == "" {
		return travelapi.SearchResponse{}, reject(http.StatusBadRequest, "Validation error: type, from and to are required")
	}
	if len(req.Occupancy) == 0 {
		return travelapi.SearchResponse{}, reject(http.StatusBadRequest, "Validation error: occupancy is required")
	}

	groups, _ := json.Marshal([]map[string]any{{
		"group":     0,
		"type":      "pick",
		"pick_type": "one",
		"items": []map[string]any{{
			"idx":      0,
			"title":    fmt.Sprintf("Mock Resort (%s)", req.Type),
			"price":    420.0,
			"currency": "EUR",
			"supplier": "Mock Supplier",
			"board":    "BB",
			"dates":    []map[string]any{{"idx": 0, "from": req.From, "to": req.To}},
		}},
	}})

	st := &searchState{
		id:       "search_" + shortID(),
		step:     0,
		created:  time.Now(),
		criteria: req,
		groups:   groups,
	}

	s.mu.Lock()
	s.searches[st.id] = st
	s.mu.Unlock()

	return travelapi.SearchResponse{
		SearchID: st.id,
		Step:     0,
		Final:    false,
		PickType: "one",
		Groups:   groups,
	}, nil
}

// FetchResults returns a page of the search's option groups. The canned
// result set fits on one page; later pages are empty. Paging leaves the
// search untouched.
func (s *Server) FetchResults(_ context.Context, req travelapi.ResultsRequest) (travelapi.SearchResponse, error) {
	if req.Page < 1 {
		return travelapi.SearchResponse{}, reject(http.StatusBadRequest, "Validation error: page must be at least 1")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.lookupSearch(req.SearchID)
	if err != nil {
		return travelapi.SearchResponse{}, err
	}

	groups := st.groups
	if req.Page > 1 {
		groups = json.RawMessage(`[]`)
	}

	return travelapi.SearchResponse{
		SearchID: st.id,
		Step:     st.step,
		Final:    st.final,
		PickType: "one",
		Groups:   groups,
	}, nil
}

// SubmitPicks advances a search by one step, enforcing strict ordering
// exactly like the live service does.
func (s *Server) SubmitPicks(_ context.Context, req travelapi.PicksRequest) (travelapi.SearchResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.lookupSearch(req.SearchID)
	if err != nil {
		return travelapi.SearchResponse{}, err
	}

	expected := st.step + 1
	if req.Step != expected {
		return travelapi.SearchResponse{}, reject(http.StatusBadRequest,
			fmt.Sprintf("Validation error: step %d submitted, step %d expected", req.Step, expected))
	}
	if req.Step < finalStep {
		if err := validateRoomPick(req.Picks); err != nil {
			return travelapi.SearchResponse{}, err
		}
	}

	st.step = req.Step
	st.final = req.Step == finalStep

	return travelapi.SearchResponse{
		SearchID: st.id,
		Step:     st.step,
		Final:    st.final,
		PickType: "one",
		Groups:   st.groups,
	}, nil
}

// ConfirmCart consumes a finalized search and returns a cart with
// placeholder pax carrying synthetic remote ids. The search id is dead
// afterwards: confirming it again yields "Search not found".
func (s *Server) ConfirmCart(_ context.Context, searchID string) (travelapi.CartResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.lookupSearch(searchID)
	if err != nil {
		return travelapi.CartResponse{}, err
	}
	if !st.final {
		return travelapi.CartResponse{}, reject(http.StatusBadRequest, "Validation error: search is not finalized")
	}

	adults := 0
	for _, occ := range st.criteria.Occupancy {
		adults += occ.Adults
	}
	if adults == 0 {
		adults = 2
	}

	cart := &cartState{id: "cart_" + shortID(), sourceSearch: searchID}
	for i := 0; i < adults; i++ {
		s.nextPaxID++
		cart.pax = append(cart.pax, travelapi.Pax{
			ID:      s.nextPaxID,
			Enabled: true,
			Name:    "TBA",
			Surname: fmt.Sprintf("Guest %d", i+1),
		})
	}
	s.carts[cart.id] = cart

	// Transient ids have a single confirmation in them.
	delete(s.searches, searchID)

	return s.cartResponse(cart), nil
}

// GetCart returns a cart by id. Idempotent and side-effect free.
func (s *Server) GetCart(_ context.Context, cartID string) (travelapi.CartResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[cartID]
	if !ok {
		return travelapi.CartResponse{}, reject(http.StatusNotFound, "Cart not found")
	}
	return s.cartResponse(cart), nil
}

// RemoveFromCart deletes the cart item created from the given search.
func (s *Server) RemoveFromCart(_ context.Context, searchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, cart := range s.carts {
		if cart.sourceSearch == searchID {
			delete(s.carts, id)
			return nil
		}
	}
	return reject(http.StatusNotFound, "Cart item not found")
}

// PlaceReservation validates the placement payload at the wire level: the
// request is round-tripped through JSON so structural quirks (a nested
// client object, unknown pax ids) are caught the way the live service
// catches them.
func (s *Server) PlaceReservation(_ context.Context, cartID string, req travelapi.PlacementRequest) (travelapi.PlacementResponse, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return travelapi.PlacementResponse{}, fmt.Errorf("marshal placement request: %w", err)
	}

	var wire map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wire); err != nil {
		return travelapi.PlacementResponse{}, fmt.Errorf("decode placement request: %w", err)
	}
	if clientRaw, ok := wire["client"]; ok {
		trimmed := strings.TrimSpace(string(clientRaw))
		if strings.HasPrefix(trimmed, "{") {
			return travelapi.PlacementResponse{}, reject(http.StatusBadRequest,
				"Validation error: client must be a numeric id, object given")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[cartID]
	if !ok {
		return travelapi.PlacementResponse{}, reject(http.StatusNotFound, "Cart not found")
	}

	known := make(map[int64]bool, len(cart.pax))
	for _, p := range cart.pax {
		known[p.ID] = true
	}
	for _, p := range req.Pax {
		if !known[p.ID] {
			return travelapi.PlacementResponse{}, reject(http.StatusBadRequest,
				fmt.Sprintf("Validation error: unknown pax id %d for cart %s", p.ID, cartID))
		}
	}

	s.nextReservationID++
	res := Reservation{
		ID:     s.nextReservationID,
		CartID: cartID,
		Client: req.Client,
		Pax:    append([]travelapi.Pax(nil), req.Pax...),
		Status: req.Status,
		Due:    req.Due,
	}
	s.reservations[res.ID] = res

	return travelapi.PlacementResponse{ReservationID: res.ID}, nil
}

// DeliverQuote generates the quote document, honoring the injected
// template and not-ready failure configuration.
func (s *Server) DeliverQuote(_ context.Context, reservationID string, req travelapi.DeliveryRequest) (travelapi.DeliveryResponse, error) {
	id, err := strconv.ParseInt(reservationID, 10, 64)
	if err != nil {
		return travelapi.DeliveryResponse{}, reject(http.StatusBadRequest, "Validation error: reservation id must be numeric")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reservations[id]; !ok {
		return travelapi.DeliveryResponse{}, reject(http.StatusNotFound, "Reservation not found")
	}
	if s.missingTemplates[req.Template] {
		return travelapi.DeliveryResponse{}, reject(http.StatusNotFound, msgTemplateNotFound)
	}
	if s.notReadyRemaining > 0 {
		s.notReadyRemaining--
		return travelapi.DeliveryResponse{}, reject(http.StatusNotFound, msgDocumentNotReady)
	}

	return travelapi.DeliveryResponse{
		Status:    "sent",
		PDFURL:    fmt.Sprintf("https://cdn.example.com/quotes/%d.pdf", id),
		EmailSent: req.Send,
	}, nil
}

// Reservation returns a placed reservation for test assertions.
func (s *Server) Reservation(reservationID string) (Reservation, bool) {
	id, err := strconv.ParseInt(reservationID, 10, 64)
	if err != nil {
		return Reservation{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.reservations[id]
	return res, ok
}

func (s *Server) lookupSearch(searchID string) (*searchState, error) {
	st, ok := s.searches[searchID]
	if ok && s.searchTTL > 0 && time.Since(st.created) > s.searchTTL {
		delete(s.searches, searchID)
		ok = false
	}
	if !ok {
		return nil, reject(http.StatusNotFound, msgSearchNotFound)
	}
	return st, nil
}

func (s *Server) cartResponse(cart *cartState) travelapi.CartResponse {
	resp := travelapi.CartResponse{
		CartID: cart.id,
		Pax:    append([]travelapi.Pax(nil), cart.pax...),
	}
	resp.Raw, _ = json.Marshal(map[string]any{"id": cart.id, "pax": resp.Pax})
	return resp
}

// validateRoomPick requires a non-empty selection carrying a positive
// occupancy count, mirroring the live picks endpoint.
func validateRoomPick(picks json.RawMessage) error {
	if len(picks) == 0 {
		return reject(http.StatusBadRequest, "Validation error: picks are required for this step")
	}
	var selection struct {
		Num int `json:"num"`
	}
	if err := json.Unmarshal(picks, &selection); err != nil {
		return reject(http.StatusBadRequest, "Validation error: malformed picks payload")
	}
	if selection.Num < 1 {
		return reject(http.StatusBadRequest, "Validation error: num must be at least 1")
	}
	return nil
}

func reject(status int, message string) *travelapi.APIError {
	return travelapi.Classify(status, message)
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
