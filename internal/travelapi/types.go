// Package travelapi defines the surface of the remote booking service:
// wire payload types, error classification, and the authenticated HTTP
// client. The booking and crm modules depend only on the API interface so
// the conformance mock in mockapi can stand in for the live service.
package travelapi

import (
	"context"
	"encoding/json"
)

// API is the remote booking service surface consumed by domain modules.
// NewClient builds the live HTTP implementation; mockapi.Server
// implements it in-memory with identical semantics.
type API interface {
	StartSearch(ctx context.Context, req SearchRequest) (SearchResponse, error)
	FetchResults(ctx context.Context, req ResultsRequest) (SearchResponse, error)
	SubmitPicks(ctx context.Context, req PicksRequest) (SearchResponse, error)
	ConfirmCart(ctx context.Context, searchID string) (CartResponse, error)
	GetCart(ctx context.Context, cartID string) (CartResponse, error)
	RemoveFromCart(ctx context.Context, searchID string) error
	PlaceReservation(ctx context.Context, cartID string, req PlacementRequest) (PlacementResponse, error)
	DeliverQuote(ctx context.Context, reservationID string, req DeliveryRequest) (DeliveryResponse, error)

	SearchClients(ctx context.Context, q ClientQuery) (ClientPage, error)
	GetClient(ctx context.Context, id int64) (Client, error)
	CreateClient(ctx context.Context, c Client) (Client, error)
	UpdateClient(ctx context.Context, id int64, c Client) (Client, error)
}

// Occupancy describes one room's occupancy in a search request.
type Occupancy struct {
	Adults   int   `json:"adults"`
	Children []int `json:"children,omitempty"`
}

// SearchRequest starts a new booking search (protocol step 0).
type SearchRequest struct {
	Type          string      `json:"type"`
	From          string      `json:"from"`
	To            string      `json:"to"`
	Geo           []int64     `json:"geo,omitempty"`
	IDs           []string    `json:"ids,omitempty"`
	Codes         []string    `json:"codes,omitempty"`
	Occupancy     []Occupancy `json:"occupancy"`
	PerPage       int         `json:"per_page,omitempty"`
	ClientCountry string      `json:"client_country,omitempty"`
}

// SearchResponse is returned by both the search and picks endpoints. The
// search id is transient: it is only valid until cart confirmation or an
// undocumented server-side expiry. Groups is the supplier payload and is
// passed through opaque.
type SearchResponse struct {
	SearchID string          `json:"search_id"`
	Step     int             `json:"step"`
	Final    bool            `json:"final"`
	PickType string          `json:"pick_type,omitempty"`
	Groups   json.RawMessage `json:"groups,omitempty"`
}

// ResultsRequest pages through the option groups of an active search.
// Filters and SortBy are supplier expressions passed through opaque,
// like Groups on the way back. Paging never advances the step.
type ResultsRequest struct {
	SearchID string          `json:"search_id"`
	Page     int             `json:"page"`
	PerPage  int             `json:"per_page,omitempty"`
	Filters  json.RawMessage `json:"filters,omitempty"`
	SortBy   json.RawMessage `json:"sort_by,omitempty"`
}

// PicksRequest submits a selection for one protocol step (1 or 2).
type PicksRequest struct {
	SearchID string          `json:"search_id"`
	Step     int             `json:"step"`
	Picks    json.RawMessage `json:"picks,omitempty"`
}

// Pax is a traveler record attached to a cart. The id is assigned by the
// remote service when the cart is created and must never be changed.
type Pax struct {
	ID      int64  `json:"id"`
	Enabled bool   `json:"enabled"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// CartResponse is the durable cart created from a finalized search.
type CartResponse struct {
	CartID string `json:"id"`
	Pax    []Pax  `json:"pax"`
	// Raw holds the full response body for passthrough display.
	Raw json.RawMessage `json:"-"`
}

// PlacementRequest finalizes a cart into a reservation (quote).
//
// Client is the resolved master-data client id and must serialize as a
// bare number: the remote API rejects the nested {"id": n} form.
type PlacementRequest struct {
	Client      int64  `json:"client,omitempty"`
	Pax         []Pax  `json:"pax"`
	Status      int    `json:"status"`
	Due         string `json:"due,omitempty"`
	Reference   string `json:"reference,omitempty"`
	Description string `json:"description,omitempty"`
}

// PlacementResponse carries the reservation id assigned by the remote.
type PlacementResponse struct {
	ReservationID int64 `json:"id"`
}

// DeliveryRequest triggers quote PDF generation and optional email send.
type DeliveryRequest struct {
	Template string `json:"template"`
	Send     bool   `json:"send"`
	Archive  bool   `json:"archive,omitempty"`
}

// DeliveryResponse reports the delivery outcome.
type DeliveryResponse struct {
	Status    string `json:"status"`
	PDFURL    string `json:"pdf_url,omitempty"`
	EmailSent bool   `json:"email_sent,omitempty"`
}

// ClientContact groups contact channels on a master-data client.
type ClientContact struct {
	Name  string   `json:"name,omitempty"`
	Email []string `json:"email"`
	Phone []string `json:"phone"`
}

// Client is a master-data (CRM) client record.
type Client struct {
	ID          int64           `json:"id,omitempty"`
	Name        string          `json:"name"`
	Surname     string          `json:"surname,omitempty"`
	Profiles    []string        `json:"profiles,omitempty"`
	ProfileType string          `json:"profile_type,omitempty"`
	Language    string          `json:"language,omitempty"`
	Contacts    []ClientContact `json:"contacts,omitempty"`
}

// ClientFilter is one remote-side filter expression.
type ClientFilter struct {
	Field    string `json:"field"`
	Operator string `json:"operator,omitempty"`
	Value    string `json:"value"`
}

// ClientQuery selects master-data clients.
type ClientQuery struct {
	Filters []ClientFilter
	Page    int
	PerPage int
}

// ClientPage is one page of master-data search results.
type ClientPage struct {
	Items   []Client `json:"items"`
	Total   int      `json:"total"`
	Page    int      `json:"page"`
	PerPage int      `json:"per_page"`
}
