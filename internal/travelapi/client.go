package travelapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"travel_quote_backend/platform/logger"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Config configures the booking API client.
type Config struct {
	BaseURL  string
	AgencyID int64
	APIKey   string
	Language string
	Timeout  time.Duration
	// RateLimit caps outbound requests per second. Zero disables limiting.
	RateLimit float64
}

// restClient is the authenticated HTTP client for the remote booking
// service. The bearer token is process-scoped state with an explicit
// refresh path; concurrent refreshes are collapsed through singleflight.
type restClient struct {
	baseURL    string
	agencyID   int64
	apiKey     string
	language   string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Logger

	tokens  tokenState
	refresh singleflight.Group
}

var _ API = (*restClient)(nil)

// NewClient creates a new booking API client.
func NewClient(cfg Config, log *logger.Logger) API {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return &restClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		agencyID:   cfg.AgencyID,
		apiKey:     cfg.APIKey,
		language:   cfg.Language,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		log:        log,
	}
}

// StartSearch runs a new booking search (protocol step 0).
func (c *restClient) StartSearch(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	var resp SearchResponse
	_, err := c.do(ctx, http.MethodPost, "/booking/search", nil, req, &resp)
	c.log.RemoteCall("booking.search", http.MethodPost, "/booking/search", err)
	return resp, err
}

// FetchResults retrieves a further page of an active search's option
// groups. It never advances the protocol step.
func (c *restClient) FetchResults(ctx context.Context, req ResultsRequest) (SearchResponse, error) {
	var resp SearchResponse
	_, err := c.do(ctx, http.MethodPost, "/booking/results", nil, req, &resp)
	c.log.RemoteCall("booking.results", http.MethodPost, "/booking/results", err)
	return resp, err
}

// SubmitPicks submits a selection for one protocol step.
func (c *restClient) SubmitPicks(ctx context.Context, req PicksRequest) (SearchResponse, error) {
	var resp SearchResponse
	_, err := c.do(ctx, http.MethodPost, "/booking/picks", nil, req, &resp)
	c.log.RemoteCall("booking.picks", http.MethodPost, "/booking/picks", err)
	return resp, err
}

// ConfirmCart confirms a finalized search into a durable cart.
func (c *restClient) ConfirmCart(ctx context.Context, searchID string) (CartResponse, error) {
	var resp CartResponse
	body := map[string]string{"search_id": searchID}
	raw, err := c.do(ctx, http.MethodPut, "/booking/cart", nil, body, &resp)
	c.log.RemoteCall("booking.cart_add", http.MethodPut, "/booking/cart", err)
	if err != nil {
		return CartResponse{}, err
	}
	resp.Raw = raw
	return resp, nil
}

// GetCart fetches a cart by id. Idempotent and side-effect free.
func (c *restClient) GetCart(ctx context.Context, cartID string) (CartResponse, error) {
	var resp CartResponse
	path := "/booking/cart/" + url.PathEscape(cartID)
	raw, err := c.do(ctx, http.MethodGet, path, nil, nil, &resp)
	c.log.RemoteCall("booking.cart_get", http.MethodGet, path, err)
	if err != nil {
		return CartResponse{}, err
	}
	resp.Raw = raw
	return resp, nil
}

// RemoveFromCart removes the cart item that a search's confirmation
// created. The remote keys removal by the source search id.
func (c *restClient) RemoveFromCart(ctx context.Context, searchID string) error {
	body := map[string]string{"search_id": searchID}
	_, err := c.do(ctx, http.MethodDelete, "/booking/cart", nil, body, nil)
	c.log.RemoteCall("booking.cart_remove", http.MethodDelete, "/booking/cart", err)
	return err
}

// PlaceReservation finalizes a cart into a reservation.
func (c *restClient) PlaceReservation(ctx context.Context, cartID string, req PlacementRequest) (PlacementResponse, error) {
	var resp PlacementResponse
	path := "/booking/place/" + url.PathEscape(cartID)
	_, err := c.do(ctx, http.MethodPost, path, nil, req, &resp)
	c.log.RemoteCall("quote.place", http.MethodPost, path, err)
	return resp, err
}

// DeliverQuote triggers quote PDF generation and email delivery.
func (c *restClient) DeliverQuote(ctx context.Context, reservationID string, req DeliveryRequest) (DeliveryResponse, error) {
	var resp DeliveryResponse
	path := "/tools/print/reservation/" + url.PathEscape(reservationID)
	_, err := c.do(ctx, http.MethodPost, path, nil, req, &resp)
	c.log.RemoteCall("quote.send", http.MethodPost, path, err)
	return resp, err
}

// SearchClients searches master-data clients with remote-side filters.
func (c *restClient) SearchClients(ctx context.Context, q ClientQuery) (ClientPage, error) {
	params := url.Values{}
	if q.Page > 0 {
		params.Set("page", fmt.Sprintf("%d", q.Page))
	}
	if q.PerPage > 0 {
		params.Set("per_page", fmt.Sprintf("%d", q.PerPage))
	}
	if len(q.Filters) > 0 {
		filters, err := json.Marshal(q.Filters)
		if err != nil {
			return ClientPage{}, fmt.Errorf("marshal client filters: %w", err)
		}
		params.Set("filters", string(filters))
	}

	var resp ClientPage
	_, err := c.do(ctx, http.MethodGet, "/rest/master-data", params, nil, &resp)
	c.log.RemoteCall("crm.search", http.MethodGet, "/rest/master-data", err)
	return resp, err
}

// GetClient retrieves a master-data client by id.
func (c *restClient) GetClient(ctx context.Context, id int64) (Client, error) {
	var resp Client
	path := fmt.Sprintf("/rest/master-data/%d", id)
	_, err := c.do(ctx, http.MethodGet, path, nil, nil, &resp)
	c.log.RemoteCall("crm.get", http.MethodGet, path, err)
	return resp, err
}

// CreateClient creates a master-data client.
func (c *restClient) CreateClient(ctx context.Context, client Client) (Client, error) {
	var resp Client
	body := map[string]Client{"data": client}
	_, err := c.do(ctx, http.MethodPost, "/rest/master-data", nil, body, &resp)
	c.log.RemoteCall("crm.create", http.MethodPost, "/rest/master-data", err)
	return resp, err
}

// UpdateClient updates an existing master-data client.
func (c *restClient) UpdateClient(ctx context.Context, id int64, client Client) (Client, error) {
	var resp Client
	path := fmt.Sprintf("/rest/master-data/%d", id)
	body := map[string]Client{"data": client}
	_, err := c.do(ctx, http.MethodPut, path, nil, body, &resp)
	c.log.RemoteCall("crm.update", http.MethodPut, path, err)
	return resp, err
}

// do performs one authorized request. It returns the raw response body so
// callers that need the opaque payload can keep it.
func (c *restClient) do(ctx context.Context, method, path string, params url.Values, body, out any) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s %s request: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	request, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("create %s %s request: %w", method, path, err)
	}
	request.Header.Set("Authorization", "Bearer "+token)
	request.Header.Set("Content-Type", "application/json")
	if c.language != "" {
		request.Header.Set("X-Lang", c.language)
	}

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s %s response: %w", method, path, err)
	}

	if resp.StatusCode >= 400 {
		return nil, Classify(resp.StatusCode, string(raw))
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, fmt.Errorf("decode %s %s response: %w", method, path, err)
		}
	}

	return raw, nil
}
