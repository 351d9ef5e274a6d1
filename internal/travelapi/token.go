package travelapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// tokenState holds the cached bearer token. It is process-scoped state
// with an explicit refresh path rather than an ambient global.
type tokenState struct {
	mu     sync.Mutex
	token  string
	expiry time.Time
}

func (t *tokenState) current() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.token == "" || !time.Now().Before(t.expiry) {
		return "", false
	}
	return t.token, true
}

func (t *tokenState) store(token string, expiresIn int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.token = token
	// Refresh at 90% of the advertised lifetime to avoid using a token
	// that expires mid-request.
	t.expiry = time.Now().Add(time.Duration(float64(expiresIn)*0.9) * time.Second)
}

// token returns a valid bearer token, authenticating if the cached one is
// missing or expired. Concurrent refreshes collapse into one request.
func (c *restClient) token(ctx context.Context) (string, error) {
	if tok, ok := c.tokens.current(); ok {
		return tok, nil
	}

	v, err, _ := c.refresh.Do("auth", func() (any, error) {
		if tok, ok := c.tokens.current(); ok {
			return tok, nil
		}
		return c.authenticate(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// authenticate retrieves a bearer token using the agency id/key pair.
func (c *restClient) authenticate(ctx context.Context) (string, error) {
	payload, err := json.Marshal(map[string]any{"id": c.agencyID, "key": c.apiKey})
	if err != nil {
		return "", fmt.Errorf("marshal auth request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create auth request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	c.log.Info("requesting booking api auth token")
	resp, err := c.httpClient.Do(request)
	if err != nil {
		return "", fmt.Errorf("auth request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read auth response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", Classify(resp.StatusCode, string(raw))
	}

	var body struct {
		Token     string `json:"token"`
		ExpiresIn int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", fmt.Errorf("decode auth response: %w", err)
	}
	if body.Token == "" {
		return "", fmt.Errorf("auth response missing token")
	}
	if body.ExpiresIn == 0 {
		body.ExpiresIn = 3600
	}

	c.tokens.store(body.Token, body.ExpiresIn)
	return body.Token, nil
}
