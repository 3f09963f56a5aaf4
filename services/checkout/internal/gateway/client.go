package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrSessionRejected = errors.New("checkout session rejected")

type SessionRequest struct {
	OrderIDs      []uuid.UUID `json:"order_ids"`
	Amount        int64       `json:"amount"`
	Currency      string      `json:"currency"`
	CustomerEmail string      `json:"customer_email"`
	// Reference is sent as the gateway idempotency key so retries of the same
	// order set do not open duplicate sessions.
	Reference string `json:"reference"`
}

type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Client talks to the hosted payment page provider.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (c *Client) CreateCheckoutSession(ctx context.Context, in SessionRequest) (*Session, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if in.Reference != "" {
		req.Header.Set("Idempotency-Key", in.Reference)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrSessionRejected, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var s Session
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if s.URL == "" {
		return nil, fmt.Errorf("%w: empty session url", ErrSessionRejected)
	}
	return &s, nil
}
