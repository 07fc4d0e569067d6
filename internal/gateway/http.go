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

	"golang.org/x/time/rate"
)

const maxResponseBytes = 64 << 20

// HTTPClient runs queries through a remote query execution service:
// POST {baseURL}/query with a JSON body and a bearer credential.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPClient) {
		h.client = c
	}
}

// WithRateLimit caps outgoing requests per second. Zero or negative
// disables throttling.
func WithRateLimit(rps float64) HTTPOption {
	return func(h *HTTPClient) {
		if rps > 0 {
			h.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// NewHTTPClient creates a client for the service at baseURL.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, opts ...HTTPOption) *HTTPClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	h := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type queryRequest struct {
	Query          string `json:"query"`
	DatabaseName   string `json:"database_name"`
	ConnectionName string `json:"connection_name,omitempty"`
}

type queryPayload struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

type queryResponse struct {
	queryPayload
	Status  string        `json:"status,omitempty"`
	Message string        `json:"message,omitempty"`
	Data    *queryPayload `json:"data,omitempty"`
}

// Execute implements Client. Each call is a single attempt.
func (h *HTTPClient) Execute(ctx context.Context, query, connection string) (*QueryResult, error) {
	fail := func(status int, err error) error {
		return &Error{Connection: connection, Query: query, StatusCode: status, Cause: err}
	}

	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return nil, fail(0, fmt.Errorf("rate limiter: %w", err))
		}
	}

	body, err := json.Marshal(queryRequest{Query: query, DatabaseName: connection, ConnectionName: connection})
	if err != nil {
		return nil, fail(0, fmt.Errorf("encoding request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/query", bytes.NewReader(body))
	if err != nil {
		return nil, fail(0, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fail(0, fmt.Errorf("sending request: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fail(resp.StatusCode, fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fail(resp.StatusCode, errors.New(msg))
	}

	result, err := decodeResponse(raw)
	if err != nil {
		return nil, fail(0, err)
	}
	return result, nil
}

// Close releases idle connections.
func (h *HTTPClient) Close() error {
	h.client.CloseIdleConnections()
	return nil
}

// decodeResponse accepts both {"columns","rows"} and the wrapped
// {"data":{"columns","rows"}} form. A {"status":"error"} body is a failure.
func decodeResponse(raw []byte) (*QueryResult, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var resp queryResponse
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if strings.EqualFold(resp.Status, "error") {
		msg := resp.Message
		if msg == "" {
			msg = "query service reported an error"
		}
		return nil, errors.New(msg)
	}

	payload := resp.queryPayload
	if resp.Data != nil {
		payload = *resp.Data
	}
	if payload.Columns == nil && payload.Rows == nil {
		return nil, errors.New("malformed response: missing columns and rows")
	}

	result := &QueryResult{Columns: payload.Columns, Rows: make([][]any, 0, len(payload.Rows))}
	for _, row := range payload.Rows {
		for i := range row {
			row[i] = normalizeJSON(row[i])
		}
		result.Rows = append(result.Rows, row)
	}
	return result, nil
}
