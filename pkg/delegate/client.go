// Package delegate calls a remote backend turn endpoint on behalf of the executor.
package delegate

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

	"github.com/dukex/chatflow/pkg/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const DefaultTimeout = 60 * time.Second

var ErrUnexpectedStatus = errors.New("unexpected delegate response status")

// StatusError carries a non-2xx response from the turn endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("delegate returned status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// Client posts turn requests as JSON to a backend turn endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	headers    map[string]string
}

type Option func(*Client)

// WithHTTPClient replaces the default client with its DefaultTimeout.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		if c != nil {
			client.httpClient = c
		}
	}
}

// WithHeader adds a header to every request, e.g. an API key.
func WithHeader(key, value string) Option {
	return func(client *Client) {
		client.headers[key] = value
	}
}

// NewClient targets endpoint, the full URL of the turn route (for example
// http://localhost:8000/chat).
func NewClient(endpoint string, opts ...Option) *Client {
	client := &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		headers:    map[string]string{},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

func (c *Client) RunBackendStep(ctx context.Context, req models.TurnRequest) (models.TurnResponse, error) {
	var response models.TurnResponse

	body, err := json.Marshal(req)
	if err != nil {
		return response, fmt.Errorf("failed to encode turn request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return response, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	for key, value := range c.headers {
		httpReq.Header.Set(key, value)
	}

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return response, fmt.Errorf("request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return response, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return response, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, &response); err != nil {
		return response, fmt.Errorf("failed to decode turn response: %w", err)
	}

	return response, nil
}
