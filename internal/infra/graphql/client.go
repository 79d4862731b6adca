// Package graphql is a thin GraphQL-over-HTTP transport for the annotation
// backend. It only POSTs documents and decodes data or errors.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vietddude/annotator/internal/metrics"
)

// Error is a failure reported by the backend, either as a non-2xx HTTP
// response or as an entry of the GraphQL errors array.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("graphql error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("graphql error %d: %s", e.Status, e.Message)
}

// StatusCode exposes the HTTP-equivalent status for error classification.
func (e *Error) StatusCode() int {
	return e.Status
}

// codeStatus maps well-known extensions.code values to HTTP statuses.
var codeStatus = map[string]int{
	"BAD_USER_INPUT":            http.StatusBadRequest,
	"GRAPHQL_VALIDATION_FAILED": http.StatusBadRequest,
	"GRAPHQL_PARSE_FAILED":      http.StatusBadRequest,
	"UNAUTHENTICATED":           http.StatusUnauthorized,
	"FORBIDDEN":                 http.StatusForbidden,
	"NOT_FOUND":                 http.StatusNotFound,
	"INTERNAL_SERVER_ERROR":     http.StatusInternalServerError,
	"SERVICE_UNAVAILABLE":       http.StatusServiceUnavailable,
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type responseError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code   string `json:"code"`
		Status int    `json:"status"`
	} `json:"extensions"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []responseError `json:"errors"`
}

// Client posts GraphQL documents to one endpoint.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// NewClient creates a client. An empty token sends no Authorization header.
func NewClient(endpoint, token string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		token:    token,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Endpoint returns the configured URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Do executes one document and decodes the data field into out. The
// operation name only labels metrics and errors.
func (c *Client) Do(ctx context.Context, operation, query string, vars map[string]any, out any) error {
	start := time.Now()
	err := c.do(ctx, query, vars, out)
	metrics.GraphQLLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GraphQLRequests.WithLabelValues(operation, "error").Inc()
		return fmt.Errorf("%s: %w", operation, err)
	}
	metrics.GraphQLRequests.WithLabelValues(operation, "success").Inc()
	return nil
}

func (c *Client) do(ctx context.Context, query string, vars map[string]any, out any) error {
	jsonData, err := json.Marshal(request{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var gqlResp response
	decodeErr := json.Unmarshal(body, &gqlResp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		if decodeErr == nil && len(gqlResp.Errors) > 0 {
			msg = gqlResp.Errors[0].Message
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &Error{Status: resp.StatusCode, Message: msg}
	}

	if decodeErr != nil {
		return fmt.Errorf("parse response: %w", decodeErr)
	}

	if len(gqlResp.Errors) > 0 {
		return toError(gqlResp.Errors[0])
	}

	if out == nil || len(gqlResp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(gqlResp.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

func toError(e responseError) *Error {
	status := e.Extensions.Status
	if status == 0 {
		status = codeStatus[e.Extensions.Code]
	}
	return &Error{Status: status, Code: e.Extensions.Code, Message: e.Message}
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
