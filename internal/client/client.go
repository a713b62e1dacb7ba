// Package client is a small Go client for the oafund HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/theirongolddev/oafund/internal/fund"
	"github.com/theirongolddev/oafund/internal/model"
	"github.com/theirongolddev/oafund/internal/server"
)

const (
	requestTimeout = 10 * time.Second
	maxBodySize    = 4 << 20
	userAgent      = "oafund-client/1.0"
)

var (
	// ErrUnauthorized indicates a missing, expired or rejected token.
	ErrUnauthorized = errors.New("client: unauthorized")
	// ErrRateLimited indicates the server's public rate limit was hit.
	ErrRateLimited = errors.New("client: rate limited")
	// ErrNotFound indicates the addressed request or file does not exist.
	ErrNotFound = errors.New("client: not found")
)

// APIError is a non-2xx response carrying the server's error message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("client: HTTP %d: %s", e.StatusCode, e.Message)
}

// Client talks to one oafund server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New returns a client for baseURL, e.g. "http://127.0.0.1:8080". A bare
// host:port gets an http:// scheme.
func New(baseURL string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &Client{baseURL: baseURL, http: &http.Client{}}
}

// WithToken returns a copy of c that sends token as a bearer credential.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// Health checks the unauthenticated liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// Login exchanges staff credentials for a token and returns a client
// that uses it.
func (c *Client) Login(ctx context.Context, id, password string) (*Client, time.Time, error) {
	var out struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	in := map[string]string{"id": id, "password": password}
	if err := c.do(ctx, http.MethodPost, "/v1/login", in, &out); err != nil {
		return nil, time.Time{}, err
	}
	return c.WithToken(out.Token), out.ExpiresAt, nil
}

// Submit files a new request. No token is needed.
func (c *Client) Submit(ctx context.Context, in fund.RequestInput) (model.FundingRequest, error) {
	var out model.FundingRequest
	err := c.do(ctx, http.MethodPost, "/v1/requests", in, &out)
	return out, err
}

// Status returns server runtime information.
func (c *Client) Status(ctx context.Context) (server.Status, error) {
	var st server.Status
	err := c.do(ctx, http.MethodGet, "/v1/status", nil, &st)
	return st, err
}

// Summary returns the budget summary.
func (c *Client) Summary(ctx context.Context) (model.BudgetSummary, error) {
	var sum model.BudgetSummary
	err := c.do(ctx, http.MethodGet, "/v1/summary", nil, &sum)
	return sum, err
}

// Requests lists requests, optionally filtered by status.
func (c *Client) Requests(ctx context.Context, status model.Status) ([]model.FundingRequest, error) {
	path := "/v1/requests"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}
	var out []model.FundingRequest
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// Transition applies a review action (approve, deny, pay, plan, cancel).
func (c *Client) Transition(ctx context.Context, timestamp, action string) (model.FundingRequest, error) {
	var out struct {
		Request model.FundingRequest `json:"request"`
	}
	path := "/v1/requests/" + url.PathEscape(timestamp) + "/" + url.PathEscape(action)
	err := c.do(ctx, http.MethodPut, path, nil, &out)
	return out.Request, err
}

// do sends in as JSON (when non-nil) and decodes the response into out
// (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("client: creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("client: reading response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusNotFound:
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("client: parsing response: %w", err)
	}
	return nil
}

// errorMessage pulls the message out of an {"error": "..."} body, falling
// back to the raw text.
func errorMessage(data []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(data))
}
