// Package backend is the HTTP client for the coaching platform REST API.
package backend

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

	"github.com/coachdesk/coachdesk/internal/credentials"
)

// DefaultTimeout matches the request timeout of the web frontend.
const DefaultTimeout = 5 * time.Second

// Error is returned for every failed request. Status is 0 when the request
// never produced a response (network failure, timeout).
type Error struct {
	Method string
	Path   string
	Status int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("backend: %s %s: %v", e.Method, e.Path, e.Err)
	}
	if e.Detail != "" {
		return fmt.Sprintf("backend: %s %s returned %d: %s", e.Method, e.Path, e.Status, e.Detail)
	}
	return fmt.Sprintf("backend: %s %s returned %d", e.Method, e.Path, e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

// StatusOf returns the HTTP status carried by err, or 0 when err is not a
// backend response error.
func StatusOf(err error) int {
	var be *Error
	if errors.As(err, &be) {
		return be.Status
	}
	return 0
}

// DetailOf returns the server-provided detail message carried by err, if any.
func DetailOf(err error) string {
	var be *Error
	if errors.As(err, &be) {
		return be.Detail
	}
	return ""
}

// Client calls the coaching API. When a token is stored in the credential
// store it is sent as a bearer token on every request.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      credentials.Store
}

// NewClient creates a Client targeting baseURL. A zero timeout uses DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, creds credentials.Store) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		creds:      creds,
	}
}

// Get decodes the JSON response of GET path into out (which may be nil).
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post sends body as JSON and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Patch sends body as JSON and decodes the response into out.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPatch, path, body, out)
}

// Delete issues DELETE path and discards the response body.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("backend: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.creds != nil {
		if token, ok, _ := c.creds.Get(credentials.TokenKey); ok && token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Method: method, Path: path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Method: method, Path: path, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{
			Method: method,
			Path:   path,
			Status: resp.StatusCode,
			Detail: errorDetail(data),
			Err:    fmt.Errorf("status %d", resp.StatusCode),
		}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("backend: decode %s: %w", path, err)
	}
	return nil
}

// errorDetail extracts the "detail" or "message" field of an error body.
// Structured validation details (lists) are ignored.
func errorDetail(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	var detail string
	if len(payload.Detail) > 0 && json.Unmarshal(payload.Detail, &detail) == nil && detail != "" {
		return detail
	}
	return payload.Message
}
