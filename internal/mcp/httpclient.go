package mcp

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

	"github.com/coachdesk/coachdesk/internal/models"
)

// HTTPClient implements DataSource by calling the coachdesk REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but the
// application instance runs on a server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("httpclient: encode body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("httpclient: %s: %w", path, ErrNotLoggedIn)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) Navigate(ctx context.Context, path string) (*NavigationResult, error) {
	var result NavigationResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/navigate", map[string]string{"path": path}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) Me(ctx context.Context) (*models.Profile, error) {
	var me struct {
		Profile models.Profile `json:"profile"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/me", nil, &me); err != nil {
		return nil, err
	}
	return &me.Profile, nil
}

func (c *HTTPClient) Training(ctx context.Context, trainingID string) (*models.TrainingDetail, error) {
	var detail models.TrainingDetail
	if err := c.do(ctx, http.MethodGet, "/api/v1/trainings/"+url.PathEscape(trainingID), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *HTTPClient) CreateValidation(ctx context.Context, trainingID, taskID string, in models.ValidationInput) (*models.Validation, error) {
	path := fmt.Sprintf("/api/v1/trainings/%s/tasks/%s/validations", url.PathEscape(trainingID), url.PathEscape(taskID))
	var v models.Validation
	if err := c.do(ctx, http.MethodPost, path, in, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *HTTPClient) Groups(ctx context.Context, ownerID string) ([]models.Group, error) {
	var list []models.Group
	if err := c.do(ctx, http.MethodGet, "/api/v1/groups/owner/"+url.PathEscape(ownerID), nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}
