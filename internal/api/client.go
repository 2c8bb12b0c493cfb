// Package api - HTTP client for the timeline backend
// The backend is an opaque collaborator: records arrive already
// hash-chained and verified server-side.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"timelinehub/pkg/models"
	"timelinehub/pkg/utils"
)

// Client handles HTTP API communication
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// doRequest performs an HTTP request with common handling
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if utils.IsContextError(err) {
			return nil, fmt.Errorf("request timed out: %w", err)
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}

	return resp, nil
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// decodeAPIResponse decodes the APIResponse envelope and unmarshals the data field into target
func decodeAPIResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return models.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if !apiResp.Success {
		if apiResp.Error != "" {
			return fmt.Errorf("%s", apiResp.Error)
		}
		return fmt.Errorf("request failed")
	}

	if target != nil && len(apiResp.Data) > 0 {
		if err := json.Unmarshal(apiResp.Data, target); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}

	return nil
}

// ListAllEvents is the paged-free bulk read used by feed fetches.
// Filter criteria are passed through as query hints; the client still
// applies them locally, so a backend that ignores them is harmless.
func (c *Client) ListAllEvents(ctx context.Context, filter *models.FilterCriteria) ([]models.TimelineEvent, error) {
	path := "/api/events"
	if q := filterQuery(filter); q != "" {
		path += "?" + q
	}

	resp, err := c.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	var list models.EventListResponse
	if err := decodeAPIResponse(resp, &list); err != nil {
		return nil, err
	}
	return list.Events, nil
}

// GetEvent retrieves a single timeline event
func (c *Client) GetEvent(ctx context.Context, id string) (*models.TimelineEvent, error) {
	resp, err := c.doRequest(ctx, "GET", "/api/events/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var event models.TimelineEvent
	if err := decodeAPIResponse(resp, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// VerifyEvent asks the backend for its hash-chain verdict on an event.
// The verification algorithm itself lives server-side.
func (c *Client) VerifyEvent(ctx context.Context, id string) (*models.VerifyResponse, error) {
	resp, err := c.doRequest(ctx, "GET", "/api/events/"+url.PathEscape(id)+"/verify", nil)
	if err != nil {
		return nil, err
	}

	var verdict models.VerifyResponse
	if err := decodeAPIResponse(resp, &verdict); err != nil {
		return nil, err
	}
	return &verdict, nil
}

func filterQuery(filter *models.FilterCriteria) string {
	if filter == nil || filter.IsEmpty() {
		return ""
	}
	q := url.Values{}
	for _, a := range filter.Actions {
		q.Add("action", a)
	}
	for _, rt := range filter.ResourceTypes {
		q.Add("resource_type", rt)
	}
	if filter.UserID != "" {
		q.Set("user_id", filter.UserID)
	}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}
	if filter.DateFrom != nil {
		q.Set("from", filter.DateFrom.Format(time.RFC3339))
	}
	if filter.DateTo != nil {
		q.Set("to", filter.DateTo.Format(time.RFC3339))
	}
	return q.Encode()
}
