// Package smartlead syncs campaign activity from the Smartlead API
// into the shared ingestion pipeline.
package smartlead

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ignite/outreach-sync/internal/pkg/httpretry"
)

// Client is the Smartlead API client. Smartlead authenticates with an
// api_key query parameter on every request.
type Client struct {
	baseURL    string
	apiKey     string
	pageSize   int
	httpClient httpretry.HTTPDoer
}

// NewClient creates a new Smartlead API client.
func NewClient(config Config) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	pageSize := config.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Client{
		baseURL:  config.BaseURL,
		apiKey:   config.APIKey,
		pageSize: pageSize,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: timeout,
		}, 3),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// doRequest performs an authenticated GET against the Smartlead API.
func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// ListCampaigns retrieves all campaigns for the account.
func (c *Client) ListCampaigns(ctx context.Context) ([]Campaign, error) {
	respBody, err := c.doRequest(ctx, "/campaigns", nil)
	if err != nil {
		return nil, err
	}

	var campaigns []Campaign
	if err := json.Unmarshal(respBody, &campaigns); err != nil {
		return nil, fmt.Errorf("failed to parse campaigns response: %w", err)
	}
	return campaigns, nil
}

// ListActivities retrieves one page of lead activity for a campaign.
// Smartlead paginates with offset/limit; callers advance offset until a
// short page comes back.
func (c *Client) ListActivities(ctx context.Context, campaignID int64, offset int) ([]LeadActivity, error) {
	params := url.Values{}
	params.Set("offset", strconv.Itoa(offset))
	params.Set("limit", strconv.Itoa(c.pageSize))

	endpoint := fmt.Sprintf("/campaigns/%d/statistics", campaignID)
	respBody, err := c.doRequest(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}

	var response statisticsResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("failed to parse statistics response: %w", err)
	}
	return response.Data, nil
}

// PageSize returns the configured page size.
func (c *Client) PageSize() int { return c.pageSize }
