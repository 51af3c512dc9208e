// Package instantly syncs campaign activity from the Instantly v2 API
// into the shared ingestion pipeline.
package instantly

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

// Client is the Instantly v2 API client. Instantly authenticates with a
// Bearer token and paginates with starting_after cursors.
type Client struct {
	baseURL    string
	apiKey     string
	pageSize   int
	httpClient httpretry.HTTPDoer
}

// NewClient creates a new Instantly API client.
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

func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
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

// ListCampaigns retrieves all campaigns, following the pagination
// cursor to exhaustion.
func (c *Client) ListCampaigns(ctx context.Context) ([]Campaign, error) {
	var all []Campaign
	cursor := ""
	for {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(c.pageSize))
		if cursor != "" {
			params.Set("starting_after", cursor)
		}

		respBody, err := c.doRequest(ctx, "/campaigns", params)
		if err != nil {
			return nil, err
		}

		var response campaignsResponse
		if err := json.Unmarshal(respBody, &response); err != nil {
			return nil, fmt.Errorf("failed to parse campaigns response: %w", err)
		}

		all = append(all, response.Items...)
		if response.NextStartingAfter == "" || len(response.Items) == 0 {
			return all, nil
		}
		cursor = response.NextStartingAfter
	}
}

// ListEvents retrieves one page of email events for a campaign starting
// at the given cursor. It returns the events plus the next cursor; an
// empty cursor means the listing is exhausted.
func (c *Client) ListEvents(ctx context.Context, campaignID, cursor string) ([]EmailEvent, string, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(c.pageSize))
	if cursor != "" {
		params.Set("starting_after", cursor)
	}

	endpoint := fmt.Sprintf("/campaigns/%s/events", url.PathEscape(campaignID))
	respBody, err := c.doRequest(ctx, endpoint, params)
	if err != nil {
		return nil, "", err
	}

	var response eventsResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, "", fmt.Errorf("failed to parse events response: %w", err)
	}
	return response.Items, response.NextStartingAfter, nil
}
