package instantly

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *Client {
	c := NewClient(Config{
		APIKey:   "test-bearer-token",
		BaseURL:  serverURL,
		Timeout:  5 * time.Second,
		PageSize: 2,
	})
	c.SetHTTPClient(&http.Client{Timeout: 5 * time.Second})
	return c
}

func TestListCampaignsFollowsCursor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-bearer-token", r.Header.Get("Authorization"))
		assert.Equal(t, "/campaigns", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("starting_after") == "" {
			w.Write([]byte(`{"items":[{"id":"cmp-1","name":"Apollo Outreach Q3"},{"id":"cmp-2","name":"Titan Launch"}],"next_starting_after":"cmp-2"}`))
			return
		}
		assert.Equal(t, "cmp-2", r.URL.Query().Get("starting_after"))
		w.Write([]byte(`{"items":[{"id":"cmp-3","name":"Nimbus"}],"next_starting_after":""}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	campaigns, err := client.ListCampaigns(context.Background())
	require.NoError(t, err)
	require.Len(t, campaigns, 3)
	assert.Equal(t, "cmp-3", campaigns[2].ID)
}

func TestListEventsReturnsNextCursor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/campaigns/cmp-1/events", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[{"id":"ev-1","event_type":"email_opened","lead_email":"lead1@example.com","timestamp_email":"2026-04-01T10:00:00Z"}],"next_starting_after":"ev-1"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	events, next, err := client.ListEvents(context.Background(), "cmp-1", "")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ev-1", next)
	assert.Equal(t, "lead1@example.com", events[0].LeadEmail)
}

func TestClientErrorOnNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, _, err := client.ListEvents(context.Background(), "cmp-1", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}
