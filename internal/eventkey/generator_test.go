package eventkey

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDescriptor() Descriptor {
	return Descriptor{
		Platform:   PlatformSmartlead,
		CampaignID: "8841",
		EventType:  "email_open",
		Email:      "jane.doe@example.com",
		ActivityID: "stats-123",
	}
}

func TestGenerateDeterministic(t *testing.T) {
	g := NewGenerator(0)

	first, err := g.Generate(validDescriptor())
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		key, err := g.Generate(validDescriptor())
		require.NoError(t, err)
		assert.Equal(t, first, key)
	}

	// A fresh generator (as after a process restart) yields the same key
	other := NewGenerator(0)
	key, err := other.Generate(validDescriptor())
	require.NoError(t, err)
	assert.Equal(t, first, key)
}

func TestGenerateCaseAndWhitespaceInsensitive(t *testing.T) {
	g := NewGenerator(0)

	base, err := g.Generate(validDescriptor())
	require.NoError(t, err)

	d := validDescriptor()
	d.Platform = " Smartlead "
	d.Email = " Jane.Doe@Example.COM"
	key, err := g.Generate(d)
	require.NoError(t, err)
	assert.Equal(t, base, key)
}

func TestGenerateUniqueness(t *testing.T) {
	g := NewGenerator(20000)
	seen := make(map[string]bool, 10000)

	for i := 0; i < 10000; i++ {
		d := validDescriptor()
		d.ActivityID = fmt.Sprintf("stats-%d", i)
		key, err := g.Generate(d)
		require.NoError(t, err)
		assert.False(t, seen[key], "duplicate key for activity %d", i)
		seen[key] = true
	}

	stats := g.Stats()
	assert.Equal(t, uint64(10000), stats.Generated)
	assert.Zero(t, stats.CollisionRate)
}

func TestGenerateCompositeFallback(t *testing.T) {
	g := NewGenerator(0)

	d := validDescriptor()
	d.ActivityID = ""
	d.Timestamp = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	key1, err := g.Generate(d)
	require.NoError(t, err)

	// Same identity, later timestamp: distinct activity, distinct key
	d.Timestamp = d.Timestamp.Add(time.Hour)
	key2, err := g.Generate(d)
	require.NoError(t, err)
	assert.NotEqual(t, key1, key2)

	// No activity ID and no timestamp cannot form a stable key
	d.Timestamp = time.Time{}
	_, err = g.Generate(d)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "activity_id", verr.Field)
}

func TestGenerateValidation(t *testing.T) {
	g := NewGenerator(0)

	tests := []struct {
		name   string
		mutate func(*Descriptor)
		field  string
	}{
		{"unknown platform", func(d *Descriptor) { d.Platform = "hubspot" }, "platform"},
		{"missing campaign", func(d *Descriptor) { d.CampaignID = "" }, "campaign_id"},
		{"missing event type", func(d *Descriptor) { d.EventType = "" }, "event_type"},
		{"missing email", func(d *Descriptor) { d.Email = "" }, "email"},
		{"malformed email", func(d *Descriptor) { d.Email = "not-an-email" }, "email"},
		{"email without tld", func(d *Descriptor) { d.Email = "jane@localhost" }, "email"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := validDescriptor()
			tc.mutate(&d)
			_, err := g.Generate(d)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestCacheBounded(t *testing.T) {
	g := NewGenerator(100)

	for i := 0; i < 500; i++ {
		d := validDescriptor()
		d.ActivityID = fmt.Sprintf("stats-%d", i)
		_, err := g.Generate(d)
		require.NoError(t, err)
	}

	stats := g.Stats()
	assert.Equal(t, 100, stats.CacheSize)
	assert.Equal(t, uint64(500), stats.Generated)
}

func TestClearCache(t *testing.T) {
	g := NewGenerator(0)
	_, err := g.Generate(validDescriptor())
	require.NoError(t, err)

	g.ClearCache()
	stats := g.Stats()
	assert.Zero(t, stats.CacheSize)
	assert.Zero(t, stats.Generated)
	assert.Zero(t, stats.CollisionRate)
}

func TestKnownPlatform(t *testing.T) {
	assert.True(t, KnownPlatform("smartlead"))
	assert.True(t, KnownPlatform("Instantly"))
	assert.False(t, KnownPlatform("hubspot"))
}
