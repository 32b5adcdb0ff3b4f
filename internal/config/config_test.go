package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadClientDefaults(t *testing.T) {
	t.Setenv("LOGBOOK_TOKEN_FILE", "/tmp/tokens.json")
	cfg := LoadClient()
	assert.Equal(t, "http://localhost:8080/api", cfg.APIURL)
	assert.Equal(t, "/tmp/tokens.json", cfg.TokenFile)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, time.Second, cfg.TrackInterval)
	assert.Equal(t, uint(5), cfg.FeedRetries)
}

func TestLoadClientOverrides(t *testing.T) {
	t.Setenv("LOGBOOK_API_URL", "https://logbook.example.com")
	t.Setenv("LOGBOOK_TRACK_INTERVAL", "250")
	t.Setenv("LOGBOOK_FEED_RETRIES", "-1")
	cfg := LoadClient()
	assert.Equal(t, "https://logbook.example.com", cfg.APIURL)
	assert.Equal(t, 250*time.Millisecond, cfg.TrackInterval)
	assert.Equal(t, uint(5), cfg.FeedRetries, "negative counts fall back to the default")
}

func TestLoadServer(t *testing.T) {
	t.Setenv("STORE", "postgres")
	t.Setenv("HOURS_LIMIT", "60")
	t.Setenv("JWT_ACCESS_TTL", "15m")
	t.Setenv("REFUEL_MILES", "lots")
	cfg := LoadServer()
	assert.Equal(t, "postgres", cfg.Store)
	assert.Equal(t, 60.0, cfg.HoursLimit)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 1000.0, cfg.RefuelMiles)
	assert.Equal(t, "logbook", cfg.DB.Name)
}
