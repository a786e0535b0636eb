package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "web", cfg.WebDir)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.SuggestEndpoint)
	assert.Equal(t, "ollama", cfg.SuggestProvider)
	assert.Equal(t, 30*time.Second, cfg.SuggestTimeout)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("FLEETDECK_ADDR", "127.0.0.1:9999")
	t.Setenv("FLEETDECK_WEB_DIR", "/srv/fleetdeck/web")
	t.Setenv("FLEETDECK_ALLOWED_ORIGINS", "https://panel.example.com,https://ops.example.com")
	t.Setenv("FLEETDECK_SUGGEST_ENDPOINT", "http://127.0.0.1:11434/api/suggest")
	t.Setenv("FLEETDECK_SUGGEST_TIMEOUT", "5s")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9999", cfg.Addr)
	assert.Equal(t, "/srv/fleetdeck/web", cfg.WebDir)
	assert.Equal(t, []string{"https://panel.example.com", "https://ops.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, "http://127.0.0.1:11434/api/suggest", cfg.SuggestEndpoint)
	assert.Equal(t, 5*time.Second, cfg.SuggestTimeout)
}
