// Package server exposes the panel over HTTP: a JSON API for fleet state,
// websocket endpoints for shell and tail sessions, prometheus metrics, and
// the static web UI.
package server

import (
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/fleetdeck/fleetdeck/internal/errors"
)

// Config is the server's environment-driven settings. Inventory content
// lives in the inventory file; this is deployment wiring only.
type Config struct {
	Addr           string   `env:"FLEETDECK_ADDR" envDefault:":8080"`
	WebDir         string   `env:"FLEETDECK_WEB_DIR" envDefault:"web"`
	AllowedOrigins []string `env:"FLEETDECK_ALLOWED_ORIGINS" envSeparator:","`

	ShutdownTimeout time.Duration `env:"FLEETDECK_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	SuggestEndpoint string        `env:"FLEETDECK_SUGGEST_ENDPOINT"`
	SuggestModel    string        `env:"FLEETDECK_SUGGEST_MODEL" envDefault:"qwen2.5-coder:7b"`
	SuggestProvider string        `env:"FLEETDECK_SUGGEST_PROVIDER" envDefault:"ollama"`
	SuggestTimeout  time.Duration `env:"FLEETDECK_SUGGEST_TIMEOUT" envDefault:"30s"`
}

// LoadConfig reads the server configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(err, errors.ErrConfig, "failed to parse environment")
	}
	return cfg, nil
}
