// Package config loads server configuration from environment variables.
//
// Every knob has an env tag and (where sensible) a default, so a bare
// `go run ./cmd/server` starts a working local instance. Secrets
// (JWT_SECRET, OAuth client credentials) have no defaults — features that
// need them are disabled when they're unset.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config contains server configuration parameters.
type Config struct {
	Port    int    `env:"PORT" envDefault:"8080"`
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	DBPath  string `env:"DB_PATH" envDefault:"data/creationgoals.db"`

	// JWT_SECRET signs bearer tokens for cookie-less API clients.
	// Generate with: openssl rand -hex 32
	JWTSecret string `env:"JWT_SECRET"`

	// SESSION_TTL_HOURS controls how long a server-side session lives.
	SessionTTLHours int `env:"SESSION_TTL_HOURS" envDefault:"24"`

	Google OAuthClient `envPrefix:"GOOGLE_"`
	GitHub OAuthClient `envPrefix:"GITHUB_"`
}

// OAuthClient holds one provider's OAuth app credentials.
type OAuthClient struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	CallbackURL  string `env:"CALLBACK_URL"`
}

// Enabled reports whether the provider is configured. Unconfigured
// providers simply don't get their routes registered.
func (c OAuthClient) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// New loads configuration from environment variables.
func New() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}

	// Default the callback URLs against the base URL so local setups only
	// need the client id/secret pair.
	if cfg.Google.CallbackURL == "" {
		cfg.Google.CallbackURL = cfg.BaseURL + "/auth/google/callback"
	}
	if cfg.GitHub.CallbackURL == "" {
		cfg.GitHub.CallbackURL = cfg.BaseURL + "/auth/github/callback"
	}

	return &cfg, nil
}
