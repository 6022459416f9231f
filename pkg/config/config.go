// Package config loads the server configuration from environment variables.
package config

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is fixed at startup and never reloaded.
type Config struct {
	Port int `env:"PORT" envDefault:"3000"`

	ProviderURL  string `env:"OAUTH_PROVIDER_URL"`
	ClientID     string `env:"OAUTH_CLIENT_ID"`
	ClientSecret string `env:"OAUTH_CLIENT_SECRET"`

	LobbyPath    string `env:"OAUTH_LOBBY_PATH"    envDefault:"/"`
	LoginPath    string `env:"OAUTH_LOGIN_PATH"`
	CallbackPath string `env:"OAUTH_CALLBACK_PATH" envDefault:"/callback"`

	StateTTL       time.Duration `env:"OAUTH_STATE_TTL"       envDefault:"10m"`
	RequestTimeout time.Duration `env:"OAUTH_REQUEST_TIMEOUT" envDefault:"10s"`

	SessionSecret string        `env:"SESSION_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"15m"`
	SecureCookie  bool          `env:"SESSION_SECURE_COOKIE"`

	StateStore    string `env:"STATE_STORE"    envDefault:"memory"`
	RedisAddr     string `env:"REDIS_ADDR"     envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"`

	LogLevel string `env:"LOG_LEVEL"`
}

// Addr returns the listen address for the configured port.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Load parses the environment into a Config. loginPath is used when
// OAUTH_LOGIN_PATH is unset, so each server binary keeps its own route.
func Load(loginPath string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = loginPath
	}
	cfg.ProviderURL = strings.TrimRight(strings.TrimSpace(cfg.ProviderURL), "/")

	if cfg.SessionSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return Config{}, err
		}
		cfg.SessionSecret = secret
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first missing or malformed setting.
func (c Config) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return errors.New("OAUTH_CLIENT_ID and OAUTH_CLIENT_SECRET must be provided")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT %d is out of range", c.Port)
	}
	u, err := url.Parse(c.ProviderURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("OAUTH_PROVIDER_URL %q is not an absolute URL", c.ProviderURL)
	}

	paths := map[string]string{
		"OAUTH_LOBBY_PATH":    c.LobbyPath,
		"OAUTH_LOGIN_PATH":    c.LoginPath,
		"OAUTH_CALLBACK_PATH": c.CallbackPath,
	}
	seen := make(map[string]string, len(paths))
	for name, p := range paths {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("%s %q must start with /", name, p)
		}
		if other, ok := seen[p]; ok {
			return fmt.Errorf("%s and %s share the path %q", name, other, p)
		}
		seen[p] = name
	}

	if c.StateTTL <= 0 || c.RequestTimeout <= 0 || c.SessionTTL <= 0 {
		return errors.New("OAUTH_STATE_TTL, OAUTH_REQUEST_TIMEOUT and SESSION_TTL must be positive")
	}
	return nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session secret: %w", err)
	}
	return fmt.Sprintf("%x", b), nil
}
