package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("OAUTH_CLIENT_ID", "client-id")
	t.Setenv("OAUTH_CLIENT_SECRET", "client-secret")
	t.Setenv("OAUTH_PROVIDER_URL", "https://id.example.com")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load("/login")
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, ":3000", cfg.Addr())
	assert.Equal(t, "/", cfg.LobbyPath)
	assert.Equal(t, "/login", cfg.LoginPath)
	assert.Equal(t, "/callback", cfg.CallbackPath)
	assert.Equal(t, 10*time.Minute, cfg.StateTTL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "memory", cfg.StateStore)
	assert.Len(t, cfg.SessionSecret, 64)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "8080")
	t.Setenv("OAUTH_PROVIDER_URL", "https://id.example.com/")
	t.Setenv("OAUTH_LOGIN_PATH", "/start")
	t.Setenv("SESSION_SECRET", "fixed")
	t.Setenv("OAUTH_STATE_TTL", "1m")

	cfg, err := Load("/begin-oauth-flow")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "https://id.example.com", cfg.ProviderURL)
	assert.Equal(t, "/start", cfg.LoginPath)
	assert.Equal(t, "fixed", cfg.SessionSecret)
	assert.Equal(t, time.Minute, cfg.StateTTL)
}

func TestLoad_MissingCredentials(t *testing.T) {
	t.Setenv("OAUTH_CLIENT_ID", "")
	t.Setenv("OAUTH_CLIENT_SECRET", "")

	_, err := Load("/login")
	assert.ErrorContains(t, err, "OAUTH_CLIENT_ID")
}

func TestLoad_MissingProvider(t *testing.T) {
	setRequired(t)
	t.Setenv("OAUTH_PROVIDER_URL", "")

	_, err := Load("/login")
	assert.ErrorContains(t, err, "OAUTH_PROVIDER_URL")
}

func TestLoad_BadPort(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "not-a-number")

	_, err := Load("/login")
	assert.ErrorContains(t, err, "parse env")
}

func TestValidate(t *testing.T) {
	valid := Config{
		Port:           3000,
		ProviderURL:    "https://id.example.com",
		ClientID:       "id",
		ClientSecret:   "secret",
		LobbyPath:      "/",
		LoginPath:      "/login",
		CallbackPath:   "/callback",
		StateTTL:       time.Minute,
		RequestTimeout: time.Second,
		SessionTTL:     time.Minute,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "relative provider", mutate: func(c *Config) { c.ProviderURL = "id.example.com" }, want: "OAUTH_PROVIDER_URL"},
		{name: "port out of range", mutate: func(c *Config) { c.Port = 70000 }, want: "PORT"},
		{name: "path without slash", mutate: func(c *Config) { c.CallbackPath = "callback" }, want: "must start with /"},
		{name: "duplicate paths", mutate: func(c *Config) { c.LoginPath = "/" }, want: "share the path"},
		{name: "zero ttl", mutate: func(c *Config) { c.StateTTL = 0 }, want: "must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}
