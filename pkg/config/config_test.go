package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlearnhq/atrium/pkg/observability"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "atrium_session", cfg.Session.CookieName)
	assert.Equal(t, "@hourly", cfg.Session.SweepSchedule)
	assert.Equal(t, "/login", cfg.Access.LoginPath)
	assert.True(t, cfg.Access.WatchRules)
	assert.False(t, cfg.OIDC.Enabled)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("ATRIUM_PORT", "3000")
	t.Setenv("ATRIUM_SESSION_TTL", "2h")
	t.Setenv("ATRIUM_LOG_LEVEL", "debug")
	t.Setenv("ATRIUM_POSTGRES_MAX_CONNS", "50")
	t.Setenv("ATRIUM_COOKIE_SECURE", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
	assert.Equal(t, 50, cfg.Storage.MaxConns)
	assert.False(t, cfg.Session.CookieSecure)
}

func TestLoadConfigListEnv(t *testing.T) {
	t.Setenv("ATRIUM_CORS_ORIGINS", "https://app.example.com, https://admin.example.com,")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.Server.AllowedOrigins)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := LoadConfig()
		require.NoError(t, err)
		return cfg
	}

	t.Run("ports must differ", func(t *testing.T) {
		cfg := base()
		cfg.Server.HealthPort = cfg.Server.Port
		assert.Error(t, cfg.Validate())
	})

	t.Run("postgres URL required", func(t *testing.T) {
		cfg := base()
		cfg.Storage.PostgresURL = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("oidc needs credentials when enabled", func(t *testing.T) {
		cfg := base()
		cfg.OIDC.Enabled = true
		cfg.OIDC.IssuerURL = "https://id.example.com"
		assert.Error(t, cfg.Validate())

		cfg.OIDC.ClientID = "client"
		cfg.OIDC.ClientSecret = "secret"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("billing needs a key when enabled", func(t *testing.T) {
		cfg := base()
		cfg.Billing.Enabled = true
		assert.Error(t, cfg.Validate())
	})
}
