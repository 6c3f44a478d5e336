package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gostore/config"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/gostore?sslmode=disable")
	t.Setenv("JWT_SECRET_KEY", "segredo")

	cfg, err := config.LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.DBTimeout)
	assert.Equal(t, 7*24*time.Hour, cfg.CartTTL)
	assert.Equal(t, time.Hour, cfg.TokenExpiry)
	assert.Equal(t, "gostore", cfg.JWTIssuer)
	assert.Equal(t, 100, cfg.RateLimitMaxRequests)
	assert.Equal(t, "GoStore", cfg.StoreName)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/gostore")
	t.Setenv("JWT_SECRET_KEY", "segredo")
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("DB_TIMEOUT_SEC", "2")
	t.Setenv("RATE_LIMIT_PERIOD_MIN", "5")
	t.Setenv("WHATSAPP_NUMBER", "5575981284738")

	cfg, err := config.LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 2*time.Second, cfg.DBTimeout)
	assert.Equal(t, 5*time.Minute, cfg.RateLimitPeriod)
	assert.Equal(t, "5575981284738", cfg.WhatsAppNumber)
}

func TestLoadConfig_Fail_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET_KEY", "")

	_, err := config.LoadConfig()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "JWT_SECRET_KEY")
}

func TestLoadConfig_Fail_WeakAdminPassword(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/gostore")
	t.Setenv("JWT_SECRET_KEY", "segredo")
	t.Setenv("ADMIN_EMAIL", "dono@loja.com")
	t.Setenv("ADMIN_PASSWORD", "123")

	_, err := config.LoadConfig()

	assert.ErrorContains(t, err, "ADMIN_PASSWORD")
}
