package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDevelopmentDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Address())
	require.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	require.Equal(t, "notifications.email", cfg.Notifications.Topic)
	require.Equal(t, 4, cfg.Webhook.Workers)
	require.NotEmpty(t, cfg.JWTSecret)
}

func TestLoadDurationOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "3")
	t.Setenv("FLW_TIMEOUT", "2s")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 3*time.Second, cfg.ShutdownPeriod)
	require.Equal(t, 2*time.Second, cfg.Flutterwave.Timeout)
}

func TestLoadRejectsBadInteger(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("WEBHOOK_WORKERS", "many")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadProductionRequiresBackends(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.ErrorContains(t, err, "DATABASE_URL")
}
