package config_test

import (
	"testing"
	"time"

	"github.com/firmahq/firma/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("FINGERPRINT_SECRET", "a-sufficiently-long-fingerprint-key")
	t.Setenv("JWT_SECRET", "a-sufficiently-long-signing-key")
	t.Setenv("DB_PASSWORD", "postgres")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "firma", cfg.Database.Name)
	assert.Equal(t, "8080", cfg.Server.Port)

	assert.Equal(t, 10, cfg.AntiFraud.SignMaxPerWindow)
	assert.Equal(t, 3, cfg.AntiFraud.CreateMaxPerWindow)
	assert.Equal(t, 1*time.Hour, cfg.AntiFraud.WindowDuration)
	assert.Equal(t, 80, cfg.AntiFraud.BlockScoreThreshold)
	assert.Equal(t, 30*24*time.Hour, cfg.AntiFraud.AttemptRetention)
}

func TestLoad_MissingFingerprintSecret(t *testing.T) {
	t.Setenv("FINGERPRINT_SECRET", "")
	t.Setenv("JWT_SECRET", "a-sufficiently-long-signing-key")
	t.Setenv("DB_PASSWORD", "postgres")

	_, err := config.Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "FINGERPRINT_SECRET")
}

func TestLoad_WeakSecretRejected(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENV", "production")
	t.Setenv("FINGERPRINT_SECRET", "short")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SIGN_MAX_PER_WINDOW", "5")
	t.Setenv("RATE_WINDOW_DURATION", "30m")
	t.Setenv("VPN_RANGES", "185.220.100.0/22, 198.98.48.0/20")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.AntiFraud.SignMaxPerWindow)
	assert.Equal(t, 30*time.Minute, cfg.AntiFraud.WindowDuration)
	assert.Equal(t, []string{"185.220.100.0/22", "198.98.48.0/20"}, cfg.AntiFraud.VPNRanges)
}

func TestLoad_NotifyRequiresFromAddress(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("NOTIFY_ENABLED", "true")
	t.Setenv("NOTIFY_FROM_ADDRESS", "")

	_, err := config.Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "NOTIFY_FROM_ADDRESS")
}
