package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifyhub/lms-notify/internal/config"
	"github.com/notifyhub/lms-notify/internal/domain"
)

func noEnvFile(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	noEnvFile(t)
	t.Setenv("DATABASE_URL", "")

	_, err := config.Load()
	require.Error(t, err)
}

func TestLoad_Defaults(t *testing.T) {
	noEnvFile(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/lms")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 10 * time.Second}, cfg.RetryBackoff)
	assert.Equal(t, 5*time.Second, cfg.TransportTimeout)
	assert.Equal(t, 5*time.Minute, cfg.OnlineWindow)
	assert.Equal(t, 5*time.Minute, cfg.StaleProcessingAge)
	assert.Equal(t, "LMS", cfg.AppName)
	assert.Empty(t, cfg.EscalationEmail)
	// push and sms stay off without a gateway
	assert.Equal(t, domain.ChannelFlags{Email: true}, cfg.Channels())
}

func TestLoad_ChannelFlags(t *testing.T) {
	noEnvFile(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/lms")
	t.Setenv("NOTIFY_EMAIL_ENABLED", "false")
	t.Setenv("NOTIFY_PUSH_ENABLED", "true")
	t.Setenv("PUSH_SERVER_KEY", "key")
	t.Setenv("NOTIFY_SMS_ENABLED", "true")
	t.Setenv("SMS_GATEWAY_URL", "http://sms.local/send")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, domain.ChannelFlags{Push: true, SMS: true}, cfg.Channels())
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	noEnvFile(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/lms")
	t.Setenv("WORKERS", "many")
	t.Setenv("RETRY_BACKOFF_2", "soon")
	t.Setenv("NOTIFY_EMAIL_ENABLED", "perhaps")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Workers)
	assert.Equal(t, 5*time.Second, cfg.RetryBackoff[1])
	assert.True(t, cfg.EmailEnabled)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte(
		"ESCALATION_EMAIL=ops@campus.test\nAPP_NAME=Campus\n",
	), 0o600))
	t.Setenv("ENV_FILE", path)
	t.Setenv("DATABASE_URL", "postgres://localhost/lms")
	t.Setenv("APP_NAME", "FromEnv")
	// registered with t.Setenv so the value loaded from the file is cleaned up
	t.Setenv("ESCALATION_EMAIL", "")
	require.NoError(t, os.Unsetenv("ESCALATION_EMAIL"))

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "ops@campus.test", cfg.EscalationEmail)
	assert.Equal(t, "FromEnv", cfg.AppName)
	assert.Equal(t, "- FromEnv", cfg.SMSSignature)
}
