package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "USD", cfg.HomeCurrency)
	assert.Equal(t, 2*time.Second, cfg.LockTimeout)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Hour, cfg.RatesRefreshInterval)
	assert.Equal(t, 48*time.Hour, cfg.RatesMaxAge)
	assert.Empty(t, cfg.RatesURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://ledger@localhost/ledger")
	t.Setenv("LOCK_TIMEOUT", "750ms")
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("HOME_CURRENCY", "EUR")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://ledger@localhost/ledger", cfg.DatabaseURL)
	assert.Equal(t, 750*time.Millisecond, cfg.LockTimeout)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, "EUR", cfg.HomeCurrency)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "zero lock timeout", key: "LOCK_TIMEOUT", value: "0s"},
		{name: "negative retries", key: "MAX_RETRIES", value: "-1"},
		{name: "bad home currency", key: "HOME_CURRENCY", value: "DOLLAR"},
		{name: "unparseable duration", key: "RATES_REFRESH_INTERVAL", value: "soon"},
		{name: "zero refresh interval", key: "RATES_REFRESH_INTERVAL", value: "0s"},
		{name: "negative refresh interval", key: "RATES_REFRESH_INTERVAL", value: "-1m"},
		{name: "zero http timeout", key: "RATES_HTTP_TIMEOUT", value: "0s"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			require.Error(t, err)
		})
	}
}
