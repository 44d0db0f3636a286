package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "RVT", cfg.InvoicePrefix)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "0 3 * * *", cfg.ReconcileCron)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsSlashInPrefix(t *testing.T) {
	t.Setenv("INVOICE_PREFIX", "RVT/X")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVOICE_PREFIX")
}

func TestConfigValidateTrimsPrefix(t *testing.T) {
	cfg := Config{PGDSN: "postgres://x", RedisAddr: "r:6379", InvoicePrefix: "  ACME "}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "ACME", cfg.InvoicePrefix)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)

	cfg.RedisAddr = ""
	assert.Error(t, cfg.Validate())
}
