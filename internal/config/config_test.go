package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 3, cfg.LLM.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.LLM.Retry.BaseDelay)
	assert.Equal(t, 30*time.Minute, cfg.Conversation.IdleTTL)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := []byte("environment: production\nstore:\n  driver: postgres\nllm:\n  quota:\n    requests_per_day: 5\n")
	require.NoError(t, os.WriteFile(path, yaml, 0o600))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("BRIA_API_KEY", "bria-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 5, cfg.LLM.Quota.RequestsPerDay)
	assert.Equal(t, "gem-key", cfg.LLM.Gemini.APIKey)
	assert.Equal(t, "bria-key", cfg.Bria.APIKey)
}
