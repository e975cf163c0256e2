package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "bank-import.db", cfg.Database.Path)
	assert.False(t, cfg.AI.Enabled)
	assert.Equal(t, 30, cfg.AI.TimeoutSeconds)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RX_LOG_LEVEL", "debug")
	t.Setenv("RX_LOG_FORMAT", "json")
	t.Setenv("RX_DATABASE_PATH", "/tmp/test.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
}

func TestLoadGeminiKeyFromUnprefixedEnv(t *testing.T) {
	t.Setenv("RX_AI_ENABLED", "true")
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.AI.Enabled)
	assert.Equal(t, "test-key", cfg.AI.APIKey)
}

func TestLoadRejectsInvalidLevel(t *testing.T) {
	t.Setenv("RX_LOG_LEVEL", "chatty")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadAIEnabledWithoutKey(t *testing.T) {
	t.Setenv("RX_AI_ENABLED", "true")
	t.Setenv("GEMINI_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
}
