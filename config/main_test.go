package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"TELEGRAM_BOT_TOKEN": "token"})
	require.NoError(t, err)

	assert.Equal(t, "80", cfg.Port)
	assert.Equal(t, TextProviderDeepSeek, cfg.TextProvider)
	assert.Equal(t, "https://api.deepseek.com", cfg.DeepSeekBaseURL)
	assert.Equal(t, "deepseek-chat", cfg.DeepSeekModel)
	assert.Equal(t, 60*time.Second, cfg.GenerationTimeout)
	assert.Equal(t, []string{"yes", "y", "да", "sí"}, cfg.AffirmativeTokens)
	assert.Equal(t, time.Duration(0), cfg.SessionIdleTTL)
	assert.EqualValues(t, 10, cfg.MaxConcurrentUpdates)
	assert.False(t, cfg.Postgres.Enabled())
}

func TestLoadFromRequiresBotToken(t *testing.T) {
	_, err := LoadFrom(map[string]string{})
	require.Error(t, err)
}

func TestLoadFromOverrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"TELEGRAM_BOT_TOKEN": "token",
		"TEXT_PROVIDER":      " Gemini ",
		"AFFIRMATIVE_TOKENS": "ok, sure ,,",
		"SESSION_IDLE_TTL":   "30m",
		"POSTGRES_DB_HOST":   "localhost",
	})
	require.NoError(t, err)

	assert.Equal(t, TextProviderGemini, cfg.TextProvider)
	assert.Equal(t, []string{"ok", "sure"}, cfg.AffirmativeTokens)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdleTTL)
	assert.True(t, cfg.Postgres.Enabled())
	assert.Equal(t, "5432", cfg.Postgres.Port)
}

func TestLoadFromRejectsUnknownProvider(t *testing.T) {
	_, err := LoadFrom(map[string]string{
		"TELEGRAM_BOT_TOKEN": "token",
		"TEXT_PROVIDER":      "llama",
	})
	require.ErrorContains(t, err, "TEXT_PROVIDER")
}
