package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseline(t *testing.T) {
	t.Helper()
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("OUTPUT_DIR", "")
	t.Setenv("ASSET_DIR", "")
	t.Setenv("UNIT_DELAY_MS", "")
	t.Setenv("UNIT_TIMEOUT_SECONDS", "")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "")
	t.Setenv("GEMINI_MODEL", "")
	t.Setenv("WEB_ADDR", "")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseline(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.GeminiAPIKey)
	assert.Equal(t, "https://generativelanguage.googleapis.com", cfg.GeminiBaseURL)
	assert.Equal(t, "v1beta", cfg.GeminiAPIVersion)
	assert.Equal(t, "gemini-2.5-flash-image", cfg.GeminiModel)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "output", cfg.OutputDir)
	assert.Equal(t, "assets", cfg.AssetDir)
	assert.Equal(t, 2*time.Second, cfg.UnitDelay)
	assert.Equal(t, 120*time.Second, cfg.UnitTimeout)
	assert.Equal(t, 180*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Empty(t, cfg.TelegramToken)
	assert.True(t, cfg.PreferIPv4)
}

func TestLoad_RequiresGeminiKey(t *testing.T) {
	setBaseline(t)
	t.Setenv("GEMINI_API_KEY", "  ")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestLoad_TelegramNeedsBothValues(t *testing.T) {
	setBaseline(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_CHAT_ID")

	t.Setenv("TELEGRAM_CHAT_ID", "-100200300")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "123:abc", cfg.TelegramToken)
	assert.Equal(t, int64(-100200300), cfg.TelegramChatID)
}

func TestLoad_Overrides(t *testing.T) {
	setBaseline(t)
	t.Setenv("LOG_LEVEL", " DEBUG ")
	t.Setenv("OUTPUT_DIR", "renders")
	t.Setenv("UNIT_DELAY_MS", "0")
	t.Setenv("UNIT_TIMEOUT_SECONDS", "-5")
	t.Setenv("GEMINI_MODEL", "gemini-3.0-pro-image")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "renders", cfg.OutputDir)
	assert.Equal(t, time.Duration(0), cfg.UnitDelay)
	assert.Equal(t, 120*time.Second, cfg.UnitTimeout, "non-positive timeout falls back")
	assert.Equal(t, "gemini-3.0-pro-image", cfg.GeminiModel)
}

func TestLoad_MalformedNumbersFallBack(t *testing.T) {
	setBaseline(t)
	t.Setenv("UNIT_DELAY_MS", "soon")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "not-a-number")

	_, err := Load()
	require.Error(t, err, "unparseable chat id counts as unset")

	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.UnitDelay)
}
