package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	GeminiAPIKey     string
	GeminiBaseURL    string
	GeminiAPIVersion string
	GeminiModel      string

	// Telegram notifications are optional; both values must be set to
	// enable them.
	TelegramToken  string
	TelegramChatID int64

	LogLevel string
	Debug    bool

	PreferIPv4 bool

	OutputDir string
	AssetDir  string

	UnitDelay   time.Duration
	UnitTimeout time.Duration
	HTTPTimeout time.Duration

	ListenAddr string
}

func Load() (Config, error) {
	cfg := Config{
		LogLevel:         strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", "info"))),
		Debug:            getEnvBool("DEBUG", false),
		PreferIPv4:       getEnvBool("PREFER_IPV4", true),
		OutputDir:        strings.TrimSpace(getEnv("OUTPUT_DIR", "output")),
		AssetDir:         strings.TrimSpace(getEnv("ASSET_DIR", "assets")),
		UnitDelay:        time.Duration(getEnvInt("UNIT_DELAY_MS", 2000)) * time.Millisecond,
		UnitTimeout:      time.Duration(getEnvInt("UNIT_TIMEOUT_SECONDS", 120)) * time.Second,
		HTTPTimeout:      time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 180)) * time.Second,
		GeminiBaseURL:    strings.TrimSpace(getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")),
		GeminiAPIVersion: strings.TrimSpace(getEnv("GEMINI_API_VERSION", "v1beta")),
		GeminiModel:      strings.TrimSpace(getEnv("GEMINI_MODEL", "gemini-2.5-flash-image")),
		ListenAddr:       strings.TrimSpace(getEnv("WEB_ADDR", ":8080")),
	}

	cfg.GeminiAPIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	cfg.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	cfg.TelegramChatID = getEnvInt64("TELEGRAM_CHAT_ID", 0)

	switch {
	case cfg.GeminiAPIKey == "":
		return Config{}, errors.New("GEMINI_API_KEY is required")
	case cfg.TelegramToken != "" && cfg.TelegramChatID == 0:
		return Config{}, errors.New("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}

	if cfg.UnitDelay < 0 {
		cfg.UnitDelay = 0
	}
	if cfg.UnitTimeout <= 0 {
		cfg.UnitTimeout = 120 * time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "output"
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
