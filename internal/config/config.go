package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DatabaseURL             string
	SecondaryURL            string
	SecondaryRetryMax       int
	SecondaryRetryBaseDelay time.Duration
	TierTimeout             time.Duration
	MinFetchInterval        time.Duration
	DebounceWindow          time.Duration
	RefreshInterval         time.Duration
	EnableRealtime          bool
	HTTPPort                string
	AdminAPIKey             string
	SheetsSpreadsheetID     string
	SheetsCredentialsJSON   string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		DatabaseURL:             envOrDefaultWarn("DATABASE_URL", ""),
		SecondaryURL:            envOrDefault("SECONDARY_URL", "https://gateway.fundweb.example"),
		SecondaryRetryMax:       envOrDefaultInt("SECONDARY_RETRY_MAX", 3),
		SecondaryRetryBaseDelay: envOrDefaultDuration("SECONDARY_RETRY_BASE_DELAY", time.Second),
		TierTimeout:             envOrDefaultDuration("TIER_TIMEOUT", 10*time.Second),
		MinFetchInterval:        envOrDefaultDuration("MIN_FETCH_INTERVAL", time.Second),
		DebounceWindow:          envOrDefaultDuration("DEBOUNCE_WINDOW", 500*time.Millisecond),
		RefreshInterval:         envOrDefaultDuration("REFRESH_INTERVAL", 15*time.Minute),
		EnableRealtime:          envOrDefaultBool("ENABLE_REALTIME", true),
		HTTPPort:                envOrDefault("HTTP_PORT", "8080"),
		AdminAPIKey:             envOrDefault("ADMIN_API_KEY", ""),
		SheetsSpreadsheetID:     envOrDefault("SHEETS_SPREADSHEET_ID", ""),
		SheetsCredentialsJSON:   envOrDefault("SHEETS_CREDENTIALS_JSON", ""),
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultWarn(key, defaultVal string) string {
	v := envOrDefault(key, defaultVal)
	if v == "" {
		slog.Warn("required env var not set", "key", key)
	}
	return v
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("invalid boolean env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return b
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}
