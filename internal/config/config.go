// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port           string
	FrontendURL    string
	BackendBaseURL string
	DBPath         string
	SessionTTL     time.Duration
	Mail           MailConfig
	Counter        CounterConfig
}

// MailConfig controls outbound transactional email (contact / booking forms).
type MailConfig struct {
	APIKey      string
	BaseURL     string
	FromAddress string
	ContactTo   string
	BookingTo   string
}

// CounterConfig points at the remote key-value store backing the beta
// signup counter. Either field may be empty; callers degrade to a
// hardcoded fallback when the store is unconfigured.
type CounterConfig struct {
	RestURL   string
	RestToken string
	Key       string
	BetaTotal int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	sessionTTLDays := getEnvInt("SESSION_TTL_DAYS", 30)
	if sessionTTLDays <= 0 {
		sessionTTLDays = 30
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		FrontendURL:    getEnv("FRONTEND_URL", ""),
		BackendBaseURL: getEnv("BACKEND_BASE_URL", "https://api.workpal.ai"),
		DBPath:         getEnv("DB_PATH", "./data/workpal.db"),
		SessionTTL:     time.Duration(sessionTTLDays) * 24 * time.Hour,
		Mail: MailConfig{
			APIKey:      getEnv("RESEND_API_KEY", ""),
			BaseURL:     getEnv("RESEND_BASE_URL", "https://api.resend.com"),
			FromAddress: getEnv("MAIL_FROM", "Workpal <hello@workpal.ai>"),
			ContactTo:   getEnv("CONTACT_TO", "contact@workpal.ai"),
			BookingTo:   getEnv("BOOKING_TO", "bookings@workpal.ai"),
		},
		Counter: CounterConfig{
			RestURL:   getEnv("KV_REST_URL", ""),
			RestToken: getEnv("KV_REST_TOKEN", ""),
			Key:       getEnv("BETA_COUNTER_KEY", "beta_signups"),
			BetaTotal: getEnvInt("BETA_TOTAL", 1500),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.BackendBaseURL == "" {
		return fmt.Errorf("BACKEND_BASE_URL cannot be empty")
	}
	if !strings.HasPrefix(c.BackendBaseURL, "http://") && !strings.HasPrefix(c.BackendBaseURL, "https://") {
		return fmt.Errorf("BACKEND_BASE_URL must be an http(s) URL")
	}
	if c.Counter.BetaTotal <= 0 {
		return fmt.Errorf("BETA_TOTAL must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env == "development"
	}
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}
