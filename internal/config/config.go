package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the controller
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Backend API configuration
	BackendURL     string
	RequestTimeout time.Duration

	// Lifecycle configuration
	PollInterval time.Duration // interval between task-status polls
	StaleTimeout time.Duration // watchdog for PROCESSING campaigns with no update
	SweepSchedule string       // "minutely" or "hourly"
	TimeZone      string

	// Storage configuration
	StorageAccount   string
	StorageContainer string
	LocalStorageDir  string

	// Notification configuration
	NotifyOnReady     bool
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		BackendURL:     getEnv("BACKEND_URL", ""),
		RequestTimeout: time.Duration(getIntEnv("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,

		PollInterval:  time.Duration(getIntEnv("POLL_INTERVAL_SECONDS", 2)) * time.Second,
		StaleTimeout:  time.Duration(getIntEnv("STALE_TIMEOUT_MINUTES", 5)) * time.Minute,
		SweepSchedule: getEnv("SWEEP_SCHEDULE", "minutely"),
		TimeZone:      getEnv("TIMEZONE", "UTC"),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "campaigns"),
		LocalStorageDir:  getEnv("LOCAL_STORAGE_DIR", "data"),

		NotifyOnReady:     getBoolEnv("NOTIFY_ON_READY", true),
		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL is required")
	}
	c.BackendURL = strings.TrimRight(c.BackendURL, "/")

	if c.SweepSchedule != "minutely" && c.SweepSchedule != "hourly" {
		return fmt.Errorf("SWEEP_SCHEDULE must be 'minutely' or 'hourly'")
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL_SECONDS must be positive")
	}

	if c.StaleTimeout <= 0 {
		return fmt.Errorf("STALE_TIMEOUT_MINUTES must be positive")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
