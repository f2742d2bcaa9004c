package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings. Credentials and endpoints are required
// configuration with no embedded fallback values.
type Config struct {
	DatabaseURL string
	Server      ServerConfig
	Slack       SlackConfig
	JWTSecret   string

	// DefaultReorderPoint applies to items without an explicit threshold.
	DefaultReorderPoint int
}

type ServerConfig struct {
	Port           string
	AllowedOrigins string // comma-separated; empty disables CORS entirely
}

type SlackConfig struct {
	WebhookURL string
	// ReorderLinkTemplate is a format string with one %s verb for the part
	// number, used to build the per-item reorder link in alerts. Empty
	// disables links.
	ReorderLinkTemplate string
}

// Load reads configuration from the environment (and .env, if present).
// Missing required settings fail loudly by name.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
		},
		Slack: SlackConfig{
			WebhookURL:          os.Getenv("SLACK_WEBHOOK_URL"),
			ReorderLinkTemplate: os.Getenv("REORDER_LINK_TEMPLATE"),
		},
		JWTSecret:           os.Getenv("JWT_SECRET"),
		DefaultReorderPoint: getEnvInt("DEFAULT_REORDER_POINT", 10),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if cfg.Slack.WebhookURL == "" {
		return nil, fmt.Errorf("SLACK_WEBHOOK_URL environment variable not set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable not set")
	}
	if cfg.DefaultReorderPoint < 0 {
		return nil, fmt.Errorf("DEFAULT_REORDER_POINT must be non-negative")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
