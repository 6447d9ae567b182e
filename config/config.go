package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Database configuration
	DatabaseHost     string
	DatabasePort     string
	DatabaseName     string
	DatabaseUser     string
	DatabasePassword string

	// Redis configuration
	RedisHost     string
	RedisPassword string
	RedisPort     string

	// API server
	APIPort int

	// Refresh behavior
	Refresh RefreshConfig

	// Outlier detection thresholds
	Detection DetectionConfig

	// Webhook notification target (empty disables notifications)
	WebhookURL string
}

// RefreshConfig holds fetch-phase tuning for the refresh orchestrator
type RefreshConfig struct {
	// Workers is the number of concurrent fetch workers
	Workers int

	// MaxRetries is the retry budget per symbol on rate-limit responses
	MaxRetries int

	// BackoffBaseMs is the initial backoff delay; doubled per attempt
	BackoffBaseMs int

	// BackoffCapMs caps the exponential backoff delay
	BackoffCapMs int

	// FetchTimeoutSec is the per-request timeout against the provider
	FetchTimeoutSec int

	// ScheduleEnabled turns on the daily/weekly refresh jobs
	ScheduleEnabled bool
}

// DetectionConfig holds outlier detection defaults
type DetectionConfig struct {
	// PrimaryThreshold is the default composite-score cutoff for the
	// primary universe. Secondary universes are noisier and use a
	// higher default.
	PrimaryThreshold   float64
	SecondaryThreshold float64

	// CacheTTLMinutes controls how long sector summaries stay cached
	CacheTTLMinutes int
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		DatabaseHost:     getEnvOrDefault("DB_HOST", "localhost"),
		DatabasePort:     getEnvOrDefault("DB_PORT", "5432"),
		DatabaseName:     getEnvOrDefault("DB_NAME", "sectorview"),
		DatabaseUser:     getEnvOrDefault("DB_USER", "sectorview"),
		DatabasePassword: getEnvOrDefault("DB_PASSWORD", "sectorview123"),

		RedisHost:     getEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),

		APIPort: getEnvInt("API_PORT", 8080),

		Refresh: RefreshConfig{
			Workers:         getEnvInt("REFRESH_WORKERS", 8),
			MaxRetries:      getEnvInt("REFRESH_MAX_RETRIES", 3),
			BackoffBaseMs:   getEnvInt("REFRESH_BACKOFF_BASE_MS", 500),
			BackoffCapMs:    getEnvInt("REFRESH_BACKOFF_CAP_MS", 8000),
			FetchTimeoutSec: getEnvInt("REFRESH_FETCH_TIMEOUT_SEC", 15),
			ScheduleEnabled: getEnvOrDefault("REFRESH_SCHEDULE_ENABLED", "true") == "true",
		},

		Detection: DetectionConfig{
			PrimaryThreshold:   getEnvFloat("DETECTION_PRIMARY_THRESHOLD", 1.5),
			SecondaryThreshold: getEnvFloat("DETECTION_SECONDARY_THRESHOLD", 2.0),
			CacheTTLMinutes:    getEnvInt("DETECTION_CACHE_TTL_MINUTES", 15),
		},

		WebhookURL: getEnvOrDefault("OUTLIER_WEBHOOK_URL", ""),
	}
}

// getEnvInt gets environment variable as int or returns default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var intValue int
	if _, err := fmt.Sscanf(value, "%d", &intValue); err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvFloat gets environment variable as float64 or returns default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var floatValue float64
	if _, err := fmt.Sscanf(value, "%f", &floatValue); err != nil {
		return defaultValue
	}
	return floatValue
}

// getEnvOrDefault gets environment variable or returns default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
