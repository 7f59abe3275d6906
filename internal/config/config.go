package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port         int
	DevMode      bool
	LogLevel     string
	EnvPath      string
	DataDir      string
	ReportsDir   string
	DatabasePath string

	// Market data
	QuotesBaseURL string

	// Optional AI analyzer
	AIAPIKey  string
	AIBaseURL string
	AIModel   string

	// Optional news search (rotating keys)
	SearchAPIKeys []string
	SearchBaseURL string

	// Notification webhook
	WebhookURL string

	// Task orchestration
	AnalysisWorkers int
	MaxTaskLogs     int

	// Cron schedules (with seconds field)
	MarketReviewSchedule  string
	WatchlistScanSchedule string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	envPath := getEnv("ENV_FILE", ".env")
	_ = godotenv.Load(envPath)

	cfg := &Config{
		Port:         getEnvAsInt("PORT", 8000),
		DevMode:      getEnvAsBool("DEV_MODE", false),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		EnvPath:      envPath,
		DataDir:      getEnv("DATA_DIR", "./data"),
		ReportsDir:   getEnv("REPORTS_DIR", "./reports"),
		DatabasePath: getEnv("DATABASE_PATH", "./data/stockwatch.db"),

		QuotesBaseURL: getEnv("QUOTES_BASE_URL", "https://quotes.example.com"),

		AIAPIKey:  getEnv("AI_API_KEY", ""),
		AIBaseURL: getEnv("AI_BASE_URL", "https://generativelanguage.googleapis.com"),
		AIModel:   getEnv("AI_MODEL", "gemini-2.0-flash"),

		SearchAPIKeys: splitList(getEnv("SEARCH_API_KEYS", "")),
		SearchBaseURL: getEnv("SEARCH_BASE_URL", "https://api.search.example.com"),

		WebhookURL: getEnv("WEBHOOK_URL", ""),

		AnalysisWorkers: getEnvAsInt("ANALYSIS_WORKERS", 3),
		MaxTaskLogs:     getEnvAsInt("MAX_TASK_LOGS", 200),

		MarketReviewSchedule:  getEnv("MARKET_REVIEW_SCHEDULE", ""),
		WatchlistScanSchedule: getEnv("WATCHLIST_SCAN_SCHEDULE", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.AnalysisWorkers < 1 {
		return fmt.Errorf("ANALYSIS_WORKERS must be at least 1")
	}
	if c.MaxTaskLogs < 1 {
		return fmt.Errorf("MAX_TASK_LOGS must be at least 1")
	}

	// AI and search credentials are optional; the market review runs with
	// reduced capability when they are missing.
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
