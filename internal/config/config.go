package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration for both services.
type Config struct {
	ServerPort     int
	DatabasePath   string
	AllowedOrigins []string

	// Token verification (posts service).
	Auth0Domain   string
	Auth0Audience string

	// Management API credentials (user service).
	Auth0ClientID           string
	Auth0ClientSecret       string
	Auth0ManagementAudience string

	// Cron expression for the periodic usage report.
	UsageReportSchedule string
}

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}

	return &Config{
		ServerPort:     port,
		DatabasePath:   getEnv("DATABASE_PATH", "./kwekker.db"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:3000"), ","),

		Auth0Domain:   getEnv("AUTH0_DOMAIN", "kwekker.eu.auth0.com"),
		Auth0Audience: getEnv("AUTH0_AUDIENCE", "https://api.kwekker.example"),

		Auth0ClientID:           os.Getenv("AUTH0_CLIENT_ID"),
		Auth0ClientSecret:       os.Getenv("AUTH0_CLIENT_SECRET"),
		Auth0ManagementAudience: getEnv("AUTH0_MANAGEMENT_AUDIENCE", "https://kwekker.eu.auth0.com/api/v2/"),

		UsageReportSchedule: getEnv("USAGE_REPORT_SCHEDULE", "*/15 * * * *"),
	}, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
