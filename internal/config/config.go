package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// ClinicTimezone is the clinic's fixed civil timezone. All slot labels
	// are wall-clock times in this zone regardless of the caller's locale.
	ClinicTimezone string

	// Backend API (owns appointment/treatment persistence)
	BackendBaseURL string
	BackendAPIKey  string
	BackendTimeout time.Duration

	// Session verification
	SessionJWTSecret string

	// Scheduling horizons
	PatientHorizonDays int
	AdminHorizonDays   int

	// Redis (per-clinic scheduling settings store)
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		ClinicTimezone:     getEnv("CLINIC_TIMEZONE", "America/Mexico_City"),
		BackendBaseURL:     getEnv("BACKEND_BASE_URL", ""),
		BackendAPIKey:      getEnv("BACKEND_API_KEY", ""),
		BackendTimeout:     getEnvAsDuration("BACKEND_TIMEOUT", 15*time.Second),
		SessionJWTSecret:   getEnv("SESSION_JWT_SECRET", ""),
		PatientHorizonDays: getEnvAsInt("PATIENT_HORIZON_DAYS", 30),
		AdminHorizonDays:   getEnvAsInt("ADMIN_HORIZON_DAYS", 90),
		RedisAddr:          getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisTLS:           getEnvAsBool("REDIS_TLS", false),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated environment variable, dropping empty entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
