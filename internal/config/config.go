// Package config handles loading and validation of application configuration
// from environment variables. Supports .env files via godotenv.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port        int
	Environment string // "development" | "staging" | "production"

	// Security
	JWTSecret       string
	SessionTTLHours int
	AllowedOrigins  []string
	RateLimitRPM    int

	// Persistence: "file" snapshots under DataDir, or "redis"
	StorageBackend string
	DataDir        string
	RedisURL       string

	// Geocoding: "demo" fixed table or "live" Nominatim
	GeocoderMode string
	NominatimURL string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnvInt("PORT", 8080),
		Environment: getEnv("ENVIRONMENT", "development"),

		JWTSecret:       getEnv("JWT_SECRET", "dev-secret-change-in-production"),
		SessionTTLHours: getEnvInt("SESSION_TTL_HOURS", 72),
		AllowedOrigins:  strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000"), ","),
		RateLimitRPM:    getEnvInt("RATE_LIMIT_RPM", 60),

		StorageBackend: getEnv("STORAGE_BACKEND", "file"),
		DataDir:        getEnv("DATA_DIR", "./data"),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379"),

		GeocoderMode: getEnv("GEOCODER_MODE", "demo"),
		NominatimURL: getEnv("NOMINATIM_URL", ""),
	}

	switch cfg.StorageBackend {
	case "file", "redis":
	default:
		return nil, fmt.Errorf("STORAGE_BACKEND must be file or redis, got %q", cfg.StorageBackend)
	}
	switch cfg.GeocoderMode {
	case "demo", "live":
	default:
		return nil, fmt.Errorf("GEOCODER_MODE must be demo or live, got %q", cfg.GeocoderMode)
	}

	// Validate required fields in production
	if cfg.Environment == "production" {
		if cfg.JWTSecret == "dev-secret-change-in-production" {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}
