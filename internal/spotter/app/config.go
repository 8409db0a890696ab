package app

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	FirebaseProjectID   string        // Required: identity provider project id
	FirebaseClientEmail string        // Required: service account email used for token signing
	FirebasePrivateKey  string        // Required: service account private key (PEM, \n-escaped allowed)
	FirebaseWebKey      string        // Optional: web API key; enables password verification on login
	RefreshMaxAge       time.Duration // Optional: refresh token validity window (default: 7 days)
	DatabaseFile        string        // Optional: path to SQLite database file (default: ./spotter.db)
	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() (Config, error) {
	cfg := Config{
		FirebaseProjectID:   os.Getenv("FIREBASE_PROJECT_ID"),
		FirebaseClientEmail: os.Getenv("FIREBASE_CLIENT_EMAIL"),
		FirebasePrivateKey:  unescapeKey(os.Getenv("FIREBASE_PRIVATE_KEY")),
		FirebaseWebKey:      os.Getenv("FIREBASE_WEB_API_KEY"),
		RefreshMaxAge:       getEnvDurationOrDefault("REFRESH_TOKEN_MAX_AGE", 7*24*time.Hour),
		DatabaseFile:        getEnvOrDefault("DATABASE_FILE", "spotter.db"),
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}

	if cfg.FirebaseProjectID == "" {
		return cfg, errors.New("FIREBASE_PROJECT_ID is required")
	}
	if cfg.FirebaseClientEmail == "" {
		return cfg, errors.New("FIREBASE_CLIENT_EMAIL is required")
	}
	if cfg.FirebasePrivateKey == "" {
		return cfg, errors.New("FIREBASE_PRIVATE_KEY is required")
	}

	return cfg, nil
}

// Private keys arrive through env vars with literal \n sequences; PEM
// needs real newlines.
func unescapeKey(key string) string {
	return strings.ReplaceAll(key, `\n`, "\n")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
