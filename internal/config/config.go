// Package config loads and validates application configuration from
// environment variables. A .env file in the working directory is read first
// when present, matching how the server runs in development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (Vite dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// AdminToken is the bearer token guarding the /admin subtree.
	// When empty the admin surface rejects every request.
	AdminToken string

	// AutoMigrate runs pending database migrations on startup when true.
	// Defaults to false; production deploys migrate explicitly.
	AutoMigrate bool

	// SMTP settings for the payment-confirmation mail. Leaving SMTPHost
	// empty disables outgoing mail; confirmations are then logged only.
	// MailFrom falls back to SMTPUser, then to a no-reply address.
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string

	// AMQPURL, when set, enables publishing a message to the broker each
	// time a payment is confirmed.
	AMQPURL string
}

// Load reads configuration from a .env file (if present) and the environment,
// and returns a Config. Returns an error listing any required variables that
// are not set.
func Load() (Config, error) {
	// Missing .env is the normal case outside development.
	_ = godotenv.Load()

	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		AdminToken:  os.Getenv("ADMIN_TOKEN"),
		AutoMigrate: getEnvBool("AUTO_MIGRATE", false),
		SMTPHost:    os.Getenv("SMTP_HOST"),
		SMTPPort:    getEnvInt("SMTP_PORT", 587),
		SMTPUser:    os.Getenv("SMTP_USER"),
		SMTPPass:    os.Getenv("SMTP_PASS"),
		MailFrom:    os.Getenv("MAIL_FROM"),
		AMQPURL:     os.Getenv("AMQP_URL"),
	}

	// SMTP servers reject an empty envelope sender; fall back to the SMTP
	// account, then to a generic no-reply address.
	if cfg.MailFrom == "" {
		cfg.MailFrom = cfg.SMTPUser
	}
	if cfg.MailFrom == "" {
		cfg.MailFrom = "no-reply@example.com"
	}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvBool parses key as a boolean, returning fallback when unset or
// malformed.
func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// getEnvInt parses key as an integer, returning fallback when unset or
// malformed.
func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
