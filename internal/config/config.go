package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"workshop-billing-backend/internal/logger"
)

type Config struct {
	Port        string
	CORSOrigins []string

	// Database
	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string

	// Auth
	JWTSecret     string
	JWTTTL        time.Duration
	AdminUsername string

	// Mail
	SendGridAPIKey string
	MailFrom       string
	MailFromName   string

	// Issuer block printed on every invoice
	IssuerName  string
	IssuerTaxID string
	IssuerPhone string
	IssuerEmail string

	// Optional YAML file overriding the line classification rules
	ClassifierRulesFile string

	// Logging
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	ttl, err := time.ParseDuration(getEnv("JWT_TTL", "12h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}

	config := &Config{
		Port:                getEnv("PORT", "8080"),
		CORSOrigins:         splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		DBHost:              getEnv("DB_HOST", "localhost"),
		DBPort:              getEnv("DB_PORT", "5432"),
		DBUser:              getEnv("DB_USER", "postgres"),
		DBPassword:          getEnv("DB_PASSWORD", ""),
		DBName:              getEnv("DB_NAME", "workshop"),
		DBSSLMode:           getEnv("DB_SSLMODE", "disable"),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		JWTTTL:              ttl,
		AdminUsername:       getEnv("ADMIN_USERNAME", "admin"),
		SendGridAPIKey:      getEnv("SENDGRID_API_KEY", ""),
		MailFrom:            getEnv("MAIL_FROM", "facturacion@motoroom.com"),
		MailFromName:        getEnv("MAIL_FROM_NAME", "Motoroom Taller Mecánico"),
		IssuerName:          getEnv("ISSUER_NAME", "MOTOROOM TALLER MECÁNICO"),
		IssuerTaxID:         getEnv("ISSUER_TAX_ID", "70434575-0"),
		IssuerPhone:         getEnv("ISSUER_PHONE", "3122012588"),
		IssuerEmail:         getEnv("ISSUER_EMAIL", "facturacion@motoroom.com"),
		ClassifierRulesFile: getEnv("CLASSIFIER_RULES_FILE", ""),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:       getEnv("LOG_TIME_FORMAT", time.RFC3339),
		LogOutput:           getEnv("LOG_OUTPUT", "stdout"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" && c.DBName == "" {
		return fmt.Errorf("DATABASE_URL or DB_NAME is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.AdminUsername == "" {
		return fmt.Errorf("ADMIN_USERNAME must not be empty")
	}
	return nil
}

// DSN returns the postgres connection string, preferring DATABASE_URL.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
