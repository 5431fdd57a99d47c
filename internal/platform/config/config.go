package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

type Config struct {
	Addr               string
	DatabaseURL        string
	JWTSecret          string
	Environment        string
	LogLevel           string
	RunMigrations      bool
	RunSeed            bool
	SeedShopName       string
	SeedOwnerEmail     string
	SeedOwnerProvider  string
	SeedOwnerSubject   string
	MaxBodyBytes       int64
	RateLimitPerMinute int
	DBMaxConns         int
	DBMinConns         int
	MetricsEnabled     bool
	JobsEnabled        bool
	SalarySyncSchedule string
	CurrencySymbol     string
	EmailEnabled       bool
	EmailFrom          string
	SMTPHost           string
	SMTPPort           int
	SMTPUser           string
	SMTPPassword       string
	SMTPUseTLS         bool
}

// Load reads an optional .env file and then the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("dotenv load failed", "err", err)
	}
	return Config{
		Addr:               getEnv("APP_ADDR", ":8080"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		Environment:        getEnv("APP_ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		RunMigrations:      getEnvBool("RUN_MIGRATIONS", true),
		RunSeed:            getEnvBool("RUN_SEED", false),
		SeedShopName:       getEnv("SEED_SHOP_NAME", ""),
		SeedOwnerEmail:     getEnv("SEED_OWNER_EMAIL", ""),
		SeedOwnerProvider:  getEnv("SEED_OWNER_PROVIDER", "firebase"),
		SeedOwnerSubject:   getEnv("SEED_OWNER_SUBJECT", ""),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		DBMaxConns:         getEnvInt("DB_MAX_CONNS", 10),
		DBMinConns:         getEnvInt("DB_MIN_CONNS", 2),
		MetricsEnabled:     getEnvBool("METRICS_ENABLED", true),
		JobsEnabled:        getEnvBool("JOBS_ENABLED", true),
		SalarySyncSchedule: getEnv("SALARY_SYNC_SCHEDULE", "0 3 * * *"),
		CurrencySymbol:     getEnv("CURRENCY_SYMBOL", "₹"),
		EmailEnabled:       getEnvBool("EMAIL_ENABLED", false),
		EmailFrom:          getEnv("EMAIL_FROM", ""),
		SMTPHost:           getEnv("SMTP_HOST", ""),
		SMTPPort:           getEnvInt("SMTP_PORT", 587),
		SMTPUser:           getEnv("SMTP_USER", ""),
		SMTPPassword:       getEnv("SMTP_PASSWORD", ""),
		SMTPUseTLS:         getEnvBool("SMTP_USE_TLS", true),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Environment == "production" && strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MAX_CONNS must be positive and not below DB_MIN_CONNS")
	}
	if strings.TrimSpace(c.SalarySyncSchedule) != "" {
		if _, err := cron.ParseStandard(c.SalarySyncSchedule); err != nil {
			return fmt.Errorf("SALARY_SYNC_SCHEDULE is not a valid cron expression: %w", err)
		}
	}
	if c.RunSeed && (strings.TrimSpace(c.SeedShopName) == "" || strings.TrimSpace(c.SeedOwnerEmail) == "") {
		return fmt.Errorf("SEED_SHOP_NAME and SEED_OWNER_EMAIL are required when RUN_SEED is true")
	}
	if c.EmailEnabled && (strings.TrimSpace(c.SMTPHost) == "" || strings.TrimSpace(c.EmailFrom) == "") {
		return fmt.Errorf("SMTP_HOST and EMAIL_FROM are required when EMAIL_ENABLED is true")
	}
	if strings.TrimSpace(c.CurrencySymbol) == "" {
		return fmt.Errorf("CURRENCY_SYMBOL must not be empty")
	}
	return nil
}
