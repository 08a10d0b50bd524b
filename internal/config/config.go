// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port           string
	Environment    string
	DatabaseURL    string
	MigrationsPath string
	RedisURL       string
	JWTSecret      string
	JWTExpiry      int
	RefreshExpiry  int
	LogLevel       string
	CORSOrigins    []string

	// Password reset
	ResetTokenTTLMinutes int

	// Email configuration
	EmailProvider string
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPassword  string
	SMTPFrom      string
	SMTPFromName  string
	SMTPUseTLS    bool
	AWSRegion     string
	SESFrom       string

	// Frontend URL for email links
	FrontendURL string

	// Background jobs
	CronEnabled        bool
	AutoPenaltyEnabled bool

	// Ranking cache lifetime in seconds
	RankingCacheTTL int

	// Development fixtures
	SeedFile string
}

func Load() *Config {
	return &Config{
		Port:           getEnv("API_PORT", "8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./internal/db/migrations"),
		RedisURL:       getEnv("REDIS_URL", ""),
		JWTSecret:      getEnv("JWT_SECRET", "your-secret-key"),
		JWTExpiry:      getEnvInt("JWT_EXPIRY", 24),
		RefreshExpiry:  getEnvInt("REFRESH_EXPIRY", 7),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		CORSOrigins:    getEnvList("CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),

		ResetTokenTTLMinutes: getEnvInt("RESET_TOKEN_TTL_MINUTES", 60),

		// Email configuration
		EmailProvider: getEnv("EMAIL_PROVIDER", ""),
		SMTPHost:      getEnv("SMTP_HOST", ""),
		SMTPPort:      getEnvInt("SMTP_PORT", 587),
		SMTPUser:      getEnv("SMTP_USER", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:      getEnv("SMTP_FROM", "noreply@ora-family.com"),
		SMTPFromName:  getEnv("SMTP_FROM_NAME", "ORA Family"),
		SMTPUseTLS:    getEnvBool("SMTP_USE_TLS", false),
		AWSRegion:     getEnv("AWS_REGION", "us-east-1"),
		SESFrom:       getEnv("SES_FROM", "noreply@ora-family.com"),

		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		CronEnabled:        getEnvBool("CRON_ENABLED", false),
		AutoPenaltyEnabled: getEnvBool("AUTO_PENALTY_ENABLED", false),

		RankingCacheTTL: getEnvInt("RANKING_CACHE_TTL", 60),

		SeedFile: getEnv("SEED_FILE", ""),
	}
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
