package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Config holds the application configuration.
type Config struct {
	ServerPort       int    `validate:"min=1,max=65535"`
	StoragePath      string `validate:"required"` // Directory for uploaded images
	DatabasePath     string `validate:"required"`
	CORSOrigin       string `validate:"required,url"`
	JWTSecret        string // Empty means mock tokens are issued
	AppEnv           string `validate:"oneof=development production test"`
	LogLevel         string `validate:"oneof=debug info warn error"`
	LogPretty        bool
	StorageCheckCron string `validate:"required"`
	AuthRateLimit    int    `validate:"min=0"` // Requests per minute per IP on /api/auth, 0 disables
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("PORT", "3000"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	pretty, err := strconv.ParseBool(getEnv("LOG_PRETTY", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_PRETTY: %w", err)
	}

	rateLimit, err := strconv.Atoi(getEnv("AUTH_RATE_LIMIT", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTH_RATE_LIMIT: %w", err)
	}

	cfg := &Config{
		ServerPort:       port,
		StoragePath:      getEnv("STORAGE_PATH", "./uploads"),
		DatabasePath:     getEnv("DATABASE_PATH", "./slatehub.db"),
		CORSOrigin:       getEnv("CORS_ORIGIN", "http://localhost:5173"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		AppEnv:           getEnv("APP_ENV", "development"),
		LogLevel:         getEnv("LOG_LEVEL", "debug"),
		LogPretty:        pretty,
		StorageCheckCron: getEnv("STORAGE_CHECK_CRON", "@every 5m"),
		AuthRateLimit:    rateLimit,
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// IsProduction reports whether cookies should be marked Secure.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
