// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/quickai/quickai/internal/model"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"3000"`

	// Creation store: "postgres" or "sqlite"
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"quickai.db"`

	// Postgres pool
	DBMaxConns        int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns        int32         `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"5m"`
	DBConnectTimeout  time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"5s"`

	// Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Identity (Clerk)
	ClerkIssuer    string `env:"CLERK_ISSUER"`
	ClerkSecretKey string `env:"CLERK_SECRET_KEY"`
	ClerkAPIURL    string `env:"CLERK_API_URL" envDefault:"https://api.clerk.com/v1"`

	// Usage gate
	// UsageBackend selects where free usage counters live: "clerk" or "redis".
	UsageBackend        string `env:"USAGE_BACKEND" envDefault:"clerk"`
	FreeUsageLimit      int    `env:"FREE_USAGE_LIMIT" envDefault:"10"`
	PremiumOnlyFeatures string `env:"PREMIUM_ONLY_FEATURES" envDefault:""`

	// External calls
	ExternalCallTimeout time.Duration `env:"EXTERNAL_CALL_TIMEOUT" envDefault:"60s"`

	// Text generation (Gemini through its OpenAI-compatible endpoint)
	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	GeminiBaseURL string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta/openai/"`
	LLMModel      string `env:"LLM_MODEL" envDefault:"gemini-2.0-flash"`

	// Image generation (ClipDrop)
	ClipdropAPIKey string `env:"CLIPDROP_API_KEY"`
	ClipdropAPIURL string `env:"CLIPDROP_API_URL" envDefault:"https://clipdrop-api.co/text-to-image/v1"`

	// Object storage: "cloudinary" or "s3"
	StorageProvider     string `env:"STORAGE_PROVIDER" envDefault:"cloudinary"`
	CloudinaryCloudName string `env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `env:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `env:"CLOUDINARY_API_SECRET"`
	S3Bucket            string `env:"S3_BUCKET"`
	S3Region            string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint          string `env:"S3_ENDPOINT"`
	S3AccessKey         string `env:"S3_ACCESS_KEY"`
	S3SecretKey         string `env:"S3_SECRET_KEY"`
	S3UsePathStyle      bool   `env:"S3_USE_PATH_STYLE" envDefault:"false"`
	S3PublicBaseURL     string `env:"S3_PUBLIC_BASE_URL"`

	// Upload limits
	MaxResumeSize int64 `env:"MAX_RESUME_SIZE" envDefault:"5242880"`
	MaxImageSize  int64 `env:"MAX_IMAGE_SIZE" envDefault:"10485760"`

	// Rate limiting: per user on AI routes, per IP in front of authentication
	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitRPM     int  `env:"RATE_LIMIT_RPM" envDefault:"30"`
	RateLimitBurst   int  `env:"RATE_LIMIT_BURST" envDefault:"5"`
	RateLimitIPRPS   int  `env:"RATE_LIMIT_IP_RPS" envDefault:"20"`
	RateLimitIPBurst int  `env:"RATE_LIMIT_IP_BURST" envDefault:"40"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit for JSON endpoints in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	return splitList(c.CORSAllowedOrigins)
}

// GetPremiumOnlyFeatures parses PREMIUM_ONLY_FEATURES into features.
// Unknown names are reported as an error so typos do not silently open a feature.
func (c *Config) GetPremiumOnlyFeatures() ([]model.Feature, error) {
	names := splitList(c.PremiumOnlyFeatures)
	features := make([]model.Feature, 0, len(names))
	for _, name := range names {
		f, ok := model.ParseFeature(name)
		if !ok {
			return nil, fmt.Errorf("unknown premium-only feature %q", name)
		}
		features = append(features, f)
	}
	return features, nil
}

// Validate checks cross-field constraints env tags cannot express.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
		if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
			return errors.New("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS, and DB_MAX_CONNS positive")
		}
	case "sqlite":
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.UsageBackend {
	case "clerk", "redis":
	default:
		return fmt.Errorf("unsupported USAGE_BACKEND %q", c.UsageBackend)
	}

	switch c.StorageProvider {
	case "cloudinary", "s3":
	default:
		return fmt.Errorf("unsupported STORAGE_PROVIDER %q", c.StorageProvider)
	}

	if c.FreeUsageLimit < 0 {
		return errors.New("FREE_USAGE_LIMIT must not be negative")
	}
	if c.RateLimitEnabled && (c.RateLimitIPRPS <= 0 || c.RateLimitIPBurst <= 0) {
		return errors.New("RATE_LIMIT_IP_RPS and RATE_LIMIT_IP_BURST must be positive")
	}
	if c.ExternalCallTimeout <= 0 {
		return errors.New("EXTERNAL_CALL_TIMEOUT must be positive")
	}

	if _, err := c.GetPremiumOnlyFeatures(); err != nil {
		return err
	}

	return nil
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
