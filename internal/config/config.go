package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Stripe       StripeConfig
	Pretalx      PretalxConfig
	Sponsors     SponsorsConfig
	Auth         AuthConfig
	Registration RegistrationConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// StripeConfig holds Stripe gateway configuration. Secret keys are
// stored per conference; only the webhook signing secret is global.
type StripeConfig struct {
	BaseURL       string
	WebhookSecret string
	Timeout       time.Duration
}

// PretalxConfig holds configuration for the Pretalx schedule source
type PretalxConfig struct {
	BaseURL  string
	APIToken string
	Timeout  time.Duration
}

// SponsorsConfig holds configuration for the external sponsor directory
type SponsorsConfig struct {
	FeedURL string
	Timeout time.Duration
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret   string
	TokenExpiry time.Duration
}

// RegistrationConfig holds registration flow tunables
type RegistrationConfig struct {
	CartTTL time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Host:         getEnv("HOST", "0.0.0.0"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "conference_registration"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Stripe: StripeConfig{
			BaseURL:       getEnv("STRIPE_BASE_URL", "https://api.stripe.com"),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			Timeout:       getEnvAsDuration("STRIPE_TIMEOUT", 30*time.Second),
		},
		Pretalx: PretalxConfig{
			BaseURL:  getEnv("PRETALX_BASE_URL", "https://pretalx.com"),
			APIToken: getEnv("PRETALX_API_TOKEN", ""),
			Timeout:  getEnvAsDuration("PRETALX_TIMEOUT", 30*time.Second),
		},
		Sponsors: SponsorsConfig{
			FeedURL: getEnv("SPONSOR_FEED_URL", ""),
			Timeout: getEnvAsDuration("SPONSOR_FEED_TIMEOUT", 30*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:   getEnv("JWT_SECRET", ""),
			TokenExpiry: getEnvAsDuration("JWT_TOKEN_EXPIRY", 24*time.Hour),
		},
		Registration: RegistrationConfig{
			CartTTL: getEnvAsDuration("CART_TTL", 2*time.Hour),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" && c.Database.Password == "" && c.Server.Environment == "production" {
		return fmt.Errorf("DATABASE_URL or DB_PASSWORD must be set in production")
	}
	if c.Auth.JWTSecret == "" {
		if c.Server.Environment == "production" {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		c.Auth.JWTSecret = "dev-only-secret"
	}
	if c.Registration.CartTTL <= 0 {
		return fmt.Errorf("CART_TTL must be positive")
	}
	return nil
}

// IsProduction returns true when running in the production environment
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvAsInt gets an environment variable as an integer with a fallback value
func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

// getEnvAsDuration gets an environment variable as a duration with a fallback value
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
