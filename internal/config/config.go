package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	Rates      RatesConfig
	Checkout   CheckoutConfig
	OrderKey   OrderKeyConfig
	Storefront StorefrontConfig
	Stripe     StripeConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
	AutoMigrate     bool
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	APIKey string
}

// RatesConfig says where the fallback exchange-rate snapshot lives.
type RatesConfig struct {
	SnapshotFile string // gzipped "code,rate" CSV; empty disables the snapshot
	S3Enabled    bool
	S3Bucket     string
	S3Region     string
	S3Prefix     string // Path prefix within bucket (e.g., "rates/")
}

// CheckoutConfig holds pricing behaviour.
type CheckoutConfig struct {
	BaseCurrency         string
	UnknownTriggerPolicy string // "deny" or "allow"
	PollInterval         time.Duration
	OfflineAdapters      []string
}

// OrderKeyConfig holds the secret and lifetime of order keys.
type OrderKeyConfig struct {
	Secret string
	TTL    time.Duration
}

// StorefrontConfig holds the storefront the payment flow redirects back to.
type StorefrontConfig struct {
	URL string
}

// StripeConfig holds Stripe credentials. An empty SecretKey disables the adapter.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "checkout"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
			AutoMigrate:     getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			APIKey: getEnv("API_KEY", ""),
		},
		Rates: RatesConfig{
			SnapshotFile: getEnv("RATES_SNAPSHOT_FILE", ""),
			S3Enabled:    getEnvAsBool("RATES_S3_ENABLED", false),
			S3Bucket:     getEnv("RATES_S3_BUCKET", ""),
			S3Region:     getEnv("RATES_S3_REGION", "us-east-1"),
			S3Prefix:     getEnv("RATES_S3_PREFIX", "rates/"),
		},
		Checkout: CheckoutConfig{
			BaseCurrency:         strings.ToUpper(getEnv("BASE_CURRENCY", "USD")),
			UnknownTriggerPolicy: strings.ToLower(getEnv("UNKNOWN_TRIGGER_POLICY", "deny")),
			PollInterval:         getEnvAsDuration("ORDER_STATUS_POLL_INTERVAL", 3*time.Second),
			OfflineAdapters:      getEnvAsList("OFFLINE_PAYMENT_ADAPTERS", []string{"bank_transfer", "cash_on_delivery"}),
		},
		OrderKey: OrderKeyConfig{
			Secret: getEnv("ORDER_KEY_SECRET", ""),
			TTL:    getEnvAsDuration("ORDER_KEY_TTL", 24*time.Hour),
		},
		Storefront: StorefrontConfig{
			URL: getEnv("STOREFRONT_URL", "http://localhost:3000"),
		},
		Stripe: StripeConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Auth.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.Rates.S3Enabled {
		if c.Rates.S3Bucket == "" {
			return fmt.Errorf("rates S3 bucket is required when S3 is enabled")
		}
		if c.Rates.S3Region == "" {
			return fmt.Errorf("rates S3 region is required when S3 is enabled")
		}
	}

	if len(c.Checkout.BaseCurrency) != 3 {
		return fmt.Errorf("invalid base currency: %q", c.Checkout.BaseCurrency)
	}

	if c.Checkout.UnknownTriggerPolicy != "deny" && c.Checkout.UnknownTriggerPolicy != "allow" {
		return fmt.Errorf("invalid unknown trigger policy: %s (must be deny or allow)", c.Checkout.UnknownTriggerPolicy)
	}

	if c.Checkout.PollInterval <= 0 {
		return fmt.Errorf("order status poll interval must be positive")
	}

	if c.OrderKey.Secret == "" {
		return fmt.Errorf("order key secret is required")
	}

	if c.OrderKey.TTL <= 0 {
		return fmt.Errorf("order key TTL must be positive")
	}

	if u, err := url.Parse(c.Storefront.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid storefront URL: %q", c.Storefront.URL)
	}

	if c.Stripe.SecretKey != "" && c.Stripe.WebhookSecret == "" {
		return fmt.Errorf("stripe webhook secret is required when stripe is enabled")
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("3s") or plain milliseconds ("3000").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
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
