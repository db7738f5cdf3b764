// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the storefront server and client
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Session  SessionConfig
	Security SecurityConfig
	External ExternalConfig
	Payment  PaymentConfig
	Kafka    KafkaConfig
	Upload   UploadConfig
	Logging  LoggingConfig
	Client   ClientConfig
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string
	Version     string
	Environment string
	Debug       bool
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig contains database connection configuration
type DatabaseConfig struct {
	Host         string
	Port         string
	Name         string
	User         string
	Password     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// JWTConfig contains session token signing configuration
type JWTConfig struct {
	Secret string
}

// SessionConfig describes the session cookie handed to browsers and the shop client
type SessionConfig struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	BcryptCost         int
	RateLimitPerMinute int
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	CORSAllowedHeaders []string
}

// ExternalConfig contains external service configurations
type ExternalConfig struct {
	Stripe  StripeConfig
	Storage StorageConfig
}

// StripeConfig contains Stripe payment configuration
type StripeConfig struct {
	SecretKey      string
	PublishableKey string
}

// StorageConfig contains file storage configuration
type StorageConfig struct {
	LocalPath  string
	PublicPath string
}

// PaymentConfig selects the payment gateway used by the server
type PaymentConfig struct {
	Provider string // stripe or sandbox
	Currency string

	// Lets POST /api/cart/checkout place an order without a payment intent.
	// Sandbox only.
	AllowUnpaidCheckout bool

	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// KafkaConfig contains event publishing configuration. No brokers disables Kafka.
type KafkaConfig struct {
	Brokers    []string
	OrderTopic string
}

// UploadConfig contains product image upload configuration
type UploadConfig struct {
	MaxSize           int64
	AllowedExtensions []string
	MaxImageWidth     int // wider PNG/JPEG uploads are scaled down; 0 keeps originals
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// ClientConfig configures the shop client. It is filled by envconfig from
// the tags below.
type ClientConfig struct {
	APIBaseURL       string        `envconfig:"API_URL" default:"http://localhost:5000"`
	RequestTimeout   time.Duration `envconfig:"CLIENT_REQUEST_TIMEOUT" default:"30s"`
	PaymentProvider  string        `envconfig:"CLIENT_PAYMENT_PROVIDER" default:"sandbox"` // stripe or sandbox
	FinalizeAttempts int           `envconfig:"CLIENT_FINALIZE_ATTEMPTS" default:"5"`
	FinalizeBackoff  time.Duration `envconfig:"CLIENT_FINALIZE_BACKOFF" default:"500ms"`
	DefaultCard      string        `envconfig:"CLIENT_DEFAULT_CARD" default:"pm_card_visa"`
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	config, err := load()
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// LoadClient loads configuration for the shop client. Server-only settings are
// read but not validated.
func LoadClient() (*Config, error) {
	config, err := load()
	if err != nil {
		return nil, err
	}

	if err := config.ValidateClient(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	config := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Storefront"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
			Debug:       getEnvAsBool("APP_DEBUG", true),
		},
		Server: ServerConfig{
			Port:         getEnv("APP_PORT", "5000"),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Name:         getEnv("DB_NAME", "ecommerce_db"),
			User:         getEnv("DB_USER", "ecommerce_user"),
			Password:     getEnv("DB_PASSWORD", "ecommerce_password"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 300*time.Second),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-super-secret-jwt-key-change-in-production"),
		},
		Session: SessionConfig{
			CookieName: getEnv("SESSION_COOKIE_NAME", "storefront_session"),
			TTL:        getEnvAsDuration("SESSION_TTL", 24*time.Hour),
			Secure:     getEnvAsBool("SESSION_COOKIE_SECURE", false),
		},
		Security: SecurityConfig{
			BcryptCost:         getEnvAsInt("BCRYPT_COST", 12),
			RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 300),
			CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			CORSAllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			CORSAllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization"}),
		},
		External: ExternalConfig{
			Stripe: StripeConfig{
				SecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
				PublishableKey: getEnv("STRIPE_PUBLISHABLE_KEY", ""),
			},
			Storage: StorageConfig{
				LocalPath:  getEnv("STORAGE_LOCAL_PATH", "./uploads"),
				PublicPath: getEnv("STORAGE_PUBLIC_PATH", "/uploads"),
			},
		},
		Payment: PaymentConfig{
			Provider: getEnv("PAYMENT_PROVIDER", "sandbox"),
			Currency: getEnv("PAYMENT_CURRENCY", "usd"),

			AllowUnpaidCheckout: getEnvAsBool("PAYMENT_ALLOW_UNPAID_CHECKOUT", false),

			BreakerFailures: uint32(getEnvAsInt("PAYMENT_BREAKER_FAILURES", 5)),
			BreakerTimeout:  getEnvAsDuration("PAYMENT_BREAKER_TIMEOUT", 30*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    getEnvAsSlice("KAFKA_BROKERS", []string{}),
			OrderTopic: getEnv("KAFKA_ORDER_TOPIC", "order-events"),
		},
		Upload: UploadConfig{
			MaxSize:           getEnvAsInt64("UPLOAD_MAX_SIZE", 5242880), // 5MB
			AllowedExtensions: getEnvAsSlice("UPLOAD_ALLOWED_EXTENSIONS", []string{"jpg", "jpeg", "png", "gif", "webp"}),
			MaxImageWidth:     getEnvAsInt("UPLOAD_MAX_IMAGE_WIDTH", 800),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := envconfig.Process("", &config.Client); err != nil {
		return nil, fmt.Errorf("failed to read client configuration: %w", err)
	}
	config.Client.APIBaseURL = strings.TrimRight(config.Client.APIBaseURL, "/")

	return config, nil
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}

	if c.Redis.Host == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("APP_PORT is required")
	}

	if c.Session.CookieName == "" {
		return fmt.Errorf("SESSION_COOKIE_NAME is required")
	}

	switch c.Payment.Provider {
	case "sandbox":
	case "stripe":
		if c.External.Stripe.SecretKey == "" {
			return fmt.Errorf("STRIPE_SECRET_KEY is required when PAYMENT_PROVIDER=stripe")
		}
	default:
		return fmt.Errorf("unknown PAYMENT_PROVIDER %q", c.Payment.Provider)
	}

	if c.Payment.AllowUnpaidCheckout && c.Payment.Provider != "sandbox" {
		return fmt.Errorf("PAYMENT_ALLOW_UNPAID_CHECKOUT requires PAYMENT_PROVIDER=sandbox")
	}

	return nil
}

// ValidateClient validates the settings used by the shop client
func (c *Config) ValidateClient() error {
	if c.Client.APIBaseURL == "" {
		return fmt.Errorf("API_URL is required")
	}

	if c.Client.FinalizeAttempts < 1 {
		return fmt.Errorf("CLIENT_FINALIZE_ATTEMPTS must be at least 1")
	}

	switch c.Client.PaymentProvider {
	case "sandbox":
	case "stripe":
		if c.External.Stripe.PublishableKey == "" {
			return fmt.Errorf("STRIPE_PUBLISHABLE_KEY is required when CLIENT_PAYMENT_PROVIDER=stripe")
		}
	default:
		return fmt.Errorf("unknown CLIENT_PAYMENT_PROVIDER %q", c.Client.PaymentProvider)
	}

	return nil
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}
