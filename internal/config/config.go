package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Logger      LoggerConfig
	Auth        AuthConfig
	Pricing     PricingConfig
	FeeSchedule FeeScheduleConfig
	S3          S3Config
	Redis       RedisConfig
	Kafka       KafkaConfig
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
	RunMigrations   bool
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds bearer token verification settings.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// PricingConfig holds the deployment pricing constants.
type PricingConfig struct {
	TaxRate     decimal.Decimal
	DeliveryFee decimal.Decimal
}

// FeeScheduleConfig lists the delivery-fee override files.
type FeeScheduleConfig struct {
	Files []string
}

// S3Config holds AWS S3 configuration for fee schedule files.
type S3Config struct {
	Enabled bool
	Bucket  string
	Region  string
	Prefix  string // Path prefix within bucket (e.g., "fees/")
}

// RedisConfig holds the idempotency store connection.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	KeyTTL   time.Duration
}

// KafkaConfig holds the order event relay settings.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	PollInterval time.Duration
	BatchSize    int
}

// Enabled reports whether any broker is configured.
func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	taxRate, err := getEnvAsDecimal("TAX_RATE", "0.15")
	if err != nil {
		return nil, fmt.Errorf("invalid TAX_RATE: %w", err)
	}
	deliveryFee, err := getEnvAsDecimal("DELIVERY_FEE", "50.00")
	if err != nil {
		return nil, fmt.Errorf("invalid DELIVERY_FEE: %w", err)
	}

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
			Database:        getEnv("DB_NAME", "foodkart"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
			RunMigrations:   getEnvAsBool("DB_RUN_MIGRATIONS", true),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			Issuer:    getEnv("JWT_ISSUER", "food-kart"),
		},
		Pricing: PricingConfig{
			TaxRate:     taxRate,
			DeliveryFee: deliveryFee,
		},
		FeeSchedule: FeeScheduleConfig{
			Files: getEnvAsList("FEE_SCHEDULE_FILES"),
		},
		S3: S3Config{
			Enabled: getEnvAsBool("S3_ENABLED", false),
			Bucket:  getEnv("S3_BUCKET", ""),
			Region:  getEnv("S3_REGION", "us-east-1"),
			Prefix:  getEnv("S3_PREFIX", "fees/"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			KeyTTL:   time.Duration(getEnvAsInt("IDEMPOTENCY_TTL_HOURS", 24)) * time.Hour,
		},
		Kafka: KafkaConfig{
			Brokers:      getEnvAsList("KAFKA_BROKERS"),
			Topic:        getEnv("KAFKA_ORDER_TOPIC", "orders"),
			PollInterval: time.Duration(getEnvAsInt("OUTBOX_POLL_MS", 1000)) * time.Millisecond,
			BatchSize:    getEnvAsInt("OUTBOX_BATCH_SIZE", 100),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	return errors.Join(
		c.Server.validate(),
		c.Database.validate(),
		c.Logger.validate(),
		c.Auth.validate(),
		c.Pricing.validate(),
		c.S3.validate(),
		c.Redis.validate(),
		c.Kafka.validate(),
	)
}

func (c ServerConfig) validate() error {
	if !validPort(c.Port) {
		return fmt.Errorf("invalid server port: %d", c.Port)
	}
	return nil
}

func (c DatabaseConfig) validate() error {
	var errs []error
	if c.Host == "" {
		errs = append(errs, errors.New("database host is required"))
	}
	if !validPort(c.Port) {
		errs = append(errs, fmt.Errorf("invalid database port: %d", c.Port))
	}
	if c.User == "" {
		errs = append(errs, errors.New("database user is required"))
	}
	if c.Database == "" {
		errs = append(errs, errors.New("database name is required"))
	}
	switch {
	case c.MinConnections < 1 || c.MaxConnections < 1:
		errs = append(errs, fmt.Errorf("database connections must be at least 1 (min %d, max %d)", c.MinConnections, c.MaxConnections))
	case c.MinConnections > c.MaxConnections:
		errs = append(errs, fmt.Errorf("database min connections (%d) cannot exceed max connections (%d)", c.MinConnections, c.MaxConnections))
	}
	return errors.Join(errs...)
}

var logLevels = []string{"debug", "info", "warn", "error"}

func (c LoggerConfig) validate() error {
	var errs []error
	if !slices.Contains(logLevels, c.Level) {
		errs = append(errs, fmt.Errorf("invalid log level %q (one of %s)", c.Level, strings.Join(logLevels, ", ")))
	}
	if c.Format != "json" && c.Format != "console" {
		errs = append(errs, fmt.Errorf("invalid log format %q (json or console)", c.Format))
	}
	return errors.Join(errs...)
}

func (c AuthConfig) validate() error {
	switch {
	case c.JWTSecret == "":
		return errors.New("JWT secret is required")
	case len(c.JWTSecret) < 16:
		return errors.New("JWT secret must be at least 16 characters")
	}
	return nil
}

func (c PricingConfig) validate() error {
	var errs []error
	if c.TaxRate.IsNegative() || c.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		errs = append(errs, fmt.Errorf("invalid tax rate %s (between 0 and 1)", c.TaxRate))
	}
	if c.DeliveryFee.IsNegative() {
		errs = append(errs, fmt.Errorf("invalid delivery fee %s (must not be negative)", c.DeliveryFee))
	}
	return errors.Join(errs...)
}

func (c S3Config) validate() error {
	if !c.Enabled {
		return nil
	}
	var errs []error
	if c.Bucket == "" {
		errs = append(errs, errors.New("S3 bucket is required when S3 is enabled"))
	}
	if c.Region == "" {
		errs = append(errs, errors.New("S3 region is required when S3 is enabled"))
	}
	return errors.Join(errs...)
}

func (c RedisConfig) validate() error {
	if c.Enabled && c.Addr == "" {
		return errors.New("redis address is required when redis is enabled")
	}
	return nil
}

func (c KafkaConfig) validate() error {
	if !c.Enabled() {
		return nil
	}
	var errs []error
	if c.Topic == "" {
		errs = append(errs, errors.New("kafka topic is required when brokers are configured"))
	}
	if c.BatchSize < 1 {
		errs = append(errs, errors.New("outbox batch size must be at least 1"))
	}
	return errors.Join(errs...)
}

func validPort(p int) bool {
	return p >= 1 && p <= 65535
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

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// getEnvAsInt falls back on unset or unparsable values.
func getEnvAsInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvAsBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return b
}

// getEnvAsDecimal parses an environment variable as a decimal amount.
func getEnvAsDecimal(key, defaultValue string) (decimal.Decimal, error) {
	return decimal.NewFromString(getEnv(key, defaultValue))
}

// getEnvAsList splits a comma separated environment variable.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
