// Package config loads runtime settings from the environment and an optional
// config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/money"
	"github.com/fjod/go_cart/storefront/internal/pricing"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	HTTPPort        string        `mapstructure:"HTTP_PORT"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	ServiceName     string        `mapstructure:"SERVICE_NAME"`
	// OTLP/gRPC collector address; empty keeps traces in process.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`

	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`
	CartCacheTTL  time.Duration `mapstructure:"CART_CACHE_TTL"`

	DBHost         string `mapstructure:"DB_HOST"`
	DBPort         int    `mapstructure:"DB_PORT"`
	DBUser         string `mapstructure:"DB_USER"`
	DBPassword     string `mapstructure:"DB_PASSWORD"`
	DBName         string `mapstructure:"DB_NAME"`
	MigrationsPath string `mapstructure:"MIGRATIONS_PATH"`

	// Empty KafkaBrokers disables invalidation events and the session consumer.
	KafkaBrokers         []string `mapstructure:"KAFKA_BROKERS"`
	InvalidationTopic    string   `mapstructure:"INVALIDATION_TOPIC"`
	SessionEventsTopic   string   `mapstructure:"SESSION_EVENTS_TOPIC"`
	SessionConsumerGroup string   `mapstructure:"SESSION_CONSUMER_GROUP"`

	JWTSecret    string `mapstructure:"JWT_SECRET"`
	SecureCookie bool   `mapstructure:"SECURE_COOKIE"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogPretty bool   `mapstructure:"LOG_PRETTY"`

	FreeShippingThreshold    string `mapstructure:"FREE_SHIPPING_THRESHOLD"`
	FlatShippingFee          string `mapstructure:"FLAT_SHIPPING_FEE"`
	TaxRate                  string `mapstructure:"TAX_RATE"`
	WaiveShippingOnEmptyCart bool   `mapstructure:"WAIVE_SHIPPING_ON_EMPTY_CART"`
}

var defaults = map[string]any{
	"HTTP_PORT":        "8080",
	"REQUEST_TIMEOUT":  30 * time.Second,
	"SHUTDOWN_TIMEOUT": 10 * time.Second,
	"SERVICE_NAME":     "storefront",

	"OTEL_EXPORTER_OTLP_ENDPOINT": "",

	"MONGO_URI":     "mongodb://localhost:27017",
	"MONGO_DB_NAME": "storefront",

	"REDIS_ADDR":     "localhost:6379",
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,
	"CART_CACHE_TTL": 15 * time.Minute,

	"DB_HOST":         "localhost",
	"DB_PORT":         5432,
	"DB_USER":         "postgres",
	"DB_PASSWORD":     "postgres",
	"DB_NAME":         "catalog",
	"MIGRATIONS_PATH": "internal/repository/migrations",

	"KAFKA_BROKERS":          []string{},
	"INVALIDATION_TOPIC":     "storefront.product-invalidations",
	"SESSION_EVENTS_TOPIC":   "storefront.session-events",
	"SESSION_CONSUMER_GROUP": "storefront-cart",

	"JWT_SECRET":    "",
	"SECURE_COOKIE": false,

	"LOG_LEVEL":  "info",
	"LOG_PRETTY": false,

	"FREE_SHIPPING_THRESHOLD":      "100.00",
	"FLAT_SHIPPING_FEE":            "10.00",
	"TAX_RATE":                     "0.15",
	"WAIVE_SHIPPING_ON_EMPTY_CART": false,
}

// Load reads settings from the environment. When CONFIG_FILE is set, that
// file (.env, yaml, json) is read first and the environment overrides it.
func Load() (*Config, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()

	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.KafkaBrokers = splitBrokers(cfg.KafkaBrokers)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitBrokers(in []string) []string {
	var out []string
	for _, item := range in {
		for _, b := range strings.Split(item, ",") {
			if b = strings.TrimSpace(b); b != "" {
				out = append(out, b)
			}
		}
	}
	return out
}

func (c *Config) Validate() error {
	var errs []error
	required := []struct{ key, val string }{
		{"HTTP_PORT", c.HTTPPort},
		{"MONGO_URI", c.MongoURI},
		{"MONGO_DB_NAME", c.MongoDBName},
		{"REDIS_ADDR", c.RedisAddr},
		{"DB_HOST", c.DBHost},
		{"DB_NAME", c.DBName},
	}
	for _, r := range required {
		if strings.TrimSpace(r.val) == "" {
			errs = append(errs, fmt.Errorf("%s is required", r.key))
		}
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT must be positive"))
	}
	if len(c.KafkaBrokers) > 0 && c.SessionConsumerGroup == "" {
		errs = append(errs, errors.New("SESSION_CONSUMER_GROUP is required when KAFKA_BROKERS is set"))
	}
	if _, err := c.PricingPolicy(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) PricingPolicy() (pricing.Policy, error) {
	threshold, err := money.ParsePrice(c.FreeShippingThreshold)
	if err != nil {
		return pricing.Policy{}, fmt.Errorf("FREE_SHIPPING_THRESHOLD: %w", err)
	}
	fee, err := money.ParsePrice(c.FlatShippingFee)
	if err != nil {
		return pricing.Policy{}, fmt.Errorf("FLAT_SHIPPING_FEE: %w", err)
	}
	rate, err := decimal.NewFromString(c.TaxRate)
	if err != nil || rate.IsNegative() {
		return pricing.Policy{}, fmt.Errorf("TAX_RATE must be a non-negative decimal, got %q", c.TaxRate)
	}
	return pricing.Policy{
		FreeShippingThreshold: threshold,
		FlatShipping:          fee,
		TaxRate:               rate,
		WaiveShippingOnEmpty:  c.WaiveShippingOnEmptyCart,
	}, nil
}

func (c *Config) PostgresCredentials() *repository.Credentials {
	return &repository.Credentials{
		Host:              c.DBHost,
		Port:              c.DBPort,
		User:              c.DBUser,
		Password:          c.DBPassword,
		DBName:            c.DBName,
		MigrationsDirPath: c.MigrationsPath,
	}
}
