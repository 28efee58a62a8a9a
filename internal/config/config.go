package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppName string `envconfig:"APP_NAME" default:"Apotek POS v1.0"`
	Port    string `envconfig:"PORT" default:"3000"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL   string `envconfig:"DATABASE_URL"`
	DBHost        string `envconfig:"DB_HOST" default:"localhost"`
	DBUser        string `envconfig:"DB_USER" default:"postgres"`
	DBPassword    string `envconfig:"DB_PASSWORD"`
	DBName        string `envconfig:"DB_NAME" default:"apotek"`
	DBPort        string `envconfig:"DB_PORT" default:"5432"`
	DBAutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"true"`

	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"24h"`

	// empty disables the report cache
	RedisAddr      string        `envconfig:"REDIS_ADDR"`
	ReportCacheTTL time.Duration `envconfig:"REPORT_CACHE_TTL" default:"30s"`

	// empty disables the kafka event stream
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`

	LowStockThreshold   int    `envconfig:"LOW_STOCK_THRESHOLD" default:"10"`
	ExpiryMonths        int    `envconfig:"EXPIRY_MONTHS" default:"3"`
	ProductDeletePolicy string `envconfig:"PRODUCT_DELETE_POLICY" default:"allow"`

	AdminEmail    string `envconfig:"ADMIN_EMAIL" default:"admin@apotek.com"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD" default:"admin123"`
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt secret must be provided")
	}
	if cfg.LowStockThreshold < 0 {
		return nil, fmt.Errorf("LOW_STOCK_THRESHOLD must not be negative, got %d", cfg.LowStockThreshold)
	}
	if cfg.ExpiryMonths <= 0 {
		return nil, fmt.Errorf("EXPIRY_MONTHS must be positive, got %d", cfg.ExpiryMonths)
	}
	return &cfg, nil
}

// DSN prefers DATABASE_URL and otherwise assembles one from the DB_* parts.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=Asia/Jakarta",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort,
	)
}
