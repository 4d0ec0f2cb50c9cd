package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"migitrader/pkg/errors"
)

type Config struct {
	App           AppConfig
	HTTP          HTTPConfig
	Redis         RedisConfig
	NSE           NSEConfig
	Cache         CacheConfig
	Kafka         KafkaConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"migitrader"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

type HTTPConfig struct {
	Port int `envconfig:"HTTP_PORT" default:"8080"`
}

type RedisConfig struct {
	Host            string `envconfig:"REDIS_HOST" required:"true"`
	Port            int    `envconfig:"REDIS_PORT" default:"6379"`
	Password        string `envconfig:"REDIS_PASSWORD"`
	DB              int    `envconfig:"REDIS_DB" default:"0"`
	ConnectAttempts int    `envconfig:"REDIS_CONNECT_ATTEMPTS" default:"3"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NSEConfig configures the upstream market-data API
type NSEConfig struct {
	BaseURL       string        `envconfig:"NSE_API_URL" required:"true"`
	APIKey        string        `envconfig:"NSE_API_KEY" required:"true"`
	Timeout       time.Duration `envconfig:"NSE_API_TIMEOUT" default:"10s"`
	RetryAttempts int           `envconfig:"NSE_API_RETRY_ATTEMPTS" default:"3"`
	RateLimitRPS  float64       `envconfig:"NSE_API_RATE_LIMIT_RPS" default:"5"`
}

type CacheConfig struct {
	Namespace string `envconfig:"CACHE_NAMESPACE" default:"migitrader"`
	TopPicks  int    `envconfig:"INSIGHTS_TOP_PICKS" default:"3"`
}

type KafkaConfig struct {
	// Empty broker list disables event publishing
	Brokers []string `envconfig:"KAFKA_BROKERS"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	if cfg.NSE.RetryAttempts < 1 {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "NSE_API_RETRY_ATTEMPTS must be >= 1, got %d", cfg.NSE.RetryAttempts)
	}

	return &cfg, nil
}
