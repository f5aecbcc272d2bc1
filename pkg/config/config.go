package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	AppEnv   string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`
	HTTPPort int    `mapstructure:"HTTP_PORT"`

	DBDriver    string `mapstructure:"DB_DRIVER"` // "mysql" or "postgres"
	MySQLDSN    string `mapstructure:"MYSQL_DSN"`
	PostgresDSN string `mapstructure:"POSTGRES_DSN"`
	RedisAddr   string `mapstructure:"REDIS_ADDR"`

	KafkaBrokers []string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string   `mapstructure:"KAFKA_TOPIC"`

	CheckoutStaleAfter time.Duration `mapstructure:"CHECKOUT_STALE_AFTER"`
	StockMaxAttempts   int           `mapstructure:"STOCK_MAX_ATTEMPTS"`
	StockRetryJitter   time.Duration `mapstructure:"STOCK_RETRY_JITTER"`
	WorkerCount        int           `mapstructure:"WORKER_COUNT"`
	QueueSize          int           `mapstructure:"QUEUE_SIZE"`
}

// Load reads configuration from the environment with conservative defaults.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("MYSQL_DSN", "root:root@tcp(localhost:3306)/storefront?parseTime=true")
	v.SetDefault("POSTGRES_DSN", "")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("KAFKA_BROKERS", []string{"localhost:9092"})
	v.SetDefault("KAFKA_TOPIC", "storefront.events")
	v.SetDefault("CHECKOUT_STALE_AFTER", "15m")
	v.SetDefault("STOCK_MAX_ATTEMPTS", 3)
	v.SetDefault("STOCK_RETRY_JITTER", "5ms")
	v.SetDefault("WORKER_COUNT", 10)
	v.SetDefault("QUEUE_SIZE", 10000)

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	switch cfg.DBDriver {
	case "mysql", "postgres":
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	return cfg, nil
}
