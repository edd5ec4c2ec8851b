package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config represents application configuration
type Config struct {
	Derive     DeriveConfig     `envconfig:"DERIVE"`
	Exchange   ExchangeConfig   `envconfig:"EXCHANGE"`
	Database   DatabaseConfig   `envconfig:"DATABASE"`
	ClickHouse ClickHouseConfig `envconfig:"CLICKHOUSE"`
	Redis      RedisConfig      `envconfig:"REDIS"`
	Telegram   TelegramConfig   `envconfig:"TELEGRAM"`
	Logging    LoggingConfig    `envconfig:"LOGGING"`
	Health     HealthConfig     `envconfig:"HEALTH"`
}

// DeriveConfig represents feature derivation parameters
type DeriveConfig struct {
	Symbols       []string      `envconfig:"DERIVE_SYMBOLS" default:"BTC/USDT,ETH/USDT"`
	Timeframe     string        `envconfig:"DERIVE_TIMEFRAME" default:"1d"`
	VolWindow     int           `envconfig:"DERIVE_VOL_WINDOW" default:"7"`
	RollingWindow int           `envconfig:"DERIVE_ROLLING_WINDOW" default:"20"`
	Interval      time.Duration `envconfig:"DERIVE_INTERVAL" default:"6h"`
	HistoryBars   int           `envconfig:"DERIVE_HISTORY_BARS" default:"730"`
}

// ExchangeConfig represents market data source configuration
type ExchangeConfig struct {
	Name          string        `envconfig:"EXCHANGE_NAME" default:"binance"`
	APIKey        string        `envconfig:"EXCHANGE_API_KEY" required:"false"`
	Secret        string        `envconfig:"EXCHANGE_SECRET" required:"false"`
	FetchInterval time.Duration `envconfig:"EXCHANGE_FETCH_INTERVAL" default:"1h"`
	FetchLimit    int           `envconfig:"EXCHANGE_FETCH_LIMIT" default:"500"`
}

// DatabaseConfig represents PostgreSQL connection parameters
type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"regimelab"`
	User     string `envconfig:"DB_USER" required:"true"`
	Password string `envconfig:"DB_PASSWORD" required:"true"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
}

// ClickHouseConfig represents ClickHouse connection parameters
type ClickHouseConfig struct {
	Host     string `envconfig:"CLICKHOUSE_HOST" default:"localhost"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	Name     string `envconfig:"CLICKHOUSE_DB" default:"regimelab"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD" required:"false"`
}

// RedisConfig represents Redis connection parameters
type RedisConfig struct {
	Addr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string        `envconfig:"REDIS_PASSWORD" required:"false"`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	LockTTL  time.Duration `envconfig:"REDIS_LOCK_TTL" default:"10m"`
	CacheTTL time.Duration `envconfig:"REDIS_CACHE_TTL" default:"24h"`
}

// TelegramConfig represents Telegram notification configuration
type TelegramConfig struct {
	Enabled       bool   `envconfig:"TELEGRAM_ENABLED" default:"false"`
	BotToken      string `envconfig:"TELEGRAM_BOT_TOKEN" required:"false"`
	ChatID        int64  `envconfig:"TELEGRAM_CHAT_ID" required:"false"`
	AlertOnRuns   bool   `envconfig:"TELEGRAM_ALERT_ON_RUNS" default:"true"`
	AlertOnErrors bool   `envconfig:"TELEGRAM_ALERT_ON_ERRORS" default:"true"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
	File  string `envconfig:"LOG_FILE" default:"logs/deriver.log"`
}

// HealthConfig represents health endpoint configuration
type HealthConfig struct {
	Addr string `envconfig:"HEALTH_ADDR" default:":8080"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if len(c.Derive.Symbols) == 0 {
		return fmt.Errorf("at least one symbol must be configured")
	}
	if c.Derive.VolWindow < 2 {
		return fmt.Errorf("vol_window must be at least 2")
	}
	if c.Derive.RollingWindow < 3 {
		return fmt.Errorf("rolling_window must be at least 3")
	}
	if c.Derive.HistoryBars <= c.Derive.RollingWindow+c.Derive.VolWindow {
		return fmt.Errorf("history_bars must exceed the combined rolling windows")
	}
	if c.Derive.Interval <= 0 {
		return fmt.Errorf("derive interval must be positive")
	}

	if c.Exchange.Name == "" {
		return fmt.Errorf("exchange name is required")
	}
	if c.Exchange.FetchLimit < 1 {
		return fmt.Errorf("fetch_limit must be at least 1")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram bot token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == 0 {
			return fmt.Errorf("telegram chat_id is required when telegram is enabled")
		}
	}

	return nil
}

// GetDSN returns PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// GetDSN returns ClickHouse connection string
func (c *ClickHouseConfig) GetDSN() string {
	return fmt.Sprintf(
		"clickhouse://%s:%s@%s:%d/%s",
		c.User, c.Password, c.Host, c.Port, c.Name,
	)
}
