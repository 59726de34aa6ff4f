// Package config loads service configuration from a YAML file and the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides.
// Nested keys are separated by a double underscore: SELLERDESK_TELEGRAM__BOT_TOKEN.
const EnvPrefix = "SELLERDESK_"

// Config is the root configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Database      DatabaseConfig      `koanf:"database"`
	Log           LogConfig           `koanf:"log"`
	Auth          AuthConfig          `koanf:"auth"`
	CORS          CORSConfig          `koanf:"cors"`
	Notifications NotificationsConfig `koanf:"notifications"`
	Telegram      TelegramConfig      `koanf:"telegram"`
	Redis         RedisConfig         `koanf:"redis"`
	Kafka         KafkaConfig         `koanf:"kafka"`
}

// ServerConfig configures the HTTP servers.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port" validate:"required"`
	MetricsPort       string        `koanf:"metrics_port" validate:"required"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig configures the PostgreSQL pool.
type DatabaseConfig struct {
	URL             string        `koanf:"url" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"gte=1"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout" validate:"gt=0"`
	ConnectAttempts int           `koanf:"connect_attempts" validate:"gte=1"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// LogConfig configures the default logger.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// AuthConfig configures token validation and the cron trigger.
type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret" validate:"required"`
	Issuer    string `koanf:"issuer"`
	Audience  string `koanf:"audience"`
	// CronSecretHash is a bcrypt hash of the X-Cron-Secret value. Empty disables the trigger.
	CronSecretHash string `koanf:"cron_secret_hash"`
}

// CORSConfig configures cross-origin access for the dashboard.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// NotificationsConfig configures the dispatch queue and its scheduler.
type NotificationsConfig struct {
	Store            string        `koanf:"store" validate:"oneof=memory postgres"`
	MaxAttempts      int           `koanf:"max_attempts" validate:"gte=1"`
	AttemptTimeout   time.Duration `koanf:"attempt_timeout" validate:"gt=0"`
	BatchSize        int           `koanf:"batch_size" validate:"gte=0"`
	StaleAfter       time.Duration `koanf:"stale_after" validate:"gt=0"`
	PassTimeout      time.Duration `koanf:"pass_timeout" validate:"gt=0"`
	SchedulerEnabled bool          `koanf:"scheduler_enabled"`
	ProcessSchedule  string        `koanf:"process_schedule"`
	PurgeSchedule    string        `koanf:"purge_schedule"`
	Retention        time.Duration `koanf:"retention" validate:"gte=0"`
	CronRequestLimit time.Duration `koanf:"cron_request_limit" validate:"gt=0"`
}

// TelegramConfig configures the Telegram transport.
type TelegramConfig struct {
	Enabled   bool          `koanf:"enabled"`
	BotToken  string        `koanf:"bot_token" validate:"required_if=Enabled true"`
	RateLimit float64       `koanf:"rate_limit" validate:"gte=0"`
	Timeout   time.Duration `koanf:"timeout" validate:"gte=0"`
}

// RedisConfig configures the order status tracker.
type RedisConfig struct {
	Enabled   bool          `koanf:"enabled"`
	Addr      string        `koanf:"addr" validate:"required_if=Enabled true"`
	Password  string        `koanf:"password"`
	DB        int           `koanf:"db" validate:"gte=0"`
	StatusTTL time.Duration `koanf:"status_ttl" validate:"gte=0"`
}

// KafkaConfig configures the order-events consumer.
type KafkaConfig struct {
	Enabled bool     `koanf:"enabled"`
	Brokers []string `koanf:"brokers" validate:"required_if=Enabled true"`
	Topic   string   `koanf:"topic" validate:"required_if=Enabled true"`
	GroupID string   `koanf:"group_id" validate:"required_if=Enabled true"`
}

// Default returns the configuration used when nothing overrides a key.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			MetricsPort:       "9090",
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      3 * time.Minute,
			IdleTimeout:       60 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
			ConnectTimeout:  30 * time.Second,
			ConnectAttempts: 5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Auth: AuthConfig{
			Audience: "authenticated",
		},
		Notifications: NotificationsConfig{
			Store:            "postgres",
			MaxAttempts:      3,
			AttemptTimeout:   15 * time.Second,
			StaleAfter:       5 * time.Minute,
			PassTimeout:      2 * time.Minute,
			SchedulerEnabled: true,
			ProcessSchedule:  "@every 30s",
			PurgeSchedule:    "@hourly",
			Retention:        7 * 24 * time.Hour,
			CronRequestLimit: 2 * time.Minute,
		},
		Telegram: TelegramConfig{
			RateLimit: 25,
			Timeout:   10 * time.Second,
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			StatusTTL: 30 * 24 * time.Hour,
		},
		Kafka: KafkaConfig{
			Topic:   "order-events",
			GroupID: "sellerdesk-notifications",
		},
	}
}

// Load reads configuration from path (optional) and the environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for missing or inconsistent values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Notifications.PassTimeout > c.Server.WriteTimeout && c.Server.WriteTimeout > 0 {
		return fmt.Errorf("invalid config: notifications.pass_timeout (%s) exceeds server.write_timeout (%s)",
			c.Notifications.PassTimeout, c.Server.WriteTimeout)
	}
	return nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}
