package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

const (
	envPrefix     = "BILLING_"
	configFileEnv = "BILLING_CONFIG_FILE"
)

type Config struct {
	Primary   Primary         `koanf:"primary"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	RabbitMQ  RabbitMQConfig  `koanf:"rabbitmq"`
	Processor ProcessorConfig `koanf:"processor"`
	Retry     RetryConfig     `koanf:"retry"`
	Logger    LoggerConfig    `koanf:"logger"`
	Worker    WorkerConfig    `koanf:"worker"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Pricing   PricingConfig   `koanf:"pricing"`
	Trials    map[string]int  `koanf:"trials"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type WorkerConfig struct {
	Interval   time.Duration `koanf:"interval" validate:"required"`
	BatchSize  int           `koanf:"batch_size" validate:"required"`
	StuckAfter time.Duration `koanf:"stuck_after" validate:"required"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" validate:"required"`
}

// RedisConfig backs the command guard. With an empty Addr the guard lives in
// the command_locks table instead, which every instance also shares.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// RabbitMQConfig carries events out and commands in. An empty URL disables both.
type RabbitMQConfig struct {
	URL         string        `koanf:"url"`
	Exchange    string        `koanf:"exchange"`
	QueuePrefix string        `koanf:"queue_prefix"`
	Prefetch    int           `koanf:"prefetch"`
	CallTimeout time.Duration `koanf:"call_timeout"`
}

type ProcessorConfig struct {
	Timeout time.Duration `koanf:"timeout" validate:"required"`
	// Latency is the simulated gateway round trip.
	Latency time.Duration `koanf:"latency"`
	// DeclineAbove makes the simulated gateway decline larger amounts.
	DeclineAbove string `koanf:"decline_above"`
	// BlockedProviders are rejected by ValidatePaymentMethod.
	BlockedProviders []string `koanf:"blocked_providers"`
}

// RetryConfig drives processor retries. BaseDelay is in milliseconds.
type RetryConfig struct {
	BaseDelay  int32 `koanf:"base_delay"`
	MaxRetries int32 `koanf:"max_retries"`
}

type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

type PricingConfig struct {
	Products map[string]ProductPriceConfig `koanf:"products"`
}

type ProductPriceConfig struct {
	Monthly string `koanf:"monthly"`
	Yearly  string `koanf:"yearly"`
}

// LoadConfig reads the optional YAML file named by BILLING_CONFIG_FILE, then
// BILLING_* environment variables on top ("__" separates nesting levels).
func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	if path := os.Getenv(configFileEnv); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			logger.Error("failed to load config file", "path", path, "error", err)
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, envPrefix)),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}
