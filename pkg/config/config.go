package config

import "time"

// Config holds runtime configuration for the EKILORE client core.
type Config struct {
	AppEnv   string         `mapstructure:"app_env"`
	Language string         `mapstructure:"language" validate:"oneof=ja en uz"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Payment  PaymentConfig  `mapstructure:"payment"`
	Rewards  RewardsConfig  `mapstructure:"rewards"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Shutdown ShutdownConfig `mapstructure:"shutdown"`
}

// LoggerConfig controls pkg/logger.
type LoggerConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"oneof=text json"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
}

// SentryConfig enables error reporting.
type SentryConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	DSN              string  `mapstructure:"dsn" validate:"required_if=Enabled true"`
	TracesSampleRate float64 `mapstructure:"traces_sample_rate" validate:"gte=0,lte=1"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver     string `mapstructure:"driver" validate:"oneof=file sqlite redis memory"`
	Dir        string `mapstructure:"dir" validate:"required_if=Driver file"`
	SQLitePath string `mapstructure:"sqlite_path" validate:"required_if=Driver sqlite"`
}

// RedisConfig is used when Storage.Driver is redis.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db" validate:"gte=0"`
	PoolSize     int           `mapstructure:"pool_size" validate:"gte=0"`
	MinIdleConns int           `mapstructure:"min_idle_conns" validate:"gte=0"`
	PoolTimeout  time.Duration `mapstructure:"pool_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

// AuthConfig selects the identity collaborator.
type AuthConfig struct {
	Mode          string        `mapstructure:"mode" validate:"oneof=simulated directory"`
	Delay         time.Duration `mapstructure:"delay" validate:"gte=0"`
	BcryptCost    int           `mapstructure:"bcrypt_cost" validate:"gte=0,lte=31"`
	RetryAttempts int           `mapstructure:"retry_attempts" validate:"gte=0,lte=10"`
}

// PaymentConfig configures the simulated payment provider.
type PaymentConfig struct {
	Delay time.Duration `mapstructure:"delay" validate:"gte=0"`
}

// RewardsConfig tunes the reward policy.
type RewardsConfig struct {
	EnforceEligibility bool          `mapstructure:"enforce_eligibility"`
	Timezone           string        `mapstructure:"timezone" validate:"required"`
	Retention          time.Duration `mapstructure:"retention" validate:"gte=0"`
}

// MetricsConfig configures the serve command.
type MetricsConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	CollectInterval time.Duration `mapstructure:"collect_interval" validate:"gte=0"`
}

// ShutdownConfig bounds the shutdown sequence.
type ShutdownConfig struct {
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// IsDevelopment reports whether the config targets local development.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}
