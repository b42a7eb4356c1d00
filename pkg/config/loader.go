// Package config provides configuration loading and validation utilities.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "EKILORE"

// Options tells Load where to look.
type Options struct {
	// Env overrides APP_ENV.
	Env string
	// Dirs are searched for <env>.yaml; defaults to ./configs.
	Dirs []string
}

// Load reads configuration from YAML files and environment variables,
// validates it, and returns the resulting Config. A missing config file is
// not an error: every key has a default.
func Load(opts Options) (*Config, *viper.Viper, error) {
	// .env files are optional
	_ = godotenv.Load(".env.local", ".env")

	env := opts.Env
	if env == "" {
		env = os.Getenv("APP_ENV")
	}
	if env == "" {
		env = "development"
	}

	dirs := opts.Dirs
	if len(dirs) == 0 {
		dirs = []string{"./configs"}
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName(env)
	v.SetConfigType("yaml")
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.Set("app_env", env)

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}

	return cfg, v, nil
}

// Reload decodes and validates the current state of v, e.g. after a
// config file change.
func Reload(v *viper.Viper) (*Config, error) {
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	if _, err := time.LoadLocation(cfg.Rewards.Timezone); err != nil {
		return fmt.Errorf("validate config: rewards.timezone: %w", err)
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "development")
	v.SetDefault("language", "ja")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "text")
	v.SetDefault("logger.file", "")
	v.SetDefault("logger.max_size_mb", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age_days", 28)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.traces_sample_rate", 0.0)

	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.dir", defaultDataDir())
	v.SetDefault("storage.sqlite_path", defaultDataDir()+"/ekilore.db")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 5)
	v.SetDefault("redis.min_idle_conns", 0)
	v.SetDefault("redis.pool_timeout", 4*time.Second)
	v.SetDefault("redis.idle_timeout", 5*time.Minute)
	v.SetDefault("redis.max_retries", 3)

	v.SetDefault("auth.mode", "simulated")
	v.SetDefault("auth.delay", time.Second)
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.retry_attempts", 3)

	v.SetDefault("payment.delay", 2*time.Second)

	v.SetDefault("rewards.enforce_eligibility", true)
	v.SetDefault("rewards.timezone", "Asia/Tokyo")
	v.SetDefault("rewards.retention", 48*time.Hour)

	v.SetDefault("metrics.addr", "127.0.0.1:9464")
	v.SetDefault("metrics.collect_interval", 10*time.Second)

	v.SetDefault("shutdown.timeout", 5*time.Second)
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return dir + "/ekilore"
	}
	return "./data"
}
