package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Proton-105/ekilore-core/internal/core"
	apperrors "github.com/Proton-105/ekilore-core/internal/errors"
	"github.com/Proton-105/ekilore-core/internal/i18n"
	"github.com/Proton-105/ekilore-core/internal/lifecycle"
	"github.com/Proton-105/ekilore-core/internal/rewards"
	"github.com/Proton-105/ekilore-core/internal/session"
	"github.com/Proton-105/ekilore-core/internal/store"
	"github.com/Proton-105/ekilore-core/pkg/config"
	"github.com/Proton-105/ekilore-core/pkg/logger"
	"github.com/Proton-105/ekilore-core/pkg/redis"
)

const sentryFlushTimeout = 2 * time.Second

// errReported marks an error already shown to the user.
var errReported = errors.New("error reported")

type globalOptions struct {
	env        string
	configDirs []string
	debug      bool
}

// app is everything a command needs, built once per invocation.
type app struct {
	cfg     *config.Config
	viper   *viper.Viper
	log     *logger.Logger
	core    *core.Core
	locales *i18n.Manager
	errors  *apperrors.Handler
	out     io.Writer
}

func (a *app) tr() i18n.Translator {
	return a.locales.Translator(string(a.core.Preferences.Language()))
}

func (a *app) printf(key string, args ...any) {
	fmt.Fprintln(a.out, a.tr().Tf(key, args...))
}

func newApp(ctx context.Context, opts *globalOptions, out io.Writer) (*app, error) {
	cfg, v, err := config.Load(config.Options{Env: opts.env, Dirs: opts.configDirs})
	if err != nil {
		return nil, err
	}
	if opts.debug {
		cfg.Logger.Level = "debug"
	}

	log, err := logger.New(cfg.Logger, cfg.Sentry.Enabled, nil)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(log.Logger)

	if err := logger.InitSentry(cfg.Sentry, cfg.AppEnv, version); err != nil {
		log.Warn("sentry disabled", slog.Any("error", err))
		cfg.Sentry.Enabled = false
	}

	st, err := store.Open(ctx, storeOptions(cfg), log.Logger)
	if err != nil {
		_ = log.Close()
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.Rewards.Timezone)
	if err != nil {
		_ = st.Close()
		_ = log.Close()
		return nil, err
	}

	retry := apperrors.DefaultRetryPolicy()
	retry.MaxRetries = cfg.Auth.RetryAttempts

	locales, err := i18n.Load(cfg.Language)
	if err != nil {
		_ = st.Close()
		_ = log.Close()
		return nil, err
	}

	c, err := core.Load(ctx, core.Deps{
		Store:             st,
		Authenticator:     authenticator(cfg, st, log.Logger),
		Payment:           rewards.NewSimulatedPayment(cfg.Payment.Delay),
		Logger:            log.Logger,
		Location:          loc,
		Retention:         cfg.Rewards.Retention,
		PermissiveRewards: !cfg.Rewards.EnforceEligibility,
		RetryPolicy:       &retry,
		Locales:           locales,
	})
	if err != nil {
		_ = st.Close()
		_ = log.Close()
		return nil, err
	}

	c.OnShutdown(lifecycle.PhaseTelemetry, "sentry", func(context.Context) error {
		if cfg.Sentry.Enabled && !logger.FlushSentry(sentryFlushTimeout) {
			return errors.New("sentry flush timed out")
		}
		return nil
	})

	return &app{
		cfg:     cfg,
		viper:   v,
		log:     log,
		core:    c,
		locales: locales,
		errors:  apperrors.NewHandler(log.Logger, cfg.Sentry.Enabled),
		out:     out,
	}, nil
}

func storeOptions(cfg *config.Config) store.Options {
	return store.Options{
		Driver:     cfg.Storage.Driver,
		Dir:        cfg.Storage.Dir,
		SQLitePath: cfg.Storage.SQLitePath,
		Redis:      redisConfig(cfg.Redis),
	}
}

func redisConfig(cfg config.RedisConfig) redis.Config {
	return redis.Config{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		PoolTimeout:  cfg.PoolTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		MaxRetries:   cfg.MaxRetries,
	}
}

func authenticator(cfg *config.Config, st store.Store, log *slog.Logger) session.Authenticator {
	if cfg.Auth.Mode == "directory" {
		return session.NewDirectory(st, cfg.Auth.BcryptCost, log.With(slog.String("component", "directory")))
	}
	return session.NewSimulated(cfg.Auth.Delay)
}

func (a *app) close(ctx context.Context) {
	timeout := a.cfg.Shutdown.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if _, err := a.core.Shutdown(shutdownCtx); err != nil {
		a.log.ErrorContext(ctx, "shutdown failed", slog.Any("error", err))
	}
	_ = a.log.Close()
}

// report renders err in the user's language and marks it as shown.
func (a *app) report(ctx context.Context, cmd *cobra.Command, err error) error {
	msg, _ := a.errors.Handle(ctx, err, a.tr())
	fmt.Fprintln(cmd.ErrOrStderr(), msg)
	return errReported
}

// run wraps a command body with app setup, error rendering and shutdown.
func run(opts *globalOptions, fn func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := logger.NewCorrelationContext(cmd.Context())

		a, err := newApp(ctx, opts, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer a.close(ctx)

		a.log.DebugContext(ctx, "command started", slog.String("command", cmd.CommandPath()))

		if err := fn(ctx, cmd, a, args); err != nil {
			if errors.Is(err, errReported) {
				return err
			}
			return a.report(ctx, cmd, err)
		}
		return nil
	}
}
