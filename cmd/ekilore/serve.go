package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/Proton-105/ekilore-core/internal/health"
	"github.com/Proton-105/ekilore-core/internal/idempotency"
	"github.com/Proton-105/ekilore-core/internal/lifecycle"
	"github.com/Proton-105/ekilore-core/internal/store"
	"github.com/Proton-105/ekilore-core/pkg/config"
	"github.com/Proton-105/ekilore-core/pkg/graceful"
	"github.com/Proton-105/ekilore-core/pkg/logger"
	"github.com/Proton-105/ekilore-core/pkg/metrics"
	"github.com/Proton-105/ekilore-core/pkg/redis"
)

const (
	claimPruneInterval = time.Hour
	readHeaderTimeout  = 5 * time.Second
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Keep the core running and expose /metrics, /healthz, /livez and /readyz",
		RunE: run(opts, func(ctx context.Context, _ *cobra.Command, a *app, _ []string) error {
			if addr == "" {
				addr = a.cfg.Metrics.Addr
			}

			checker, err := a.healthChecker(ctx)
			if err != nil {
				return err
			}

			a.watchConfig(ctx)

			go metrics.NewWalletCollector(a.core, a.cfg.Metrics.CollectInterval).Run(ctx)
			go idempotency.NewCleaner(a.core.Claims(), a.log.Logger, claimPruneInterval).Run(ctx)

			srv := &http.Server{
				Addr:              addr,
				Handler:           logger.Middleware(a.log.Logger, routes(checker, lifecycle.NewProbes(checker, a.log.Logger))),
				ReadHeaderTimeout: readHeaderTimeout,
			}

			a.log.InfoContext(ctx, "serving", slog.String("addr", addr))
			return graceful.NewServer(a.log.Logger, srv, a.cfg.Shutdown.Timeout).ListenAndServe(ctx)
		}),
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address; defaults to metrics.addr")

	return cmd
}

func routes(checker *health.Checker, probes lifecycle.HealthChecker) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /healthz", checker.Handler())
	mux.Handle("GET /livez", probeHandler(probes.Liveness))
	mux.Handle("GET /readyz", probeHandler(probes.Readiness))
	return mux
}

func probeHandler(probe func(context.Context) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := probe(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

// healthChecker checks the record store and, for the redis driver, the
// server itself over a separate connection.
func (a *app) healthChecker(ctx context.Context) (*health.Checker, error) {
	checker := health.NewChecker(a.log.Logger)
	checker.AddCheck("store", a.core.Store())

	if a.cfg.Storage.Driver != store.DriverRedis {
		return checker, nil
	}

	client, err := redis.New(ctx, redisConfig(a.cfg.Redis))
	if err != nil {
		return nil, err
	}
	checker.AddCheck("redis", health.NewRedisChecker(client))
	a.core.OnShutdown(lifecycle.PhaseClose, "redis-health", func(context.Context) error {
		return client.Close()
	})

	return checker, nil
}

// watchConfig applies log level changes from the config file while serving.
func (a *app) watchConfig(ctx context.Context) {
	if a.viper.ConfigFileUsed() == "" {
		return
	}

	a.viper.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := config.Reload(a.viper)
		if err != nil {
			a.log.WarnContext(ctx, "ignoring invalid config change", slog.String("file", e.Name), slog.Any("error", err))
			return
		}
		if err := a.log.SetLevel(cfg.Logger.Level); err != nil {
			a.log.WarnContext(ctx, "failed to apply log level", slog.Any("error", err))
			return
		}
		a.log.InfoContext(ctx, "config reloaded", slog.String("file", e.Name), slog.String("log_level", cfg.Logger.Level))
	})
	a.viper.WatchConfig()
}
