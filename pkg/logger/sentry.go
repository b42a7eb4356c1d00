package logger

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/Proton-105/ekilore-core/pkg/config"
)

// InitSentry configures the global Sentry client. It is a no-op when
// reporting is disabled.
func InitSentry(cfg config.SentryConfig, env, release string) error {
	if !cfg.Enabled {
		return nil
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      env,
		Release:          release,
		TracesSampleRate: cfg.TracesSampleRate,
	}); err != nil {
		return fmt.Errorf("sentry init: %w", err)
	}

	return nil
}

// FlushSentry waits up to timeout for buffered events to be sent.
func FlushSentry(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}
