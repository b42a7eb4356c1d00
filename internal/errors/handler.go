package errors

import (
	"context"
	"errors"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/Proton-105/ekilore-core/pkg/metrics"
)

const (
	fallbackMessageKey = "errors.unknown"
	codeUnknown        = "unknown"
	codeCancelled      = "cancelled"
)

// Translator renders a translation key with parameters.
type Translator interface {
	Tf(key string, args ...any) string
}

// Handler turns errors into user messages, logging and reporting them on
// the way.
type Handler struct {
	log           *slog.Logger
	sentryEnabled bool
}

func NewHandler(log *slog.Logger, sentryEnabled bool) *Handler {
	return &Handler{
		log:           log,
		sentryEnabled: sentryEnabled,
	}
}

// Handle logs err, reports it to Sentry when severe, and returns the
// message to show the user together with whether retrying may help.
func (h *Handler) Handle(ctx context.Context, err error, tr Translator) (string, bool) {
	if err == nil {
		return "", false
	}
	if ctx == nil {
		ctx = context.Background()
	}

	appErr := describe(err)

	attrs := []slog.Attr{
		slog.String("code", appErr.Code),
		slog.String("severity", string(appErr.Severity)),
		slog.Bool("retryable", appErr.Retryable),
		slog.String("error", err.Error()),
	}
	h.logger().LogAttrs(ctx, levelFor(appErr.Severity), "request failed", attrs...)
	metrics.RecordError(appErr.Code, string(appErr.Severity))

	if h.sentryEnabled && isSevere(appErr.Severity) {
		report(err, appErr)
	}

	key := appErr.UserMessage
	if key == "" {
		key = fallbackMessageKey
	}
	if tr == nil {
		return key, appErr.Retryable
	}
	return tr.Tf(key, appErr.Params...), appErr.Retryable
}

func (h *Handler) logger() *slog.Logger {
	if h == nil || h.log == nil {
		return slog.Default()
	}
	return h.log
}

// describe returns the AppError carried by err, or a synthetic one for
// plain errors. Cancellation is expected and never severe.
func describe(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &AppError{Code: codeCancelled, UserMessage: fallbackMessageKey, Severity: SeverityLow}
	}

	return &AppError{Code: codeUnknown, UserMessage: fallbackMessageKey, Severity: SeverityHigh}
}

func levelFor(s Severity) slog.Level {
	switch s {
	case SeverityHigh, SeverityCritical:
		return slog.LevelError
	case SeverityMedium:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func isSevere(s Severity) bool {
	return s == SeverityHigh || s == SeverityCritical
}

func report(err error, appErr *AppError) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("code", appErr.Code)
		scope.SetTag("severity", string(appErr.Severity))
		if len(appErr.Params) > 0 {
			scope.SetExtra("params", appErr.Params)
		}
		sentry.CaptureException(err)
	})
}
