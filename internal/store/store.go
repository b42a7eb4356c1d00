// Package store persists the named records of the client core.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Proton-105/ekilore-core/pkg/metrics"
)

// Record names.
const (
	RecordAuth      = "ekilore-auth"
	RecordTokens    = "ekilore-tokens"
	RecordClaims    = "ekilore-claims"
	RecordLanguage  = "ekilore-language"
	RecordDirectory = "ekilore-directory"
)

// Driver names accepted by Open.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// ErrRecordNotFound is returned by Load when the record was never saved.
var ErrRecordNotFound = errors.New("record not found")

// Store is a device-local key-value store of whole records. Every Save
// overwrites the record; concurrent writers resolve last-write-wins.
type Store interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, data []byte) error
	Delete(ctx context.Context, name string) error
	HealthCheck(ctx context.Context) error
	Close() error
}

// Instrumented decorates a Store with metrics and debug logging.
type Instrumented struct {
	next   Store
	driver string
	log    *slog.Logger
}

// NewInstrumented wraps next; driver labels the metrics.
func NewInstrumented(next Store, driver string, log *slog.Logger) *Instrumented {
	if log == nil {
		log = slog.Default()
	}

	return &Instrumented{next: next, driver: driver, log: log}
}

func (s *Instrumented) observe(ctx context.Context, op, name string, start time.Time, err error) {
	elapsed := time.Since(start)
	recorded := err
	if errors.Is(err, ErrRecordNotFound) {
		recorded = nil
	}
	metrics.RecordStore(s.driver, op, recorded, elapsed)

	if recorded != nil {
		s.log.ErrorContext(ctx, "store operation failed",
			slog.String("driver", s.driver),
			slog.String("operation", op),
			slog.String("record", name),
			slog.Any("error", err),
		)
		return
	}

	s.log.DebugContext(ctx, "store operation",
		slog.String("driver", s.driver),
		slog.String("operation", op),
		slog.String("record", name),
		slog.Duration("elapsed", elapsed),
	)
}

func (s *Instrumented) Load(ctx context.Context, name string) ([]byte, error) {
	start := time.Now()
	data, err := s.next.Load(ctx, name)
	s.observe(ctx, "load", name, start, err)
	return data, err
}

func (s *Instrumented) Save(ctx context.Context, name string, data []byte) error {
	start := time.Now()
	err := s.next.Save(ctx, name, data)
	s.observe(ctx, "save", name, start, err)
	return err
}

func (s *Instrumented) Delete(ctx context.Context, name string) error {
	start := time.Now()
	err := s.next.Delete(ctx, name)
	s.observe(ctx, "delete", name, start, err)
	return err
}

func (s *Instrumented) HealthCheck(ctx context.Context) error {
	return s.next.HealthCheck(ctx)
}

func (s *Instrumented) Close() error {
	return s.next.Close()
}

// Unwrap returns the decorated store.
func (s *Instrumented) Unwrap() Store {
	return s.next
}

func validName(name string) error {
	if name == "" {
		return fmt.Errorf("record name must not be empty")
	}
	for _, r := range name {
		if !(r == '-' || r == '_' || r == '.' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return fmt.Errorf("record name %q contains %q", name, r)
		}
	}
	if name == "." || name == ".." {
		return fmt.Errorf("record name %q is reserved", name)
	}

	return nil
}
