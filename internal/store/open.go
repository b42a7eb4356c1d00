package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Proton-105/ekilore-core/pkg/redis"
)

// Options selects and configures a backend.
type Options struct {
	Driver     string
	Dir        string
	SQLitePath string
	Redis      redis.Config
}

// Open builds the configured backend wrapped with instrumentation.
func Open(ctx context.Context, opts Options, log *slog.Logger) (Store, error) {
	if log == nil {
		log = slog.Default()
	}

	var (
		backend Store
		err     error
	)

	switch opts.Driver {
	case DriverFile, "":
		backend, err = NewFileStore(opts.Dir)
	case DriverSQLite:
		backend, err = NewSQLiteStore(ctx, opts.SQLitePath, log)
	case DriverRedis:
		var client *redis.Client
		client, err = redis.New(ctx, opts.Redis)
		if err == nil {
			backend = NewRedisStore(redis.NewMetricsClient(client))
		}
	case DriverMemory:
		backend = NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", opts.Driver, err)
	}

	driver := opts.Driver
	if driver == "" {
		driver = DriverFile
	}
	log.Debug("store opened", slog.String("driver", driver))

	return NewInstrumented(backend, driver, log), nil
}
