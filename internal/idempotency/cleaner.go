package idempotency

import (
	"context"
	"log/slog"
	"time"
)

// Cleaner periodically prunes expired records from a Manager.
type Cleaner struct {
	manager  *Manager
	log      *slog.Logger
	interval time.Duration
}

func NewCleaner(manager *Manager, log *slog.Logger, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = time.Hour
	}

	return &Cleaner{
		manager:  manager,
		log:      log,
		interval: interval,
	}
}

func (c *Cleaner) Run(ctx context.Context) {
	if c == nil || c.manager == nil {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *Cleaner) cleanup(ctx context.Context) {
	removed, err := c.manager.Prune(ctx)
	if err != nil {
		c.log.Warn("claim record cleanup failed", slog.Any("error", err))
		return
	}

	if removed > 0 {
		c.log.Debug("pruned expired claim records", slog.Int("removed", removed))
	}
}
