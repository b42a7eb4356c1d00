package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// HealthChecker exposes liveness and readiness probes.
type HealthChecker interface {
	Liveness(ctx context.Context) error
	Readiness(ctx context.Context) error
}

// StatusSource reports per-component status; "OK" means healthy.
type StatusSource interface {
	Check(ctx context.Context) map[string]string
}

// Probes derives liveness and readiness from a StatusSource.
type Probes struct {
	source StatusSource
	log    *slog.Logger
}

// NewProbes creates a new Probes instance.
func NewProbes(source StatusSource, log *slog.Logger) *Probes {
	if log == nil {
		log = slog.Default()
	}
	return &Probes{source: source, log: log}
}

// Liveness reports success while the process is running.
func (p *Probes) Liveness(ctx context.Context) error {
	p.log.Debug("liveness probe called")
	return nil
}

// Readiness fails when any component is unhealthy.
func (p *Probes) Readiness(ctx context.Context) error {
	if p.source == nil {
		return nil
	}

	var failing []string
	for name, status := range p.source.Check(ctx) {
		if status != "OK" {
			failing = append(failing, name+": "+status)
		}
	}
	if len(failing) == 0 {
		return nil
	}

	sort.Strings(failing)
	return fmt.Errorf("not ready: %s", strings.Join(failing, "; "))
}
