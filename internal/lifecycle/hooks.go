package lifecycle

import "context"

// Phase orders shutdown hooks. Lower phases finish before higher ones start.
type Phase int

const (
	// PhaseFlush writes the final state.
	PhaseFlush Phase = iota
	// PhaseClose releases stores and connections.
	PhaseClose
	// PhaseTelemetry flushes error reporting and metrics last.
	PhaseTelemetry
)

// Hook describes a named shutdown hook.
type Hook struct {
	Name  string
	Phase Phase
	Fn    func(ctx context.Context) error
}
