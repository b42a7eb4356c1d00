// Package idempotency keeps a persisted set of completed one-shot actions
// so each (subject, action, period) runs at most once.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Proton-105/ekilore-core/internal/store"
)

// ErrAlreadyRecorded is matched by *DuplicateError.
var ErrAlreadyRecorded = errors.New("action already recorded for this period")

// Record is a completed action.
type Record struct {
	Key        string    `json:"key"`
	Subject    string    `json:"subject"`
	Action     string    `json:"action"`
	Period     string    `json:"period"`
	RecordedAt time.Time `json:"recorded_at"`
	// ExpiresAt is when the record may be pruned; zero keeps it forever.
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// DuplicateError carries the record that blocked an Execute.
type DuplicateError struct {
	Existing Record
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s for %s already recorded at %s", e.Existing.Action, e.Existing.Period, e.Existing.RecordedAt.Format(time.RFC3339))
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrAlreadyRecorded
}

// Snapshot is the persisted form of the manager.
type Snapshot struct {
	Records map[string]Record `json:"records"`
}

// Operation is the guarded action.
type Operation func(ctx context.Context) error

// Manager serializes guarded actions and remembers which ones completed.
type Manager struct {
	store      store.Store
	recordName string
	log        *slog.Logger
	now        func() time.Time

	mu      sync.Mutex
	records map[string]Record
}

// NewManager creates an empty manager persisting to recordName in st. A nil
// store keeps records in memory only.
func NewManager(st store.Store, recordName string, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}

	return &Manager{
		store:      st,
		recordName: recordName,
		log:        log,
		now:        time.Now,
		records:    make(map[string]Record),
	}
}

// SetClock replaces time.Now.
func (m *Manager) SetClock(now func() time.Time) {
	if now == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Execute runs fn unless rec.Key is already recorded. The record is
// persisted before fn runs and withdrawn if fn fails, so a crash between
// the two can lose a claim but never grant one twice.
func (m *Manager) Execute(ctx context.Context, rec Record, fn Operation) error {
	if fn == nil {
		return errors.New("operation fn cannot be nil")
	}
	if rec.Key == "" {
		rec.Key = GenerateKey(rec.Subject, rec.Action, rec.Period)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if existing, ok := m.records[rec.Key]; ok && !expired(existing, now) {
		return &DuplicateError{Existing: existing}
	}

	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = now.UTC()
	}

	reserved := m.cloneLocked()
	reserved[rec.Key] = rec
	if err := m.persistLocked(ctx, reserved, now); err != nil {
		return err
	}
	previous := m.records
	m.records = reserved

	if err := fn(ctx); err != nil {
		if rbErr := m.persistLocked(ctx, previous, now); rbErr != nil {
			m.log.ErrorContext(ctx, "failed to withdraw reservation",
				slog.String("action", rec.Action),
				slog.Any("error", rbErr),
			)
			return errors.Join(err, rbErr)
		}
		m.records = previous
		return err
	}

	return nil
}

// Lookup returns the live record for key.
func (m *Manager) Lookup(key string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[key]
	if !ok || expired(rec, m.now()) {
		return Record{}, false
	}
	return rec, true
}

// Snapshot returns a copy of every live record.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := pruned(m.records, m.now())
	return Snapshot{Records: live}
}

// Restore replaces the records without persisting.
func (m *Manager) Restore(snap Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = make(map[string]Record, len(snap.Records))
	for k, v := range snap.Records {
		if v.Key == "" {
			v.Key = k
		}
		m.records[k] = v
	}
}

// Prune drops expired records and persists the result. It returns how many
// records were removed.
func (m *Manager) Prune(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	live := pruned(m.records, now)
	removed := len(m.records) - len(live)
	if removed == 0 {
		return 0, nil
	}

	if err := m.persistLocked(ctx, live, now); err != nil {
		return 0, err
	}
	m.records = live

	return removed, nil
}

// LoadSnapshot reads the persisted records.
func LoadSnapshot(ctx context.Context, st store.Store, recordName string) (Snapshot, error) {
	var snap Snapshot
	if _, err := store.LoadRecord(ctx, st, recordName, &snap); err != nil {
		return Snapshot{}, err
	}
	if snap.Records == nil {
		snap.Records = make(map[string]Record)
	}
	return snap, nil
}

func (m *Manager) persistLocked(ctx context.Context, records map[string]Record, now time.Time) error {
	if m.store == nil {
		return nil
	}

	snap := Snapshot{Records: pruned(records, now)}
	if err := store.SaveRecord(context.WithoutCancel(ctx), m.store, m.recordName, snap); err != nil {
		return fmt.Errorf("persist %s: %w", m.recordName, err)
	}
	return nil
}

func (m *Manager) cloneLocked() map[string]Record {
	out := make(map[string]Record, len(m.records)+1)
	for k, v := range m.records {
		out[k] = v
	}
	return out
}

func expired(rec Record, now time.Time) bool {
	return !rec.ExpiresAt.IsZero() && !now.Before(rec.ExpiresAt)
}

func pruned(records map[string]Record, now time.Time) map[string]Record {
	out := make(map[string]Record, len(records))
	for k, v := range records {
		if !expired(v, now) {
			out[k] = v
		}
	}
	return out
}
