// Package preferences holds device-local user settings.
package preferences

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Proton-105/ekilore-core/internal/domain"
	apperrors "github.com/Proton-105/ekilore-core/internal/errors"
	"github.com/Proton-105/ekilore-core/internal/store"
)

// Snapshot is the persisted preference record.
type Snapshot struct {
	Language domain.Language `json:"language"`
}

type Preferences struct {
	store store.Store
	log   *slog.Logger

	mu       sync.RWMutex
	language domain.Language
}

// New returns preferences initialised from snap. An unknown language falls
// back to domain.DefaultLanguage.
func New(st store.Store, snap Snapshot, log *slog.Logger) *Preferences {
	if log == nil {
		log = slog.Default()
	}

	lang, err := domain.ParseLanguage(string(snap.Language))
	if err != nil {
		lang = domain.DefaultLanguage
	}

	return &Preferences{store: st, log: log, language: lang}
}

func (p *Preferences) Language() domain.Language {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.language
}

// SetLanguage validates and persists the language.
func (p *Preferences) SetLanguage(ctx context.Context, raw string) (domain.Language, error) {
	lang, err := domain.ParseLanguage(raw)
	if err != nil {
		return "", apperrors.NewValidationError(err.Error())
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.store != nil {
		if err := store.SaveRecord(context.WithoutCancel(ctx), p.store, store.RecordLanguage, Snapshot{Language: lang}); err != nil {
			p.log.ErrorContext(ctx, "failed to persist language", slog.Any("error", err))
			return "", apperrors.NewStorageError(store.RecordLanguage, err)
		}
	}

	p.language = lang
	return lang, nil
}

func (p *Preferences) Snapshot() Snapshot {
	return Snapshot{Language: p.Language()}
}

// LoadSnapshot reads the persisted preferences.
func LoadSnapshot(ctx context.Context, st store.Store) (Snapshot, error) {
	snap := Snapshot{Language: domain.DefaultLanguage}
	if _, err := store.LoadRecord(ctx, st, store.RecordLanguage, &snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
