package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	validator "github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/Proton-105/ekilore-core/internal/domain"
	apperrors "github.com/Proton-105/ekilore-core/internal/errors"
	"github.com/Proton-105/ekilore-core/internal/store"
)

type directoryEntry struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

type directoryRecord struct {
	Users map[string]directoryEntry `json:"users"`
}

// Directory is a local credential directory with bcrypt password hashes,
// persisted as the ekilore-directory record.
type Directory struct {
	store    store.Store
	cost     int
	log      *slog.Logger
	validate *validator.Validate

	mu     sync.Mutex
	loaded bool
	users  map[string]directoryEntry
}

// NewDirectory creates a Directory. A zero cost uses bcrypt.DefaultCost.
func NewDirectory(st store.Store, cost int, log *slog.Logger) *Directory {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if log == nil {
		log = slog.Default()
	}

	return &Directory{
		store:    st,
		cost:     cost,
		log:      log,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		users:    make(map[string]directoryEntry),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (d *Directory) ensureLoaded(ctx context.Context) error {
	if d.loaded {
		return nil
	}

	var rec directoryRecord
	if _, err := store.LoadRecord(ctx, d.store, store.RecordDirectory, &rec); err != nil {
		return apperrors.NewStorageError(store.RecordDirectory, err)
	}
	if rec.Users != nil {
		d.users = rec.Users
	}
	d.loaded = true

	return nil
}

func (d *Directory) Login(ctx context.Context, email, password string) (Profile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureLoaded(ctx); err != nil {
		return Profile{}, err
	}

	entry, ok := d.users[normalizeEmail(email)]
	if !ok {
		d.log.DebugContext(ctx, "login for unknown email")
		return Profile{}, apperrors.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(entry.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return Profile{}, apperrors.NewInvalidCredentialsError()
		}
		return Profile{}, apperrors.NewProviderError("directory", err)
	}

	return Profile{ID: entry.ID, Name: entry.Name, Email: entry.Email}, nil
}

func (d *Directory) Register(ctx context.Context, req RegisterRequest) (Profile, error) {
	if err := d.validate.Struct(req); err != nil {
		return Profile{}, apperrors.NewValidationError(fmt.Sprintf("invalid registration: %v", err))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureLoaded(ctx); err != nil {
		return Profile{}, err
	}

	key := normalizeEmail(req.Email)
	if _, exists := d.users[key]; exists {
		return Profile{}, apperrors.NewValidationError("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), d.cost)
	if err != nil {
		return Profile{}, apperrors.NewProviderError("directory", err)
	}

	entry := directoryEntry{
		ID:           newUserID(),
		Name:         req.Name,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	next := make(map[string]directoryEntry, len(d.users)+1)
	for k, v := range d.users {
		next[k] = v
	}
	next[key] = entry

	if err := store.SaveRecord(ctx, d.store, store.RecordDirectory, directoryRecord{Users: next}); err != nil {
		return Profile{}, apperrors.NewStorageError(store.RecordDirectory, err)
	}
	d.users = next

	d.log.InfoContext(ctx, "directory user registered", slog.String("user_id", entry.ID))

	return Profile{ID: entry.ID, Name: entry.Name, Email: entry.Email}, nil
}

// SocialLogin trusts the provider; the directory has no social accounts.
func (d *Directory) SocialLogin(ctx context.Context, provider domain.Provider) (Profile, error) {
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}

	return socialProfile(provider), nil
}
