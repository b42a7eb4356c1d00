package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Proton-105/ekilore-core/internal/domain"
	apperrors "github.com/Proton-105/ekilore-core/internal/errors"
	"github.com/Proton-105/ekilore-core/internal/store"
	"github.com/Proton-105/ekilore-core/pkg/metrics"
)

// Manager is the sole authority on whether a user is signed in. It never
// touches the token ledger.
type Manager struct {
	auth  Authenticator
	store store.Store
	log   *slog.Logger
	now   func() time.Time
	retry apperrors.RetryPolicy

	mu    sync.RWMutex
	state State
	user  *domain.User
}

// Option configures a Manager.
type Option func(*Manager)

// WithStore persists every transition to st.
func WithStore(st store.Store) Option {
	return func(m *Manager) { m.store = st }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithClock replaces time.Now for memberSince timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithRetryPolicy sets how network failures from the authenticator are retried.
func WithRetryPolicy(policy apperrors.RetryPolicy) Option {
	return func(m *Manager) { m.retry = policy }
}

// NewManager creates an anonymous session.
func NewManager(auth Authenticator, opts ...Option) *Manager {
	m := &Manager{
		auth:  auth,
		log:   slog.Default(),
		now:   time.Now,
		retry: apperrors.DefaultRetryPolicy(),
		state: StateAnonymous,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Login signs in with email and password.
func (m *Manager) Login(ctx context.Context, email, password string) (*domain.User, error) {
	profile, err := m.authenticate(ctx, "login", func(ctx context.Context) (Profile, error) {
		return m.auth.Login(ctx, email, password)
	})
	if err != nil {
		return nil, err
	}

	if profile.Email == "" {
		profile.Email = email
	}

	return m.enter(ctx, "login", m.newUser(profile, ""))
}

// Register creates a new account and signs it in. ReferralCode, when set,
// is recorded as ReferredBy.
func (m *Manager) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	profile, err := m.authenticate(ctx, "register", func(ctx context.Context) (Profile, error) {
		return m.auth.Register(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	if profile.Name == "" {
		profile.Name = req.Name
	}
	if profile.Email == "" {
		profile.Email = req.Email
	}

	return m.enter(ctx, "register", m.newUser(profile, req.ReferralCode))
}

// SocialLogin signs in through a social provider.
func (m *Manager) SocialLogin(ctx context.Context, provider domain.Provider) (*domain.User, error) {
	if _, err := domain.ParseProvider(string(provider)); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	profile, err := m.authenticate(ctx, "social_login", func(ctx context.Context) (Profile, error) {
		return m.auth.SocialLogin(ctx, provider)
	})
	if err != nil {
		return nil, err
	}

	return m.enter(ctx, "social_login", m.newUser(profile, ""))
}

// Logout clears the session unconditionally. A failure to remove the
// persisted record is returned, but the in-memory session is cleared anyway.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.state
	m.state = StateAnonymous
	m.user = nil
	transitionRecorder(string(from), string(StateAnonymous))
	metrics.SetAuthenticated(false)
	m.log.InfoContext(ctx, "session ended", slog.String("from", string(from)))

	if m.store == nil {
		return nil
	}

	if err := m.store.Delete(context.WithoutCancel(ctx), store.RecordAuth); err != nil {
		m.log.ErrorContext(ctx, "failed to remove persisted session", slog.Any("error", err))
		return apperrors.NewStorageError(store.RecordAuth, err)
	}

	return nil
}

// CurrentUser returns a copy of the signed-in user.
func (m *Manager) CurrentUser() (*domain.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.user == nil {
		return nil, false
	}
	return m.user.Clone(), true
}

// IsAuthenticated reports whether a user is signed in.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state == StateAuthenticated
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state
}

// Snapshot returns the persisted form of the session.
func (m *Manager) Snapshot() AuthSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return AuthSnapshot{
		User:            m.user.Clone(),
		IsAuthenticated: m.state == StateAuthenticated,
	}
}

// Restore replaces the in-memory session with snap without persisting.
func (m *Manager) Restore(snap AuthSnapshot) {
	snap = snap.Normalize()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.user = snap.User
	m.state = snap.State()
	metrics.SetAuthenticated(m.state == StateAuthenticated)
}

// LoadSnapshot reads the persisted session. A missing record is anonymous.
func LoadSnapshot(ctx context.Context, st store.Store) (AuthSnapshot, error) {
	var (
		snap   AuthSnapshot
		legacy legacyAuth
	)
	version, found, err := store.LoadVersionedRecord(ctx, st, store.RecordAuth, &snap, &legacy)
	if err != nil {
		return AuthSnapshot{}, apperrors.NewStorageError(store.RecordAuth, err)
	}
	if found && version == 0 {
		snap = legacy.snapshot()
	}

	return snap.Normalize(), nil
}

func (m *Manager) authenticate(ctx context.Context, op string, call func(ctx context.Context) (Profile, error)) (Profile, error) {
	if m.auth == nil {
		return Profile{}, apperrors.NewStateError("no authenticator configured")
	}

	start := time.Now()
	var profile Profile

	err := apperrors.WithRetryPolicy(ctx, m.retry, func() error {
		p, err := call(ctx)
		if err != nil {
			return classify(op, err)
		}
		profile = p
		return nil
	})

	// a cancelled caller abandons the transition even if the backend answered
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}

	status := "ok"
	if err != nil {
		status = authStatus(err)
		m.log.WarnContext(ctx, "authentication failed",
			slog.String("operation", op),
			slog.String("status", status),
			slog.Any("error", err),
		)
	}
	metrics.RecordAuth(op, status, time.Since(start))

	return profile, err
}

func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}

	return apperrors.NewProviderError(op, err)
}

func authStatus(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, apperrors.ErrNetworkFailure):
		return "network_failure"
	case errors.Is(err, apperrors.ErrValidation):
		return "validation"
	default:
		return "provider_error"
	}
}

func (m *Manager) newUser(profile Profile, referredBy string) *domain.User {
	id := profile.ID
	if id == "" {
		id = newUserID()
	}

	return &domain.User{
		ID:           id,
		Name:         profile.Name,
		Email:        profile.Email,
		AvatarURL:    profile.AvatarURL,
		MemberSince:  m.now().UTC(),
		ReferralCode: NewReferralCode(),
		ReferredBy:   referredBy,
	}
}

// enter persists user and then commits it. Overlapping calls resolve in
// lock order, so the last one to commit wins.
func (m *Manager) enter(ctx context.Context, op string, user *domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store != nil {
		snap := AuthSnapshot{User: user, IsAuthenticated: true, UpdatedAt: m.now().UTC()}
		if err := store.SaveRecord(context.WithoutCancel(ctx), m.store, store.RecordAuth, snap); err != nil {
			m.log.ErrorContext(ctx, "failed to persist session", slog.String("operation", op), slog.Any("error", err))
			return nil, apperrors.NewStorageError(store.RecordAuth, err)
		}
	}

	from := m.state
	m.state = StateAuthenticated
	m.user = user
	transitionRecorder(string(from), string(StateAuthenticated))
	metrics.SetAuthenticated(true)

	m.log.InfoContext(ctx, "session started",
		slog.String("operation", op),
		slog.String("user_id", user.ID),
	)

	return user.Clone(), nil
}
