// Package core assembles the session, ledger, reward policy, shop and
// preferences into the client state seen by the front end.
package core

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Proton-105/ekilore-core/internal/domain"
	apperrors "github.com/Proton-105/ekilore-core/internal/errors"
	"github.com/Proton-105/ekilore-core/internal/i18n"
	"github.com/Proton-105/ekilore-core/internal/idempotency"
	"github.com/Proton-105/ekilore-core/internal/ledger"
	"github.com/Proton-105/ekilore-core/internal/lifecycle"
	"github.com/Proton-105/ekilore-core/internal/preferences"
	"github.com/Proton-105/ekilore-core/internal/rewards"
	"github.com/Proton-105/ekilore-core/internal/session"
	"github.com/Proton-105/ekilore-core/internal/shop"
	"github.com/Proton-105/ekilore-core/internal/store"
	"github.com/Proton-105/ekilore-core/pkg/metrics"
)

var registerRecorder sync.Once

// Snapshot is every persisted record, as loaded at start and returned at
// shutdown.
type Snapshot struct {
	Auth     session.AuthSnapshot `json:"auth"`
	Wallet   domain.Wallet        `json:"wallet"`
	Claims   idempotency.Snapshot `json:"claims"`
	Language domain.Language      `json:"language"`
}

// Deps are the collaborators of a Core. Only Store is required.
type Deps struct {
	Store         store.Store
	Authenticator session.Authenticator
	Payment       rewards.PaymentProvider
	Logger        *slog.Logger
	Clock         func() time.Time
	// Location is where daily rewards reset; nil means Asia/Tokyo.
	Location *time.Location
	// Retention keeps expired claim records before pruning; zero means
	// rewards.DefaultRetention.
	Retention time.Duration
	// PermissiveRewards disables the once-per-period claim check.
	PermissiveRewards bool
	RetryPolicy       *apperrors.RetryPolicy
	// Locales, when set, localize reward descriptions in the preferred
	// language.
	Locales *i18n.Manager
}

// Core is the running client state.
type Core struct {
	Session     *session.Manager
	Ledger      *ledger.Ledger
	Rewards     *rewards.Policy
	Shop        *shop.Shop
	Preferences *preferences.Preferences

	store    store.Store
	log      *slog.Logger
	shutdown *lifecycle.Shutdown
}

// LoadSnapshot reads every record from st. Missing records are empty.
func LoadSnapshot(ctx context.Context, st store.Store) (Snapshot, error) {
	auth, err := session.LoadSnapshot(ctx, st)
	if err != nil {
		return Snapshot{}, err
	}

	wallet, err := ledger.LoadWallet(ctx, st)
	if err != nil {
		return Snapshot{}, err
	}

	claims, err := idempotency.LoadSnapshot(ctx, st, store.RecordClaims)
	if err != nil {
		return Snapshot{}, apperrors.NewStorageError(store.RecordClaims, err)
	}

	prefs, err := preferences.LoadSnapshot(ctx, st)
	if err != nil {
		return Snapshot{}, apperrors.NewStorageError(store.RecordLanguage, err)
	}

	return Snapshot{Auth: auth, Wallet: wallet, Claims: claims, Language: prefs.Language}, nil
}

// Load rehydrates a Core from deps.Store.
func Load(ctx context.Context, deps Deps) (*Core, error) {
	if deps.Store == nil {
		return nil, apperrors.NewStateError("core: store is required")
	}

	snap, err := LoadSnapshot(ctx, deps.Store)
	if err != nil {
		return nil, err
	}

	return Init(ctx, snap, deps)
}

// Init builds a Core from an already loaded snapshot.
func Init(ctx context.Context, snap Snapshot, deps Deps) (*Core, error) {
	if deps.Store == nil {
		return nil, apperrors.NewStateError("core: store is required")
	}

	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	auth := deps.Authenticator
	if auth == nil {
		auth = session.NewSimulated(session.DefaultAuthDelay)
	}

	registerRecorder.Do(func() {
		session.RegisterTransitionRecorder(metrics.RecordSessionTransition)
	})

	sessionOpts := []session.Option{
		session.WithStore(deps.Store),
		session.WithLogger(log.With(slog.String("component", "session"))),
		session.WithClock(clock),
	}
	if deps.RetryPolicy != nil {
		sessionOpts = append(sessionOpts, session.WithRetryPolicy(*deps.RetryPolicy))
	}
	sess := session.NewManager(auth, sessionOpts...)
	sess.Restore(snap.Auth)

	l := ledger.New(
		ledger.WithStore(deps.Store),
		ledger.WithLogger(log.With(slog.String("component", "ledger"))),
		ledger.WithClock(clock),
	)
	if err := l.Restore(snap.Wallet); err != nil {
		return nil, err
	}

	claims := idempotency.NewManager(deps.Store, store.RecordClaims, log.With(slog.String("component", "claims")))
	claims.Restore(snap.Claims)

	retention := deps.Retention
	if retention <= 0 {
		retention = rewards.DefaultRetention
	}

	prefs := preferences.New(deps.Store, preferences.Snapshot{Language: snap.Language}, log)

	policyOpts := []rewards.Option{
		rewards.WithClaims(claims),
		rewards.WithPayment(deps.Payment),
		rewards.WithLocation(deps.Location),
		rewards.WithRetention(retention),
		rewards.WithEnforcement(!deps.PermissiveRewards),
		rewards.WithLogger(log.With(slog.String("component", "rewards"))),
		rewards.WithClock(clock),
	}
	if deps.Locales != nil {
		policyOpts = append(policyOpts, rewards.WithDescriber(func(key string) string {
			return deps.Locales.Translator(string(prefs.Language())).T(key)
		}))
	}
	policy := rewards.NewPolicy(sess, l, policyOpts...)

	c := &Core{
		Session:     sess,
		Ledger:      l,
		Rewards:     policy,
		Shop:        shop.New(sess, l, log.With(slog.String("component", "shop"))),
		Preferences: prefs,
		store:       deps.Store,
		log:         log,
		shutdown:    lifecycle.NewShutdown(log),
	}

	c.shutdown.RegisterPhase(lifecycle.PhaseFlush, "flush", c.flush)
	c.shutdown.RegisterPhase(lifecycle.PhaseClose, "store", func(context.Context) error {
		return c.store.Close()
	})

	log.InfoContext(ctx, "core initialised",
		slog.String("session", string(sess.State())),
		slog.Int64("balance", l.Balance()),
		slog.Int("transactions", len(snap.Wallet.Transactions)),
	)

	return c, nil
}

// Snapshot returns the current state of every record.
func (c *Core) Snapshot() Snapshot {
	return Snapshot{
		Auth:     c.Session.Snapshot(),
		Wallet:   c.Ledger.Wallet(),
		Claims:   c.Rewards.Claims().Snapshot(),
		Language: c.Preferences.Language(),
	}
}

// Balance and IsAuthenticated make Core a metrics.WalletSource.
func (c *Core) Balance() int64 { return c.Ledger.Balance() }

func (c *Core) IsAuthenticated() bool { return c.Session.IsAuthenticated() }

// Store is the backend every record is written to.
func (c *Core) Store() store.Store { return c.store }

// Claims exposes the claim records for periodic pruning.
func (c *Core) Claims() *idempotency.Manager { return c.Rewards.Claims() }

// OnShutdown registers an extra hook, e.g. flushing Sentry.
func (c *Core) OnShutdown(phase lifecycle.Phase, name string, fn func(context.Context) error) {
	c.shutdown.RegisterPhase(phase, name, fn)
}

// Shutdown writes the final state, closes the store and runs the other
// hooks. It returns the final snapshot even when a hook fails.
func (c *Core) Shutdown(ctx context.Context) (Snapshot, error) {
	snap := c.Snapshot()
	err := c.shutdown.Execute(ctx)
	return snap, err
}

// flush rewrites every record from memory. Mutations already persist, so
// this only repairs records lost to an earlier failed write or delete.
func (c *Core) flush(ctx context.Context) error {
	snap := c.Snapshot()
	var errs []error

	records := []struct {
		name  string
		state any
	}{
		{store.RecordTokens, snap.Wallet},
		{store.RecordClaims, snap.Claims},
		{store.RecordLanguage, preferences.Snapshot{Language: snap.Language}},
	}
	if snap.Auth.IsAuthenticated {
		records = append(records, struct {
			name  string
			state any
		}{store.RecordAuth, snap.Auth})
	} else if err := c.store.Delete(ctx, store.RecordAuth); err != nil {
		errs = append(errs, apperrors.NewStorageError(store.RecordAuth, err))
	}

	for _, rec := range records {
		if err := store.SaveRecord(ctx, c.store, rec.name, rec.state); err != nil {
			errs = append(errs, apperrors.NewStorageError(rec.name, err))
		}
	}

	return errors.Join(errs...)
}
