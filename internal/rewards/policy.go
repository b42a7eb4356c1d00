package rewards

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Proton-105/ekilore-core/internal/domain"
	apperrors "github.com/Proton-105/ekilore-core/internal/errors"
	"github.com/Proton-105/ekilore-core/internal/idempotency"
	"github.com/Proton-105/ekilore-core/internal/store"
	"github.com/Proton-105/ekilore-core/pkg/metrics"
)

// SessionReader exposes the signed-in user.
type SessionReader interface {
	CurrentUser() (*domain.User, bool)
}

// Crediter is the part of the ledger the policy drives.
type Crediter interface {
	Credit(ctx context.Context, amount int64, description string, kind domain.TransactionKind) (domain.Transaction, error)
}

// ClaimOptions carries per-claim parameters.
type ClaimOptions struct {
	// PartnerID selects the partner for partner_visit; an @username works too.
	PartnerID string
}

// Purchase is the outcome of a package purchase.
type Purchase struct {
	Package     TokenPackage       `json:"package"`
	Receipt     Receipt            `json:"receipt"`
	Transaction domain.Transaction `json:"transaction"`
}

// Describer resolves a label key in the user's current language. It returns
// the key itself when no translation exists.
type Describer func(key string) string

// Policy maps user actions to fixed ledger credits and prevents a reward
// from being granted twice in the same period.
type Policy struct {
	session   SessionReader
	ledger    Crediter
	payment   PaymentProvider
	claims    *idempotency.Manager
	breaker   *apperrors.CircuitBreaker
	loc       *time.Location
	retention time.Duration
	enforce   bool
	describe  Describer
	log       *slog.Logger
	now       func() time.Time
}

// Option configures a Policy.
type Option func(*Policy)

// WithPayment replaces the simulated payment provider.
func WithPayment(provider PaymentProvider) Option {
	return func(p *Policy) {
		if provider != nil {
			p.payment = provider
		}
	}
}

// WithClaims sets the claim record manager. Without it records live in
// memory only.
func WithClaims(claims *idempotency.Manager) Option {
	return func(p *Policy) {
		if claims != nil {
			p.claims = claims
		}
	}
}

// WithLocation sets the time zone in which daily rewards reset.
func WithLocation(loc *time.Location) Option {
	return func(p *Policy) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// WithRetention sets how long expired records are kept before pruning.
func WithRetention(d time.Duration) Option {
	return func(p *Policy) {
		if d >= 0 {
			p.retention = d
		}
	}
}

// WithEnforcement toggles the once-per-period check. Disabled, every claim
// credits.
func WithEnforcement(enforce bool) Option {
	return func(p *Policy) { p.enforce = enforce }
}

// WithDescriber localizes the descriptions of rewards that carry a label.
func WithDescriber(describe Describer) Option {
	return func(p *Policy) { p.describe = describe }
}

func WithBreaker(cb *apperrors.CircuitBreaker) Option {
	return func(p *Policy) {
		if cb != nil {
			p.breaker = cb
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(p *Policy) {
		if log != nil {
			p.log = log
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Policy) {
		if now != nil {
			p.now = now
		}
	}
}

// NewPolicy binds the reward rules to a session and a ledger.
func NewPolicy(sess SessionReader, ledger Crediter, opts ...Option) *Policy {
	p := &Policy{
		session:   sess,
		ledger:    ledger,
		payment:   NewSimulatedPayment(DefaultPaymentDelay),
		breaker:   apperrors.NewCircuitBreaker("payment", paymentBreakerSettings()),
		loc:       defaultLocation(),
		retention: DefaultRetention,
		enforce:   true,
		log:       slog.Default(),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.claims == nil {
		p.claims = idempotency.NewManager(nil, store.RecordClaims, p.log)
	}
	p.claims.SetClock(p.now)

	return p
}

func defaultLocation() *time.Location {
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GrantRegistration credits the registration bonus once per user.
func (p *Policy) GrantRegistration(ctx context.Context) (domain.Transaction, error) {
	r, _ := Lookup(KeyRegistration)
	return p.grant(ctx, r, nil)
}

// GrantLogin credits the login bonus once per session.
func (p *Policy) GrantLogin(ctx context.Context) (domain.Transaction, error) {
	r, _ := Lookup(KeyLogin)
	return p.grant(ctx, r, nil)
}

// Claim credits a user-initiated reward.
func (p *Policy) Claim(ctx context.Context, key Key, opts ClaimOptions) (domain.Transaction, error) {
	r, ok := Lookup(key)
	if !ok {
		metrics.RecordClaim(string(key), "unknown")
		return domain.Transaction{}, apperrors.NewUnknownItemError("reward", string(key))
	}
	if !r.Claimable {
		metrics.RecordClaim(string(key), "invalid")
		return domain.Transaction{}, apperrors.NewValidationError("reward " + string(key) + " is granted automatically")
	}

	var partner *Partner
	if r.Key == KeyPartnerVisit {
		if strings.TrimSpace(opts.PartnerID) == "" {
			metrics.RecordClaim(string(key), "invalid")
			return domain.Transaction{}, apperrors.NewValidationError("partner is required for partner_visit")
		}
		found, ok := FindPartner(opts.PartnerID)
		if !ok {
			metrics.RecordClaim(string(key), "unknown")
			return domain.Transaction{}, apperrors.NewUnknownItemError("partner", opts.PartnerID)
		}
		partner = &found
	}

	return p.grant(ctx, r, partner)
}

func (p *Policy) grant(ctx context.Context, r Reward, partner *Partner) (domain.Transaction, error) {
	user, ok := p.currentUser()
	if !ok {
		metrics.RecordClaim(string(r.Key), "unauthenticated")
		return domain.Transaction{}, apperrors.NewNotAuthenticatedError("claiming " + string(r.Key))
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordClaim(string(r.Key), "cancelled")
		return domain.Transaction{}, err
	}

	description := p.description(r, partner)
	credit := func(ctx context.Context) (domain.Transaction, error) {
		return p.ledger.Credit(ctx, r.Amount, description, r.Kind)
	}

	if !p.enforce {
		tx, err := credit(ctx)
		p.recordClaim(ctx, r, err)
		return tx, err
	}

	now := p.now()
	rec := newRecord(r, user, partner, now, p.loc, p.retention)

	var tx domain.Transaction
	err := p.claims.Execute(ctx, rec, func(ctx context.Context) error {
		var err error
		tx, err = credit(ctx)
		return err
	})

	var dup *idempotency.DuplicateError
	if errors.As(err, &dup) {
		metrics.RecordClaim(string(r.Key), "already_claimed")
		next := ""
		if t := nextEligible(r, dup.Existing.RecordedAt, p.loc); !t.IsZero() {
			next = t.Format(time.RFC3339)
		}
		return domain.Transaction{}, apperrors.NewAlreadyClaimedError(string(r.Key), next)
	}
	if err != nil {
		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) {
			err = apperrors.NewStorageError(store.RecordClaims, err)
		}
		p.recordClaim(ctx, r, err)
		return domain.Transaction{}, err
	}

	p.recordClaim(ctx, r, nil)
	return tx, nil
}

func (p *Policy) recordClaim(ctx context.Context, r Reward, err error) {
	if err != nil {
		metrics.RecordClaim(string(r.Key), "error")
		p.log.WarnContext(ctx, "reward claim failed", slog.String("reward", string(r.Key)), slog.Any("error", err))
		return
	}

	metrics.RecordClaim(string(r.Key), "ok")
	p.log.InfoContext(ctx, "reward granted", slog.String("reward", string(r.Key)), slog.Int64("amount", r.Amount))
}

// PurchasePackage charges for a token package and credits the package total
// as purchased tokens. ref is a package id or its token count.
func (p *Policy) PurchasePackage(ctx context.Context, ref string) (Purchase, error) {
	pkg, ok := FindPackage(ref)
	if !ok {
		metrics.RecordPurchase(ref, "unknown")
		return Purchase{}, apperrors.NewUnknownItemError("package", ref)
	}

	user, ok := p.currentUser()
	if !ok {
		metrics.RecordPurchase(pkg.ID, "unauthenticated")
		return Purchase{}, apperrors.NewNotAuthenticatedError("purchasing tokens")
	}

	req := ChargeRequest{
		PackageID:      pkg.ID,
		AmountCents:    pkg.PriceCents,
		UserID:         user.ID,
		IdempotencyKey: idempotency.GenerateKey(user.ID, pkg.ID, p.now().UTC().Format(time.RFC3339Nano)),
	}

	var receipt Receipt
	err := p.breaker.Call(func() error {
		var err error
		receipt, err = p.payment.Charge(ctx, req)
		return err
	})
	if err != nil {
		metrics.RecordPurchase(pkg.ID, purchaseStatus(err))
		p.log.WarnContext(ctx, "payment failed", slog.String("package", pkg.ID), slog.Any("error", err))
		return Purchase{}, classifyPayment(err)
	}

	// the charge went through, so the credit must not be abandoned
	tx, err := p.ledger.Credit(context.WithoutCancel(ctx), pkg.Total(), pkg.Description(), domain.TransactionPurchased)
	if err != nil {
		metrics.RecordPurchase(pkg.ID, "error")
		p.log.ErrorContext(ctx, "charged but not credited",
			slog.String("package", pkg.ID),
			slog.String("receipt_id", receipt.ID),
			slog.Any("error", err),
		)
		return Purchase{Package: pkg, Receipt: receipt}, err
	}

	metrics.RecordPurchase(pkg.ID, "ok")
	p.log.InfoContext(ctx, "package purchased",
		slog.String("package", pkg.ID),
		slog.String("receipt_id", receipt.ID),
		slog.Int64("credited", tx.Amount),
	)

	return Purchase{Package: pkg, Receipt: receipt, Transaction: tx}, nil
}

func classifyPayment(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}

	return apperrors.NewProviderError("payment", err)
}

func (p *Policy) description(r Reward, partner *Partner) string {
	if r.LabelKey != "" && p.describe != nil {
		if text := p.describe(r.LabelKey); text != "" && text != r.LabelKey {
			return text
		}
	}
	return r.describe(partner)
}

// paymentBreakerSettings trips on provider outages only. Declines never
// trip it.
func paymentBreakerSettings() apperrors.BreakerSettings {
	return apperrors.BreakerSettings{
		MinRequests: paymentBreakerMinRequests,
		IsFailure: func(err error) bool {
			return errors.Is(err, apperrors.ErrNetworkFailure)
		},
	}
}

func purchaseStatus(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, apperrors.ErrNetworkFailure):
		return "unavailable"
	default:
		return "declined"
	}
}

// Eligibility reports, for every claimable reward, whether it can be claimed
// now. Partner visits are reported once per partner.
func (p *Policy) Eligibility(ctx context.Context) ([]Status, error) {
	user, ok := p.currentUser()
	if !ok {
		return nil, apperrors.NewNotAuthenticatedError("checking rewards")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := p.now()
	statuses := make([]Status, 0, len(catalog)+len(partners))
	for _, r := range catalog {
		if !r.Claimable {
			continue
		}

		if r.Key != KeyPartnerVisit {
			statuses = append(statuses, p.status(r, user, nil, now))
			continue
		}
		for _, partner := range partners {
			partner := partner
			statuses = append(statuses, p.status(r, user, &partner, now))
		}
	}

	return statuses, nil
}

func (p *Policy) status(r Reward, user *domain.User, partner *Partner, now time.Time) Status {
	st := Status{Reward: r, Partner: partner, Eligible: true}
	st.Reward.Description = p.description(r, partner)
	if !p.enforce {
		return st
	}

	rec := newRecord(r, user, partner, now, p.loc, p.retention)
	if existing, ok := p.claims.Lookup(rec.Key); ok {
		st.Eligible = false
		st.ClaimedAt = existing.RecordedAt
		st.NextEligibleAt = nextEligible(r, existing.RecordedAt, p.loc)
	}

	return st
}

// Catalog lists every reward.
func (p *Policy) Catalog() []Reward { return Catalog() }

// Packages lists the purchasable token packages.
func (p *Policy) Packages() []TokenPackage { return Packages() }

// Partners lists the partner directory.
func (p *Policy) Partners() []Partner { return Partners() }

// Claims exposes the claim record manager for persistence and pruning.
func (p *Policy) Claims() *idempotency.Manager { return p.claims }

func (p *Policy) currentUser() (*domain.User, bool) {
	if p.session == nil {
		return nil, false
	}
	return p.session.CurrentUser()
}
