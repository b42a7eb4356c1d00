package rewards_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Proton-105/ekilore-core/internal/domain"
	apperrors "github.com/Proton-105/ekilore-core/internal/errors"
	"github.com/Proton-105/ekilore-core/internal/idempotency"
	"github.com/Proton-105/ekilore-core/internal/ledger"
	"github.com/Proton-105/ekilore-core/internal/rewards"
	"github.com/Proton-105/ekilore-core/internal/rewards/mock"
	"github.com/Proton-105/ekilore-core/internal/session"
	"github.com/Proton-105/ekilore-core/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// 21:00 in Tokyo; the Tokyo day rolls over at 15:00 UTC.
var fixedNow = time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	st     *store.MemoryStore
	sess   *session.Manager
	ledger *ledger.Ledger
	policy *rewards.Policy
	now    time.Time
}

func newFixture(t *testing.T, opts ...rewards.Option) *fixture {
	t.Helper()

	f := &fixture{st: store.NewMemoryStore(), now: fixedNow}
	clock := func() time.Time { return f.now }

	f.sess = session.NewManager(session.NewSimulated(0),
		session.WithStore(f.st),
		session.WithLogger(testLogger()),
		session.WithClock(clock),
	)
	f.ledger = ledger.New(
		ledger.WithStore(f.st),
		ledger.WithLogger(testLogger()),
		ledger.WithClock(clock),
	)

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	base := []rewards.Option{
		rewards.WithClaims(idempotency.NewManager(f.st, store.RecordClaims, testLogger())),
		rewards.WithLocation(tokyo),
		rewards.WithPayment(rewards.NewSimulatedPayment(0)),
		rewards.WithLogger(testLogger()),
		rewards.WithClock(clock),
	}
	f.policy = rewards.NewPolicy(f.sess, f.ledger, append(base, opts...)...)

	return f
}

func (f *fixture) login(t *testing.T) *domain.User {
	t.Helper()

	user, err := f.sess.Login(context.Background(), "taro@example.com", "secret")
	require.NoError(t, err)
	return user
}

func TestPolicy_RequiresAuthentication(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.policy.GrantRegistration(ctx)
	assert.ErrorIs(t, err, apperrors.ErrNotAuthenticated)

	_, err = f.policy.GrantLogin(ctx)
	assert.ErrorIs(t, err, apperrors.ErrNotAuthenticated)

	_, err = f.policy.Claim(ctx, rewards.KeyDaily, rewards.ClaimOptions{})
	assert.ErrorIs(t, err, apperrors.ErrNotAuthenticated)

	_, err = f.policy.Claim(ctx, rewards.KeyPartnerVisit, rewards.ClaimOptions{PartnerID: "sakura_content"})
	assert.ErrorIs(t, err, apperrors.ErrNotAuthenticated)

	_, err = f.policy.PurchasePackage(ctx, "tokens-5000")
	assert.ErrorIs(t, err, apperrors.ErrNotAuthenticated)

	_, err = f.policy.Eligibility(ctx)
	assert.ErrorIs(t, err, apperrors.ErrNotAuthenticated)

	assert.Zero(t, f.ledger.Balance())
	assert.Empty(t, f.ledger.Transactions())
}

func TestPolicy_CatalogAmounts(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name        string
		key         rewards.Key
		opts        rewards.ClaimOptions
		amount      int64
		description string
	}{
		{name: "daily", key: rewards.KeyDaily, amount: 10, description: "Daily Login Claim"},
		{name: "profile", key: rewards.KeyProfile, amount: 50, description: "Profile Completion"},
		{name: "first purchase", key: rewards.KeyFirstPurchase, amount: 100, description: "First Purchase Reward"},
		{name: "referral", key: rewards.KeyReferral, amount: 100, description: "Referral Reward"},
		{name: "survey", key: rewards.KeySurvey, amount: 30, description: "Survey Completion 📊"},
		{name: "partner", key: rewards.KeyPartnerVisit, opts: rewards.ClaimOptions{PartnerID: "@tokyo_vibes"}, amount: 20, description: "Visited @tokyo_vibes"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.login(t)

			tx, err := f.policy.Claim(ctx, tc.key, tc.opts)
			require.NoError(t, err)

			assert.Equal(t, tc.amount, tx.Amount)
			assert.Equal(t, tc.description, tx.Description)
			assert.Equal(t, domain.TransactionEarned, tx.Kind)
			assert.Equal(t, tc.amount, f.ledger.Balance())
			assert.Equal(t, tc.amount, f.ledger.EarnedTotal())
		})
	}
}

func TestPolicy_RegistrationAndLoginBonus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.login(t)

	tx, err := f.policy.GrantRegistration(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(500), tx.Amount)
	assert.Equal(t, "Registration Bonus 🎉", tx.Description)

	_, err = f.policy.GrantRegistration(ctx)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyClaimed)

	tx, err = f.policy.GrantLogin(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), tx.Amount)
	assert.Equal(t, "Daily Login Bonus 🌟", tx.Description)

	_, err = f.policy.GrantLogin(ctx)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyClaimed)

	// a new session earns the login bonus again
	require.NoError(t, f.sess.Logout(ctx))
	f.now = f.now.Add(time.Minute)
	f.login(t)

	_, err = f.policy.GrantLogin(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(520), f.ledger.Balance())
	assert.Equal(t, int64(520), f.ledger.EarnedTotal())
}

func TestPolicy_DailyResetsInConfiguredZone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.login(t)

	_, err := f.policy.Claim(ctx, rewards.KeyDaily, rewards.ClaimOptions{})
	require.NoError(t, err)

	_, err = f.policy.Claim(ctx, rewards.KeyDaily, rewards.ClaimOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyClaimed)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "errors.already_claimed_until", appErr.UserMessage)
	assert.Equal(t, []any{"daily", "2024-04-02T00:00:00+09:00"}, appErr.Params)

	// still April 1st in Tokyo
	f.now = fixedNow.Add(2 * time.Hour)
	_, err = f.policy.Claim(ctx, rewards.KeyDaily, rewards.ClaimOptions{})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyClaimed)

	// April 2nd in Tokyo, still April 1st in UTC
	f.now = fixedNow.Add(3 * time.Hour)
	_, err = f.policy.Claim(ctx, rewards.KeyDaily, rewards.ClaimOptions{})
	require.NoError(t, err)

	assert.Equal(t, int64(20), f.ledger.Balance())
	assert.Len(t, f.ledger.Transactions(), 2)
}

func TestPolicy_OnceRewardsStayClaimed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.login(t)

	_, err := f.policy.Claim(ctx, rewards.KeyProfile, rewards.ClaimOptions{})
	require.NoError(t, err)

	f.now = fixedNow.Add(30 * 24 * time.Hour)
	_, err = f.policy.Claim(ctx, rewards.KeyProfile, rewards.ClaimOptions{})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "errors.already_claimed", appErr.UserMessage)
	assert.Equal(t, int64(50), f.ledger.Balance())
}

func TestPolicy_PartnerVisits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.login(t)

	_, err := f.policy.Claim(ctx, rewards.KeyPartnerVisit, rewards.ClaimOptions{PartnerID: "sakura_content"})
	require.NoError(t, err)

	_, err = f.policy.Claim(ctx, rewards.KeyPartnerVisit, rewards.ClaimOptions{PartnerID: "@sakura_content"})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyClaimed)

	_, err = f.policy.Claim(ctx, rewards.KeyPartnerVisit, rewards.ClaimOptions{PartnerID: "anime_soul"})
	require.NoError(t, err)

	_, err = f.policy.Claim(ctx, rewards.KeyPartnerVisit, rewards.ClaimOptions{PartnerID: "nobody"})
	assert.ErrorIs(t, err, apperrors.ErrUnknownItem)

	_, err = f.policy.Claim(ctx, rewards.KeyPartnerVisit, rewards.ClaimOptions{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	assert.Equal(t, int64(40), f.ledger.Balance())
}

func TestPolicy_ClaimRejectsBadKeys(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.login(t)

	_, err := f.policy.Claim(ctx, rewards.KeyRegistration, rewards.ClaimOptions{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.policy.Claim(ctx, rewards.Key("lottery"), rewards.ClaimOptions{})
	assert.ErrorIs(t, err, apperrors.ErrUnknownItem)

	assert.Zero(t, f.ledger.Balance())
}

func TestPolicy_PermissiveMode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, rewards.WithEnforcement(false))
	f.login(t)

	for i := 0; i < 3; i++ {
		_, err := f.policy.Claim(ctx, rewards.KeyDaily, rewards.ClaimOptions{})
		require.NoError(t, err)
	}

	assert.Equal(t, int64(30), f.ledger.Balance())
	assert.Empty(t, f.policy.Claims().Snapshot().Records)

	statuses, err := f.policy.Eligibility(ctx)
	require.NoError(t, err)
	for _, st := range statuses {
		assert.True(t, st.Eligible, st.Reward.Key)
	}
}

func TestPolicy_FailedCreditReleasesClaim(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.login(t)

	f.st.FailSave = map[string]error{store.RecordTokens: errors.New("disk full")}
	_, err := f.policy.Claim(ctx, rewards.KeySurvey, rewards.ClaimOptions{})
	assert.ErrorIs(t, err, apperrors.ErrStorage)
	assert.Zero(t, f.ledger.Balance())

	f.st.FailSave = nil
	_, err = f.policy.Claim(ctx, rewards.KeySurvey, rewards.ClaimOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(30), f.ledger.Balance())

	persisted, err := idempotency.LoadSnapshot(ctx, f.st, store.RecordClaims)
	require.NoError(t, err)
	assert.Len(t, persisted.Records, 1)
}

func TestPolicy_ClaimStoreFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.login(t)

	f.st.FailSave = map[string]error{store.RecordClaims: errors.New("disk full")}
	_, err := f.policy.Claim(ctx, rewards.KeyProfile, rewards.ClaimOptions{})
	assert.ErrorIs(t, err, apperrors.ErrStorage)
	assert.Zero(t, f.ledger.Balance())
}

func TestPolicy_Eligibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.login(t)

	_, err := f.policy.Claim(ctx, rewards.KeyDaily, rewards.ClaimOptions{})
	require.NoError(t, err)
	_, err = f.policy.Claim(ctx, rewards.KeyPartnerVisit, rewards.ClaimOptions{PartnerID: "ramen_and_travel"})
	require.NoError(t, err)

	statuses, err := f.policy.Eligibility(ctx)
	require.NoError(t, err)
	// five plain claimable rewards, the partner reward once per partner
	require.Len(t, statuses, 5+len(rewards.Partners()))

	for _, st := range statuses {
		switch {
		case st.Reward.Key == rewards.KeyDaily:
			assert.False(t, st.Eligible)
			assert.True(t, st.ClaimedAt.Equal(fixedNow))
			assert.True(t, st.NextEligibleAt.Equal(time.Date(2024, 4, 1, 15, 0, 0, 0, time.UTC)))
		case st.Partner != nil && st.Partner.ID == "ramen_and_travel":
			assert.False(t, st.Eligible)
			assert.True(t, st.NextEligibleAt.IsZero())
			assert.Equal(t, "Visited @ramen_and_travel", st.Reward.Description)
		default:
			assert.True(t, st.Eligible, st.Reward.Key)
		}
	}
}

func TestPolicy_PurchasePackages(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		ref         string
		credited    int64
		description string
	}{
		{ref: "tokens-1000", credited: 1000, description: "Purchased 1000 tokens (+0% bonus)"},
		{ref: "5000", credited: 5500, description: "Purchased 5000 tokens (+10% bonus)"},
		{ref: "tokens-10000", credited: 11500, description: "Purchased 10000 tokens (+15% bonus)"},
		{ref: "25000", credited: 30000, description: "Purchased 25000 tokens (+20% bonus)"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.ref, func(t *testing.T) {
			f := newFixture(t)
			f.login(t)

			purchase, err := f.policy.PurchasePackage(ctx, tc.ref)
			require.NoError(t, err)

			assert.NotEmpty(t, purchase.Receipt.ID)
			assert.Equal(t, tc.credited, purchase.Transaction.Amount)
			assert.Equal(t, tc.description, purchase.Transaction.Description)
			assert.Equal(t, domain.TransactionPurchased, purchase.Transaction.Kind)
			assert.Equal(t, tc.credited, f.ledger.PurchasedTotal())
			assert.Equal(t, tc.credited, f.ledger.Balance())
			assert.Zero(t, f.ledger.EarnedTotal())
		})
	}
}

func TestPolicy_PurchaseUnknownPackage(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	_, err := f.policy.PurchasePackage(context.Background(), "tokens-3")
	assert.ErrorIs(t, err, apperrors.ErrUnknownItem)
}

func TestPolicy_PaymentDeclined(t *testing.T) {
	ctrl := gomock.NewController(t)
	payment := mock.NewMockPaymentProvider(ctrl)
	payment.EXPECT().
		Charge(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req rewards.ChargeRequest) (rewards.Receipt, error) {
			assert.Equal(t, "tokens-5000", req.PackageID)
			assert.Equal(t, int64(1000), req.AmountCents)
			assert.NotEmpty(t, req.IdempotencyKey)
			return rewards.Receipt{}, errors.New("card declined")
		})

	f := newFixture(t, rewards.WithPayment(payment))
	f.login(t)

	_, err := f.policy.PurchasePackage(context.Background(), "tokens-5000")
	assert.ErrorIs(t, err, apperrors.ErrProviderError)
	assert.Zero(t, f.ledger.Balance())
	assert.Empty(t, f.ledger.Transactions())
}

func TestPolicy_PaymentBreakerOpens(t *testing.T) {
	ctrl := gomock.NewController(t)
	payment := mock.NewMockPaymentProvider(ctrl)
	payment.EXPECT().
		Charge(gomock.Any(), gomock.Any()).
		Return(rewards.Receipt{}, apperrors.NewNetworkError("charge", errors.New("timeout"))).
		Times(2)

	breaker := apperrors.NewCircuitBreaker("payment", apperrors.BreakerSettings{MinRequests: 2, OpenTimeout: time.Hour})
	f := newFixture(t, rewards.WithPayment(payment), rewards.WithBreaker(breaker))
	f.login(t)

	for i := 0; i < 3; i++ {
		_, err := f.policy.PurchasePackage(context.Background(), "tokens-1000")
		assert.ErrorIs(t, err, apperrors.ErrNetworkFailure)
	}

	assert.Equal(t, apperrors.BreakerOpen, breaker.State())
	assert.Zero(t, f.ledger.Balance())
}

func TestPolicy_DescriberLocalizesLabels(t *testing.T) {
	labels := map[string]string{
		"rewards.labels.daily_login":    "デイリーログイン",
		"rewards.labels.first_purchase": "",
	}
	describe := func(key string) string {
		if text, ok := labels[key]; ok {
			return text
		}
		return key
	}

	testCases := []struct {
		name        string
		key         rewards.Key
		description string
	}{
		{name: "translated label", key: rewards.KeyDaily, description: "デイリーログイン"},
		{name: "missing translation", key: rewards.KeyProfile, description: "Profile Completion"},
		{name: "empty translation", key: rewards.KeyFirstPurchase, description: "First Purchase Reward"},
		{name: "no label", key: rewards.KeySurvey, description: "Survey Completion 📊"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, rewards.WithDescriber(describe))
			f.login(t)

			tx, err := f.policy.Claim(context.Background(), tc.key, rewards.ClaimOptions{})
			require.NoError(t, err)
			assert.Equal(t, tc.description, tx.Description)
		})
	}
}

func TestPolicy_DefaultBreaker(t *testing.T) {
	testCases := []struct {
		name      string
		chargeErr error
		charges   int
		wantErr   error
	}{
		{
			name:      "declines keep it closed",
			chargeErr: apperrors.NewProviderError("payment", errors.New("card declined")),
			charges:   4,
			wantErr:   apperrors.ErrProviderError,
		},
		{
			name:      "outages open it",
			chargeErr: apperrors.NewNetworkError("charge", errors.New("timeout")),
			charges:   3,
			wantErr:   apperrors.ErrNetworkFailure,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			payment := mock.NewMockPaymentProvider(ctrl)
			payment.EXPECT().
				Charge(gomock.Any(), gomock.Any()).
				Return(rewards.Receipt{}, tc.chargeErr).
				Times(tc.charges)

			f := newFixture(t, rewards.WithPayment(payment))
			f.login(t)

			for i := 0; i < 4; i++ {
				_, err := f.policy.PurchasePackage(context.Background(), "tokens-1000")
				assert.ErrorIs(t, err, tc.wantErr)
			}
			assert.Zero(t, f.ledger.Balance())
		})
	}
}

func TestPolicy_PurchaseCancelled(t *testing.T) {
	f := newFixture(t, rewards.WithPayment(rewards.NewSimulatedPayment(time.Hour)))
	f.login(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.policy.PurchasePackage(ctx, "tokens-1000")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, f.ledger.Balance())
}

func TestPolicy_CancelledClaim(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.policy.Claim(ctx, rewards.KeyDaily, rewards.ClaimOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.ledger.Balance())
}
