package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/ekilore-core/internal/domain"
	apperrors "github.com/Proton-105/ekilore-core/internal/errors"
	"github.com/Proton-105/ekilore-core/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLedger(opts ...Option) *Ledger {
	return New(append([]Option{WithLogger(testLogger())}, opts...)...)
}

func TestLedger_Scenarios(t *testing.T) {
	ctx := context.Background()

	t.Run("registration bonus on a fresh ledger", func(t *testing.T) {
		l := newTestLedger()
		_, err := l.Credit(ctx, 500, "Registration Bonus", domain.TransactionEarned)
		require.NoError(t, err)

		assert.Equal(t, int64(500), l.Balance())
		assert.Equal(t, int64(500), l.EarnedTotal())
		assert.Len(t, l.Transactions(), 1)
	})

	t.Run("debit above balance is refused", func(t *testing.T) {
		l := newTestLedger()
		_, err := l.Credit(ctx, 500, "seed", domain.TransactionEarned)
		require.NoError(t, err)

		ok, err := l.Debit(ctx, 600, "x")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, int64(500), l.Balance())
		assert.Len(t, l.Transactions(), 1)
	})

	t.Run("debit of the whole balance", func(t *testing.T) {
		l := newTestLedger()
		_, err := l.Credit(ctx, 500, "seed", domain.TransactionEarned)
		require.NoError(t, err)

		ok, err := l.Debit(ctx, 500, "x")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Zero(t, l.Balance())
		assert.Equal(t, int64(500), l.SpentTotal())
	})

	t.Run("purchase and bonus", func(t *testing.T) {
		l := newTestLedger()
		before := l.Balance()
		_, err := l.Credit(ctx, 1000, "purchase", domain.TransactionPurchased)
		require.NoError(t, err)
		_, err = l.Credit(ctx, 100, "bonus", domain.TransactionPurchased)
		require.NoError(t, err)

		assert.Equal(t, int64(1100), l.PurchasedTotal())
		assert.Equal(t, before+1100, l.Balance())
	})

	t.Run("identical credits are not deduplicated", func(t *testing.T) {
		l := newTestLedger()
		first, err := l.Credit(ctx, 10, "Daily Login Bonus", domain.TransactionEarned)
		require.NoError(t, err)
		second, err := l.Credit(ctx, 10, "Daily Login Bonus", domain.TransactionEarned)
		require.NoError(t, err)

		assert.NotEqual(t, first.ID, second.ID)
		assert.Equal(t, int64(20), l.Balance())
	})
}

func TestLedger_NewestFirst(t *testing.T) {
	ctx := context.Background()
	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newTestLedger(WithClock(func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}))

	_, err := l.Credit(ctx, 100, "first", domain.TransactionEarned)
	require.NoError(t, err)
	_, err = l.Debit(ctx, 30, "second")
	require.NoError(t, err)
	last, err := l.Credit(ctx, 5, "third", domain.TransactionPurchased)
	require.NoError(t, err)

	txs := l.Transactions()
	require.Len(t, txs, 3)
	assert.Equal(t, last.ID, txs[0].ID)
	assert.Equal(t, []string{"third", "second", "first"}, []string{txs[0].Description, txs[1].Description, txs[2].Description})
	assert.Equal(t, domain.TransactionSpent, txs[1].Kind)
	for _, tx := range txs {
		assert.Equal(t, domain.StatusCompleted, tx.Status)
	}
	assert.True(t, txs[0].Timestamp.After(txs[1].Timestamp))
}

func TestLedger_RejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger()

	testCases := []struct {
		name string
		run  func() error
	}{
		{name: "zero credit", run: func() error {
			_, err := l.Credit(ctx, 0, "x", domain.TransactionEarned)
			return err
		}},
		{name: "negative credit", run: func() error {
			_, err := l.Credit(ctx, -5, "x", domain.TransactionPurchased)
			return err
		}},
		{name: "spent kind credit", run: func() error {
			_, err := l.Credit(ctx, 5, "x", domain.TransactionSpent)
			return err
		}},
		{name: "zero debit", run: func() error {
			_, err := l.Debit(ctx, 0, "x")
			return err
		}},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.run(), apperrors.ErrValidation)
			assert.Empty(t, l.Transactions())
			assert.Zero(t, l.Balance())
		})
	}
}

func TestLedger_InvariantsHoldForRandomSequences(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	for run := 0; run < 20; run++ {
		l := newTestLedger()
		ids := make(map[string]struct{})

		for step := 0; step < 200; step++ {
			before := l.Wallet()
			amount := rng.Int63n(300) + 1

			var succeeded bool
			switch rng.Intn(3) {
			case 0:
				_, err := l.Credit(ctx, amount, "earn", domain.TransactionEarned)
				require.NoError(t, err)
				succeeded = true
			case 1:
				_, err := l.Credit(ctx, amount, "buy", domain.TransactionPurchased)
				require.NoError(t, err)
				succeeded = true
			default:
				ok, err := l.Debit(ctx, amount, "spend")
				require.NoError(t, err)
				succeeded = ok
				if amount > before.Balance {
					require.False(t, ok)
				}
			}

			after := l.Wallet()
			require.True(t, after.Consistent(), "run %d step %d", run, step)
			require.GreaterOrEqual(t, after.Balance, int64(0))
			require.GreaterOrEqual(t, after.EarnedTotal, before.EarnedTotal)
			require.GreaterOrEqual(t, after.SpentTotal, before.SpentTotal)
			require.GreaterOrEqual(t, after.PurchasedTotal, before.PurchasedTotal)

			if succeeded {
				require.Len(t, after.Transactions, len(before.Transactions)+1)
				newest := after.Transactions[0]
				_, dup := ids[newest.ID]
				require.False(t, dup, "duplicate id %s", newest.ID)
				ids[newest.ID] = struct{}{}
			} else {
				require.Equal(t, before, after)
			}
		}

		require.NoError(t, Validate(l.Wallet()))
	}
}

func TestLedger_ReadsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger()
	_, err := l.Credit(ctx, 50, "Profile Completion", domain.TransactionEarned)
	require.NoError(t, err)

	assert.Equal(t, l.Balance(), l.Balance())
	assert.Equal(t, l.Transactions(), l.Transactions())

	txs := l.Transactions()
	txs[0].Amount = 1_000_000
	assert.Equal(t, int64(50), l.Transactions()[0].Amount, "returned slices are copies")
}

func TestLedger_HistoryAndFilters(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger()
	for i := 0; i < 5; i++ {
		_, err := l.Credit(ctx, 10, fmt.Sprintf("earn %d", i), domain.TransactionEarned)
		require.NoError(t, err)
	}
	_, err := l.Credit(ctx, 100, "buy", domain.TransactionPurchased)
	require.NoError(t, err)
	_, err = l.Debit(ctx, 40, "spend")
	require.NoError(t, err)

	assert.Len(t, l.History(3), 3)
	assert.Len(t, l.History(0), 7)
	assert.Equal(t, "spend", l.History(1)[0].Description)

	earned := l.TransactionsByKind(domain.TransactionEarned, 2)
	require.Len(t, earned, 2)
	assert.Equal(t, "earn 4", earned[0].Description)
	assert.Len(t, l.TransactionsByKind(domain.TransactionPurchased, 0), 1)
	assert.Len(t, l.TransactionsByKind(domain.TransactionSpent, 10), 1)
}

func TestLedger_PersistThenCommit(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	l := newTestLedger(WithStore(st))

	_, err := l.Credit(ctx, 500, "Registration Bonus 🎉", domain.TransactionEarned)
	require.NoError(t, err)

	persisted, err := LoadWallet(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, l.Wallet(), persisted)

	st.FailSave = map[string]error{store.RecordTokens: errors.New("quota exceeded")}

	_, err = l.Credit(ctx, 10, "x", domain.TransactionEarned)
	assert.ErrorIs(t, err, apperrors.ErrStorage)
	ok, err := l.Debit(ctx, 10, "y")
	assert.False(t, ok)
	assert.ErrorIs(t, err, apperrors.ErrStorage)

	assert.Equal(t, persisted, l.Wallet(), "failed saves leave the wallet unchanged")
}

func TestValidate(t *testing.T) {
	earned := domain.Transaction{ID: "a", Kind: domain.TransactionEarned, Amount: 100}
	spent := domain.Transaction{ID: "b", Kind: domain.TransactionSpent, Amount: 30}

	testCases := []struct {
		name    string
		wallet  domain.Wallet
		wantErr bool
	}{
		{name: "empty", wallet: domain.Wallet{}},
		{name: "consistent", wallet: domain.Wallet{Balance: 70, EarnedTotal: 100, SpentTotal: 30, Transactions: []domain.Transaction{spent, earned}}},
		{name: "negative balance", wallet: domain.Wallet{Balance: -1, SpentTotal: 1}, wantErr: true},
		{name: "totals mismatch balance", wallet: domain.Wallet{Balance: 10, EarnedTotal: 5}, wantErr: true},
		{name: "history mismatch totals", wallet: domain.Wallet{Balance: 100, EarnedTotal: 100}, wantErr: true},
		{name: "duplicate ids", wallet: domain.Wallet{Balance: 200, EarnedTotal: 200, Transactions: []domain.Transaction{earned, earned}}, wantErr: true},
		{name: "unknown kind", wallet: domain.Wallet{Transactions: []domain.Transaction{{ID: "z", Kind: "gifted"}}}, wantErr: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.wallet)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLedger_RestoreRejectsCorruptWallet(t *testing.T) {
	l := newTestLedger()
	err := l.Restore(domain.Wallet{Balance: 999})
	assert.ErrorIs(t, err, apperrors.ErrStorage)
	assert.Zero(t, l.Balance())

	good := domain.Wallet{
		Balance:     100,
		EarnedTotal: 100,
		Transactions: []domain.Transaction{
			{ID: "t1", Kind: domain.TransactionEarned, Amount: 100, Status: domain.StatusCompleted},
		},
	}
	require.NoError(t, l.Restore(good))
	assert.Equal(t, int64(100), l.Balance())
	assert.Len(t, l.Transactions(), 1)
}
