package ledger

import (
	"context"
	"fmt"

	"github.com/Proton-105/ekilore-core/internal/domain"
	apperrors "github.com/Proton-105/ekilore-core/internal/errors"
	"github.com/Proton-105/ekilore-core/internal/store"
	"github.com/Proton-105/ekilore-core/pkg/metrics"
)

func (l *Ledger) Balance() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.wallet.Balance
}

func (l *Ledger) EarnedTotal() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.wallet.EarnedTotal
}

func (l *Ledger) SpentTotal() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.wallet.SpentTotal
}

func (l *Ledger) PurchasedTotal() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.wallet.PurchasedTotal
}

// Transactions returns the full history, newest first.
func (l *Ledger) Transactions() []domain.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]domain.Transaction(nil), l.wallet.Transactions...)
}

// History returns at most limit transactions, newest first. A non-positive
// limit returns everything.
func (l *Ledger) History(limit int) []domain.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	txs := l.wallet.Transactions
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	return append([]domain.Transaction(nil), txs...)
}

// TransactionsByKind returns at most limit transactions of kind, newest first.
func (l *Ledger) TransactionsByKind(kind domain.TransactionKind, limit int) []domain.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	filtered := make([]domain.Transaction, 0)
	for _, tx := range l.wallet.Transactions {
		if limit > 0 && len(filtered) >= limit {
			break
		}
		if tx.Kind == kind {
			filtered = append(filtered, tx)
		}
	}
	return filtered
}

// Wallet returns a copy of the full wallet state.
func (l *Ledger) Wallet() domain.Wallet {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.wallet.Clone()
}

// Restore replaces the wallet with w after validating it. Nothing is persisted.
func (l *Ledger) Restore(w domain.Wallet) error {
	if err := Validate(w); err != nil {
		return apperrors.NewStorageError(store.RecordTokens, err)
	}

	w = w.Clone()
	if w.Transactions == nil {
		w.Transactions = []domain.Transaction{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.wallet = w
	metrics.SetBalance(w.Balance)
	return nil
}

// Validate checks a wallet read from storage.
func Validate(w domain.Wallet) error {
	if w.Balance < 0 {
		return fmt.Errorf("negative balance %d", w.Balance)
	}
	if w.EarnedTotal < 0 || w.SpentTotal < 0 || w.PurchasedTotal < 0 {
		return fmt.Errorf("negative running total")
	}
	if !w.Consistent() {
		return fmt.Errorf("balance %d does not match totals earned=%d purchased=%d spent=%d",
			w.Balance, w.EarnedTotal, w.PurchasedTotal, w.SpentTotal)
	}

	var earned, spent, purchased int64
	seen := make(map[string]struct{}, len(w.Transactions))
	for i, tx := range w.Transactions {
		if tx.Amount < 0 {
			return fmt.Errorf("transaction %d has negative amount", i)
		}
		if _, dup := seen[tx.ID]; dup && tx.ID != "" {
			return fmt.Errorf("duplicate transaction id %q", tx.ID)
		}
		seen[tx.ID] = struct{}{}

		switch tx.Kind {
		case domain.TransactionEarned:
			earned += tx.Amount
		case domain.TransactionSpent:
			spent += tx.Amount
		case domain.TransactionPurchased:
			purchased += tx.Amount
		default:
			return fmt.Errorf("transaction %d has unknown kind %q", i, tx.Kind)
		}
	}

	if earned != w.EarnedTotal || spent != w.SpentTotal || purchased != w.PurchasedTotal {
		return fmt.Errorf("running totals do not match transaction history")
	}

	return nil
}

// LoadWallet reads and validates the persisted wallet. A missing record is
// an empty wallet.
func LoadWallet(ctx context.Context, st store.Store) (domain.Wallet, error) {
	var (
		w      domain.Wallet
		legacy legacyWallet
	)
	version, found, err := store.LoadVersionedRecord(ctx, st, store.RecordTokens, &w, &legacy)
	if err != nil {
		return domain.Wallet{}, apperrors.NewStorageError(store.RecordTokens, err)
	}
	if found && version == 0 {
		w = legacy.wallet()
	}
	if err := Validate(w); err != nil {
		return domain.Wallet{}, apperrors.NewStorageError(store.RecordTokens, err)
	}
	if w.Transactions == nil {
		w.Transactions = []domain.Transaction{}
	}

	return w, nil
}

// legacyWallet is the tokens record written by the web client, which used
// camelCase keys and no envelope.
type legacyWallet struct {
	Balance        int64                `json:"balance"`
	Transactions   []domain.Transaction `json:"transactions"`
	EarnedTotal    int64                `json:"earnedTotal"`
	SpentTotal     int64                `json:"spentTotal"`
	PurchasedTotal int64                `json:"purchasedTotal"`
}

func (lw legacyWallet) wallet() domain.Wallet {
	return domain.Wallet{
		Balance:        lw.Balance,
		Transactions:   lw.Transactions,
		EarnedTotal:    lw.EarnedTotal,
		SpentTotal:     lw.SpentTotal,
		PurchasedTotal: lw.PurchasedTotal,
	}
}
