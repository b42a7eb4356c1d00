// Package ledger maintains the wallet balance and the append-only,
// newest-first transaction history. It is the only component that mutates
// balance or totals.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Proton-105/ekilore-core/internal/domain"
	apperrors "github.com/Proton-105/ekilore-core/internal/errors"
	"github.com/Proton-105/ekilore-core/internal/store"
	"github.com/Proton-105/ekilore-core/pkg/metrics"
)

// Ledger is safe for concurrent use. It records value movement regardless
// of authentication state; gating is the caller's job.
type Ledger struct {
	store store.Store
	log   *slog.Logger
	now   func() time.Time
	newID func() string

	mu     sync.RWMutex
	wallet domain.Wallet
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithStore persists the wallet after every mutation.
func WithStore(st store.Store) Option {
	return func(l *Ledger) { l.store = st }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(l *Ledger) {
		if log != nil {
			l.log = log
		}
	}
}

// WithClock sets the transaction timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(gen func() string) Option {
	return func(l *Ledger) {
		if gen != nil {
			l.newID = gen
		}
	}
}

// New returns an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		log:    slog.Default(),
		now:    time.Now,
		newID:  uuid.NewString,
		wallet: domain.Wallet{Transactions: []domain.Transaction{}},
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Credit records an earned or purchased amount. There is no
// deduplication: identical calls produce distinct transactions.
func (l *Ledger) Credit(ctx context.Context, amount int64, description string, kind domain.TransactionKind) (domain.Transaction, error) {
	if !kind.IsCredit() {
		return domain.Transaction{}, apperrors.NewValidationError(fmt.Sprintf("credit kind must be earned or purchased, got %q", kind))
	}
	if amount <= 0 {
		metrics.RecordLedgerOperation(string(kind), "invalid", amount)
		return domain.Transaction{}, apperrors.NewValidationError(fmt.Sprintf("credit amount must be positive, got %d", amount))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tx := l.newTransaction(kind, amount, description)
	next := l.wallet.Clone()
	next.Transactions = prepend(next.Transactions, tx)
	next.Balance += amount
	if kind == domain.TransactionEarned {
		next.EarnedTotal += amount
	} else {
		next.PurchasedTotal += amount
	}

	if err := l.commit(ctx, next); err != nil {
		metrics.RecordLedgerOperation(string(kind), "error", amount)
		return domain.Transaction{}, err
	}

	metrics.RecordLedgerOperation(string(kind), "ok", amount)
	l.log.InfoContext(ctx, "tokens credited",
		slog.String("transaction_id", tx.ID),
		slog.String("kind", string(kind)),
		slog.Int64("amount", amount),
		slog.Int64("balance", next.Balance),
	)

	return tx, nil
}

// ClaimReward credits reward as earned tokens.
func (l *Ledger) ClaimReward(ctx context.Context, amount int64, description string) (domain.Transaction, error) {
	return l.Credit(ctx, amount, description, domain.TransactionEarned)
}

// Debit spends amount if the balance covers it. Insufficient balance is
// reported as false with no mutation; err is non-nil only for invalid
// input or a persistence failure.
func (l *Ledger) Debit(ctx context.Context, amount int64, description string) (bool, error) {
	if amount <= 0 {
		metrics.RecordLedgerOperation(string(domain.TransactionSpent), "invalid", amount)
		return false, apperrors.NewValidationError(fmt.Sprintf("debit amount must be positive, got %d", amount))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.wallet.Balance < amount {
		metrics.RecordLedgerOperation(string(domain.TransactionSpent), "insufficient", amount)
		l.log.DebugContext(ctx, "debit refused",
			slog.Int64("amount", amount),
			slog.Int64("balance", l.wallet.Balance),
		)
		return false, nil
	}

	tx := l.newTransaction(domain.TransactionSpent, amount, description)
	next := l.wallet.Clone()
	next.Transactions = prepend(next.Transactions, tx)
	next.Balance -= amount
	next.SpentTotal += amount

	if err := l.commit(ctx, next); err != nil {
		metrics.RecordLedgerOperation(string(domain.TransactionSpent), "error", amount)
		return false, err
	}

	metrics.RecordLedgerOperation(string(domain.TransactionSpent), "ok", amount)
	l.log.InfoContext(ctx, "tokens spent",
		slog.String("transaction_id", tx.ID),
		slog.Int64("amount", amount),
		slog.Int64("balance", next.Balance),
	)

	return true, nil
}

func (l *Ledger) newTransaction(kind domain.TransactionKind, amount int64, description string) domain.Transaction {
	return domain.Transaction{
		ID:          l.newID(),
		Kind:        kind,
		Amount:      amount,
		Description: description,
		Timestamp:   l.now().UTC(),
		Status:      domain.StatusCompleted,
	}
}

// commit persists next and only then makes it current. Callers hold l.mu.
func (l *Ledger) commit(ctx context.Context, next domain.Wallet) error {
	if l.store != nil {
		if err := store.SaveRecord(context.WithoutCancel(ctx), l.store, store.RecordTokens, next); err != nil {
			l.log.ErrorContext(ctx, "failed to persist wallet", slog.Any("error", err))
			return apperrors.NewStorageError(store.RecordTokens, err)
		}
	}

	l.wallet = next
	metrics.SetBalance(next.Balance)
	return nil
}

func prepend(txs []domain.Transaction, tx domain.Transaction) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(txs)+1)
	out = append(out, tx)
	return append(out, txs...)
}
