package domain

import "time"

// TransactionKind classifies a ledger movement.
type TransactionKind string

const (
	TransactionEarned    TransactionKind = "earned"
	TransactionSpent     TransactionKind = "spent"
	TransactionPurchased TransactionKind = "purchased"
)

// IsCredit reports whether the kind increases the balance.
func (k TransactionKind) IsCredit() bool {
	return k == TransactionEarned || k == TransactionPurchased
}

// Valid reports whether k is a known kind.
func (k TransactionKind) Valid() bool {
	return k.IsCredit() || k == TransactionSpent
}

// TransactionStatus is the settlement status of a transaction.
type TransactionStatus string

const (
	StatusCompleted TransactionStatus = "completed"
	// StatusPending is reserved; the ledger never creates pending entries.
	StatusPending TransactionStatus = "pending"
)

// Transaction is a single immutable ledger entry.
type Transaction struct {
	ID          string            `json:"id"`
	Kind        TransactionKind   `json:"type"`
	Amount      int64             `json:"amount"`
	Description string            `json:"description"`
	Timestamp   time.Time         `json:"date"`
	Status      TransactionStatus `json:"status"`
}

// Wallet is the derived state maintained by the ledger.
type Wallet struct {
	Balance        int64         `json:"balance"`
	Transactions   []Transaction `json:"transactions"`
	EarnedTotal    int64         `json:"earned_total"`
	SpentTotal     int64         `json:"spent_total"`
	PurchasedTotal int64         `json:"purchased_total"`
}

// Consistent reports whether the balance matches the running totals.
func (w Wallet) Consistent() bool {
	return w.Balance == w.EarnedTotal+w.PurchasedTotal-w.SpentTotal
}

// Clone deep-copies the wallet.
func (w Wallet) Clone() Wallet {
	copied := w
	copied.Transactions = append([]Transaction(nil), w.Transactions...)
	return copied
}
