package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ekilore_session_transitions_total",
			Help: "Total number of session state transitions",
		},
		[]string{"from", "to"},
	)
	authOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ekilore_auth_operations_total",
			Help: "Authentication operations labeled by operation and status",
		},
		[]string{"operation", "status"},
	)
	authDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ekilore_auth_duration_seconds",
			Help:    "Duration of authentication operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
	ledgerOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ekilore_ledger_operations_total",
			Help: "Ledger credits and debits labeled by kind and result",
		},
		[]string{"kind", "result"},
	)
	ledgerTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ekilore_ledger_tokens_total",
			Help: "Tokens moved through the ledger by kind",
		},
		[]string{"kind"},
	)
	walletBalance = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ekilore_wallet_balance",
			Help: "Current wallet balance in tokens",
		},
	)
	rewardClaimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ekilore_reward_claims_total",
			Help: "Reward claims labeled by reward key and result",
		},
		[]string{"reward", "result"},
	)
	purchasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ekilore_package_purchases_total",
			Help: "Token package purchases labeled by package and result",
		},
		[]string{"package", "result"},
	)
	storeOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ekilore_store_operations_total",
			Help: "Persistence operations labeled by driver, operation and status",
		},
		[]string{"driver", "operation", "status"},
	)
	storeDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ekilore_store_duration_seconds",
			Help:    "Persistence latency distributions",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"driver", "operation"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ekilore_errors_total",
			Help: "Total number of errors split by code and severity",
		},
		[]string{"code", "severity"},
	)
	authenticatedGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ekilore_session_authenticated",
			Help: "1 when a user is signed in, 0 otherwise",
		},
	)
)

// RecordSessionTransition tracks session state machine transitions.
func RecordSessionTransition(from, to string) {
	sessionTransitionsTotal.WithLabelValues(orUnknown(from), orUnknown(to)).Inc()
}

// RecordAuth increments auth counters and records duration.
func RecordAuth(operation, status string, duration time.Duration) {
	operation = orUnknown(operation)
	authOperationsTotal.WithLabelValues(operation, orUnknown(status)).Inc()
	authDurationSeconds.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordLedgerOperation counts a credit or debit attempt and its tokens.
func RecordLedgerOperation(kind, result string, amount int64) {
	kind = orUnknown(kind)
	ledgerOperationsTotal.WithLabelValues(kind, orUnknown(result)).Inc()
	if result == "ok" && amount > 0 {
		ledgerTokensTotal.WithLabelValues(kind).Add(float64(amount))
	}
}

// SetBalance updates the wallet balance gauge.
func SetBalance(balance int64) {
	walletBalance.Set(float64(balance))
}

// RecordClaim counts reward claims.
func RecordClaim(reward, result string) {
	rewardClaimsTotal.WithLabelValues(orUnknown(reward), orUnknown(result)).Inc()
}

// RecordPurchase counts token package purchases.
func RecordPurchase(pkg, result string) {
	purchasesTotal.WithLabelValues(orUnknown(pkg), orUnknown(result)).Inc()
}

// RecordStore counts store operations and records latency.
func RecordStore(driver, operation string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}

	driver = orUnknown(driver)
	operation = orUnknown(operation)
	storeOperationsTotal.WithLabelValues(driver, operation, status).Inc()
	storeDurationSeconds.WithLabelValues(driver, operation).Observe(duration.Seconds())
}

// RecordError increments error counters with metadata.
func RecordError(code, severity string) {
	errorsTotal.WithLabelValues(orUnknown(code), orUnknown(severity)).Inc()
}

// SetAuthenticated updates the signed-in gauge.
func SetAuthenticated(authenticated bool) {
	if authenticated {
		authenticatedGauge.Set(1)
		return
	}
	authenticatedGauge.Set(0)
}

// WalletSource is read by WalletCollector.
type WalletSource interface {
	Balance() int64
	IsAuthenticated() bool
}

// WalletCollector periodically refreshes gauges from the running core.
type WalletCollector struct {
	source   WalletSource
	interval time.Duration
}

// NewWalletCollector builds a collector bound to source.
func NewWalletCollector(source WalletSource, interval time.Duration) *WalletCollector {
	if interval <= 0 {
		interval = 10 * time.Second
	}

	return &WalletCollector{source: source, interval: interval}
}

// Run polls the source until ctx is cancelled.
func (c *WalletCollector) Run(ctx context.Context) {
	if c == nil || c.source == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		c.collect()

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.interval):
		}
	}
}

func (c *WalletCollector) collect() {
	SetBalance(c.source.Balance())
	SetAuthenticated(c.source.IsAuthenticated())
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
