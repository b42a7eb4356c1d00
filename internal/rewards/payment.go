package rewards

import (
	"context"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -destination=mock/payment.go -package=mock github.com/Proton-105/ekilore-core/internal/rewards PaymentProvider

// DefaultPaymentDelay mirrors the checkout latency of the hosted mock.
const DefaultPaymentDelay = 2 * time.Second

// paymentBreakerMinRequests is how many charges a policy sees before its
// breaker judges the provider.
const paymentBreakerMinRequests = 3

// ChargeRequest asks the provider to take payment for a package.
type ChargeRequest struct {
	PackageID      string
	AmountCents    int64
	UserID         string
	IdempotencyKey string
}

// Receipt confirms a successful charge.
type Receipt struct {
	ID          string    `json:"id"`
	PackageID   string    `json:"package_id"`
	AmountCents int64     `json:"amount_cents"`
	ChargedAt   time.Time `json:"charged_at"`
}

// PaymentProvider takes payment for token packages. Declines are returned as
// *errors.AppError values with code ProviderError.
type PaymentProvider interface {
	Charge(ctx context.Context, req ChargeRequest) (Receipt, error)
}

// SimulatedPayment approves every charge after Delay.
type SimulatedPayment struct {
	Delay time.Duration
}

// NewSimulatedPayment returns a SimulatedPayment. A negative delay means
// DefaultPaymentDelay.
func NewSimulatedPayment(delay time.Duration) *SimulatedPayment {
	if delay < 0 {
		delay = DefaultPaymentDelay
	}
	return &SimulatedPayment{Delay: delay}
}

func (s *SimulatedPayment) Charge(ctx context.Context, req ChargeRequest) (Receipt, error) {
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return Receipt{}, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	return Receipt{
		ID:          uuid.NewString(),
		PackageID:   req.PackageID,
		AmountCents: req.AmountCents,
		ChargedAt:   time.Now().UTC(),
	}, nil
}
