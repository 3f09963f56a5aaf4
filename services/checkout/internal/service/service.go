package service

import (
	"context"
	"time"

	"github.com/Skotchmaster/marketplace/services/checkout/internal/gateway"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/metrics"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/pricing"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/repo"
)

const DefaultCheckoutTimeout = 15 * time.Second

// SessionCreator opens a hosted payment page for a set of orders.
type SessionCreator interface {
	CreateCheckoutSession(ctx context.Context, in gateway.SessionRequest) (*gateway.Session, error)
}

// CheckoutService validates carts, assembles vendor orders and commits them.
type CheckoutService struct {
	Repo    *repo.GormRepo
	Policy  pricing.Policy
	Metrics *metrics.Checkout

	Currency    string
	EventsTopic string
	// Timeout bounds the order creation transaction.
	Timeout time.Duration

	Now func() time.Time
}

func (s *CheckoutService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *CheckoutService) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return DefaultCheckoutTimeout
}
