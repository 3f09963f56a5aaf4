package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Skotchmaster/marketplace/pkg/logging"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/cart"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/domain"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/gateway"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/metrics"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/repo"
)

// SettlementRouter runs the step after orders are committed. It never rolls
// orders back: a gateway failure leaves them PENDING_PAYMENT for a retry.
type SettlementRouter struct {
	Repo     *repo.GormRepo
	Gateway  SessionCreator
	Metrics  *metrics.Checkout
	Currency string
}

// Settle clears the cart and, for gateway orders, opens a hosted payment
// session. On gateway failure res keeps its orders and gets the
// PAYMENT_GATEWAY_ERROR code.
func (r *SettlementRouter) Settle(ctx context.Context, res *CreateOrdersResult, method domain.PaymentMethod, email string, store *cart.Store) error {
	if !res.Success {
		return nil
	}
	if store != nil {
		store.Clear(ctx)
	}
	if res.Replayed {
		return nil
	}

	return domain.Match(method,
		func() error { return nil },
		func() error {
			url, err := r.OpenSession(ctx, res.OrderIDs(), res.TotalAmount, email, res.CheckoutID.String())
			if err != nil {
				res.Code = domain.CodeOf(err)
				res.Error = err.Error()
				return err
			}
			res.PaymentURL = url
			return nil
		},
	)
}

// OpenSession asks the gateway for a hosted page covering orderIDs and stores
// its url on their payments.
func (r *SettlementRouter) OpenSession(ctx context.Context, orderIDs []uuid.UUID, amount int64, email, reference string) (string, error) {
	l := logging.FromContext(ctx).With("component", "checkout.settlement")

	session, err := r.Gateway.CreateCheckoutSession(ctx, gateway.SessionRequest{
		OrderIDs:      orderIDs,
		Amount:        amount,
		Currency:      r.Currency,
		CustomerEmail: email,
		Reference:     reference,
	})
	r.Metrics.ObserveSession(err == nil)
	if err != nil {
		l.Error("payment_session_failed", "orders", len(orderIDs), "amount", amount, "error", err)
		return "", fmt.Errorf("%w: %v", domain.ErrPaymentGateway, err)
	}

	if err := r.Repo.SetPaymentSession(ctx, orderIDs, session.URL); err != nil {
		// The session exists; the url is still returned to the shopper.
		l.Warn("payment_session_not_recorded", "session_id", session.ID, "error", err)
	}

	l.Info("payment_session_created", "session_id", session.ID, "orders", len(orderIDs), "amount", amount)
	return session.URL, nil
}
