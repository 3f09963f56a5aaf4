package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/marketplace/pkg/logging"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/domain"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/models"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/repo"
)

// Actor is the caller of an order operation.
type Actor struct {
	ID    uuid.UUID
	Email string
	Admin bool
}

type OrderService struct {
	Repo        *repo.GormRepo
	Router      *SettlementRouter
	EventsTopic string
	Now         func() time.Time
}

func (s *OrderService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *OrderService) ListOrders(ctx context.Context, customerID uuid.UUID, offset, limit int) (int64, []models.Order, error) {
	return s.Repo.ListOrders(ctx, customerID, offset, limit)
}

// GetOrder hides orders of other customers behind ErrNotFound unless the
// actor is an admin.
func (s *OrderService) GetOrder(ctx context.Context, actor Actor, id uuid.UUID) (*models.Order, error) {
	o, err := s.Repo.GetOrder(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: order %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if !actor.Admin && o.CustomerID != actor.ID {
		return nil, fmt.Errorf("%w: order %s", domain.ErrNotFound, id)
	}
	return o, nil
}

// CancelOrder lets a customer cancel their own order while it has not been
// picked up for fulfilment.
func (s *OrderService) CancelOrder(ctx context.Context, actor Actor, id uuid.UUID) (*models.Order, error) {
	o, err := s.GetOrder(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !actor.Admin && o.Status != domain.OrderStatusPending && o.Status != domain.OrderStatusPendingPayment {
		return nil, fmt.Errorf("%w: order in %s can no longer be cancelled by the customer", domain.ErrIllegalTransition, o.Status)
	}
	return s.transition(ctx, o, domain.OrderStatusCancelled)
}

// TransitionOrder applies an admin status change.
func (s *OrderService) TransitionOrder(ctx context.Context, actor Actor, id uuid.UUID, to domain.OrderStatus) (*models.Order, error) {
	if !actor.Admin {
		return nil, fmt.Errorf("%w: order %s", domain.ErrNotFound, id)
	}
	o, err := s.GetOrder(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, o, to)
}

// transition updates status with compare-and-set and, in the same
// transaction, the payment status and the outbox. Cancelling before
// fulfilment also restocks the items.
func (s *OrderService) transition(ctx context.Context, o *models.Order, to domain.OrderStatus) (*models.Order, error) {
	l := logging.FromContext(ctx).With("component", "checkout.order_status")
	from := o.Status

	if !from.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, from, to)
	}
	payStatus, payChanged := domain.PaymentStatusAfter(o.PaymentMethod, from, to)
	if payChanged && to == domain.OrderStatusCancelled && o.Payment != nil && o.Payment.Status == domain.PaymentStatusPaid {
		// Refunds happen outside this service; a paid payment stays paid.
		payChanged = false
	}

	err := s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		ok, err := tx.CompareAndSetStatus(ctx, o.ID, from, to)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: order %s is no longer %s", domain.ErrConflict, o.OrderNumber, from)
		}

		if payChanged {
			if err := tx.UpdatePaymentStatus(ctx, o.ID, payStatus); err != nil {
				return fmt.Errorf("update payment: %w", err)
			}
		}

		if to == domain.OrderStatusCancelled && from.RestocksOnCancel() {
			for _, it := range o.Items {
				if err := tx.RestoreStock(ctx, it.VariantID, it.Quantity); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("restore stock %s: %w", it.VariantID, err)
				}
			}
		}

		ev := OrderStatusChangedEvent{
			Type:        EventOrderStatusChanged,
			OrderID:     o.ID,
			OrderNumber: o.OrderNumber,
			VendorID:    o.VendorID,
			From:        from,
			To:          to,
			OccurredAt:  s.now(),
		}
		if payChanged {
			ev.PaymentStatus = payStatus
		}
		out, err := outboxEvent(s.EventsTopic, EventOrderStatusChanged, o.ID, ev)
		if err != nil {
			return err
		}
		return tx.InsertOutbox(ctx, out)
	})
	if err != nil {
		l.Warn("order_transition_failed", "order_id", o.ID.String(), "from", string(from), "to", string(to), "error", err)
		return nil, err
	}

	l.Info("order_transitioned", "order_id", o.ID.String(), "from", string(from), "to", string(to))
	return s.Repo.GetOrder(ctx, o.ID)
}

// RetryPayment opens a new gateway session for orders that are still waiting
// for payment. Orders are never re-created.
func (s *OrderService) RetryPayment(ctx context.Context, actor Actor, orderIDs []uuid.UUID) (string, []models.Order, error) {
	ids := uniqueIDs(orderIDs)
	if len(ids) == 0 {
		return "", nil, fmt.Errorf("%w: order ids required", domain.ErrValidation)
	}

	orders, err := s.Repo.OrdersByIDs(ctx, ids)
	if err != nil {
		return "", nil, err
	}
	if len(orders) != len(ids) {
		return "", nil, fmt.Errorf("%w: some orders do not exist", domain.ErrNotFound)
	}

	var amount int64
	for _, o := range orders {
		if o.CustomerID != actor.ID {
			return "", nil, fmt.Errorf("%w: order %s", domain.ErrNotFound, o.ID)
		}
		if o.PaymentMethod != domain.PaymentMethodGateway || o.Status != domain.OrderStatusPendingPayment {
			return "", nil, fmt.Errorf("%w: order %s is not awaiting gateway payment", domain.ErrConflict, o.OrderNumber)
		}
		amount += o.Total
	}

	url, err := s.Router.OpenSession(ctx, ids, amount, actor.Email, uuid.NewString())
	if err != nil {
		return "", orders, err
	}
	return url, orders, nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
