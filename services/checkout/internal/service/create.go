package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/marketplace/pkg/logging"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/cart"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/domain"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/models"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/repo"
)

type CreateOrdersInput struct {
	CustomerID     uuid.UUID
	CustomerEmail  string
	Items          []cart.CartItem
	Shipping       domain.ShippingInfo
	PaymentMethod  domain.PaymentMethod
	IdempotencyKey string
}

type CreateOrdersResult struct {
	Success      bool                `json:"success"`
	CheckoutID   uuid.UUID           `json:"checkout_id,omitempty"`
	Orders       []models.Order      `json:"orders"`
	TotalAmount  int64               `json:"total_amount"`
	PaymentURL   string              `json:"payment_url,omitempty"`
	Replayed     bool                `json:"replayed,omitempty"`
	Error        string              `json:"error,omitempty"`
	Code         domain.Code         `json:"code,omitempty"`
	InvalidItems []domain.StockIssue `json:"invalid_items,omitempty"`
}

func (r *CreateOrdersResult) fail(err error) {
	r.Success = false
	r.Error = err.Error()
	r.Code = domain.CodeOf(err)
	var se *domain.StockError
	if errors.As(err, &se) {
		r.InvalidItems = se.Issues
	}
}

func (r *CreateOrdersResult) OrderIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(r.Orders))
	for i, o := range r.Orders {
		ids[i] = o.ID
	}
	return ids
}

// CreateOrders commits one order per vendor in a single transaction. Stock is
// taken with conditional decrements; if any line is short, nothing is written.
// The returned error is also reflected in the result's Code and Error.
func (s *CheckoutService) CreateOrders(ctx context.Context, in CreateOrdersInput) (CreateOrdersResult, error) {
	l := logging.FromContext(ctx).With("component", "checkout.create_orders")
	res := CreateOrdersResult{Orders: []models.Order{}}

	// A retried request replays even after the first one emptied the cart.
	if in.IdempotencyKey != "" && in.CustomerID != uuid.Nil {
		replay, found, err := s.replay(ctx, in.CustomerID, in.IdempotencyKey)
		if err != nil {
			err = fmt.Errorf("%w: %v", domain.ErrTransactionAborted, err)
			res.fail(err)
			return res, err
		}
		if found {
			l.Info("checkout_replayed", "checkout_id", replay.CheckoutID.String(), "orders", len(replay.Orders))
			return replay, nil
		}
	}

	err := s.precheck(in)
	if err != nil {
		res.fail(err)
		s.Metrics.ObserveAttempt(string(in.PaymentMethod), string(res.Code))
		return res, err
	}

	drafts, err := s.AssembleOrders(ctx, in.Items, in.Shipping, in.PaymentMethod)
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidVendor) && !errors.Is(err, domain.ErrEmptyCart) {
			err = fmt.Errorf("%w: %v", domain.ErrTransactionAborted, err)
		}
		res.fail(err)
		s.Metrics.ObserveAttempt(string(in.PaymentMethod), string(res.Code))
		return res, err
	}

	checkoutID := uuid.New()
	lines := distinctLines(in.Items)

	txCtx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	started := time.Now()
	var orders []models.Order
	err = s.Repo.WithTx(txCtx, func(tx *repo.GormRepo) error {
		if err := s.takeStock(txCtx, tx, lines); err != nil {
			return err
		}

		created, err := s.insertOrders(txCtx, tx, checkoutID, in.CustomerID, drafts)
		if err != nil {
			return err
		}

		if in.IdempotencyKey != "" {
			attempt := &models.CheckoutAttempt{
				CustomerID:     in.CustomerID,
				IdempotencyKey: in.IdempotencyKey,
				CheckoutID:     checkoutID,
				PaymentMethod:  in.PaymentMethod,
				TotalAmount:    sumTotals(created),
			}
			if err := tx.InsertAttempt(txCtx, attempt); err != nil {
				return fmt.Errorf("record attempt: %w", err)
			}
		}

		orders = created
		return nil
	})

	if err != nil {
		s.Metrics.ObserveTx("rollback", time.Since(started))

		if !errors.Is(err, domain.ErrInsufficientStock) {
			// A concurrent request with the same key may have won the unique index.
			if in.IdempotencyKey != "" {
				if replay, found, rerr := s.replay(ctx, in.CustomerID, in.IdempotencyKey); rerr == nil && found {
					l.Info("checkout_replayed_after_conflict", "checkout_id", replay.CheckoutID.String())
					return replay, nil
				}
			}
			err = fmt.Errorf("%w: %v", domain.ErrTransactionAborted, err)
			l.Error("create_orders_aborted", "error", err)
		} else {
			l.Warn("create_orders_rejected", "reason", "insufficient stock", "error", err)
		}

		res.fail(err)
		s.Metrics.ObserveAttempt(string(in.PaymentMethod), string(res.Code))
		return res, err
	}

	s.Metrics.ObserveTx("commit", time.Since(started))
	s.Metrics.ObserveAttempt(string(in.PaymentMethod), "")
	s.Metrics.AddOrders(string(in.PaymentMethod), len(orders))

	res.Success = true
	res.CheckoutID = checkoutID
	res.Orders = orders
	res.TotalAmount = sumTotals(orders)

	l.Info("create_orders_success", "checkout_id", checkoutID.String(), "orders", len(orders), "total", res.TotalAmount, "payment_method", string(in.PaymentMethod))
	return res, nil
}

// precheck runs the checks that must pass before any transaction is opened.
func (s *CheckoutService) precheck(in CreateOrdersInput) error {
	if in.CustomerID == uuid.Nil {
		return domain.ErrAuthenticationRequired
	}
	if len(in.Items) == 0 {
		return domain.ErrEmptyCart
	}
	if _, err := domain.ParsePaymentMethod(string(in.PaymentMethod)); err != nil {
		return err
	}
	if err := in.Shipping.Validate(); err != nil {
		return err
	}
	for _, it := range in.Items {
		if it.VariantID == uuid.Nil || it.VendorID == uuid.Nil {
			return fmt.Errorf("%w: item is missing variant or vendor", domain.ErrValidation)
		}
		if it.Quantity < 1 {
			return fmt.Errorf("%w: quantity of %s must be > 0", domain.ErrValidation, it.DisplayName())
		}
		if it.Price < 0 {
			return fmt.Errorf("%w: price of %s must be >= 0", domain.ErrValidation, it.DisplayName())
		}
	}
	return nil
}

// takeStock decrements every line in variant id order. All lines are tried so
// the error names every short item; any shortfall aborts the transaction.
func (s *CheckoutService) takeStock(ctx context.Context, tx *repo.GormRepo, lines []line) error {
	ordered := sortedByVariant(lines)

	var issues []domain.StockIssue
	for _, l := range ordered {
		ok, err := tx.DecrementStock(ctx, l.item.VariantID, l.quantity)
		if err != nil {
			return fmt.Errorf("decrement stock %s: %w", l.item.VariantID, err)
		}
		if !ok {
			issues = append(issues, domain.StockIssue{
				VariantID: l.item.VariantID,
				Name:      l.item.DisplayName(),
				Requested: l.quantity,
			})
		}
	}
	if len(issues) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(issues))
	for i, is := range issues {
		ids[i] = is.VariantID
	}
	live, err := tx.StockByVariant(ctx, ids)
	if err != nil {
		return fmt.Errorf("read stock: %w", err)
	}
	for i := range issues {
		if v, ok := live[issues[i].VariantID]; ok {
			issues[i].Available = v.Stock
			issues[i].Name = v.DisplayName()
		}
		issues[i].Message = fmt.Sprintf("requested %d, available %d", issues[i].Requested, issues[i].Available)
	}
	return &domain.StockError{Issues: issues}
}

func (s *CheckoutService) insertOrders(ctx context.Context, tx *repo.GormRepo, checkoutID, customerID uuid.UUID, drafts []OrderDraft) ([]models.Order, error) {
	now := s.now()
	orders := make([]models.Order, 0, len(drafts))
	events := make([]*models.OutboxEvent, 0, len(drafts))

	for i, d := range drafts {
		number, err := s.orderNumber(ctx, tx, now)
		if err != nil {
			return nil, err
		}

		o := models.Order{
			OrderNumber:    number,
			CheckoutID:     checkoutID,
			CheckoutSeq:    i,
			VendorID:       d.VendorID,
			CustomerID:     customerID,
			Status:         d.Status,
			PaymentMethod:  d.PaymentMethod,
			Subtotal:       d.Subtotal,
			ShippingFee:    d.ShippingFee,
			PlatformFee:    d.PlatformFee,
			VendorEarnings: d.VendorEarnings,
			Total:          d.Total,
			Currency:       s.Currency,
			Shipping:       d.Shipping,
			Payment: &models.Payment{
				Method: d.PaymentMethod,
				Amount: d.Total,
				Status: d.PaymentMethod.InitialPaymentStatus(),
			},
		}
		for _, it := range d.Items {
			o.Items = append(o.Items, models.OrderItem{
				ProductID:   it.ProductID,
				VariantID:   it.VariantID,
				ProductName: it.ProductName,
				VariantName: it.VariantName,
				Quantity:    it.Quantity,
				UnitPrice:   it.UnitPrice,
				Subtotal:    it.Subtotal,
			})
		}

		if err := tx.InsertOrder(ctx, &o); err != nil {
			return nil, fmt.Errorf("insert order for vendor %s: %w", d.VendorID, err)
		}

		ev, err := outboxEvent(s.EventsTopic, EventOrderCreated, o.ID, newOrderCreated(o, now))
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
		orders = append(orders, o)
	}

	if err := tx.InsertOutbox(ctx, events...); err != nil {
		return nil, fmt.Errorf("insert outbox: %w", err)
	}
	return orders, nil
}

// orderNumber returns ORD-YYYYMMDD-XXXXXXXX, retrying on the rare collision.
func (s *CheckoutService) orderNumber(ctx context.Context, tx *repo.GormRepo, now time.Time) (string, error) {
	for i := 0; i < 3; i++ {
		suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
		n := fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
		exists, err := tx.OrderNumberExists(ctx, n)
		if err != nil {
			return "", fmt.Errorf("check order number: %w", err)
		}
		if !exists {
			return n, nil
		}
	}
	return "", errors.New("could not allocate a unique order number")
}

// replay rebuilds the result of an earlier attempt with the same key.
func (s *CheckoutService) replay(ctx context.Context, customerID uuid.UUID, key string) (CreateOrdersResult, bool, error) {
	attempt, err := s.Repo.FindAttempt(ctx, customerID, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return CreateOrdersResult{}, false, nil
	}
	if err != nil {
		return CreateOrdersResult{}, false, fmt.Errorf("find attempt: %w", err)
	}

	orders, err := s.Repo.OrdersByCheckout(ctx, attempt.CheckoutID)
	if err != nil {
		return CreateOrdersResult{}, false, fmt.Errorf("load orders: %w", err)
	}

	res := CreateOrdersResult{
		Success:     true,
		CheckoutID:  attempt.CheckoutID,
		Orders:      orders,
		TotalAmount: attempt.TotalAmount,
		Replayed:    true,
	}
	awaiting := false
	for _, o := range orders {
		if o.Payment != nil && o.Payment.SessionURL != "" && res.PaymentURL == "" {
			res.PaymentURL = o.Payment.SessionURL
		}
		if o.PaymentMethod == domain.PaymentMethodGateway && o.Status == domain.OrderStatusPendingPayment {
			awaiting = true
		}
	}
	if awaiting && res.PaymentURL == "" {
		// The first attempt committed but never got a session.
		res.Code = domain.CodePaymentGatewayError
		res.Error = fmt.Sprintf("%s: no payment session for this checkout, retry payment for its orders", domain.ErrPaymentGateway)
	}
	return res, true, nil
}

func sumTotals(orders []models.Order) int64 {
	var total int64
	for _, o := range orders {
		total += o.Total
	}
	return total
}
