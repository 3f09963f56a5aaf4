package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/marketplace/services/checkout/internal/domain"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/models"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/testdb"
)

func TestTransitionOrder_CODLifecycle(t *testing.T) {
	f := newFixture(t)
	a := testdb.SeedVendor(t, f.db, "a", [2]int64{100, 5})
	ctx := context.Background()
	admin := Actor{ID: uuid.New(), Admin: true}

	res, err := f.checkout.CreateOrders(ctx, input(uuid.New(), domain.PaymentMethodCOD, lineOf(a, 0, 1)))
	require.NoError(t, err)
	id := res.Orders[0].ID

	for _, st := range []domain.OrderStatus{domain.OrderStatusProcessing, domain.OrderStatusShipped} {
		o, err := f.orders.TransitionOrder(ctx, admin, id, st)
		require.NoError(t, err)
		assert.Equal(t, st, o.Status)
		assert.Equal(t, domain.PaymentStatusPending, o.Payment.Status)
	}

	o, err := f.orders.TransitionOrder(ctx, admin, id, domain.OrderStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusDelivered, o.Status)
	assert.Equal(t, domain.PaymentStatusPaid, o.Payment.Status)

	_, err = f.orders.TransitionOrder(ctx, admin, id, domain.OrderStatusCancelled)
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)

	var events []models.OutboxEvent
	require.NoError(t, f.db.Where("event_type = ?", EventOrderStatusChanged).Find(&events).Error)
	assert.Len(t, events, 3)

	var ev OrderStatusChangedEvent
	require.NoError(t, json.Unmarshal(events[0].Payload, &ev))
	assert.Equal(t, id, ev.OrderID)
	assert.Equal(t, id.String(), events[0].Key)
}

func TestTransitionOrder_GatewayConfirmation(t *testing.T) {
	f := newFixture(t)
	a := testdb.SeedVendor(t, f.db, "a", [2]int64{100, 5})
	ctx := context.Background()
	admin := Actor{ID: uuid.New(), Admin: true}

	res, err := f.checkout.CreateOrders(ctx, input(uuid.New(), domain.PaymentMethodGateway, lineOf(a, 0, 1)))
	require.NoError(t, err)
	id := res.Orders[0].ID

	_, err = f.orders.TransitionOrder(ctx, admin, id, domain.OrderStatusProcessing)
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)

	o, err := f.orders.TransitionOrder(ctx, admin, id, domain.OrderStatusPending)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, o.Status)
	assert.Equal(t, domain.PaymentStatusPaid, o.Payment.Status)

	o, err = f.orders.TransitionOrder(ctx, admin, id, domain.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, o.Payment.Status)
}

func TestTransitionOrder_RequiresAdmin(t *testing.T) {
	f := newFixture(t)
	a := testdb.SeedVendor(t, f.db, "a", [2]int64{100, 5})
	customer := uuid.New()
	ctx := context.Background()

	res, err := f.checkout.CreateOrders(ctx, input(customer, domain.PaymentMethodCOD, lineOf(a, 0, 1)))
	require.NoError(t, err)

	_, err = f.orders.TransitionOrder(ctx, Actor{ID: customer}, res.Orders[0].ID, domain.OrderStatusProcessing)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancelOrder_RestoresStock(t *testing.T) {
	f := newFixture(t)
	a := testdb.SeedVendor(t, f.db, "a", [2]int64{100, 5}, [2]int64{50, 2})
	customer := uuid.New()
	ctx := context.Background()

	res, err := f.checkout.CreateOrders(ctx, input(customer, domain.PaymentMethodCOD, lineOf(a, 0, 3), lineOf(a, 1, 2)))
	require.NoError(t, err)
	assert.Equal(t, 2, testdb.Stock(t, f.db, a.Variants[0].ID))
	assert.Equal(t, 0, testdb.Stock(t, f.db, a.Variants[1].ID))

	_, err = f.orders.CancelOrder(ctx, Actor{ID: uuid.New()}, res.Orders[0].ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	o, err := f.orders.CancelOrder(ctx, Actor{ID: customer}, res.Orders[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, o.Status)
	assert.Equal(t, domain.PaymentStatusCancelled, o.Payment.Status)
	assert.Equal(t, 5, testdb.Stock(t, f.db, a.Variants[0].ID))
	assert.Equal(t, 2, testdb.Stock(t, f.db, a.Variants[1].ID))

	_, err = f.orders.CancelOrder(ctx, Actor{ID: customer}, res.Orders[0].ID)
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)
	assert.Equal(t, 5, testdb.Stock(t, f.db, a.Variants[0].ID))
}

func TestCancelOrder_CustomerCannotCancelInFulfilment(t *testing.T) {
	f := newFixture(t)
	a := testdb.SeedVendor(t, f.db, "a", [2]int64{100, 5})
	customer := uuid.New()
	ctx := context.Background()

	res, err := f.checkout.CreateOrders(ctx, input(customer, domain.PaymentMethodCOD, lineOf(a, 0, 1)))
	require.NoError(t, err)
	id := res.Orders[0].ID

	_, err = f.orders.TransitionOrder(ctx, Actor{Admin: true}, id, domain.OrderStatusProcessing)
	require.NoError(t, err)

	_, err = f.orders.CancelOrder(ctx, Actor{ID: customer}, id)
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)

	o, err := f.orders.CancelOrder(ctx, Actor{Admin: true}, id)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, o.Status)
	assert.Equal(t, 4, testdb.Stock(t, f.db, a.Variants[0].ID))
}

func TestCancelOrder_ShippedOrderKeepsStockOut(t *testing.T) {
	f := newFixture(t)
	a := testdb.SeedVendor(t, f.db, "a", [2]int64{100, 5})
	ctx := context.Background()
	admin := Actor{Admin: true}

	res, err := f.checkout.CreateOrders(ctx, input(uuid.New(), domain.PaymentMethodCOD, lineOf(a, 0, 2)))
	require.NoError(t, err)
	id := res.Orders[0].ID

	for _, st := range []domain.OrderStatus{domain.OrderStatusProcessing, domain.OrderStatusShipped} {
		_, err = f.orders.TransitionOrder(ctx, admin, id, st)
		require.NoError(t, err)
	}

	o, err := f.orders.CancelOrder(ctx, admin, id)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, o.Status)
	assert.Equal(t, 3, testdb.Stock(t, f.db, a.Variants[0].ID))
}

func TestListOrders(t *testing.T) {
	f := newFixture(t)
	a := testdb.SeedVendor(t, f.db, "a", [2]int64{100, 10})
	b := testdb.SeedVendor(t, f.db, "b", [2]int64{100, 10})
	customer := uuid.New()
	ctx := context.Background()

	_, err := f.checkout.CreateOrders(ctx, input(customer, domain.PaymentMethodCOD, lineOf(a, 0, 1), lineOf(b, 0, 1)))
	require.NoError(t, err)
	_, err = f.checkout.CreateOrders(ctx, input(uuid.New(), domain.PaymentMethodCOD, lineOf(a, 0, 1)))
	require.NoError(t, err)

	total, orders, err := f.orders.ListOrders(ctx, customer, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, orders, 2)
	for _, o := range orders {
		assert.Equal(t, customer, o.CustomerID)
		assert.NotEmpty(t, o.Items)
	}
}
