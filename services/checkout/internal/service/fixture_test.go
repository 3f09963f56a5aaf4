package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/marketplace/services/checkout/internal/cart"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/domain"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/gateway"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/pricing"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/repo"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/testdb"
)

type fakeGateway struct {
	mu    sync.Mutex
	err   error
	calls []gateway.SessionRequest
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, in gateway.SessionRequest) (*gateway.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, in)
	if g.err != nil {
		return nil, g.err
	}
	return &gateway.Session{ID: "cs_" + in.Reference, URL: "https://pay.example/" + in.Reference}, nil
}

func (g *fakeGateway) fail(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

type memSnapshots struct {
	mu    sync.Mutex
	carts map[uuid.UUID][]cart.CartItem
	err   error
}

func newMemSnapshots() *memSnapshots {
	return &memSnapshots{carts: make(map[uuid.UUID][]cart.CartItem)}
}

func (m *memSnapshots) Save(_ context.Context, owner uuid.UUID, items []cart.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.carts[owner] = items
	return nil
}

func (m *memSnapshots) Load(_ context.Context, owner uuid.UUID) ([]cart.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items, ok := m.carts[owner]
	if !ok {
		return nil, cart.ErrNoSnapshot
	}
	return items, nil
}

type fixture struct {
	db       *gorm.DB
	repo     *repo.GormRepo
	gw       *fakeGateway
	checkout *CheckoutService
	router   *SettlementRouter
	orders   *OrderService
	carts    *CartService
	snaps    *memSnapshots
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testdb.Open(t)
	r := &repo.GormRepo{DB: db}
	gw := &fakeGateway{}
	policy := pricing.DefaultPolicy()

	co := &CheckoutService{Repo: r, Policy: policy, Currency: "VND"}
	router := &SettlementRouter{Repo: r, Gateway: gw, Currency: "VND"}
	snaps := newMemSnapshots()
	return &fixture{
		db:       db,
		repo:     r,
		gw:       gw,
		checkout: co,
		router:   router,
		orders:   &OrderService{Repo: r, Router: router},
		carts:    &CartService{Snapshots: snaps, Checkout: co, Policy: policy},
		snaps:    snaps,
	}
}

func lineOf(c testdb.Catalog, variant, qty int) cart.CartItem {
	v := c.Variants[variant]
	return cart.CartItem{
		ProductID:   c.Product.ID,
		ProductName: c.Product.Name,
		VariantID:   v.ID,
		VariantName: v.Name,
		Price:       v.Price,
		Quantity:    qty,
		Stock:       v.Stock,
		VendorID:    c.Vendor.ID,
		VendorName:  c.Vendor.Name,
	}
}

func shipping() domain.ShippingInfo {
	return domain.ShippingInfo{
		Name:     "Nguyen Van An",
		Phone:    "0900000000",
		Address:  "12 Le Loi",
		Ward:     "Ben Nghe",
		District: "1",
		City:     "Ho Chi Minh",
	}
}

func input(customer uuid.UUID, method domain.PaymentMethod, items ...cart.CartItem) CreateOrdersInput {
	return CreateOrdersInput{
		CustomerID:    customer,
		CustomerEmail: "an@example.com",
		Items:         items,
		Shipping:      shipping(),
		PaymentMethod: method,
	}
}

var errGatewayDown = errors.New("gateway down")
