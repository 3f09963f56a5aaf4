package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Skotchmaster/marketplace/services/checkout/internal/cart"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/domain"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/pricing"
)

type DraftItem struct {
	ProductID   uuid.UUID
	VariantID   uuid.UUID
	ProductName string
	VariantName string
	Quantity    int
	UnitPrice   int64
	Subtotal    int64
}

// OrderDraft is one vendor's share of a checkout before it is persisted.
type OrderDraft struct {
	VendorID      uuid.UUID
	VendorName    string
	PaymentMethod domain.PaymentMethod
	Status        domain.OrderStatus
	Items         []DraftItem
	Shipping      domain.ShippingInfo
	pricing.Split
}

// AssembleOrders builds one draft per vendor. Nothing is written; it fails
// when the cart is empty or a vendor is missing or inactive.
func (s *CheckoutService) AssembleOrders(ctx context.Context, items []cart.CartItem, shipping domain.ShippingInfo, method domain.PaymentMethod) ([]OrderDraft, error) {
	lines := distinctLines(items)
	if len(lines) == 0 {
		return nil, domain.ErrEmptyCart
	}
	if err := s.checkVendors(ctx, lines); err != nil {
		return nil, err
	}
	return assembleDrafts(lines, shipping, method, s.Policy), nil
}

func (s *CheckoutService) checkVendors(ctx context.Context, lines []line) error {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, l := range lines {
		if _, ok := seen[l.item.VendorID]; ok {
			continue
		}
		seen[l.item.VendorID] = struct{}{}
		ids = append(ids, l.item.VendorID)
	}

	vendors, err := s.Repo.Vendors(ctx, ids)
	if err != nil {
		return fmt.Errorf("load vendors: %w", err)
	}
	for _, id := range ids {
		v, ok := vendors[id]
		if !ok {
			return fmt.Errorf("%w: vendor %s not found", domain.ErrInvalidVendor, id)
		}
		if !v.Active {
			return fmt.Errorf("%w: vendor %q is inactive", domain.ErrInvalidVendor, v.Name)
		}
	}
	return nil
}

func assembleDrafts(lines []line, shipping domain.ShippingInfo, method domain.PaymentMethod, policy pricing.Policy) []OrderDraft {
	merged := make([]cart.CartItem, len(lines))
	for i, l := range lines {
		it := l.item
		it.Quantity = l.quantity
		merged[i] = it
	}

	groups := cart.GroupItemsByVendor(merged)
	drafts := make([]OrderDraft, 0, len(groups))
	for _, g := range groups {
		d := OrderDraft{
			VendorID:      g.VendorID,
			VendorName:    g.VendorName,
			PaymentMethod: method,
			Status:        method.InitialOrderStatus(),
			// ShippingInfo holds only strings, so assignment is a full copy.
			Shipping: shipping,
			Split:    policy.SplitVendorOrder(g.Subtotal),
		}
		for _, it := range g.Items {
			d.Items = append(d.Items, DraftItem{
				ProductID:   it.ProductID,
				VariantID:   it.VariantID,
				ProductName: it.ProductName,
				VariantName: it.VariantName,
				Quantity:    it.Quantity,
				UnitPrice:   it.Price,
				Subtotal:    it.LineTotal(),
			})
		}
		drafts = append(drafts, d)
	}
	return drafts
}
