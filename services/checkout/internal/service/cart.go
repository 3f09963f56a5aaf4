package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Skotchmaster/marketplace/pkg/logging"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/cart"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/domain"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/pricing"
)

// SnapshotStore returns cart.ErrNoSnapshot from Load when nothing is stored.
type SnapshotStore interface {
	cart.Persister
	Load(ctx context.Context, owner uuid.UUID) ([]cart.CartItem, error)
}

type CartView struct {
	Items   []cart.CartItem    `json:"items"`
	Vendors []cart.VendorGroup `json:"vendors"`
	Totals  cart.Totals        `json:"totals"`
}

// CartService hosts one Store per request, rebuilt from the owner's snapshot.
type CartService struct {
	Snapshots SnapshotStore
	Checkout  *CheckoutService
	Policy    pricing.Policy
}

// Open restores the owner's cart. A broken or missing snapshot yields an
// empty cart.
func (s *CartService) Open(ctx context.Context, owner uuid.UUID) *cart.Store {
	items, err := s.Snapshots.Load(ctx, owner)
	if err != nil && !errors.Is(err, cart.ErrNoSnapshot) {
		logging.FromContext(ctx).Warn("cart_snapshot_load_failed", "owner", owner.String(), "error", err)
	}
	return cart.New(owner, s.Snapshots, items...)
}

func (s *CartService) View(store *cart.Store) CartView {
	items := store.Items()
	return CartView{
		Items:   items,
		Vendors: cart.GroupItemsByVendor(items),
		Totals:  cart.CalculateCartTotals(items, s.Policy),
	}
}

// AddItem resolves the variant from the catalog and adds it optimistically.
// The change is confirmed against live stock and vendor status and rolled
// back exactly if either check fails.
func (s *CartService) AddItem(ctx context.Context, store *cart.Store, variantID uuid.UUID, quantity int) (cart.CartItem, error) {
	r := s.Checkout.Repo
	stock, err := r.StockByVariant(ctx, []uuid.UUID{variantID})
	if err != nil {
		return cart.CartItem{}, err
	}
	v, ok := stock[variantID]
	if !ok {
		return cart.CartItem{}, fmt.Errorf("%w: variant %s", domain.ErrNotFound, variantID)
	}
	vendors, err := r.Vendors(ctx, []uuid.UUID{v.VendorID})
	if err != nil {
		return cart.CartItem{}, err
	}

	item := cart.CartItem{
		ProductID:   v.ProductID,
		ProductName: v.ProductName,
		VariantID:   v.VariantID,
		VariantName: v.VariantName,
		Price:       v.Price,
		Quantity:    quantity,
		Stock:       v.Stock,
		VendorID:    v.VendorID,
		VendorName:  vendors[v.VendorID].Name,
	}

	var added cart.CartItem
	err = store.Tentative(ctx,
		func(st *cart.Store) error {
			var err error
			added, err = st.AddItem(ctx, item)
			return err
		},
		func(ctx context.Context, _ []cart.CartItem) error {
			vendor, ok := vendors[v.VendorID]
			if !ok || !vendor.Active {
				return fmt.Errorf("%w: vendor of %s is not selling", domain.ErrInvalidVendor, item.DisplayName())
			}
			line, _ := store.Get(variantID)
			res, err := s.Checkout.ValidateCheckout(ctx, []cart.CartItem{line})
			if err != nil {
				return err
			}
			if !res.IsValid {
				inv := res.InvalidItems[0]
				return &domain.StockError{Issues: []domain.StockIssue{{
					VariantID: inv.VariantID,
					Name:      inv.Name,
					Requested: inv.Requested,
					Available: inv.Available,
					Message:   inv.Message,
				}}}
			}
			return nil
		},
	)
	if err != nil {
		return cart.CartItem{}, err
	}
	return added, nil
}

// SyncStock refreshes every ceiling from live stock. Variants that vanished
// from the catalog are treated as out of stock.
func (s *CartService) SyncStock(ctx context.Context, store *cart.Store) ([]cart.StockChange, error) {
	items := store.Items()
	ids := make([]uuid.UUID, len(items))
	for i, it := range items {
		ids[i] = it.VariantID
	}
	live, err := s.Checkout.LiveStock(ctx, ids)
	if err != nil {
		return nil, err
	}
	return store.SyncStock(ctx, live), nil
}
