package cart

import (
	"github.com/google/uuid"

	"github.com/Skotchmaster/marketplace/services/checkout/internal/pricing"
)

type VendorGroup struct {
	VendorID   uuid.UUID  `json:"vendor_id"`
	VendorName string     `json:"vendor_name"`
	Items      []CartItem `json:"items"`
	Subtotal   int64      `json:"subtotal"`
}

type Totals struct {
	Subtotal    int64 `json:"subtotal"`
	ShippingFee int64 `json:"shipping_fee"`
	PlatformFee int64 `json:"platform_fee"`
	Total       int64 `json:"total"`
	VendorCount int   `json:"vendor_count"`
	ItemCount   int   `json:"item_count"`
}

// GroupItemsByVendor partitions items by vendor id in first-seen vendor order.
func GroupItemsByVendor(items []CartItem) []VendorGroup {
	groups := make([]VendorGroup, 0)
	index := make(map[uuid.UUID]int)

	for _, it := range items {
		i, ok := index[it.VendorID]
		if !ok {
			i = len(groups)
			index[it.VendorID] = i
			groups = append(groups, VendorGroup{VendorID: it.VendorID, VendorName: it.VendorName})
		}
		groups[i].Items = append(groups[i].Items, it)
		groups[i].Subtotal += it.LineTotal()
	}
	return groups
}

// CalculateCartTotals never adds the platform fee to Total; it is reported for
// vendor payout reconciliation only.
func CalculateCartTotals(items []CartItem, p pricing.Policy) Totals {
	var t Totals
	vendors := make(map[uuid.UUID]struct{})

	for _, it := range items {
		t.Subtotal += it.LineTotal()
		t.ItemCount += it.Quantity
		vendors[it.VendorID] = struct{}{}
	}

	t.VendorCount = len(vendors)
	t.ShippingFee = p.ShippingFee(t.VendorCount)
	t.PlatformFee = p.PlatformFee(t.Subtotal)
	t.Total = t.Subtotal + t.ShippingFee
	return t
}
