package cart

import "github.com/google/uuid"

// CartItem is one line of a shopper's cart. Price is the snapshot taken when
// the item was added and may be stale; Stock is the last known ceiling.
type CartItem struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	ProductSlug string    `json:"product_slug,omitempty"`
	VariantID   uuid.UUID `json:"variant_id"`
	VariantName string    `json:"variant_name,omitempty"`
	Price       int64     `json:"price"`
	Quantity    int       `json:"quantity"`
	Stock       int       `json:"stock"`
	VendorID    uuid.UUID `json:"vendor_id"`
	VendorName  string    `json:"vendor_name"`
	Image       string    `json:"image,omitempty"`
}

func (i CartItem) LineTotal() int64 {
	return i.Price * int64(i.Quantity)
}

// DisplayName is "Product - Variant", or just the product name.
func (i CartItem) DisplayName() string {
	if i.VariantName == "" {
		return i.ProductName
	}
	return i.ProductName + " - " + i.VariantName
}
