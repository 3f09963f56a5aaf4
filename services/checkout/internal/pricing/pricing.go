package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	DefaultShippingFeePerVendor int64 = 30000
	DefaultPlatformRate               = "0.05"
)

// Policy holds the marketplace fee constants. Amounts are in the smallest
// currency unit.
type Policy struct {
	ShippingFeePerVendor int64
	PlatformRate         decimal.Decimal
}

func DefaultPolicy() Policy {
	return Policy{
		ShippingFeePerVendor: DefaultShippingFeePerVendor,
		PlatformRate:         decimal.RequireFromString(DefaultPlatformRate),
	}
}

func NewPolicy(shippingFeePerVendor int64, platformRate string) (Policy, error) {
	if shippingFeePerVendor < 0 {
		return Policy{}, fmt.Errorf("shipping fee per vendor must be >= 0, got %d", shippingFeePerVendor)
	}
	rate, err := decimal.NewFromString(platformRate)
	if err != nil {
		return Policy{}, fmt.Errorf("parse platform fee rate %q: %w", platformRate, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return Policy{}, fmt.Errorf("platform fee rate must be within [0, 1], got %s", rate)
	}
	return Policy{ShippingFeePerVendor: shippingFeePerVendor, PlatformRate: rate}, nil
}

// PlatformFee is subtotal*rate rounded half away from zero to a whole unit.
// Subtotals are never negative, so this is round-half-up.
func (p Policy) PlatformFee(subtotal int64) int64 {
	return decimal.NewFromInt(subtotal).Mul(p.PlatformRate).Round(0).IntPart()
}

func (p Policy) ShippingFee(vendorCount int) int64 {
	return int64(vendorCount) * p.ShippingFeePerVendor
}

// Split is the fee breakdown for one vendor's share of a checkout.
type Split struct {
	Subtotal       int64
	ShippingFee    int64
	PlatformFee    int64
	VendorEarnings int64
	Total          int64
}

func (p Policy) SplitVendorOrder(subtotal int64) Split {
	fee := p.PlatformFee(subtotal)
	return Split{
		Subtotal:       subtotal,
		ShippingFee:    p.ShippingFeePerVendor,
		PlatformFee:    fee,
		VendorEarnings: subtotal - fee,
		Total:          subtotal + p.ShippingFeePerVendor,
	}
}
