package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlatformFee_RoundsHalfUp(t *testing.T) {
	p, err := NewPolicy(30000, "0.05")
	require.NoError(t, err)

	assert.Equal(t, int64(0), p.PlatformFee(0))
	assert.Equal(t, int64(1), p.PlatformFee(10)) // 0.5
	assert.Equal(t, int64(0), p.PlatformFee(9))  // 0.45
	assert.Equal(t, int64(1), p.PlatformFee(29)) // 1.45
	assert.Equal(t, int64(2), p.PlatformFee(30)) // 1.5
	assert.Equal(t, int64(2800000), p.PlatformFee(56000000))
}

func TestSplitVendorOrder(t *testing.T) {
	p := DefaultPolicy()

	s := p.SplitVendorOrder(56000000)
	assert.Equal(t, int64(56000000), s.Subtotal)
	assert.Equal(t, int64(30000), s.ShippingFee)
	assert.Equal(t, int64(2800000), s.PlatformFee)
	assert.Equal(t, s.Subtotal-s.PlatformFee, s.VendorEarnings)
	assert.Equal(t, s.Subtotal+s.ShippingFee, s.Total)
}

func TestNewPolicy_Rejects(t *testing.T) {
	_, err := NewPolicy(-1, "0.05")
	assert.Error(t, err)

	_, err = NewPolicy(30000, "abc")
	assert.Error(t, err)

	_, err = NewPolicy(30000, "1.5")
	assert.Error(t, err)
}

func TestShippingFee(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, int64(0), p.ShippingFee(0))
	assert.Equal(t, int64(90000), p.ShippingFee(3))
}
