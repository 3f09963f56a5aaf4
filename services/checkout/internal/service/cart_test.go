package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/marketplace/services/checkout/internal/cart"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/domain"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/models"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/testdb"
)

func TestCartService_AddItemFromCatalog(t *testing.T) {
	f := newFixture(t)
	a := testdb.SeedVendor(t, f.db, "a", [2]int64{25000000, 3})
	owner := uuid.New()
	ctx := context.Background()

	store := f.carts.Open(ctx, owner)
	it, err := f.carts.AddItem(ctx, store, a.Variants[0].ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, it.Quantity)
	assert.Equal(t, 3, it.Stock)
	assert.Equal(t, int64(25000000), it.Price)
	assert.Equal(t, a.Vendor.ID, it.VendorID)
	assert.Equal(t, "a", it.VendorName)

	_, err = f.carts.AddItem(ctx, store, a.Variants[0].ID, 2)
	assert.ErrorIs(t, err, cart.ErrExceedsStock)

	reopened := f.carts.Open(ctx, owner)
	got, ok := reopened.Get(a.Variants[0].ID)
	require.True(t, ok)
	assert.Equal(t, 2, got.Quantity)

	view := f.carts.View(reopened)
	assert.Equal(t, int64(50000000), view.Totals.Subtotal)
	assert.Equal(t, int64(50030000), view.Totals.Total)
	assert.Len(t, view.Vendors, 1)

	_, err = f.carts.AddItem(ctx, store, uuid.New(), 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCartService_AddItemRolledBackForInactiveVendor(t *testing.T) {
	f := newFixture(t)
	a := testdb.SeedVendor(t, f.db, "a", [2]int64{100, 3})
	b := testdb.SeedVendor(t, f.db, "b", [2]int64{100, 3})
	require.NoError(t, f.db.Model(&models.Vendor{}).Where("id = ?", b.Vendor.ID).Update("active", false).Error)
	owner := uuid.New()
	ctx := context.Background()

	store := f.carts.Open(ctx, owner)
	_, err := f.carts.AddItem(ctx, store, a.Variants[0].ID, 1)
	require.NoError(t, err)
	before := store.Items()

	_, err = f.carts.AddItem(ctx, store, b.Variants[0].ID, 1)
	require.ErrorIs(t, err, domain.ErrInvalidVendor)
	assert.Equal(t, before, store.Items())

	persisted, err := f.snaps.Load(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, before, persisted)
}

func TestCartService_OpenToleratesSnapshotErrors(t *testing.T) {
	f := newFixture(t)
	store := f.carts.Open(context.Background(), uuid.New())
	assert.Equal(t, 0, store.Len())

	f.snaps.err = errors.New("redis down")
	a := testdb.SeedVendor(t, f.db, "a", [2]int64{100, 3})
	_, err := f.carts.AddItem(context.Background(), store, a.Variants[0].ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
}

func TestCartService_SyncStock(t *testing.T) {
	f := newFixture(t)
	a := testdb.SeedVendor(t, f.db, "a", [2]int64{100, 5}, [2]int64{100, 5})
	owner := uuid.New()
	ctx := context.Background()

	gone := lineOf(a, 0, 1)
	gone.VariantID = uuid.New()
	store := cart.New(owner, f.snaps, lineOf(a, 0, 4), lineOf(a, 1, 1), gone)

	require.NoError(t, f.db.Model(&models.Variant{}).Where("id = ?", a.Variants[0].ID).Update("stock", 2).Error)

	changes, err := f.carts.SyncStock(ctx, store)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, a.Variants[0].ID, changes[0].VariantID)
	assert.Equal(t, 2, changes[0].Quantity)
	assert.True(t, changes[0].Capped)
	assert.Equal(t, gone.VariantID, changes[1].VariantID)
	assert.False(t, changes[1].Capped)
	assert.Equal(t, 0, changes[1].Stock)

	g, ok := store.Get(gone.VariantID)
	require.True(t, ok)
	assert.Equal(t, 0, g.Stock)
	assert.Equal(t, 3, store.Len())
}
