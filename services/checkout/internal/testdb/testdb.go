// Package testdb opens throwaway sqlite databases for package tests.
package testdb

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Skotchmaster/marketplace/services/checkout/internal/models"
)

// Open migrates a file-backed database under t.TempDir. A single connection
// serialises transactions the way row locks would on postgres.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "checkout.db") + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "open sqlite")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...), "migrate")
	return db
}

// Catalog is a seeded vendor with one product and its variants.
type Catalog struct {
	Vendor   models.Vendor
	Product  models.Product
	Variants []models.Variant
}

// SeedVendor creates an active vendor with one product and a variant per
// (price, stock) pair.
func SeedVendor(t *testing.T, db *gorm.DB, name string, variants ...[2]int64) Catalog {
	t.Helper()

	c := Catalog{Vendor: models.Vendor{Name: name, Active: true}}
	require.NoError(t, db.Create(&c.Vendor).Error)

	c.Product = models.Product{VendorID: c.Vendor.ID, Name: name + " product", Slug: name + "-product"}
	require.NoError(t, db.Create(&c.Product).Error)

	for i, v := range variants {
		vr := models.Variant{
			ProductID: c.Product.ID,
			Name:      name + " variant " + string(rune('A'+i)),
			Price:     v[0],
			Stock:     int(v[1]),
		}
		require.NoError(t, db.Create(&vr).Error)
		c.Variants = append(c.Variants, vr)
	}
	return c
}

func Stock(t *testing.T, db *gorm.DB, variantID any) int {
	t.Helper()
	var v models.Variant
	require.NoError(t, db.First(&v, "id = ?", variantID).Error)
	return v.Stock
}

func Count(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}
