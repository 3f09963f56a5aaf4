package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/marketplace/services/checkout/internal/models"
)

// VariantStock is the live catalog view of one variant.
type VariantStock struct {
	VariantID   uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	VariantName string
	Price       int64
	Stock       int
	VendorID    uuid.UUID
}

func (v VariantStock) DisplayName() string {
	if v.VariantName == "" {
		return v.ProductName
	}
	return v.ProductName + " - " + v.VariantName
}

// StockByVariant reads current stock for ids. Unknown ids are absent from the map.
func (r *GormRepo) StockByVariant(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]VariantStock, error) {
	out := make(map[uuid.UUID]VariantStock, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []VariantStock
	err := r.DB.WithContext(ctx).
		Table("variants").
		Select("variants.id AS variant_id, variants.product_id, products.name AS product_name, variants.name AS variant_name, variants.price, variants.stock, products.vendor_id").
		Joins("JOIN products ON products.id = variants.product_id").
		Where("variants.id IN ?", ids).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		out[row.VariantID] = row
	}
	return out, nil
}

// DecrementStock subtracts qty only while enough stock remains. The check and
// the write are one statement; false means the variant is missing or short.
func (r *GormRepo) DecrementStock(ctx context.Context, variantID uuid.UUID, qty int) (bool, error) {
	res := r.DB.WithContext(ctx).
		Model(&models.Variant{}).
		Where("id = ? AND stock >= ?", variantID, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRepo) RestoreStock(ctx context.Context, variantID uuid.UUID, qty int) error {
	res := r.DB.WithContext(ctx).
		Model(&models.Variant{}).
		Where("id = ?", variantID).
		Update("stock", gorm.Expr("stock + ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Vendors returns the vendor records for ids, active or not.
func (r *GormRepo) Vendors(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Vendor, error) {
	out := make(map[uuid.UUID]models.Vendor, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var vendors []models.Vendor
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&vendors).Error; err != nil {
		return nil, err
	}
	for _, v := range vendors {
		out[v.ID] = v
	}
	return out, nil
}
