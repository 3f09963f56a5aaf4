package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/marketplace/services/checkout/internal/domain"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/models"
)

// InsertOrder writes the header, its items and its payment. Callers run it
// inside WithTx.
func (r *GormRepo) InsertOrder(ctx context.Context, order *models.Order) error {
	db := r.DB.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(order).Error; err != nil {
		return err
	}

	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	if len(order.Items) > 0 {
		if err := db.Create(&order.Items).Error; err != nil {
			return err
		}
	}

	if order.Payment != nil {
		order.Payment.OrderID = order.ID
		if err := db.Create(order.Payment).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *GormRepo) withDetails(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).Preload("Items").Preload("Payment")
}

func (r *GormRepo) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.withDetails(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) OrdersByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	if len(ids) == 0 {
		return orders, nil
	}
	if err := r.withDetails(ctx).Where("id IN ?", ids).Order("order_number ASC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *GormRepo) OrdersByCheckout(ctx context.Context, checkoutID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	if err := r.withDetails(ctx).Where("checkout_id = ?", checkoutID).Order("checkout_seq ASC, order_number ASC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *GormRepo) ListOrders(ctx context.Context, customerID uuid.UUID, offset, limit int) (int64, []models.Order, error) {
	var total int64
	q := r.DB.WithContext(ctx).Model(&models.Order{}).Where("customer_id = ?", customerID)
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var orders []models.Order
	if err := r.withDetails(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").Order("order_number DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error; err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}

func (r *GormRepo) OrderNumberExists(ctx context.Context, number string) (bool, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&models.Order{}).Where("order_number = ?", number).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// CompareAndSetStatus moves an order from one status to another. It reports
// false when the order was no longer in from.
func (r *GormRepo) CompareAndSetStatus(ctx context.Context, orderID uuid.UUID, from, to domain.OrderStatus) (bool, error) {
	res := r.DB.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRepo) UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, status domain.PaymentStatus) error {
	return r.DB.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id = ?", orderID).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()}).Error
}

func (r *GormRepo) SetPaymentSession(ctx context.Context, orderIDs []uuid.UUID, url string) error {
	if len(orderIDs) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id IN ?", orderIDs).
		Updates(map[string]any{"session_url": url, "updated_at": time.Now().UTC()}).Error
}
