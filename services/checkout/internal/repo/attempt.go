package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/Skotchmaster/marketplace/services/checkout/internal/models"
)

// FindAttempt returns gorm.ErrRecordNotFound when the key was never used.
func (r *GormRepo) FindAttempt(ctx context.Context, customerID uuid.UUID, key string) (*models.CheckoutAttempt, error) {
	var a models.CheckoutAttempt
	if err := r.DB.WithContext(ctx).
		Where("customer_id = ? AND idempotency_key = ?", customerID, key).
		First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *GormRepo) InsertAttempt(ctx context.Context, a *models.CheckoutAttempt) error {
	return r.DB.WithContext(ctx).Create(a).Error
}
