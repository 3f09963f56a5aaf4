package transport

import (
	"github.com/Skotchmaster/marketplace/services/checkout/internal/domain"
)

type AddCartItemRequest struct {
	VariantID string `json:"variant_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity"   validate:"omitempty,min=1,max=1000"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

type ShippingRequest struct {
	Name     string `json:"name"     validate:"required,max=120"`
	Phone    string `json:"phone"    validate:"required,min=8,max=20"`
	Address  string `json:"address"  validate:"required,max=255"`
	Ward     string `json:"ward"     validate:"omitempty,max=120"`
	District string `json:"district" validate:"omitempty,max=120"`
	City     string `json:"city"     validate:"required,max=120"`
	Note     string `json:"note"     validate:"omitempty,max=500"`
}

func (s ShippingRequest) ToDomain() domain.ShippingInfo {
	return domain.ShippingInfo{
		Name:     s.Name,
		Phone:    s.Phone,
		Address:  s.Address,
		Ward:     s.Ward,
		District: s.District,
		City:     s.City,
		Note:     s.Note,
	}
}

type CheckoutRequest struct {
	Shipping      ShippingRequest `json:"shipping"       validate:"required"`
	PaymentMethod string          `json:"payment_method" validate:"required,oneof=COD GATEWAY cod gateway"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING PENDING_PAYMENT PROCESSING SHIPPED DELIVERED CANCELLED"`
}

type RetryPaymentRequest struct {
	OrderIDs []string `json:"order_ids" validate:"required,min=1,max=50,dive,uuid"`
}
