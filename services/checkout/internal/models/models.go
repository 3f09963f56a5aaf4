package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/marketplace/services/checkout/internal/domain"
)

type Vendor struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"  json:"id"`
	Name      string    `gorm:"not null"              json:"name"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type Product struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"    json:"id"`
	VendorID uuid.UUID `gorm:"type:uuid;index;not null" json:"vendor_id"`
	Name     string    `gorm:"not null"                json:"name"`
	Slug     string    `gorm:"index"                   json:"slug"`
	Image    string    `json:"image"`
}

// Variant is the unit of stock. Stock is only changed by conditional updates.
type Variant struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"     json:"id"`
	ProductID uuid.UUID `gorm:"type:uuid;index;not null" json:"product_id"`
	Name      string    `gorm:"not null"                 json:"name"`
	Price     int64     `gorm:"not null;check:price >= 0" json:"price"`
	Stock     int       `gorm:"not null;check:stock >= 0" json:"stock"`
	Product   Product   `gorm:"foreignKey:ProductID"     json:"-"`
}

type Order struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"        json:"id"`
	OrderNumber string    `gorm:"uniqueIndex;not null"        json:"order_number"`
	CheckoutID  uuid.UUID `gorm:"type:uuid;index;not null"    json:"checkout_id"`
	// CheckoutSeq is the vendor's position in the checkout, by first cart line.
	CheckoutSeq    int                  `gorm:"not null;default:0"          json:"-"`
	VendorID       uuid.UUID            `gorm:"type:uuid;index;not null"    json:"vendor_id"`
	CustomerID     uuid.UUID            `gorm:"type:uuid;index;not null"    json:"customer_id"`
	Status         domain.OrderStatus   `gorm:"type:varchar(32);index;not null" json:"status"`
	PaymentMethod  domain.PaymentMethod `gorm:"type:varchar(16);not null"   json:"payment_method"`
	Subtotal       int64                `gorm:"not null"                    json:"subtotal"`
	ShippingFee    int64                `gorm:"not null"                    json:"shipping_fee"`
	PlatformFee    int64                `gorm:"not null"                    json:"platform_fee"`
	VendorEarnings int64                `gorm:"not null"                    json:"vendor_earnings"`
	Total          int64                `gorm:"not null"                    json:"total"`
	Currency       string               `gorm:"type:varchar(8);not null"    json:"currency"`
	Shipping       domain.ShippingInfo  `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping"`
	CreatedAt      time.Time            `gorm:"index"                       json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`

	Items   []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Payment *Payment    `gorm:"foreignKey:OrderID" json:"payment,omitempty"`
}

// OrderItem holds name and price snapshots; catalog edits never reach it.
type OrderItem struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"        json:"id"`
	OrderID     uuid.UUID `gorm:"type:uuid;index;not null"    json:"order_id"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null"          json:"product_id"`
	VariantID   uuid.UUID `gorm:"type:uuid;index;not null"    json:"variant_id"`
	ProductName string    `gorm:"not null"                    json:"product_name"`
	VariantName string    `json:"variant_name"`
	Quantity    int       `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPrice   int64     `gorm:"not null"                    json:"unit_price"`
	Subtotal    int64     `gorm:"not null"                    json:"subtotal"`
}

type Payment struct {
	ID         uuid.UUID            `gorm:"type:uuid;primaryKey"          json:"id"`
	OrderID    uuid.UUID            `gorm:"type:uuid;uniqueIndex;not null" json:"order_id"`
	Method     domain.PaymentMethod `gorm:"type:varchar(16);not null"     json:"method"`
	Amount     int64                `gorm:"not null"                      json:"amount"`
	Status     domain.PaymentStatus `gorm:"type:varchar(32);not null"     json:"status"`
	SessionURL string               `json:"session_url,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// OutboxEvent is written in the same transaction as the change it describes.
type OutboxEvent struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"   json:"id"`
	Topic     string     `gorm:"not null"               json:"topic"`
	EventType string     `gorm:"not null"               json:"event_type"`
	Key       string     `gorm:"not null"               json:"key"`
	Payload   []byte     `gorm:"not null"               json:"payload"`
	CreatedAt time.Time  `gorm:"index"                  json:"created_at"`
	SentAt    *time.Time `gorm:"index"                  json:"sent_at"`
	Attempts  int        `gorm:"not null;default:0"     json:"attempts"`
	LastError string     `json:"last_error,omitempty"`
}

// CheckoutAttempt binds an Idempotency-Key to the orders it produced.
type CheckoutAttempt struct {
	ID             uuid.UUID            `gorm:"type:uuid;primaryKey"                       json:"id"`
	CustomerID     uuid.UUID            `gorm:"type:uuid;uniqueIndex:idx_attempt_key;not null" json:"customer_id"`
	IdempotencyKey string               `gorm:"uniqueIndex:idx_attempt_key;not null"       json:"idempotency_key"`
	CheckoutID     uuid.UUID            `gorm:"type:uuid;not null"                         json:"checkout_id"`
	PaymentMethod  domain.PaymentMethod `gorm:"type:varchar(16);not null"                  json:"payment_method"`
	TotalAmount    int64                `gorm:"not null"                                   json:"total_amount"`
	CreatedAt      time.Time            `json:"created_at"`
}

func (v *Vendor) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (v *Variant) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (e *OutboxEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

func (a *CheckoutAttempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (OutboxEvent) TableName() string {
	return "outbox_events"
}

func (CheckoutAttempt) TableName() string {
	return "checkout_attempts"
}

// All lists every table owned by the checkout service, in migration order.
func All() []any {
	return []any{
		&Vendor{}, &Product{}, &Variant{},
		&Order{}, &OrderItem{}, &Payment{},
		&OutboxEvent{}, &CheckoutAttempt{},
	}
}
