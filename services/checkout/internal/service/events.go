package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/marketplace/services/checkout/internal/domain"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/models"
)

const (
	DefaultEventsTopic = "order_events"

	EventOrderCreated       = "order_created"
	EventOrderStatusChanged = "order_status_changed"
)

type OrderLineEvent struct {
	VariantID uuid.UUID `json:"variantID"`
	Quantity  int       `json:"quantity"`
	UnitPrice int64     `json:"unitPrice"`
}

type OrderCreatedEvent struct {
	Type           string               `json:"type"`
	OrderID        uuid.UUID            `json:"orderID"`
	OrderNumber    string               `json:"orderNumber"`
	CheckoutID     uuid.UUID            `json:"checkoutID"`
	CustomerID     uuid.UUID            `json:"customerID"`
	VendorID       uuid.UUID            `json:"vendorID"`
	Status         domain.OrderStatus   `json:"status"`
	PaymentMethod  domain.PaymentMethod `json:"paymentMethod"`
	Subtotal       int64                `json:"subtotal"`
	ShippingFee    int64                `json:"shippingFee"`
	PlatformFee    int64                `json:"platformFee"`
	VendorEarnings int64                `json:"vendorEarnings"`
	Total          int64                `json:"total"`
	Currency       string               `json:"currency"`
	Items          []OrderLineEvent     `json:"items"`
	OccurredAt     time.Time            `json:"occurredAt"`
}

type OrderStatusChangedEvent struct {
	Type          string               `json:"type"`
	OrderID       uuid.UUID            `json:"orderID"`
	OrderNumber   string               `json:"orderNumber"`
	VendorID      uuid.UUID            `json:"vendorID"`
	From          domain.OrderStatus   `json:"from"`
	To            domain.OrderStatus   `json:"to"`
	PaymentStatus domain.PaymentStatus `json:"paymentStatus,omitempty"`
	OccurredAt    time.Time            `json:"occurredAt"`
}

func newOrderCreated(o models.Order, at time.Time) OrderCreatedEvent {
	ev := OrderCreatedEvent{
		Type:           EventOrderCreated,
		OrderID:        o.ID,
		OrderNumber:    o.OrderNumber,
		CheckoutID:     o.CheckoutID,
		CustomerID:     o.CustomerID,
		VendorID:       o.VendorID,
		Status:         o.Status,
		PaymentMethod:  o.PaymentMethod,
		Subtotal:       o.Subtotal,
		ShippingFee:    o.ShippingFee,
		PlatformFee:    o.PlatformFee,
		VendorEarnings: o.VendorEarnings,
		Total:          o.Total,
		Currency:       o.Currency,
		OccurredAt:     at,
	}
	for _, it := range o.Items {
		ev.Items = append(ev.Items, OrderLineEvent{VariantID: it.VariantID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return ev
}

func outboxEvent(topic, eventType string, orderID uuid.UUID, payload any) (*models.OutboxEvent, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", eventType, err)
	}
	if topic == "" {
		topic = DefaultEventsTopic
	}
	return &models.OutboxEvent{
		Topic:     topic,
		EventType: eventType,
		Key:       orderID.String(),
		Payload:   body,
	}, nil
}
