package domain

import (
	"fmt"
	"strings"
)

// PaymentMethod is a closed set. Code that branches on it goes through Match
// so that adding a method breaks every call site at compile time.
type PaymentMethod string

const (
	PaymentMethodCOD     PaymentMethod = "COD"
	PaymentMethodGateway PaymentMethod = "GATEWAY"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(strings.ToUpper(strings.TrimSpace(s))) {
	case PaymentMethodCOD:
		return PaymentMethodCOD, nil
	case PaymentMethodGateway:
		return PaymentMethodGateway, nil
	}
	return "", fmt.Errorf("%w: unknown payment method %q", ErrValidation, s)
}

func Match[T any](m PaymentMethod, cod func() T, gateway func() T) T {
	switch m {
	case PaymentMethodCOD:
		return cod()
	case PaymentMethodGateway:
		return gateway()
	}
	panic(fmt.Sprintf("domain: unhandled payment method %q", string(m)))
}

func (m PaymentMethod) InitialOrderStatus() OrderStatus {
	return Match(m,
		func() OrderStatus { return OrderStatusPending },
		func() OrderStatus { return OrderStatusPendingPayment },
	)
}

func (m PaymentMethod) InitialPaymentStatus() PaymentStatus {
	return Match(m,
		func() PaymentStatus { return PaymentStatusPending },
		func() PaymentStatus { return PaymentStatusAwaitingGateway },
	)
}

func (m PaymentMethod) String() string {
	return string(m)
}

// PaymentStatus tracks settlement independently of the order's fulfillment status.
type PaymentStatus string

const (
	PaymentStatusPending         PaymentStatus = "PENDING"
	PaymentStatusAwaitingGateway PaymentStatus = "AWAITING_GATEWAY"
	PaymentStatusPaid            PaymentStatus = "PAID"
	PaymentStatusCancelled       PaymentStatus = "CANCELLED"
)

// PaymentStatusAfter derives the payment status that follows an order transition.
// The second result is false when the payment row is left untouched.
func PaymentStatusAfter(m PaymentMethod, from, to OrderStatus) (PaymentStatus, bool) {
	switch {
	case to == OrderStatusCancelled:
		return PaymentStatusCancelled, true
	case m == PaymentMethodGateway && from == OrderStatusPendingPayment && to == OrderStatusPending:
		return PaymentStatusPaid, true
	case m == PaymentMethodCOD && to == OrderStatusDelivered:
		return PaymentStatusPaid, true
	}
	return "", false
}
