package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrEmptyCart              = errors.New("cart is empty")
	ErrInvalidVendor          = errors.New("invalid vendor")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrTransactionAborted     = errors.New("transaction aborted")
	ErrPaymentGateway         = errors.New("payment gateway error")

	ErrValidation        = errors.New("validation")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrIllegalTransition = errors.New("illegal order status transition")
)

// Code names an error class for clients; it is stable across releases.
type Code string

const (
	CodeNone                   Code = ""
	CodeAuthenticationRequired Code = "AUTHENTICATION_REQUIRED"
	CodeEmptyCart              Code = "EMPTY_CART"
	CodeInvalidVendor          Code = "INVALID_VENDOR"
	CodeInsufficientStock      Code = "INSUFFICIENT_STOCK"
	CodeTransactionAborted     Code = "TRANSACTION_ABORTED"
	CodePaymentGatewayError    Code = "PAYMENT_GATEWAY_ERROR"
	CodeValidation             Code = "VALIDATION"
)

func CodeOf(err error) Code {
	switch {
	case err == nil:
		return CodeNone
	case errors.Is(err, ErrAuthenticationRequired):
		return CodeAuthenticationRequired
	case errors.Is(err, ErrEmptyCart):
		return CodeEmptyCart
	case errors.Is(err, ErrInvalidVendor):
		return CodeInvalidVendor
	case errors.Is(err, ErrInsufficientStock):
		return CodeInsufficientStock
	case errors.Is(err, ErrPaymentGateway):
		return CodePaymentGatewayError
	case errors.Is(err, ErrValidation):
		return CodeValidation
	}
	return CodeTransactionAborted
}

// StockIssue describes one line that cannot be served from current stock.
type StockIssue struct {
	VariantID uuid.UUID `json:"variant_id"`
	Name      string    `json:"name"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
	Message   string    `json:"message,omitempty"`
}

func (i StockIssue) Shortfall() int {
	if i.Available >= i.Requested {
		return 0
	}
	return i.Requested - i.Available
}

type StockError struct {
	Issues []StockIssue
}

func (e *StockError) Error() string {
	names := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		names = append(names, fmt.Sprintf("%s (requested %d, available %d)", is.Name, is.Requested, is.Available))
	}
	return fmt.Sprintf("%s: %s", ErrInsufficientStock, strings.Join(names, ", "))
}

func (e *StockError) Unwrap() error {
	return ErrInsufficientStock
}
