package httpserver

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/marketplace/pkg/logging"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/domain"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/service"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/transport"
)

const headerIdempotencyKey = "Idempotency-Key"

type CheckoutHTTP struct {
	Checkout *service.CheckoutService
	Router   *service.SettlementRouter
	Carts    *service.CartService
}

// Validate checks the caller's cart against live stock without touching it.
func (h *CheckoutHTTP) Validate(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.validate")

	actor, err := actorOf(c)
	if err != nil {
		return fail(l, "validate_checkout_failed", err)
	}

	store := h.Carts.Open(ctx, actor.ID)
	if store.Len() == 0 {
		return fail(l, "validate_checkout_failed", domain.ErrEmptyCart)
	}

	res, err := h.Checkout.ValidateCheckout(ctx, store.Items())
	if err != nil {
		return fail(l, "validate_checkout_failed", err)
	}
	return c.JSON(http.StatusOK, res)
}

// Create places one order per vendor in the caller's cart. Failures still
// carry the result body so clients can read the code and invalid items. A
// gateway failure answers 502 with the committed orders, and so does a replay
// of such a checkout until its payment is retried.
func (h *CheckoutHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.create")

	actor, err := actorOf(c)
	if err != nil {
		return fail(l, "checkout_failed", err)
	}

	var req transport.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "checkout_failed", "invalid body", err)
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(l, "checkout_failed", "invalid body", err)
	}
	method, err := domain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return fail(l, "checkout_failed", err)
	}

	store := h.Carts.Open(ctx, actor.ID)
	res, err := h.Checkout.CreateOrders(ctx, service.CreateOrdersInput{
		CustomerID:     actor.ID,
		CustomerEmail:  actor.Email,
		Items:          store.Items(),
		Shipping:       req.Shipping.ToDomain(),
		PaymentMethod:  method,
		IdempotencyKey: strings.TrimSpace(c.Request().Header.Get(headerIdempotencyKey)),
	})
	if err != nil {
		status := statusOf(err)
		if status >= http.StatusInternalServerError {
			l.Error("checkout_failed", "status", status, "code", string(res.Code), "error", err)
			res.Error = http.StatusText(status)
		} else {
			l.Warn("checkout_failed", "status", status, "code", string(res.Code), "error", err)
		}
		return c.JSON(status, res)
	}

	if err := h.Router.Settle(ctx, &res, method, actor.Email, store); err != nil {
		l.Error("checkout_settlement_failed", "status", 502, "checkout_id", res.CheckoutID.String(), "error", err)
		return c.JSON(http.StatusBadGateway, res)
	}

	if res.Code == domain.CodePaymentGatewayError {
		l.Warn("checkout_replayed_without_session", "status", 502, "checkout_id", res.CheckoutID.String())
		return c.JSON(http.StatusBadGateway, res)
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	l.Info("checkout_success", "checkout_id", res.CheckoutID.String(), "orders", len(res.Orders), "replayed", res.Replayed)
	return c.JSON(status, res)
}
