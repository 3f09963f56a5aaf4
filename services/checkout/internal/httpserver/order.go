package httpserver

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/marketplace/pkg/logging"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/domain"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/service"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/transport"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/util"
)

type OrderHTTP struct {
	Svc *service.OrderService
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list")

	actor, err := actorOf(c)
	if err != nil {
		return fail(l, "list_orders_failed", err)
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, items, err := h.Svc.ListOrders(ctx, actor.ID, offset, limit)
	if err != nil {
		return fail(l, "list_orders_failed", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get")

	actor, err := actorOf(c)
	if err != nil {
		return fail(l, "get_order_failed", err)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(l, "get_order_failed", "id is not a uuid", nil)
	}

	o, err := h.Svc.GetOrder(ctx, actor, id)
	if err != nil {
		return fail(l, "get_order_failed", err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *OrderHTTP) CancelOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.cancel")

	actor, err := actorOf(c)
	if err != nil {
		return fail(l, "cancel_order_failed", err)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(l, "cancel_order_failed", "id is not a uuid", nil)
	}

	o, err := h.Svc.CancelOrder(ctx, actor, id)
	if err != nil {
		return fail(l, "cancel_order_failed", err)
	}

	l.Info("cancel_order_success", "order_id", id.String())
	return c.JSON(http.StatusOK, o)
}

func (h *OrderHTTP) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.update_status")

	actor, err := actorOf(c)
	if err != nil {
		return fail(l, "update_status_failed", err)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(l, "update_status_failed", "id is not a uuid", nil)
	}

	var req transport.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_status_failed", "invalid body", err)
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(l, "update_status_failed", "invalid body", err)
	}
	to, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		return fail(l, "update_status_failed", err)
	}

	o, err := h.Svc.TransitionOrder(ctx, actor, id, to)
	if err != nil {
		return fail(l, "update_status_failed", err)
	}

	l.Info("update_status_success", "order_id", id.String(), "status", string(to))
	return c.JSON(http.StatusOK, o)
}

// RetryPayment opens a fresh gateway session for orders still waiting for
// payment.
func (h *OrderHTTP) RetryPayment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.retry_payment")

	actor, err := actorOf(c)
	if err != nil {
		return fail(l, "retry_payment_failed", err)
	}

	var req transport.RetryPaymentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "retry_payment_failed", "invalid body", err)
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(l, "retry_payment_failed", "invalid body", err)
	}
	ids := make([]uuid.UUID, 0, len(req.OrderIDs))
	for _, s := range req.OrderIDs {
		id, err := uuid.Parse(s)
		if err != nil {
			return badRequest(l, "retry_payment_failed", "order id is not a uuid", nil)
		}
		ids = append(ids, id)
	}

	url, orders, err := h.Svc.RetryPayment(ctx, actor, ids)
	if err != nil {
		if orders != nil && statusOf(err) == http.StatusBadGateway {
			l.Error("retry_payment_failed", "status", 502, "orders", len(orders), "error", err)
			return c.JSON(http.StatusBadGateway, map[string]any{
				"code":   domain.CodeOf(err),
				"error":  err.Error(),
				"orders": orders,
			})
		}
		return fail(l, "retry_payment_failed", err)
	}

	l.Info("retry_payment_success", "orders", len(orders))
	return c.JSON(http.StatusOK, map[string]any{
		"payment_url": url,
		"orders":      orders,
	})
}
