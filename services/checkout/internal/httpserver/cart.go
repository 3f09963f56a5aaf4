package httpserver

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/marketplace/pkg/logging"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/service"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/transport"
)

type CartHTTP struct {
	Svc *service.CartService
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get")

	actor, err := actorOf(c)
	if err != nil {
		return fail(l, "get_cart_failed", err)
	}

	store := h.Svc.Open(ctx, actor.ID)
	return c.JSON(http.StatusOK, h.Svc.View(store))
}

func (h *CartHTTP) AddItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add_item")

	actor, err := actorOf(c)
	if err != nil {
		return fail(l, "add_item_failed", err)
	}

	var req transport.AddCartItemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "add_item_failed", "invalid body", err)
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(l, "add_item_failed", "invalid body", err)
	}
	variantID, err := uuid.Parse(req.VariantID)
	if err != nil {
		return badRequest(l, "add_item_failed", "variant_id is not a uuid", err)
	}

	store := h.Svc.Open(ctx, actor.ID)
	item, err := h.Svc.AddItem(ctx, store, variantID, req.Quantity)
	if err != nil {
		return fail(l, "add_item_failed", err)
	}

	l.Info("add_item_success", "variant_id", variantID.String(), "quantity", item.Quantity)
	return c.JSON(http.StatusCreated, map[string]any{
		"item": item,
		"cart": h.Svc.View(store),
	})
}

func (h *CartHTTP) UpdateItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.update_item")

	actor, err := actorOf(c)
	if err != nil {
		return fail(l, "update_item_failed", err)
	}
	variantID, err := uuid.Parse(c.Param("variantId"))
	if err != nil {
		return badRequest(l, "update_item_failed", "variantId is not a uuid", nil)
	}

	var req transport.UpdateCartItemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_item_failed", "invalid body", err)
	}

	store := h.Svc.Open(ctx, actor.ID)
	if _, err := store.UpdateQuantity(ctx, variantID, req.Quantity); err != nil {
		return fail(l, "update_item_failed", err)
	}

	l.Info("update_item_success", "variant_id", variantID.String(), "quantity", req.Quantity)
	return c.JSON(http.StatusOK, h.Svc.View(store))
}

func (h *CartHTTP) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove_item")

	actor, err := actorOf(c)
	if err != nil {
		return fail(l, "remove_item_failed", err)
	}
	variantID, err := uuid.Parse(c.Param("variantId"))
	if err != nil {
		return badRequest(l, "remove_item_failed", "variantId is not a uuid", nil)
	}

	store := h.Svc.Open(ctx, actor.ID)
	if !store.RemoveItem(ctx, variantID) {
		l.Warn("remove_item_failed", "status", 404, "variant_id", variantID.String())
		return echo.NewHTTPError(http.StatusNotFound, "item not in cart")
	}

	l.Info("remove_item_success", "variant_id", variantID.String())
	return c.JSON(http.StatusOK, h.Svc.View(store))
}

func (h *CartHTTP) ClearCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.clear")

	actor, err := actorOf(c)
	if err != nil {
		return fail(l, "clear_cart_failed", err)
	}

	h.Svc.Open(ctx, actor.ID).Clear(ctx)
	l.Info("clear_cart_success")
	return c.NoContent(http.StatusNoContent)
}

// SyncStock refreshes stock ceilings and reports capped lines.
func (h *CartHTTP) SyncStock(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.sync")

	actor, err := actorOf(c)
	if err != nil {
		return fail(l, "sync_cart_failed", err)
	}

	store := h.Svc.Open(ctx, actor.ID)
	changes, err := h.Svc.SyncStock(ctx, store)
	if err != nil {
		return fail(l, "sync_cart_failed", err)
	}

	l.Info("sync_cart_success", "changes", len(changes))
	return c.JSON(http.StatusOK, map[string]any{
		"changes": changes,
		"cart":    h.Svc.View(store),
	})
}
