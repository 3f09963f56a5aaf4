package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	middleware "github.com/Skotchmaster/marketplace/pkg/middleware/auth"
)

// Check is one dependency pinged by /health/ready.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type Deps struct {
	CartHandler     *CartHTTP
	CheckoutHandler *CheckoutHTTP
	OrderHandler    *OrderHTTP

	JWTSecret  []byte
	AuthClient middleware.Refresher

	Ready   []Check
	Metrics http.Handler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", ready(d.Ready))
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics))
	}

	authMW := middleware.NewAutoRefreshMiddleware(d.JWTSecret, d.AuthClient)

	cart := e.Group("/cart", authMW.RequireAuth)
	cart.GET("", d.CartHandler.GetCart)
	cart.DELETE("", d.CartHandler.ClearCart)
	cart.POST("/items", d.CartHandler.AddItem)
	cart.PATCH("/items/:variantId", d.CartHandler.UpdateItem)
	cart.DELETE("/items/:variantId", d.CartHandler.RemoveItem)
	cart.POST("/sync", d.CartHandler.SyncStock)

	checkout := e.Group("/checkout", authMW.RequireAuth)
	checkout.POST("/validate", d.CheckoutHandler.Validate)
	checkout.POST("", d.CheckoutHandler.Create)

	orders := e.Group("/orders", authMW.RequireAuth)
	orders.GET("", d.OrderHandler.ListOrders)
	orders.GET("/:id", d.OrderHandler.GetOrder)
	orders.POST("/:id/cancel", d.OrderHandler.CancelOrder)
	orders.POST("/payment/retry", d.OrderHandler.RetryPayment)

	admin := e.Group("/orders", authMW.RequireAdmin)
	admin.PATCH("/:id/status", d.OrderHandler.UpdateStatus)
}

func ready(checks []Check) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		failed := map[string]string{}
		for _, ch := range checks {
			if err := ch.Ping(ctx); err != nil {
				failed[ch.Name] = err.Error()
			}
		}
		if len(failed) > 0 {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
		}
		return c.JSON(http.StatusOK, map[string]any{"status": "ok"})
	}
}
