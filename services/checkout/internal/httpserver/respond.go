package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	middleware "github.com/Skotchmaster/marketplace/pkg/middleware/auth"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/cart"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/domain"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/service"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/transport"
)

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrAuthenticationRequired):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInvalidItem):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, cart.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidVendor):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrIllegalTransition),
		errors.Is(err, cart.ErrExceedsStock):
		return http.StatusConflict
	case errors.Is(err, domain.ErrPaymentGateway):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// fail logs err under event and converts it to an HTTP error. Server side
// failures are logged at error level and their text is not sent to clients.
func fail(l *slog.Logger, event string, err error) error {
	status := statusOf(err)
	code := domain.CodeOf(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		l.Error(event, "status", status, "code", string(code), "error", err)
		return echo.NewHTTPError(status, map[string]any{"code": code, "message": http.StatusText(status)})
	}
	l.Warn(event, "status", status, "code", string(code), "error", err)

	body := map[string]any{"code": code, "message": err.Error()}
	var se *domain.StockError
	if errors.As(err, &se) {
		body["invalid_items"] = se.Issues
	}
	return echo.NewHTTPError(status, body)
}

func badRequest(l *slog.Logger, event, reason string, err error) error {
	l.Warn(event, "status", http.StatusBadRequest, "reason", reason, "error", err)
	body := map[string]any{"code": domain.CodeValidation, "message": reason}
	if err != nil {
		body["fields"] = transport.FieldErrors(err)
	}
	return echo.NewHTTPError(http.StatusBadRequest, body)
}

func actorOf(c echo.Context) (service.Actor, error) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return service.Actor{}, domain.ErrAuthenticationRequired
	}
	return service.Actor{ID: u.ID, Email: u.Email, Admin: u.IsAdmin()}, nil
}
