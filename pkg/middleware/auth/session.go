package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/marketplace/pkg/tokens"
)

// User is the authenticated caller as seen by handlers behind RequireAuth.
type User struct {
	ID    uuid.UUID
	Email string
	Role  string
}

func (u User) IsAdmin() bool { return u.Role == tokens.RoleAdmin }

// CurrentUser returns false when the request carries no valid session.
func CurrentUser(c echo.Context) (User, bool) {
	s, ok := c.Get(ctxUserID).(string)
	if !ok || s == "" {
		return User{}, false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return User{}, false
	}
	role, _ := c.Get(ctxRole).(string)
	email, _ := c.Get(ctxEmail).(string)
	return User{ID: id, Email: email, Role: role}, true
}

// SetUser is used by tests and internal callers that authenticate out of band.
func SetUser(c echo.Context, u User) {
	c.Set(ctxUserID, u.ID.String())
	c.Set(ctxRole, u.Role)
	c.Set(ctxEmail, u.Email)
}

func CreateCookie(name, value, path string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  exp,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func DeleteCookie(name, path string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}
