package context

import (
	"github.com/labstack/echo/v4"

	"accounts/internal/domain/entity"
)

// KeyPrincipal is the key for storing the authenticated user in echo.Context.
const KeyPrincipal ContextKey = "principal"

// SetPrincipal stores the authenticated user in echo.Context.
func SetPrincipal(c echo.Context, user *entity.User) {
	c.Set(string(KeyPrincipal), user)
}

// GetPrincipal returns the authenticated user set by the auth middleware.
func GetPrincipal(c echo.Context) (*entity.User, bool) {
	user, ok := c.Get(string(KeyPrincipal)).(*entity.User)

	return user, ok && user != nil
}
