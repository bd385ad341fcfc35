package middleware

import (
	"strings"

	deliverycontext "accounts/internal/delivery/context"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/usecase"

	"github.com/labstack/echo/v4"
)

const bearerScheme = "bearer"

// AuthMiddleware resolves the bearer token of a request to its principal.
type AuthMiddleware struct {
	userUC usecase.UserUsecase
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(userUC usecase.UserUsecase) *AuthMiddleware {
	return &AuthMiddleware{userUC: userUC}
}

// Authenticate rejects requests without a valid bearer token and stores the
// resolved user for handlers.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, err := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return err
		}

		user, err := m.userUC.Authenticate(c.Request().Context(), token)
		if err != nil {
			return err //nolint:wrapcheck // Passed through to the error handler as-is.
		}

		deliverycontext.SetPrincipal(c, user)

		return next(c)
	}
}

// RequireSuperuser must run after Authenticate.
func (m *AuthMiddleware) RequireSuperuser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal, ok := deliverycontext.GetPrincipal(c)
		if !ok {
			return domainerrors.ErrMissingToken
		}
		if !principal.IsSuperuser {
			return domainerrors.ErrForbidden
		}

		return next(c)
	}
}

// bearerToken extracts the credentials of an "Authorization: Bearer <token>" header.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", domainerrors.ErrMissingToken
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", domainerrors.ErrInvalidToken
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", domainerrors.ErrMissingToken
	}

	return token, nil
}
