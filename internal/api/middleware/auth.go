// Package middleware holds the per-route authentication and authorization
// guards.
package middleware

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/storefront/store-api/internal/api/metrics"
	"github.com/storefront/store-api/internal/core/apperr"
	"github.com/storefront/store-api/internal/core/domain"
	"github.com/storefront/store-api/internal/core/ports"
)

const (
	identityKey  = "identity"
	bearerPrefix = "Bearer "
)

// Authenticate verifies the bearer token, loads the account it names and
// attaches the account's public projection to the context. It performs one
// repository read and never writes.
func Authenticate(tokens ports.TokenVerifier, users ports.UserReader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(header, bearerPrefix) || strings.TrimSpace(header[len(bearerPrefix):]) == "" {
				metrics.TokenVerificationsTotal.WithLabelValues("missing").Inc()
				return apperr.Unauthenticatedf("missing or malformed authorization header")
			}

			claims, err := tokens.Verify(strings.TrimSpace(header[len(bearerPrefix):]))
			if err != nil {
				metrics.TokenVerificationsTotal.WithLabelValues(rejection(err)).Inc()
				return apperr.Wrap(apperr.Unauthenticated, err, "invalid or expired token")
			}

			user, err := users.FindByID(c.Request().Context(), claims.Subject)
			switch {
			case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrInvalidID):
				metrics.TokenVerificationsTotal.WithLabelValues("unknown_user").Inc()
				return apperr.Wrap(apperr.Unauthenticated, err, "user not found")
			case err != nil:
				return apperr.Persistence(err, "resolve identity")
			}

			if !user.Active {
				metrics.TokenVerificationsTotal.WithLabelValues("inactive").Inc()
				return apperr.Unauthenticatedf("account deactivated")
			}

			metrics.TokenVerificationsTotal.WithLabelValues("ok").Inc()
			c.Set(identityKey, user.Public())
			return next(c)
		}
	}
}

// UserFrom returns the identity attached by Authenticate.
func UserFrom(c echo.Context) (domain.PublicUser, bool) {
	u, ok := c.Get(identityKey).(domain.PublicUser)
	return u, ok
}

// SetUser attaches u as the request identity. Only Authenticate and tests
// call it.
func SetUser(c echo.Context, u domain.PublicUser) {
	c.Set(identityKey, u)
}

func rejection(err error) string {
	var te *ports.TokenError
	if errors.As(err, &te) {
		return string(te.Reason)
	}
	return "invalid"
}
