package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/storefront/store-api/internal/api/metrics"
	"github.com/storefront/store-api/internal/core/apperr"
	"github.com/storefront/store-api/internal/core/domain"
)

// Authorize admits requests whose attached identity holds one of roles. It
// must run after Authenticate.
func Authorize(roles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := UserFrom(c)
			if !ok {
				return apperr.Unauthenticatedf("not authenticated")
			}
			if _, ok := allowed[user.Role]; !ok {
				metrics.AuthorizationDeniedTotal.Inc()
				return apperr.Forbiddenf("you do not have permission to perform this action")
			}
			return next(c)
		}
	}
}
