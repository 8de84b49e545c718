package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/storefront/store-api/internal/api/middleware"
	"github.com/storefront/store-api/internal/core/apperr"
	"github.com/storefront/store-api/internal/core/domain"
)

// currentUser returns the identity attached by middleware.Authenticate. A
// missing identity means the route was registered without the guard; the
// request is refused rather than served anonymously.
func currentUser(c echo.Context) (domain.PublicUser, error) {
	u, ok := middleware.UserFrom(c)
	if !ok || u.ID == "" {
		return domain.PublicUser{}, apperr.Unauthenticatedf("not authenticated")
	}
	return u, nil
}

func clientMeta(c echo.Context) (ip, userAgent string) {
	return c.RealIP(), c.Request().UserAgent()
}
