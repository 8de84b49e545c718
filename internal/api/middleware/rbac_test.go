package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/storefront/store-api/internal/core/apperr"
	"github.com/storefront/store-api/internal/core/domain"
	"github.com/storefront/store-api/internal/core/ports"
)

func portsSubject(u *domain.User) ports.TokenSubject {
	return ports.TokenSubject{UserID: u.ID, Email: u.Email, Role: u.Role}
}

func newContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAuthorize_Allows(t *testing.T) {
	c, rec := newContext()
	SetUser(c, domain.PublicUser{ID: "1", Role: domain.RoleAdmin})

	called := false
	handler := Authorize(domain.RoleAdmin)(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next handler not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthorize_AnyOfSeveralRoles(t *testing.T) {
	c, _ := newContext()
	SetUser(c, domain.PublicUser{ID: "1", Role: domain.RoleUser})

	err := Authorize(domain.RoleAdmin, domain.RoleUser)(func(c echo.Context) error { return nil })(c)
	if err != nil {
		t.Fatalf("expected user role to pass, got %v", err)
	}
}

func TestAuthorize_ForbidsOtherRole(t *testing.T) {
	c, _ := newContext()
	SetUser(c, domain.PublicUser{ID: "1", Role: domain.RoleUser})

	err := Authorize(domain.RoleAdmin)(func(c echo.Context) error {
		t.Fatalf("should not reach next handler")
		return nil
	})(c)

	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.Forbidden || ae.Kind.Status() != http.StatusForbidden {
		t.Fatalf("expected 403 Forbidden, got %v", err)
	}
	if ae.Message != "you do not have permission to perform this action" {
		t.Fatalf("unexpected message %q", ae.Message)
	}
}

func TestAuthorize_WithoutIdentity(t *testing.T) {
	c, _ := newContext()

	err := Authorize(domain.RoleAdmin)(func(c echo.Context) error {
		t.Fatalf("should not reach next handler")
		return nil
	})(c)

	if apperr.KindOf(err) != apperr.Unauthenticated {
		t.Fatalf("expected 401 Unauthenticated, got %v", err)
	}
}
