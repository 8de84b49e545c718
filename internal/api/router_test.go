package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/storefront/store-api/internal/core/domain"
	"github.com/storefront/store-api/internal/core/ports"
	"github.com/storefront/store-api/internal/core/service"
	"github.com/storefront/store-api/internal/infrastructure/security"
)

// ---------------------------------------------------------------------------
// In-memory repositories
// ---------------------------------------------------------------------------

type memUsers struct {
	mu   sync.Mutex
	byID map[string]*domain.User
	seq  int
}

func newMemUsers() *memUsers { return &memUsers{byID: map[string]*domain.User{}} }

func (r *memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (r *memUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.FindByEmail(ctx, email)
	return err == nil, nil
}

func (r *memUsers) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return nil, domain.ErrDuplicateEmail
		}
	}
	r.seq++
	c := *u
	c.ID = fmt.Sprintf("%024x", r.seq)
	r.byID[c.ID] = &c
	out := c
	return &out, nil
}

func (r *memUsers) Update(_ context.Context, id string, up domain.UserUpdate) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if up.Email != nil {
		u.Email = *up.Email
	}
	if up.Name != nil {
		u.Name = *up.Name
	}
	if up.FirstName != nil {
		u.FirstName = *up.FirstName
	}
	if up.LastName != nil {
		u.LastName = *up.LastName
	}
	if up.Role != nil {
		u.Role = *up.Role
	}
	if up.Active != nil {
		u.Active = *up.Active
	}
	c := *u
	return &c, nil
}

func (r *memUsers) UpdatePassword(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *memUsers) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *memUsers) List(_ context.Context, page ports.Page) ([]*domain.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]*domain.User, 0, len(r.byID))
	for _, u := range r.byID {
		c := *u
		all = append(all, &c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := int64(len(all))
	start := int(page.Skip())
	if start > len(all) {
		start = len(all)
	}
	end := start + page.Limit
	if page.Limit == 0 || end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

type memCategories struct {
	mu   sync.Mutex
	byID map[string]*domain.Category
	seq  int
}

func newMemCategories() *memCategories { return &memCategories{byID: map[string]*domain.Category{}} }

func (r *memCategories) List(context.Context) ([]*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Category, 0, len(r.byID))
	for _, c := range r.byID {
		cc := *c
		out = append(out, &cc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memCategories) FindByID(_ context.Context, id string) (*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrCategoryNotFound
	}
	cc := *c
	return &cc, nil
}

func (r *memCategories) ExistsByName(_ context.Context, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.byID {
		if strings.EqualFold(c.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memCategories) Create(_ context.Context, c *domain.Category) (*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	cc := *c
	cc.ID = fmt.Sprintf("c%023x", r.seq)
	r.byID[cc.ID] = &cc
	out := cc
	return &out, nil
}

func (r *memCategories) Update(_ context.Context, id string, up domain.CategoryUpdate) (*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrCategoryNotFound
	}
	if up.Name != nil {
		c.Name = *up.Name
	}
	if up.Description != nil {
		c.Description = *up.Description
	}
	cc := *c
	return &cc, nil
}

func (r *memCategories) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErrCategoryNotFound
	}
	delete(r.byID, id)
	return nil
}

// emptyProducts is a product store that never holds anything.
type emptyProducts struct{}

func (emptyProducts) List(context.Context, ports.ProductFilter) ([]*domain.Product, int64, error) {
	return nil, 0, nil
}
func (emptyProducts) FindByID(context.Context, string) (*domain.Product, error) {
	return nil, domain.ErrProductNotFound
}
func (emptyProducts) CountByCategory(context.Context, string) (int64, error) { return 0, nil }
func (emptyProducts) Create(_ context.Context, p *domain.Product) (*domain.Product, error) {
	return p, nil
}
func (emptyProducts) Update(context.Context, string, domain.ProductUpdate) (*domain.Product, error) {
	return nil, domain.ErrProductNotFound
}
func (emptyProducts) Delete(context.Context, string) error { return domain.ErrProductNotFound }

// ---------------------------------------------------------------------------
// Harness
// ---------------------------------------------------------------------------

type testServer struct {
	e      *echo.Echo
	users  *memUsers
	hasher *security.BcryptHasher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zerolog.Nop()

	hasher, err := security.NewBcryptHasher(4)
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	tokens, err := security.NewJWTService(strings.Repeat("k", 32), time.Hour, "store-api-test")
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}

	users := newMemUsers()
	categories := newMemCategories()
	products := emptyProducts{}
	policy := service.DefaultPasswordPolicy()

	registry := prometheus.NewRegistry()
	e := NewRouter(Services{
		Tokens:     tokens,
		Users:      users,
		Auth:       service.NewAuthService(users, hasher, tokens, policy, log),
		Accounts:   service.NewUserService(users, hasher, policy, log),
		Categories: service.NewCategoryService(categories, products, log),
		Products:   service.NewProductService(products, categories, log),
	}, Options{
		APIPrefix:         "/api",
		CORSOrigins:       []string{"*"},
		RateLimitRPS:      1000,
		RateLimitBurst:    1000,
		ExposeErrorDetail: true,
		Registerer:        registry,
		Gatherer:          registry,
	}, log)

	return &testServer{e: e, users: users, hasher: hasher}
}

// seedAdmin stores an admin account directly; there is no HTTP path that
// grants the role on creation.
func (s *testServer) seedAdmin(t *testing.T, email, password string) {
	t.Helper()
	hash, err := s.hasher.Hash(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	now := time.Now().UTC()
	if _, err := s.users.Create(context.Background(), &domain.User{
		Email:        email,
		PasswordHash: hash,
		Name:         "Admin",
		Role:         domain.RoleAdmin,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
}

func (s *testServer) do(method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return out
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := s.do(http.MethodPost, "/api/auth/login", fmt.Sprintf(`{"email":%q,"password":%q}`, email, password), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d: %s", email, rec.Code, rec.Body.String())
	}
	token, _ := decode(t, rec)["token"].(string)
	if token == "" {
		t.Fatalf("login %s: empty token", email)
	}
	return token
}

// ---------------------------------------------------------------------------
// Scenarios
// ---------------------------------------------------------------------------

func TestRouter_RegisterLoginAndRoleGate(t *testing.T) {
	s := newTestServer(t)

	// register
	rec := s.do(http.MethodPost, "/api/auth/register", `{"email":"a@x.com","password":"Passw0rd1","name":"Ann"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	user, ok := body["user"].(map[string]any)
	if !ok {
		t.Fatalf("register: missing user: %v", body)
	}
	if user["role"] != string(domain.RoleUser) || user["email"] != "a@x.com" {
		t.Fatalf("register: unexpected user %v", user)
	}
	if strings.Contains(strings.ToLower(rec.Body.String()), "password") {
		t.Fatalf("register: response leaks password material: %s", rec.Body.String())
	}
	if tok, _ := body["token"].(string); tok == "" {
		t.Fatalf("register: expected token")
	}

	// duplicate
	rec = s.do(http.MethodPost, "/api/auth/register", `{"email":"A@X.com","password":"Passw0rd1","name":"Ann"}`, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate: expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	if decode(t, rec)["status"] != "fail" {
		t.Fatalf("duplicate: expected fail status")
	}

	// login
	token := s.login(t, "a@x.com", "Passw0rd1")

	// wrong password and unknown account look the same
	wrong := s.do(http.MethodPost, "/api/auth/login", `{"email":"a@x.com","password":"nope"}`, "")
	unknown := s.do(http.MethodPost, "/api/auth/login", `{"email":"ghost@x.com","password":"nope"}`, "")
	for name, rec := range map[string]*httptest.ResponseRecorder{"wrong password": wrong, "unknown email": unknown} {
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, rec.Code)
		}
		if msg := decode(t, rec)["message"]; msg != "Invalid email or password" {
			t.Fatalf("%s: unexpected message %v", name, msg)
		}
	}

	// me
	rec = s.do(http.MethodGet, "/api/auth/me", "", token)
	if rec.Code != http.StatusOK || decode(t, rec)["email"] != "a@x.com" {
		t.Fatalf("me: unexpected %d %s", rec.Code, rec.Body.String())
	}

	// admin endpoint with a user token
	rec = s.do(http.MethodGet, "/api/users", "", token)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("user token on admin route: expected 403, got %d", rec.Code)
	}
	if msg := decode(t, rec)["message"]; msg != "you do not have permission to perform this action" {
		t.Fatalf("unexpected forbidden message %v", msg)
	}

	// admin endpoint without a token
	rec = s.do(http.MethodGet, "/api/users", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token on admin route: expected 401, got %d", rec.Code)
	}

	// garbage token
	rec = s.do(http.MethodGet, "/api/users/profile", "", "not-a-jwt")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: expected 401, got %d", rec.Code)
	}
}

func TestRouter_AdminManagesUsers(t *testing.T) {
	s := newTestServer(t)
	s.seedAdmin(t, "root@x.com", "Adm1nPass")

	rec := s.do(http.MethodPost, "/api/auth/register", `{"email":"b@x.com","password":"Passw0rd1","name":"Bea"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}
	userID, _ := decode(t, rec)["user"].(map[string]any)["id"].(string)
	userToken := s.login(t, "b@x.com", "Passw0rd1")
	adminToken := s.login(t, "root@x.com", "Adm1nPass")

	rec = s.do(http.MethodGet, "/api/users?page=1&limit=10", "", adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	list := decode(t, rec)
	if list["status"] != "success" || list["results"] != float64(2) {
		t.Fatalf("list: unexpected envelope %v", list)
	}

	// deactivate the user; their token stops working
	rec = s.do(http.MethodPut, "/api/users/"+userID, `{"active":false}`, adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("deactivate: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = s.do(http.MethodGet, "/api/users/profile", "", userToken)
	if rec.Code != http.StatusUnauthorized || decode(t, rec)["message"] != "account deactivated" {
		t.Fatalf("deactivated token: unexpected %d %s", rec.Code, rec.Body.String())
	}

	// delete; the token now names a missing account
	rec = s.do(http.MethodDelete, "/api/users/"+userID, "", adminToken)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
	rec = s.do(http.MethodGet, "/api/users/profile", "", userToken)
	if rec.Code != http.StatusUnauthorized || decode(t, rec)["message"] != "user not found" {
		t.Fatalf("deleted token: unexpected %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_ValidationEnvelope(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/auth/register", `{"email":"nope","password":""}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["status"] != "fail" {
		t.Fatalf("expected fail status, got %v", body["status"])
	}
	errs, ok := body["errors"].([]any)
	if !ok || len(errs) != 2 {
		t.Fatalf("expected two field errors, got %v", body["errors"])
	}
}

func TestRouter_CatalogWritesNeedAdmin(t *testing.T) {
	s := newTestServer(t)
	s.seedAdmin(t, "root@x.com", "Adm1nPass")
	adminToken := s.login(t, "root@x.com", "Adm1nPass")

	rec := s.do(http.MethodPost, "/api/categories", `{"name":"Books"}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous create: expected 401, got %d", rec.Code)
	}

	rec = s.do(http.MethodPost, "/api/categories", `{"name":"Books"}`, adminToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(http.MethodPost, "/api/categories", `{"name":"books"}`, adminToken)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate category: expected 409, got %d", rec.Code)
	}

	rec = s.do(http.MethodGet, "/api/categories", "", "")
	if rec.Code != http.StatusOK || decode(t, rec)["results"] != float64(1) {
		t.Fatalf("public list: unexpected %d %s", rec.Code, rec.Body.String())
	}

	rec = s.do(http.MethodGet, "/api/products?limit=500", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("oversized limit: expected 400, got %d", rec.Code)
	}
}

func TestRouter_HugePageIsRejected(t *testing.T) {
	s := newTestServer(t)
	s.seedAdmin(t, "root@x.com", "Adm1nPass")
	adminToken := s.login(t, "root@x.com", "Adm1nPass")

	for _, path := range []string{
		"/api/users?page=1844674407370955161&limit=10",
		"/api/products?page=1844674407370955161&limit=10",
	} {
		rec := s.do(http.MethodGet, path, "", adminToken)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d: %s", path, rec.Code, rec.Body.String())
		}
		body := decode(t, rec)
		errs, _ := body["errors"].([]any)
		if body["status"] != "fail" || len(errs) != 1 {
			t.Fatalf("%s: unexpected body %v", path, body)
		}
		if field, _ := errs[0].(map[string]any)["field"].(string); field != "page" {
			t.Fatalf("%s: expected page field error, got %v", path, errs)
		}
	}
}

func TestRouter_UnmatchedUserPathIsNotFound(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/users/abc/orders", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(http.MethodGet, "/api/users/profile", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("profile without token: expected 401, got %d", rec.Code)
	}
}

func TestRouter_UnknownRouteUsesEnvelope(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/nowhere", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if body := decode(t, rec); body["status"] != "fail" || body["message"] == "" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	if rec := s.do(http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("liveness: expected 200, got %d", rec.Code)
	}
	if rec := s.do(http.MethodGet, "/health/ready", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("readiness without dependencies: expected 200, got %d", rec.Code)
	}

	s.do(http.MethodGet, "/api/categories", "", "")
	rec := s.do(http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "store_requests_total") {
		t.Fatalf("metrics: unexpected %d", rec.Code)
	}
}

func TestAuthRateLimiter(t *testing.T) {
	tests := []struct {
		name     string
		rps      float64
		burst    int
		wantLast int
	}{
		{"burst exhausted", 0.001, 1, http.StatusTooManyRequests},
		{"disabled", 0, 1, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.HTTPErrorHandler = NewHTTPErrorHandler(zerolog.Nop(), false)
			e.POST("/login", func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			}, authRateLimiter(tt.rps, tt.burst))

			var rec *httptest.ResponseRecorder
			for i := 0; i < 3; i++ {
				rec = httptest.NewRecorder()
				e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
			}
			if rec.Code != tt.wantLast {
				t.Fatalf("expected %d, got %d", tt.wantLast, rec.Code)
			}
			if tt.wantLast == http.StatusTooManyRequests {
				body := decode(t, rec)
				if body["message"] != "too many requests, please try again later" {
					t.Fatalf("unexpected body %v", body)
				}
			}
		})
	}
}
