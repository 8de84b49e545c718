package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	_ "github.com/storefront/store-api/docs"
	"github.com/storefront/store-api/internal/api/handler"
	"github.com/storefront/store-api/internal/api/middleware"
	"github.com/storefront/store-api/internal/config"
	"github.com/storefront/store-api/internal/core/apperr"
	"github.com/storefront/store-api/internal/core/domain"
	"github.com/storefront/store-api/internal/core/ports"
)

const (
	bodyLimit        = "1M"
	limiterExpiresIn = 3 * time.Minute
	metricsSubsystem = "store"
)

// Services are the collaborators the HTTP layer drives.
type Services struct {
	Tokens     ports.TokenVerifier
	Users      ports.UserReader
	Auth       ports.AuthService
	Accounts   ports.UserService
	Categories ports.CategoryService
	Products   ports.ProductService
	Health     []handler.Dependency
}

// Options tune the router. Zero Registerer/Gatherer mean the default
// Prometheus registry.
type Options struct {
	APIPrefix         string
	CORSOrigins       []string
	RateLimitRPS      float64
	RateLimitBurst    int
	ExposeErrorDetail bool
	Registerer        prometheus.Registerer
	Gatherer          prometheus.Gatherer
}

// OptionsFromConfig maps the service configuration onto router options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		APIPrefix:         cfg.APIPrefix,
		CORSOrigins:       cfg.CORSOrigins,
		RateLimitRPS:      cfg.Limits.RateLimitRPS,
		RateLimitBurst:    cfg.Limits.RateLimitBurst,
		ExposeErrorDetail: !cfg.IsProduction(),
	}
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(svc Services, opts Options, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log, opts.ExposeErrorDetail)

	registerer := opts.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: func() string { return ulid.Make().String() },
	}))
	e.Use(requestLogger(log))
	e.Use(echomiddleware.Secure())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: opts.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echomiddleware.BodyLimit(bodyLimit))
	e.Use(echomiddleware.GzipWithConfig(echomiddleware.GzipConfig{
		Skipper: func(c echo.Context) bool { return c.Path() == "/metrics" },
	}))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  metricsSubsystem,
		Registerer: registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/health" || c.Path() == "/health/ready"
		},
	}))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(svc.Auth)
	userHandler := handler.NewUserHandler(svc.Accounts)
	categoryHandler := handler.NewCategoryHandler(svc.Categories)
	productHandler := handler.NewProductHandler(svc.Products)
	healthHandler := handler.NewHealthHandler(svc.Health...)

	authn := middleware.Authenticate(svc.Tokens, svc.Users)
	adminOnly := middleware.Authorize(domain.RoleAdmin)
	limiter := authRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst)

	api := e.Group(opts.APIPrefix)

	// --- Auth routes ---
	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register, limiter)
	auth.POST("/login", authHandler.Login, limiter)
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/me", authHandler.Me, authn)

	// --- Users: own profile, then admin directory ---
	users := api.Group("/users")
	users.GET("/profile", userHandler.GetProfile, authn)
	users.PUT("/profile", userHandler.UpdateProfile, authn)
	users.PUT("/profile/password", userHandler.ChangePassword, authn)
	users.GET("", userHandler.List, authn, adminOnly)
	users.GET("/:id", userHandler.Get, authn, adminOnly)
	users.PUT("/:id", userHandler.Update, authn, adminOnly)
	users.DELETE("/:id", userHandler.Delete, authn, adminOnly)

	// --- Catalog: public reads, admin writes ---
	categories := api.Group("/categories")
	categories.GET("", categoryHandler.List)
	categories.GET("/:id", categoryHandler.Get)
	categories.POST("", categoryHandler.Create, authn, adminOnly)
	categories.PUT("/:id", categoryHandler.Update, authn, adminOnly)
	categories.DELETE("/:id", categoryHandler.Delete, authn, adminOnly)

	products := api.Group("/products")
	products.GET("", productHandler.List)
	products.GET("/:id", productHandler.Get)
	products.POST("", productHandler.Create, authn, adminOnly)
	products.PUT("/:id", productHandler.Update, authn, adminOnly)
	products.DELETE("/:id", productHandler.Delete, authn, adminOnly)

	// --- Health probes (no auth required) ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)

	// --- Operational endpoints ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// authRateLimiter caps requests per client IP on the credential endpoints.
// A non-positive rps disables the cap.
func authRateLimiter(rps float64, burst int) echo.MiddlewareFunc {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	store := echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
		Rate:      limit,
		Burst:     burst,
		ExpiresIn: limiterExpiresIn,
	})
	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return apperr.Wrap(apperr.Forbidden, err, "unable to identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return apperr.New(apperr.RateLimited, "too many requests, please try again later")
		},
	})
}

// requestLogger feeds echo's request logger into zerolog, picking the level
// from the response status.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogStatus:    true,
		LogMethod:    true,
		LogURI:       true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			var ev *zerolog.Event
			switch {
			case v.Status >= http.StatusInternalServerError:
				ev = log.Error().Err(v.Error)
			case v.Status >= http.StatusBadRequest:
				ev = log.Warn()
			default:
				ev = log.Info()
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
