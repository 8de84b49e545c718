package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/storefront/store-api/internal/api"
	"github.com/storefront/store-api/internal/api/handler"
	"github.com/storefront/store-api/internal/core/service"
	storemongo "github.com/storefront/store-api/internal/infrastructure/db/mongo"
	storeredis "github.com/storefront/store-api/internal/infrastructure/db/redis"
	"github.com/storefront/store-api/internal/infrastructure/queue"
	"github.com/storefront/store-api/internal/infrastructure/security"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Connect to MongoDB and Redis, ensure indexes and serve the REST API
until SIGINT or SIGTERM, then drain in-flight requests and audit events.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, err := setup(ctx)
	if err != nil {
		return err
	}

	secret, generated, err := cfg.SigningSecret()
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("operation", "resolve signing secret").Wrap(err)
	}
	if generated {
		log.Warn().Msg("JWT_SECRET not set; using a random secret, tokens will not survive a restart")
	}

	client, db, err := connectMongo(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer disconnectMongo(client, log)

	if err := storemongo.EnsureIndexes(ctx, db); err != nil {
		return oops.Code("INDEXES_FAILED").With("operation", "ensure indexes").Wrap(err)
	}

	rdb, err := connectRedis(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()

	// --- Security ---
	hasher, err := security.NewBcryptHasher(cfg.Password.BcryptCost)
	if err != nil {
		return oops.Code("SETUP_FAILED").With("operation", "create hasher").Wrap(err)
	}
	tokens, err := security.NewJWTService(secret, cfg.JWT.ExpiresIn, cfg.JWT.Issuer)
	if err != nil {
		return oops.Code("SETUP_FAILED").With("operation", "create token service").Wrap(err)
	}

	// --- Repositories ---
	users := storemongo.NewUserRepository(db)
	categories := storemongo.NewCategoryRepository(db)
	products := storemongo.NewProductRepository(db)
	audit := storemongo.NewAuditRepository(db)

	// --- Audit trail ---
	dispatcher := queue.NewDispatcher(cfg.Limits.AuditWorkers, service.NewAuditService(audit, log), log)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	// --- Services ---
	policy := service.PasswordPolicy{
		MinLength:     cfg.Password.MinLength,
		RequireDigit:  cfg.Password.RequireDigit,
		RequireUpper:  cfg.Password.RequireUpper,
		RequireLower:  cfg.Password.RequireLower,
		RequireSymbol: cfg.Password.RequireSymbol,
	}
	throttle := storeredis.NewLoginThrottle(rdb, cfg.Limits.LoginMaxFailures, cfg.Limits.LoginFailureWindow)
	authService := service.NewAuthService(users, hasher, tokens, policy, log).
		WithThrottle(throttle).
		WithAudit(dispatcher)
	userService := service.NewUserService(users, hasher, policy, log).WithAudit(dispatcher)

	e := api.NewRouter(api.Services{
		Tokens:     tokens,
		Users:      users,
		Auth:       authService,
		Accounts:   userService,
		Categories: service.NewCategoryService(categories, products, log),
		Products:   service.NewProductService(products, categories, log),
		Health: []handler.Dependency{
			{Name: "mongodb", Ping: func(ctx context.Context) error { return storemongo.Ping(ctx, client) }},
			{Name: "redis", Ping: func(ctx context.Context) error { return storeredis.Ping(ctx, rdb) }},
		},
	}, api.OptionsFromConfig(cfg), log)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return oops.Code("SERVER_FAILED").With("port", cfg.Port).Wrap(err)
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown failed")
	}
	log.Info().Msg("http server stopped")
	return nil
}
