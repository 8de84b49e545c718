package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/storefront/store-api/internal/config"
	storemongo "github.com/storefront/store-api/internal/infrastructure/db/mongo"
	storeredis "github.com/storefront/store-api/internal/infrastructure/db/redis"
	"github.com/storefront/store-api/pkg/logger"
)

const (
	serviceName    = "store-api"
	connectTimeout = 10 * time.Second
)

// setup loads the configuration and initialises the process logger.
func setup(ctx context.Context) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, zerolog.Nop(), oops.Code("CONFIG_INVALID").With("operation", "load config").Wrap(err)
	}
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Pretty(),
		Service: serviceName,
	})
	return cfg, log, nil
}

func connectMongo(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*mongo.Client, *mongo.Database, error) {
	client, db, err := storemongo.Connect(ctx, storemongo.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Timeout:  connectTimeout,
		Retries:  cfg.Mongo.ConnectRetries,
	}, log)
	if err != nil {
		return nil, nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to mongodb").Wrap(err)
	}
	log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongodb")
	return client, db, nil
}

func connectRedis(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*redis.Client, error) {
	rdb, err := storeredis.Connect(ctx, storeredis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Timeout:  connectTimeout,
		Retries:  cfg.Redis.ConnectRetries,
	}, log)
	if err != nil {
		return nil, oops.Code("REDIS_CONNECT_FAILED").With("operation", "connect to redis").Wrap(err)
	}
	log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to redis")
	return rdb, nil
}

func disconnectMongo(client *mongo.Client, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		log.Warn().Err(err).Msg("mongodb disconnect failed")
	}
}
