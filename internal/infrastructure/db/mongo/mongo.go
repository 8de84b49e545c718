package mongo

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	defaultTimeout = 10 * time.Second
	retryBase      = 500 * time.Millisecond
)

// Config captures the settings required to establish a MongoDB connection.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
	// Retries is the number of extra attempts after a failed connect or ping.
	Retries uint64
}

// Connect establishes a MongoDB client and verifies connectivity with a ping,
// retrying with exponential backoff. It returns both the client and the
// selected database.
func Connect(ctx context.Context, cfg Config, log zerolog.Logger) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var client *mongo.Client
	attempt := 0
	backoff := retry.WithMaxRetries(cfg.Retries, retry.NewExponential(retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		c, err := dial(ctx, cfg.URI, timeout)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("mongo not reachable")
			return retry.RetryableError(err)
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, nil, oops.In("mongo").With("database", cfg.Database).With("attempts", attempt).Wrapf(err, "connect")
	}

	return client, client.Database(cfg.Database), nil
}

func dial(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// Ping reports whether the primary is reachable. Used by the readiness probe.
func Ping(ctx context.Context, client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return client.Ping(ctx, readpref.Primary())
}
