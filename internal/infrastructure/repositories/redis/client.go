package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Options for the agent's draft-store connection.
type Options struct {
	Address  string
	Password string
	DB       int
	PoolSize int
}

// Connect opens a pooled client, verifies the connection and brings the
// draft-store schema up to date. The caller owns closing the client.
func Connect(ctx context.Context, opts Options, logger *zap.SugaredLogger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Address,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	if err := Migrate(ctx, client, logger); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis migration: %w", err)
	}

	logger.Infow("connected to redis draft store",
		"address", opts.Address,
		"db", opts.DB,
	)
	return client, nil
}
