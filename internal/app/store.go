// Package app wires configuration into the concrete stores and clients the
// binaries share.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/sudo-init-do/staybook/internal/config"
	"github.com/sudo-init-do/staybook/internal/db"
	"github.com/sudo-init-do/staybook/internal/store"
	"github.com/sudo-init-do/staybook/internal/store/memory"
	"github.com/sudo-init-do/staybook/internal/store/postgres"
)

// OpenStore returns the store selected by STORE_DRIVER and a close func.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Server.StoreDriver {
	case "memory":
		log.Warn().Msg("using in-memory store; data is lost on restart")
		return memory.New(), func() {}, nil
	case "postgres":
		pool, err := db.Connect(ctx, cfg.Database.DSN(), 30*time.Second)
		if err != nil {
			return nil, nil, err
		}
		if err := db.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return postgres.New(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Server.StoreDriver)
	}
}

// RequireSharedStore rejects drivers whose data is private to one process.
// The memory store lives inside the API, so a separate worker would only see
// an empty copy and drop every task as an unknown booking.
func RequireSharedStore(cfg *config.Config) error {
	if cfg.Server.StoreDriver == "memory" {
		return fmt.Errorf("store driver %q is not shared across processes; use postgres", cfg.Server.StoreDriver)
	}
	return nil
}

// RedisClient returns a go-redis client for the configured address.
func RedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// AsynqRedis returns the asynq connection options for the same Redis.
func AsynqRedis(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}
