package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/plumehq/plume/internal/cache"
	"github.com/plumehq/plume/internal/config"
	"github.com/plumehq/plume/internal/database"
	"github.com/plumehq/plume/internal/httpapi"
	"github.com/plumehq/plume/internal/permalink"
	"github.com/plumehq/plume/internal/server"
	"github.com/plumehq/plume/internal/store"
	"github.com/plumehq/plume/pkg/logger"
)

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(cfg.Logger)

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	if err := database.Migrate(ctx, pool, cfg.Database.MigrationsTable, log); err != nil {
		pool.Close()
		return err
	}

	svcOpts := []permalink.Option{permalink.WithLogger(log)}
	srvOpts := []server.Option{
		server.WithLogger(log),
		server.WithShutdownHook(func(context.Context) error {
			pool.Close()
			return nil
		}),
	}
	apiOpts := []httpapi.Option{
		httpapi.WithLogger(log),
		httpapi.WithHealthcheck("postgres", database.Healthcheck(pool)),
	}

	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			pool.Close()
			return err
		}
		rdb := redis.NewClient(redisOpts)

		svcOpts = append(svcOpts, permalink.WithCache(
			cache.New[permalink.Post](rdb, "post", cfg.PostCacheTTL)))
		apiOpts = append(apiOpts, httpapi.WithHealthcheck("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}))
		srvOpts = append(srvOpts, server.WithShutdownHook(func(context.Context) error {
			return rdb.Close()
		}))
	}

	svc := permalink.New(store.New(pool), svcOpts...)
	router := httpapi.NewRouter(svc, httpapi.NewAuthenticator(cfg.JWTSecret), apiOpts...)

	return server.New(cfg.HTTP, srvOpts...).Run(ctx, router)
}
