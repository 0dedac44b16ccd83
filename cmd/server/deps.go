package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/and161185/gophpress/internal/config"
	"github.com/and161185/gophpress/internal/limiter"
	"github.com/and161185/gophpress/internal/migrate"
	"github.com/and161185/gophpress/internal/repository"
	"github.com/and161185/gophpress/internal/repository/memory"
	"github.com/and161185/gophpress/internal/repository/postgres"
)

// deps holds the storage side of the process and how to release it.
type deps struct {
	users   repository.UserRepository
	posts   repository.PostRepository
	limiter limiter.Limiter
	ping    func(context.Context) error
	closers []func()
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// buildDeps opens the configured store and limiter. Postgres is migrated before use.
func buildDeps(ctx context.Context, cfg *config.Config, log *zap.Logger) (*deps, error) {
	d := &deps{ping: func(context.Context) error { return nil }}

	var db *postgres.DB
	switch cfg.Store.Driver {
	case "memory":
		d.users, d.posts = memory.NewUserRepo(), memory.NewPostRepo()
		log.Warn("using in-memory store; data is lost on exit")
	default:
		if err := migrate.Up(ctx, cfg.Store.DSN, log); err != nil {
			return nil, fmt.Errorf("migrate up: %w", err)
		}
		var err error
		db, err = postgres.New(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		d.closers = append(d.closers, db.Close)
		d.users, d.posts = postgres.NewUserRepo(db), postgres.NewPostRepo(db)
		d.ping = db.Ping
	}

	lcfg := limiter.Config{Window: cfg.Limiter.Window, MaxFails: cfg.Limiter.MaxFails, BlockFor: cfg.Limiter.BlockFor}
	switch cfg.Limiter.Driver {
	case "postgres":
		d.limiter = limiter.NewPG(db.Pool, lcfg)
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			d.Close()
			return nil, fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
		}
		d.closers = append(d.closers, func() { _ = rdb.Close() })
		d.limiter = limiter.NewRedis(rdb, lcfg)
	default:
		d.limiter = limiter.Noop{}
	}
	log.Info("storage ready",
		zap.String("store", cfg.Store.Driver),
		zap.String("limiter", cfg.Limiter.Driver),
	)
	return d, nil
}
