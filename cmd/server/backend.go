package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/and161185/rollbook/internal/config"
	"github.com/and161185/rollbook/internal/limiter"
	"github.com/and161185/rollbook/internal/migrate"
	"github.com/and161185/rollbook/internal/store"
	"github.com/and161185/rollbook/internal/store/postgres"
	redisstore "github.com/and161185/rollbook/internal/store/redis"
)

// backend pairs a store with a limiter living on the same substrate.
type backend struct {
	store   store.Store
	limiter limiter.Limiter
	closers []func()
}

func (b *backend) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}

func openBackend(ctx context.Context, cfg config.App, log *zap.Logger) (*backend, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return &backend{store: store.NewMemory(cfg.QuotaBytes), limiter: limiter.NewMemory(cfg.Login)}, nil

	case config.BackendFile:
		fs, err := store.NewFile(cfg.DataDir, cfg.QuotaBytes)
		if err != nil {
			return nil, err
		}
		log.Info("file store", zap.String("dir", fs.Dir()))
		return &backend{store: fs, limiter: limiter.NewMemory(cfg.Login)}, nil

	case config.BackendRedis:
		rs := redisstore.Dial(cfg.RedisAddr, cfg.RedisPrefix)
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return nil, err
		}
		return &backend{
			store:   rs,
			limiter: limiter.NewRedis(rs.Client(), cfg.RedisPrefix, cfg.Login),
			closers: []func(){func() { _ = rs.Close() }},
		}, nil

	case config.BackendPostgres:
		if err := migrate.Up(ctx, cfg.DatabaseURL, log); err != nil {
			return nil, fmt.Errorf("migrate up: %w", err)
		}
		db, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &backend{
			store:   postgres.NewKV(db),
			limiter: limiter.NewPG(db.Pool, cfg.Login),
			closers: []func(){db.Close},
		}, nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.StoreBackend)
}
