package main

import (
	"context"
	"fmt"
	"log/slog"

	"inspection-platform/internal/config"
	"inspection-platform/internal/datasource"
	"inspection-platform/internal/lifecycle"
	"inspection-platform/internal/locks"
	"inspection-platform/pkg/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// buildEngine wires the data source, durable store and lock backend chosen by cfg.
// The returned func closes whatever connections were opened.
func buildEngine(ctx context.Context, cfg config.Config, log *slog.Logger) (*lifecycle.Engine, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := lifecycle.Deps{Logger: log}

	switch cfg.Data.Source {
	case config.DataSourcePostgres:
		db, err := utils.OpenPostgres(ctx, utils.DefaultPostgresDriver, cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			return nil, closeAll, fmt.Errorf("postgres: %w", err)
		}
		closers = append(closers, func() { _ = db.Close() })
		pg := datasource.NewPostgres(db)
		deps.Source, deps.Store = pg, pg
	default:
		deps.Source = datasource.NewFixtureSource(cfg.Data.FixturePath)
		deps.Store = datasource.NewMemoryStore()
	}

	switch cfg.Lock.Backend {
	case config.LockBackendRedis:
		rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("redis: %w", err)
		}
		closers = append(closers, func() { _ = rdb.Close() })
		rl, err := locks.NewRedis(rdb, cfg.Lock.TTL, locks.WithLogger(log))
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		deps.Locker = rl
	default:
		deps.Locker = locks.NewLocal()
	}

	engine := lifecycle.New(deps, lifecycle.Options{
		LockWait:    cfg.Lock.Wait,
		LockBackend: cfg.Lock.Backend,
	})
	return engine, closeAll, nil
}
