package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"inspection-platform/internal/config"
	"inspection-platform/internal/datasource"
	"inspection-platform/pkg/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var errPostgresRequired = errors.New("DATA_SOURCE=postgres is required for this command")

// loadSnapshot reads the working set from --fixture when given, otherwise from
// the data source named by the environment.
func loadSnapshot(ctx context.Context, f *rootFlags) (datasource.Snapshot, error) {
	if f.fixture != "" {
		return datasource.NewFixtureSource(f.fixture).FetchAll(ctx)
	}
	cfg, err := config.Load()
	if err != nil {
		return datasource.Snapshot{}, err
	}
	if cfg.Data.Source != config.DataSourcePostgres {
		return datasource.NewFixtureSource(cfg.Data.FixturePath).FetchAll(ctx)
	}
	db, err := openDB(ctx, cfg)
	if err != nil {
		return datasource.Snapshot{}, err
	}
	defer db.Close()
	return datasource.NewPostgres(db).FetchAll(ctx)
}

func openDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if cfg.Data.Source != config.DataSourcePostgres {
		return nil, errPostgresRequired
	}
	db, err := utils.OpenPostgres(ctx, utils.DefaultPostgresDriver, cfg.PostgresDSN(), utils.PostgresPoolConfig{MaxOpenConns: 4})
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	return db, nil
}

// connectDB loads config from the environment and opens Postgres.
func connectDB(ctx context.Context) (*sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return openDB(ctx, cfg)
}
