package database

import (
	"context"
	"fmt"

	"github.com/sagarc03/cannedreports"
	"github.com/sagarc03/cannedreports/database/postgres"
	"github.com/sagarc03/cannedreports/database/sqlite"
)

// Config holds the configuration for connecting to a SQL report store.
type Config struct {
	// Type specifies the database type: "sqlite" or "postgres"
	Type string `mapstructure:"type"`
	// DSN is the data source name (connection string)
	DSN string `mapstructure:"dsn"`
	// Table is the name of the reports table
	Table string `mapstructure:"table"`
}

// Store is a SQL backed report store. Deletes are soft, so it can be purged.
type Store interface {
	cannedreports.ReportStore
	cannedreports.Purger
}

// backend is the lifecycle shared by the sqlite and postgres databases.
type backend[S Store] interface {
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Validate(ctx context.Context) error
	Store() S
	Close() error
}

// Connect establishes a connection to the configured database backend,
// runs migrations, validates the schema, and returns the store.
// The returned cleanup function should be called to close the connection.
func Connect(ctx context.Context, cfg Config) (Store, func(), error) {
	tables := cannedreports.Tables{Reports: cfg.Table}

	switch cannedreports.StoreType(cfg.Type) {
	case cannedreports.StoreSQLite:
		db, err := sqlite.Connect(ctx, cfg.DSN, tables)
		if err != nil {
			return nil, nil, err
		}
		return open[*sqlite.Store](ctx, "sqlite", db)
	case cannedreports.StorePostgres:
		db, err := postgres.Connect(ctx, cfg.DSN, tables)
		if err != nil {
			return nil, nil, err
		}
		return open[*postgres.Store](ctx, "postgres", db)
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}

func open[S Store](ctx context.Context, name string, db backend[S]) (Store, func(), error) {
	if err := db.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping %s: %w", name, err)
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate %s: %w", name, err)
	}

	if err := db.Validate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("validate %s schema: %w", name, err)
	}

	cleanup := func() {
		_ = db.Close()
	}

	return db.Store(), cleanup, nil
}
