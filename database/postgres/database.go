package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/cannedreports"
)

// DB provides PostgreSQL database operations.
type DB struct {
	pool   *pgxpool.Pool
	tables cannedreports.Tables
}

// Connect establishes a connection pool to PostgreSQL.
func Connect(ctx context.Context, dsn string, tables cannedreports.Tables) (*DB, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return &DB{
		pool:   pool,
		tables: tables,
	}, nil
}

// Ping verifies the database connection is alive.
func (d *DB) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

// Migrate runs database migrations to create required tables.
func (d *DB) Migrate(ctx context.Context) error {
	if err := Migrate(ctx, d.pool, d.tables); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Validate checks that the database schema matches expected structure.
func (d *DB) Validate(ctx context.Context) error {
	return ValidateSchema(ctx, d.pool, d.tables)
}

// Store returns the report store backed by this pool.
func (d *DB) Store() *Store {
	return &Store{pool: d.pool, tables: d.tables}
}

// Close closes the database connection pool.
func (d *DB) Close() error {
	d.pool.Close()
	return nil
}
