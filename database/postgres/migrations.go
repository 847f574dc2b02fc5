package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/cannedreports"
)

type TableMigration struct {
	TableName string
	Up        func(ctx context.Context, pool *pgxpool.Pool) error
	Down      func(ctx context.Context, pool *pgxpool.Pool) error
}

func getTableMigrations(tables cannedreports.Tables) []TableMigration {
	return []TableMigration{
		{
			TableName: tables.Reports,
			Up:        createReportsTable(tables.Reports),
			Down:      dropTable(tables.Reports),
		},
	}
}

// Migrate creates the tables and indexes when missing.
func Migrate(ctx context.Context, pool *pgxpool.Pool, tables cannedreports.Tables) error {
	for _, migration := range getTableMigrations(tables) {
		if err := migration.Up(ctx, pool); err != nil {
			return fmt.Errorf("migrate up %s: %w", migration.TableName, err)
		}
	}
	return nil
}

// DropTables removes the tables in reverse migration order.
func DropTables(ctx context.Context, pool *pgxpool.Pool, tables cannedreports.Tables) error {
	migrations := getTableMigrations(tables)

	for i := len(migrations) - 1; i >= 0; i-- {
		migration := migrations[i]
		if err := migration.Down(ctx, pool); err != nil {
			return fmt.Errorf("migrate down %s: %w", migration.TableName, err)
		}
	}
	return nil
}

func createReportsTable(tableName string) func(context.Context, *pgxpool.Pool) error {
	return func(ctx context.Context, pool *pgxpool.Pool) error {
		quotedTable := pgx.Identifier{tableName}.Sanitize()
		indexKeySeq := pgx.Identifier{fmt.Sprintf("idx_%s_key_seq", tableName)}.Sanitize()
		indexDeleted := pgx.Identifier{fmt.Sprintf("idx_%s_deleted_at", tableName)}.Sanitize()

		sql := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				version_id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				report_key TEXT NOT NULL,
				seq BIGINT NOT NULL,
				content_type TEXT NOT NULL,
				content_length BIGINT NOT NULL,
				user_metadata JSONB NOT NULL,
				content BYTEA NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				deleted_at TIMESTAMPTZ
			);

			CREATE UNIQUE INDEX IF NOT EXISTS %s
			ON %s (report_key, seq);

			CREATE INDEX IF NOT EXISTS %s
			ON %s (deleted_at)
			WHERE (deleted_at IS NOT NULL);
		`,
			quotedTable,
			indexKeySeq, quotedTable,
			indexDeleted, quotedTable,
		)

		if _, err := pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("create reports table: %w", err)
		}
		return nil
	}
}

func dropTable(tableName string) func(context.Context, *pgxpool.Pool) error {
	return func(ctx context.Context, pool *pgxpool.Pool) error {
		sql := fmt.Sprintf("DROP TABLE IF EXISTS %s", pgx.Identifier{tableName}.Sanitize())
		_, err := pool.Exec(ctx, sql)
		return err
	}
}
