package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sagarc03/cannedreports"
)

// quoteIdentifier safely quotes a SQLite identifier
func quoteIdentifier(name string) string {
	return `"` + name + `"`
}

type TableMigration struct {
	TableName string
	Up        func(ctx context.Context, db *sql.DB) error
	Down      func(ctx context.Context, db *sql.DB) error
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
func Migrate(ctx context.Context, db *sql.DB, tables cannedreports.Tables) error {
	for _, migration := range getTableMigrations(tables) {
		if err := migration.Up(ctx, db); err != nil {
			return fmt.Errorf("migrate up %s: %w", migration.TableName, err)
		}
	}

	return nil
}

// DropTables removes the tables in reverse migration order.
func DropTables(ctx context.Context, db *sql.DB, tables cannedreports.Tables) error {
	migrations := getTableMigrations(tables)

	for i := len(migrations) - 1; i >= 0; i-- {
		migration := migrations[i]
		if err := migration.Down(ctx, db); err != nil {
			return fmt.Errorf("migrate down %s: %w", migration.TableName, err)
		}
	}

	return nil
}

func createReportsTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		quotedTable := quoteIdentifier(tableName)
		indexKeySeq := quoteIdentifier(fmt.Sprintf("idx_%s_key_seq", tableName))
		indexDeletedAt := quoteIdentifier(fmt.Sprintf("idx_%s_deleted_at", tableName))

		createTableSQL := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				version_id TEXT NOT NULL PRIMARY KEY,
				report_key TEXT NOT NULL,
				seq INTEGER NOT NULL,
				content_type TEXT NOT NULL,
				content_length INTEGER NOT NULL,
				user_metadata TEXT NOT NULL,
				content BLOB NOT NULL,
				created_at TEXT NOT NULL,
				deleted_at TEXT
			)
		`, quotedTable)

		if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
			return fmt.Errorf("create table: %w", err)
		}

		indexSQL := fmt.Sprintf(`
			CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (report_key, seq)
		`, indexKeySeq, quotedTable)

		if _, err := db.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("create index key_seq: %w", err)
		}

		indexSQL = fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s ON %s (deleted_at)
		`, indexDeletedAt, quotedTable)

		if _, err := db.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("create index deleted_at: %w", err)
		}

		return nil
	}
}

func dropTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		quotedTable := quoteIdentifier(tableName)
		dropSQL := fmt.Sprintf("DROP TABLE IF EXISTS %s", quotedTable)

		_, err := db.ExecContext(ctx, dropSQL)
		return err
	}
}
