package postgres_test

import (
	"context"
	"testing"

	"github.com/sagarc03/cannedreports"
	"github.com/sagarc03/cannedreports/database/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSchema(t *testing.T) {
	pool := getSharedTestDatabase(t)
	ctx := context.Background()

	t.Run("success - migrated table is valid", func(t *testing.T) {
		tables := cannedreports.Tables{Reports: getRandomString(t)}
		t.Cleanup(func() { _ = postgres.DropTables(ctx, pool, tables) })

		require.NoError(t, postgres.Migrate(ctx, pool, tables))
		assert.NoError(t, postgres.ValidateSchema(ctx, pool, tables))
	})

	t.Run("error - table does not exist", func(t *testing.T) {
		tables := cannedreports.Tables{Reports: getRandomString(t)}

		assert.Error(t, postgres.ValidateSchema(ctx, pool, tables))
	})

	t.Run("error - table has incomplete schema", func(t *testing.T) {
		name := getRandomString(t)
		t.Cleanup(func() { _ = dropTable(ctx, pool, name) })

		_, err := pool.Exec(ctx, `CREATE TABLE `+name+` (
			version_id UUID PRIMARY KEY,
			report_key TEXT NOT NULL
		)`)
		require.NoError(t, err)

		assert.Error(t, postgres.ValidateSchema(ctx, pool, cannedreports.Tables{Reports: name}))
	})

	t.Run("error - wrong column types", func(t *testing.T) {
		name := getRandomString(t)
		t.Cleanup(func() { _ = dropTable(ctx, pool, name) })

		_, err := pool.Exec(ctx, `CREATE TABLE `+name+` (
			version_id UUID PRIMARY KEY,
			report_key TEXT NOT NULL,
			seq BIGINT NOT NULL,
			content_type TEXT NOT NULL,
			content_length TEXT NOT NULL,
			user_metadata JSONB NOT NULL,
			content BYTEA NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			deleted_at TIMESTAMPTZ
		)`)
		require.NoError(t, err)

		assert.Error(t, postgres.ValidateSchema(ctx, pool, cannedreports.Tables{Reports: name}))
	})

	t.Run("error - wrong nullable constraints", func(t *testing.T) {
		name := getRandomString(t)
		t.Cleanup(func() { _ = dropTable(ctx, pool, name) })

		_, err := pool.Exec(ctx, `CREATE TABLE `+name+` (
			version_id UUID PRIMARY KEY,
			report_key TEXT,
			seq BIGINT NOT NULL,
			content_type TEXT NOT NULL,
			content_length BIGINT NOT NULL,
			user_metadata JSONB NOT NULL,
			content BYTEA NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			deleted_at TIMESTAMPTZ
		)`)
		require.NoError(t, err)

		assert.Error(t, postgres.ValidateSchema(ctx, pool, cannedreports.Tables{Reports: name}))
	})

	t.Run("success - extra columns are allowed", func(t *testing.T) {
		tables := cannedreports.Tables{Reports: getRandomString(t)}
		t.Cleanup(func() { _ = postgres.DropTables(ctx, pool, tables) })

		require.NoError(t, postgres.Migrate(ctx, pool, tables))
		_, err := pool.Exec(ctx, `ALTER TABLE `+tables.Reports+` ADD COLUMN owner TEXT`)
		require.NoError(t, err)

		assert.NoError(t, postgres.ValidateSchema(ctx, pool, tables))
	})

	t.Run("success - validates after migrate and drop cycle", func(t *testing.T) {
		tables := cannedreports.Tables{Reports: getRandomString(t)}
		t.Cleanup(func() { _ = postgres.DropTables(ctx, pool, tables) })

		require.NoError(t, postgres.Migrate(ctx, pool, tables))
		require.NoError(t, postgres.ValidateSchema(ctx, pool, tables))
		require.NoError(t, postgres.DropTables(ctx, pool, tables))
		require.NoError(t, postgres.Migrate(ctx, pool, tables))
		assert.NoError(t, postgres.ValidateSchema(ctx, pool, tables))
	})
}
