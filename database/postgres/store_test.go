package postgres_test

import (
	"context"
	"strings"
	"testing"

	"github.com/sagarc03/cannedreports"
	"github.com/sagarc03/cannedreports/database/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect(t *testing.T) {
	pool := getSharedTestDatabase(t)
	ctx := context.Background()

	db, err := postgres.Connect(ctx, getDSN(pool), cannedreports.Tables{Reports: "reports"})
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	assert.NoError(t, db.Ping(ctx), "ping should succeed after connect")
}

func TestConnect_InvalidTable(t *testing.T) {
	_, err := postgres.Connect(context.Background(), "postgres://localhost/none", cannedreports.Tables{Reports: "Bad-Name"})
	assert.Error(t, err)
}

func TestMigrate_DropTables(t *testing.T) {
	pool, cleanup := getIsolatedTestDatabase(t)
	defer cleanup()
	defer pool.Close()
	ctx := context.Background()

	tables := cannedreports.Tables{Reports: "reports"}

	require.NoError(t, postgres.Migrate(ctx, pool, tables))
	require.NoError(t, postgres.Migrate(ctx, pool, tables), "migrate is idempotent")
	require.NoError(t, postgres.ValidateSchema(ctx, pool, tables))

	require.NoError(t, postgres.DropTables(ctx, pool, tables))
	assert.ErrorContains(t, postgres.ValidateSchema(ctx, pool, tables), "does not exist")
}

func TestStore_EnsureCollection(t *testing.T) {
	pool := getSharedTestDatabase(t)
	ctx := context.Background()

	tableName := "ensure_" + getRandomString(t)
	defer func() { _ = dropTable(ctx, pool, tableName) }()

	store, err := postgres.NewStore(pool, cannedreports.Tables{Reports: tableName})
	require.NoError(t, err)

	require.NoError(t, store.EnsureCollection(ctx))
	require.NoError(t, store.EnsureCollection(ctx))
	assert.NoError(t, store.Ping(ctx))
}

func TestStore_PutAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first := put(t, store, "r1", "one")
	second := put(t, store, "r1", "two!")
	assert.NotEqual(t, first.VersionID, second.VersionID)

	meta, err := store.GetObjectMetadata(ctx, "r1", "")
	require.NoError(t, err)
	assert.Equal(t, int64(4), meta.ContentLength)
	assert.Equal(t, "r1", meta.Name())

	obj, err := store.GetObject(ctx, "r1", first.VersionID)
	require.NoError(t, err)
	assert.Equal(t, first.VersionID, obj.VersionID)
	assert.Equal(t, "one", readObject(t, obj))
}

func TestStore_NotFound(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.GetObjectMetadata(ctx, "missing", "")
	assert.ErrorIs(t, err, cannedreports.ErrNotFound)

	put(t, store, "r1", "x")
	_, err = store.GetObject(ctx, "r1", "not-a-uuid")
	assert.ErrorIs(t, err, cannedreports.ErrNotFound)

	assert.ErrorIs(t, store.DeleteObject(ctx, "r1", "not-a-uuid"), cannedreports.ErrNotFound)
	assert.ErrorIs(t, store.DeleteObject(ctx, "missing", ""), cannedreports.ErrNotFound)
}

func TestStore_VersionsAndDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	a := put(t, store, "r1", "a")
	b := put(t, store, "r1", "b")
	c := put(t, store, "r1", "c")
	put(t, store, "r2", "other")

	versions, err := store.ListVersions(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{a.VersionID, b.VersionID, c.VersionID}, versions)

	require.NoError(t, store.DeleteObject(ctx, "r1", b.VersionID))
	versions, err = store.ListVersions(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{a.VersionID, c.VersionID}, versions)

	require.NoError(t, store.DeleteObject(ctx, "r1", ""))
	_, err = store.GetObjectMetadata(ctx, "r1", "")
	assert.ErrorIs(t, err, cannedreports.ErrNotFound)

	purged, err := store.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, purged)
}

func TestStore_ListKeys(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	put(t, store, "b", "1")
	put(t, store, "a", "22")
	_, err := store.PutObject(ctx, "a", strings.NewReader("333"), cannedreports.ObjectMetadata{
		ContentType: "text/csv",
		User:        map[string]string{cannedreports.MetaKeyName: "Renamed"},
	})
	require.NoError(t, err)

	keys, err := store.ListKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, "a", keys[0].Key)
	assert.Equal(t, "Renamed", keys[0].Metadata.Name())
	assert.Equal(t, int64(3), keys[0].Metadata.ContentLength)
	assert.Equal(t, "b", keys[1].Key)
}
