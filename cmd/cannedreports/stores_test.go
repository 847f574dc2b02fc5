package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/cannedreports"
	"github.com/sagarc03/cannedreports/config"
)

func testConfig(t *testing.T, storeType string) *config.Config {
	t.Helper()

	dir := t.TempDir()
	return &config.Config{
		Authorization: config.AuthorizationConfig{
			UserRole:    cannedreports.DefaultUserRole,
			ManagerRole: cannedreports.DefaultManagerRole,
		},
		Store: config.StoreConfig{
			Type:  storeType,
			Path:  filepath.Join(dir, "data"),
			DSN:   filepath.Join(dir, "reports.db"),
			Table: "canned_reports",
		},
	}
}

func TestOpenStore_Filesystem(t *testing.T) {
	cfg := testConfig(t, "filesystem")

	store, closeStore, err := openStore(context.Background(), cfg)
	require.NoError(t, err)
	defer closeStore()

	info, err := os.Stat(cfg.Store.Path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, isPurger := store.(cannedreports.Purger)
	assert.False(t, isPurger)
}

func TestOpenStore_SQLite(t *testing.T) {
	cfg := testConfig(t, "sqlite")
	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg)
	require.NoError(t, err)
	defer closeStore()

	require.NoError(t, store.EnsureCollection(ctx))
	_, isPurger := store.(cannedreports.Purger)
	assert.True(t, isPurger)
}

func TestOpenStore_Unsupported(t *testing.T) {
	cfg := testConfig(t, "tape")

	_, _, err := openStore(context.Background(), cfg)
	assert.ErrorContains(t, err, "unsupported store type")
}

func TestImportFile(t *testing.T) {
	cfg := testConfig(t, "filesystem")
	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg)
	require.NoError(t, err)
	defer closeStore()

	manager, err := newManager(store, cfg)
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "weekly.csv")
	require.NoError(t, os.WriteFile(src, []byte("x,y\n"), 0o600))

	doc, err := importFile(ctx, manager, fileEntry{sourcePath: src, name: "weekly.csv"}, "weekly numbers")
	require.NoError(t, err)
	assert.Equal(t, "weekly.csv", doc.Name())
	assert.Equal(t, "weekly numbers", doc.Description())
	assert.NotEmpty(t, doc.Identifier())

	require.NoError(t, removeReport(ctx, manager, doc.Identifier(), ""))
	assert.ErrorIs(t, removeReport(ctx, manager, doc.Identifier(), ""), cannedreports.ErrNotFound)
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "q1"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "q1", "jan.pdf"), []byte("a"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "top.txt"), []byte("b"), 0o600))

	t.Run("directory requires recursive", func(t *testing.T) {
		_, err := collectFiles(dir, false)
		assert.ErrorContains(t, err, "use -r")
	})

	t.Run("recursive uses relative names", func(t *testing.T) {
		entries, err := collectFiles(dir, true)
		require.NoError(t, err)

		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.name)
		}
		assert.ElementsMatch(t, []string{"q1/jan.pdf", "top.txt"}, names)
	})

	t.Run("single file uses base name", func(t *testing.T) {
		entries, err := collectFiles(filepath.Join(dir, "top.txt"), false)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "top.txt", entries[0].name)
	})
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", detectContentType("report.pdf"))
	assert.Equal(t, "application/octet-stream", detectContentType("README"))
	assert.Equal(t, "application/octet-stream", detectContentType("data.zzunknown"))
}
