package sqlite_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math"
	"math/big"
	"strings"
	"testing"

	"github.com/sagarc03/cannedreports"
	"github.com/sagarc03/cannedreports/database/sqlite"
	"github.com/stretchr/testify/require"
)

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

// setupTestStore creates a migrated store with a unique table name for test isolation
func setupTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	ctx := context.Background()
	tables := cannedreports.Tables{Reports: "reports_" + getRandomString(t)}

	db, err := sqlite.Connect(ctx, ":memory:", tables)
	require.NoError(t, err, "failed to connect")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(ctx), "failed to migrate")

	return db.Store()
}

func metadata(name, contentType string) cannedreports.ObjectMetadata {
	return cannedreports.ObjectMetadata{
		ContentType: contentType,
		User:        map[string]string{cannedreports.MetaKeyName: name},
	}
}

func put(t *testing.T, store cannedreports.ReportStore, key, content string) cannedreports.PutResult {
	t.Helper()
	res, err := store.PutObject(context.Background(), key, strings.NewReader(content), metadata(key, "text/plain"))
	require.NoError(t, err, "put %s", key)
	return res
}

func readObject(t *testing.T, obj cannedreports.Object) string {
	t.Helper()
	defer func() { _ = obj.Body.Close() }()
	data, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	return string(data)
}
