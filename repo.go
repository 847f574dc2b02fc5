package cannedreports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
)

// MaxVersionListing bounds the number of versions returned by ListVersions.
const MaxVersionListing = 1000

// Reserved user metadata keys.
const (
	MetaKeyName        = "report-name"
	MetaKeyDescription = "report-description"
)

// ObjectMetadata describes one stored version of an object.
type ObjectMetadata struct {
	ContentType   string
	ContentLength int64
	User          map[string]string
}

// Name returns the display name stored in the user metadata.
func (m ObjectMetadata) Name() string { return m.User[MetaKeyName] }

// Description returns the description stored in the user metadata.
func (m ObjectMetadata) Description() string { return m.User[MetaKeyDescription] }

// PutResult identifies the version created by PutObject.
type PutResult struct {
	VersionID string
	Size      int64
}

// Object is a stored version with its content. The caller closes Body.
type Object struct {
	Metadata  ObjectMetadata
	VersionID string
	Body      io.ReadCloser
}

// KeyMetadata is the current metadata of one key, as returned by ListKeys.
type KeyMetadata struct {
	Key      string
	Metadata ObjectMetadata
}

// ReportStore is a versioned blob store. Every put under an existing key
// appends a version. An empty version selects the current one. Absent keys
// and versions are reported with ErrNotFound.
type ReportStore interface {
	// EnsureCollection checks that the backing bucket or table exists,
	// creating it when needed.
	EnsureCollection(ctx context.Context) error
	PutObject(ctx context.Context, key string, body io.Reader, meta ObjectMetadata) (PutResult, error)
	GetObjectMetadata(ctx context.Context, key, version string) (ObjectMetadata, error)
	GetObject(ctx context.Context, key, version string) (Object, error)
	// DeleteObject removes a single version, or the whole object when
	// version is empty.
	DeleteObject(ctx context.Context, key, version string) error
	ListKeys(ctx context.Context) ([]KeyMetadata, error)
	// ListVersions returns version tokens ordered oldest first, at most
	// MaxVersionListing of them.
	ListVersions(ctx context.Context, key string) ([]string, error)
}

// Purger is implemented by stores that soft delete. Purge removes deleted
// versions for good and returns how many were removed.
type Purger interface {
	Purge(ctx context.Context) (int, error)
}

// Tables holds configurable table names for SQL backed stores.
// This allows several deployments to share one database.
type Tables struct {
	Reports string
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	if t.Reports == "" {
		return errors.New("validate tables: reports table name cannot be empty")
	}

	if !IsValidTableName(t.Reports) {
		return fmt.Errorf("validate tables: invalid reports table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", t.Reports)
	}

	return nil
}
