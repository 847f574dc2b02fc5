// Package postgres implements cannedreports.ReportStore on PostgreSQL.
package postgres

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/cannedreports"
)

// Store keeps one row per revision with the content inline as BYTEA.
type Store struct {
	pool   *pgxpool.Pool
	tables cannedreports.Tables
}

var (
	_ cannedreports.ReportStore = (*Store)(nil)
	_ cannedreports.Purger      = (*Store)(nil)
)

func NewStore(pool *pgxpool.Pool, tables cannedreports.Tables) (*Store, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new store: %w", err)
	}

	return &Store{pool: pool, tables: tables}, nil
}

// Ping verifies database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) table() string {
	return pgx.Identifier{s.tables.Reports}.Sanitize()
}

// EnsureCollection migrates and validates the reports table.
func (s *Store) EnsureCollection(ctx context.Context) error {
	if err := Migrate(ctx, s.pool, s.tables); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}
	if err := ValidateSchema(ctx, s.pool, s.tables); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}
	return nil
}

func (s *Store) PutObject(ctx context.Context, key string, body io.Reader, meta cannedreports.ObjectMetadata) (cannedreports.PutResult, error) {
	content, err := io.ReadAll(body)
	if err != nil {
		return cannedreports.PutResult{}, fmt.Errorf("put object: read body: %w", err)
	}

	user := meta.User
	if user == nil {
		user = map[string]string{}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return cannedreports.PutResult{}, fmt.Errorf("put object: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Writers to the same key take turns so seq stays dense and unique.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return cannedreports.PutResult{}, fmt.Errorf("put object: lock key: %w", err)
	}

	var seq int64
	seqQuery := fmt.Sprintf(`SELECT COALESCE(MAX(seq), -1) + 1 FROM %s WHERE report_key = $1`, s.table())
	if err := tx.QueryRow(ctx, seqQuery, key).Scan(&seq); err != nil {
		return cannedreports.PutResult{}, fmt.Errorf("put object: next seq: %w", err)
	}

	versionID := uuid.New()
	size := int64(len(content))
	insertQuery := fmt.Sprintf(`
		INSERT INTO %s (version_id, report_key, seq, content_type, content_length, user_metadata, content)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, s.table())

	if _, err := tx.Exec(ctx, insertQuery, versionID, key, seq, meta.ContentType, size, user, content); err != nil {
		return cannedreports.PutResult{}, fmt.Errorf("put object: insert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return cannedreports.PutResult{}, fmt.Errorf("put object: commit: %w", err)
	}

	return cannedreports.PutResult{VersionID: versionID.String(), Size: size}, nil
}

func (s *Store) GetObjectMetadata(ctx context.Context, key, version string) (cannedreports.ObjectMetadata, error) {
	row, err := s.queryVersion(ctx, "content_type, content_length, user_metadata", key, version)
	if err != nil {
		return cannedreports.ObjectMetadata{}, fmt.Errorf("get object metadata: %w", err)
	}

	var meta cannedreports.ObjectMetadata
	if err := row.Scan(&meta.ContentType, &meta.ContentLength, &meta.User); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cannedreports.ObjectMetadata{}, fmt.Errorf("get object metadata: %w", cannedreports.ErrNotFound)
		}
		return cannedreports.ObjectMetadata{}, fmt.Errorf("get object metadata: %w", err)
	}

	return meta, nil
}

func (s *Store) GetObject(ctx context.Context, key, version string) (cannedreports.Object, error) {
	row, err := s.queryVersion(ctx, "content_type, content_length, user_metadata, version_id, content", key, version)
	if err != nil {
		return cannedreports.Object{}, fmt.Errorf("get object: %w", err)
	}

	var (
		obj       cannedreports.Object
		versionID uuid.UUID
		content   []byte
	)
	if err := row.Scan(&obj.Metadata.ContentType, &obj.Metadata.ContentLength, &obj.Metadata.User, &versionID, &content); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cannedreports.Object{}, fmt.Errorf("get object: %w", cannedreports.ErrNotFound)
		}
		return cannedreports.Object{}, fmt.Errorf("get object: %w", err)
	}

	obj.VersionID = versionID.String()
	obj.Body = io.NopCloser(bytes.NewReader(content))
	return obj, nil
}

// queryVersion selects columns of the given version, or of the newest live
// version when version is empty. A version that is not a UUID cannot exist.
func (s *Store) queryVersion(ctx context.Context, columns, key, version string) (pgx.Row, error) {
	if version == "" {
		query := fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE report_key = $1 AND deleted_at IS NULL
			ORDER BY seq DESC LIMIT 1
		`, columns, s.table())
		return s.pool.QueryRow(ctx, query, key), nil
	}

	id, err := uuid.Parse(version)
	if err != nil {
		return nil, cannedreports.ErrNotFound
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE report_key = $1 AND version_id = $2 AND deleted_at IS NULL
	`, columns, s.table())
	return s.pool.QueryRow(ctx, query, key, id), nil
}

func (s *Store) DeleteObject(ctx context.Context, key, version string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET deleted_at = NOW()
		WHERE report_key = $1 AND deleted_at IS NULL
	`, s.table())
	args := []any{key}

	if version != "" {
		id, err := uuid.Parse(version)
		if err != nil {
			return fmt.Errorf("delete object: %w", cannedreports.ErrNotFound)
		}
		query = fmt.Sprintf(`
			UPDATE %s SET deleted_at = NOW()
			WHERE report_key = $1 AND version_id = $2 AND deleted_at IS NULL
		`, s.table())
		args = append(args, id)
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete object: %w", cannedreports.ErrNotFound)
	}

	return nil
}

func (s *Store) ListKeys(ctx context.Context) ([]cannedreports.KeyMetadata, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT ON (report_key) report_key, content_type, content_length, user_metadata
		FROM %s
		WHERE deleted_at IS NULL
		ORDER BY report_key, seq DESC
	`, s.table())

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	keys := []cannedreports.KeyMetadata{}
	for rows.Next() {
		var k cannedreports.KeyMetadata
		if err := rows.Scan(&k.Key, &k.Metadata.ContentType, &k.Metadata.ContentLength, &k.Metadata.User); err != nil {
			return nil, fmt.Errorf("list keys: scan: %w", err)
		}
		keys = append(keys, k)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list keys: rows: %w", err)
	}

	return keys, nil
}

// ListVersions returns the newest MaxVersionListing live versions, oldest first.
func (s *Store) ListVersions(ctx context.Context, key string) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT version_id FROM %s
		WHERE report_key = $1 AND deleted_at IS NULL
		ORDER BY seq DESC
		LIMIT $2
	`, s.table())

	rows, err := s.pool.Query(ctx, query, key, cannedreports.MaxVersionListing)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	versions := []string{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list versions: scan: %w", err)
		}
		versions = append(versions, id.String())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list versions: rows: %w", err)
	}

	slices.Reverse(versions)
	return versions, nil
}

// Purge hard deletes soft deleted versions.
func (s *Store) Purge(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE deleted_at IS NOT NULL`, s.table()))
	if err != nil {
		return 0, fmt.Errorf("purge: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
