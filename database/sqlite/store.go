// Package sqlite implements cannedreports.ReportStore using SQLite.
//
// Every revision is one row; the content is kept inline as a BLOB. Deleting
// a revision sets deleted_at and Purge removes such rows for good.
package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/sagarc03/cannedreports"
)

// Store is a ReportStore on one SQLite table.
type Store struct {
	db     *sql.DB
	tables cannedreports.Tables
}

var (
	_ cannedreports.ReportStore = (*Store)(nil)
	_ cannedreports.Purger      = (*Store)(nil)
)

// NewStore returns a store on db. The table is created by EnsureCollection.
func NewStore(db *sql.DB, tables cannedreports.Tables) (*Store, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new store: %w", err)
	}
	return &Store{db: db, tables: tables}, nil
}

// EnsureCollection migrates and validates the reports table.
func (s *Store) EnsureCollection(ctx context.Context) error {
	if err := Migrate(ctx, s.db, s.tables); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}
	if err := ValidateSchema(ctx, s.db, s.tables); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}
	return nil
}

func (s *Store) PutObject(ctx context.Context, key string, body io.Reader, meta cannedreports.ObjectMetadata) (cannedreports.PutResult, error) {
	content, err := io.ReadAll(body)
	if err != nil {
		return cannedreports.PutResult{}, fmt.Errorf("put object: read body: %w", err)
	}

	user, err := json.Marshal(meta.User)
	if err != nil {
		return cannedreports.PutResult{}, fmt.Errorf("put object: encode metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return cannedreports.PutResult{}, fmt.Errorf("put object: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Deleted rows keep their seq so a version is never renumbered.
	var seq int64
	seqQuery := fmt.Sprintf(`SELECT COALESCE(MAX(seq), -1) + 1 FROM %s WHERE report_key = ?`, s.tables.Reports) //nolint:gosec // G201: table name is validated
	if err := tx.QueryRowContext(ctx, seqQuery, key).Scan(&seq); err != nil {
		return cannedreports.PutResult{}, fmt.Errorf("put object: next seq: %w", err)
	}

	versionID := uuid.NewString()
	insertQuery := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (version_id, report_key, seq, content_type, content_length, user_metadata, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, s.tables.Reports)

	size := int64(len(content))
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx, insertQuery, versionID, key, seq, meta.ContentType, size, string(user), content, now); err != nil {
		return cannedreports.PutResult{}, fmt.Errorf("put object: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return cannedreports.PutResult{}, fmt.Errorf("put object: commit: %w", err)
	}

	return cannedreports.PutResult{VersionID: versionID, Size: size}, nil
}

func (s *Store) GetObjectMetadata(ctx context.Context, key, version string) (cannedreports.ObjectMetadata, error) {
	row := s.queryVersion(ctx, "content_type, content_length, user_metadata", key, version)

	meta, err := scanMetadata(row)
	if err != nil {
		return cannedreports.ObjectMetadata{}, fmt.Errorf("get object metadata: %w", err)
	}
	return meta, nil
}

func (s *Store) GetObject(ctx context.Context, key, version string) (cannedreports.Object, error) {
	row := s.queryVersion(ctx, "content_type, content_length, user_metadata, version_id, content", key, version)

	var (
		contentType string
		length      int64
		user        string
		versionID   string
		content     []byte
	)
	if err := row.Scan(&contentType, &length, &user, &versionID, &content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return cannedreports.Object{}, fmt.Errorf("get object: %w", cannedreports.ErrNotFound)
		}
		return cannedreports.Object{}, fmt.Errorf("get object: %w", err)
	}

	meta, err := newMetadata(contentType, length, user)
	if err != nil {
		return cannedreports.Object{}, fmt.Errorf("get object: %w", err)
	}

	return cannedreports.Object{
		Metadata:  meta,
		VersionID: versionID,
		Body:      io.NopCloser(bytes.NewReader(content)),
	}, nil
}

// queryVersion selects columns of the given version, or of the newest live
// version when version is empty.
func (s *Store) queryVersion(ctx context.Context, columns, key, version string) *sql.Row {
	if version == "" {
		query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
			`SELECT %s FROM %s
			WHERE report_key = ? AND deleted_at IS NULL
			ORDER BY seq DESC LIMIT 1`, columns, s.tables.Reports)
		return s.db.QueryRowContext(ctx, query, key)
	}

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT %s FROM %s
		WHERE report_key = ? AND version_id = ? AND deleted_at IS NULL`, columns, s.tables.Reports)
	return s.db.QueryRowContext(ctx, query, key, version)
}

func (s *Store) DeleteObject(ctx context.Context, key, version string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	var (
		result sql.Result
		err    error
	)
	if version == "" {
		query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
			`UPDATE %s SET deleted_at = ?
			WHERE report_key = ? AND deleted_at IS NULL`, s.tables.Reports)
		result, err = s.db.ExecContext(ctx, query, now, key)
	} else {
		query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
			`UPDATE %s SET deleted_at = ?
			WHERE report_key = ? AND version_id = ? AND deleted_at IS NULL`, s.tables.Reports)
		result, err = s.db.ExecContext(ctx, query, now, key, version)
	}
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete object: rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("delete object: %w", cannedreports.ErrNotFound)
	}

	return nil
}

func (s *Store) ListKeys(ctx context.Context) ([]cannedreports.KeyMetadata, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT r.report_key, r.content_type, r.content_length, r.user_metadata
		FROM %[1]s r
		WHERE r.deleted_at IS NULL AND r.seq = (
			SELECT MAX(l.seq) FROM %[1]s l
			WHERE l.report_key = r.report_key AND l.deleted_at IS NULL
		)
		ORDER BY r.report_key`, s.tables.Reports)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	keys := []cannedreports.KeyMetadata{}
	for rows.Next() {
		var (
			key         string
			contentType string
			length      int64
			user        string
		)
		if err := rows.Scan(&key, &contentType, &length, &user); err != nil {
			return nil, fmt.Errorf("list keys: scan: %w", err)
		}

		meta, err := newMetadata(contentType, length, user)
		if err != nil {
			return nil, fmt.Errorf("list keys: %w", err)
		}
		keys = append(keys, cannedreports.KeyMetadata{Key: key, Metadata: meta})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list keys: rows: %w", err)
	}

	return keys, nil
}

// ListVersions returns the newest MaxVersionListing live versions, oldest first.
func (s *Store) ListVersions(ctx context.Context, key string) ([]string, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT version_id FROM %s
		WHERE report_key = ? AND deleted_at IS NULL
		ORDER BY seq DESC LIMIT ?`, s.tables.Reports)

	rows, err := s.db.QueryContext(ctx, query, key, cannedreports.MaxVersionListing)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	versions := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("list versions: scan: %w", err)
		}
		versions = append(versions, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list versions: rows: %w", err)
	}

	slices.Reverse(versions)
	return versions, nil
}

// Purge hard deletes soft deleted versions.
func (s *Store) Purge(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE deleted_at IS NOT NULL`, s.tables.Reports) //nolint:gosec // G201: table name is validated

	result, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("purge: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge: rows affected: %w", err)
	}

	return int(rowsAffected), nil
}

func scanMetadata(row *sql.Row) (cannedreports.ObjectMetadata, error) {
	var (
		contentType string
		length      int64
		user        string
	)
	if err := row.Scan(&contentType, &length, &user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return cannedreports.ObjectMetadata{}, cannedreports.ErrNotFound
		}
		return cannedreports.ObjectMetadata{}, err
	}

	return newMetadata(contentType, length, user)
}

func newMetadata(contentType string, length int64, user string) (cannedreports.ObjectMetadata, error) {
	meta := cannedreports.ObjectMetadata{ContentType: contentType, ContentLength: length}
	if err := json.Unmarshal([]byte(user), &meta.User); err != nil {
		return cannedreports.ObjectMetadata{}, fmt.Errorf("decode metadata: %w", err)
	}
	return meta, nil
}
