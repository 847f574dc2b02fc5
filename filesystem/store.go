// Package filesystem provides a report store on a local directory.
//
// Each report is a directory named after its key. Revision n is the pair
// <n>.data and <n>.meta.json; the metadata file is written last and marks
// the revision as present. Writes go to a temp file that is renamed into
// place, so readers never observe a partial revision.
package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sagarc03/cannedreports"
)

const (
	dataSuffix    = ".data"
	metaSuffix    = ".meta.json"
	deletedSuffix = ".deleted"
)

// Store provides file system storage operations.
type Store struct {
	root *os.Root
	// mu serializes revision numbering within this process.
	mu sync.Mutex
}

var _ cannedreports.ReportStore = (*Store)(nil)

// NewFileStorage creates a new Store with the given root directory.
// The root provides sandboxed file operations preventing path traversal.
func NewFileStorage(root *os.Root) *Store {
	return &Store{root: root}
}

type metaFile struct {
	ContentType   string            `json:"content_type"`
	ContentLength int64             `json:"content_length"`
	User          map[string]string `json:"user,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

func (m metaFile) metadata() cannedreports.ObjectMetadata {
	return cannedreports.ObjectMetadata{
		ContentType:   m.ContentType,
		ContentLength: m.ContentLength,
		User:          m.User,
	}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// EnsureCollection checks that the root directory is usable.
func (s *Store) EnsureCollection(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := s.root.Stat(".")
	if err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("ensure collection: %s is not a directory", s.root.Name())
	}
	return nil
}

// PutObject writes a new revision of key.
func (s *Store) PutObject(ctx context.Context, key string, body io.Reader, meta cannedreports.ObjectMetadata) (cannedreports.PutResult, error) {
	if err := ctx.Err(); err != nil {
		return cannedreports.PutResult{}, err
	}
	if !cannedreports.IsValidIdentifier(key) {
		return cannedreports.PutResult{}, fmt.Errorf("put object: %w: key %q", cannedreports.ErrInvalidInput, key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.root.MkdirAll(key, 0o755); err != nil {
		return cannedreports.PutResult{}, fmt.Errorf("put object: create report directory: %w", err)
	}

	seqs, err := s.revisions(key, true)
	if err != nil {
		return cannedreports.PutResult{}, fmt.Errorf("put object: %w", err)
	}
	seq := 0
	if len(seqs) > 0 {
		seq = seqs[len(seqs)-1] + 1
	}

	size, err := s.writeAtomic(ctx, revisionPath(key, seq, dataSuffix), &ctxReader{ctx: ctx, r: body})
	if err != nil {
		return cannedreports.PutResult{}, fmt.Errorf("put object: %w", err)
	}

	encoded, err := json.Marshal(metaFile{
		ContentType:   meta.ContentType,
		ContentLength: size,
		User:          meta.User,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		return cannedreports.PutResult{}, fmt.Errorf("put object: encode metadata: %w", err)
	}

	if _, err := s.writeAtomic(ctx, revisionPath(key, seq, metaSuffix), strings.NewReader(string(encoded))); err != nil {
		s.remove(revisionPath(key, seq, dataSuffix))
		return cannedreports.PutResult{}, fmt.Errorf("put object: %w", err)
	}

	return cannedreports.PutResult{VersionID: strconv.Itoa(seq), Size: size}, nil
}

func (s *Store) GetObjectMetadata(ctx context.Context, key, version string) (cannedreports.ObjectMetadata, error) {
	if err := ctx.Err(); err != nil {
		return cannedreports.ObjectMetadata{}, err
	}

	_, meta, err := s.resolve(key, version)
	if err != nil {
		return cannedreports.ObjectMetadata{}, fmt.Errorf("get object metadata: %w", err)
	}
	return meta.metadata(), nil
}

func (s *Store) GetObject(ctx context.Context, key, version string) (cannedreports.Object, error) {
	if err := ctx.Err(); err != nil {
		return cannedreports.Object{}, err
	}

	seq, meta, err := s.resolve(key, version)
	if err != nil {
		return cannedreports.Object{}, fmt.Errorf("get object: %w", err)
	}

	f, err := s.root.Open(revisionPath(key, seq, dataSuffix))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cannedreports.Object{}, fmt.Errorf("get object: %w", cannedreports.ErrNotFound)
		}
		return cannedreports.Object{}, fmt.Errorf("get object: %w", err)
	}

	return cannedreports.Object{
		Metadata:  meta.metadata(),
		VersionID: strconv.Itoa(seq),
		Body:      f,
	}, nil
}

// DeleteObject removes one revision, or the whole report directory when
// version is empty. A removed revision leaves a marker so its number is
// never handed out again.
func (s *Store) DeleteObject(ctx context.Context, key, version string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if version == "" {
		live, err := s.revisions(key, false)
		if err != nil {
			return fmt.Errorf("delete object: %w", err)
		}
		if len(live) == 0 {
			return fmt.Errorf("delete object: %w", cannedreports.ErrNotFound)
		}
		if err := s.root.RemoveAll(key); err != nil {
			return fmt.Errorf("delete object: %w", err)
		}
		return nil
	}

	seq, _, err := s.resolve(key, version)
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}

	marker, err := s.root.Create(revisionPath(key, seq, deletedSuffix))
	if err != nil {
		return fmt.Errorf("delete object: write marker: %w", err)
	}
	if err := marker.Close(); err != nil {
		slog.Warn("failed to close deletion marker", "key", key, "err", err)
	}

	if err := s.root.Remove(revisionPath(key, seq, metaSuffix)); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	s.remove(revisionPath(key, seq, dataSuffix))

	return nil
}

// ListKeys returns the current metadata of every report with at least one
// live revision, ordered by key.
func (s *Store) ListKeys(ctx context.Context) ([]cannedreports.KeyMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := fs.ReadDir(s.root.FS(), ".")
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}

	keys := []cannedreports.KeyMetadata{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() || !cannedreports.IsValidIdentifier(entry.Name()) {
			continue
		}

		_, meta, err := s.resolve(entry.Name(), "")
		if errors.Is(err, cannedreports.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("list keys: %w", err)
		}

		keys = append(keys, cannedreports.KeyMetadata{Key: entry.Name(), Metadata: meta.metadata()})
	}

	return keys, nil
}

// ListVersions returns the newest MaxVersionListing live revisions, oldest first.
func (s *Store) ListVersions(ctx context.Context, key string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seqs, err := s.revisions(key, false)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	if len(seqs) > cannedreports.MaxVersionListing {
		seqs = seqs[len(seqs)-cannedreports.MaxVersionListing:]
	}

	versions := make([]string, 0, len(seqs))
	for _, seq := range seqs {
		versions = append(versions, strconv.Itoa(seq))
	}
	return versions, nil
}

// revisions returns the revision numbers of key in ascending order. Deleted
// revisions are included only when withDeleted is set.
func (s *Store) revisions(key string, withDeleted bool) ([]int, error) {
	if !cannedreports.IsValidIdentifier(key) {
		return nil, nil
	}

	entries, err := fs.ReadDir(s.root.FS(), key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var seqs []int
	for _, entry := range entries {
		name := entry.Name()
		base, ok := strings.CutSuffix(name, metaSuffix)
		if !ok && withDeleted {
			base, ok = strings.CutSuffix(name, deletedSuffix)
		}
		if !ok {
			continue
		}
		seq, err := strconv.Atoi(base)
		if err != nil || seq < 0 {
			continue
		}
		seqs = append(seqs, seq)
	}

	slices.Sort(seqs)
	return slices.Compact(seqs), nil
}

// resolve finds the revision named by version, or the newest live one.
func (s *Store) resolve(key, version string) (int, metaFile, error) {
	var seq int
	if version == "" {
		seqs, err := s.revisions(key, false)
		if err != nil {
			return 0, metaFile{}, err
		}
		if len(seqs) == 0 {
			return 0, metaFile{}, cannedreports.ErrNotFound
		}
		seq = seqs[len(seqs)-1]
	} else {
		n, err := strconv.Atoi(version)
		if err != nil || n < 0 || strconv.Itoa(n) != version {
			return 0, metaFile{}, cannedreports.ErrNotFound
		}
		seq = n
	}

	if !cannedreports.IsValidIdentifier(key) {
		return 0, metaFile{}, cannedreports.ErrNotFound
	}

	data, err := s.root.ReadFile(revisionPath(key, seq, metaSuffix))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, metaFile{}, cannedreports.ErrNotFound
		}
		return 0, metaFile{}, err
	}

	var meta metaFile
	if err := json.Unmarshal(data, &meta); err != nil {
		return 0, metaFile{}, fmt.Errorf("decode metadata %s: %w", revisionPath(key, seq, metaSuffix), err)
	}
	return seq, meta, nil
}

// writeAtomic copies content into a temp file next to dest and renames it
// into place.
func (s *Store) writeAtomic(ctx context.Context, dest string, content io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	tmpFile := path.Join(path.Dir(dest), tmpFileName())
	t, err := s.root.Create(tmpFile)
	if err != nil {
		return 0, fmt.Errorf("could not open temp file: %w", err)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			s.remove(tmpFile)
		}
	}()

	size, err := io.Copy(t, content)
	if err != nil {
		return 0, fmt.Errorf("could not copy file contents: %w", err)
	}

	if err := t.Sync(); err != nil {
		return 0, fmt.Errorf("could not sync written file: %w", err)
	}

	if err := s.root.Rename(tmpFile, dest); err != nil {
		return 0, fmt.Errorf("failed to rename file: %w", err)
	}

	success = true
	return size, nil
}

func (s *Store) remove(name string) {
	if err := s.root.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to remove file", "path", name, "err", err)
	}
}

func revisionPath(key string, seq int, suffix string) string {
	return path.Join(key, strconv.Itoa(seq)+suffix)
}

func tmpFileName() string {
	return fmt.Sprintf(".t%s", uuid.New().String())
}
