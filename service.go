package cannedreports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// Default role names.
const (
	DefaultUserRole    = "canned_report_user"
	DefaultManagerRole = "canned_report_manager"
)

// ManagerConfig holds configuration options for ReportsManager.
type ManagerConfig struct {
	EnableAuthorization bool
	UserRole            string // Role allowed to read (default: canned_report_user)
	ManagerRole         string // Role allowed to read and write (default: canned_report_manager)
}

// ReportsManager dispatches canonical requests to a ReportStore. It holds no
// mutable state and is safe for concurrent use.
type ReportsManager struct {
	store ReportStore
	roles *RoleExtractor
	cfg   ManagerConfig
}

func NewReportsManager(store ReportStore, roles *RoleExtractor, cfg ManagerConfig) (*ReportsManager, error) {
	if store == nil {
		return nil, errors.New("new reports manager: store cannot be nil")
	}
	if roles == nil {
		roles = NewRoleExtractor(nil)
	}
	if cfg.UserRole == "" {
		cfg.UserRole = DefaultUserRole
	}
	if cfg.ManagerRole == "" {
		cfg.ManagerRole = DefaultManagerRole
	}
	return &ReportsManager{store: store, roles: roles, cfg: cfg}, nil
}

// HandleRequest runs req against the store. It always returns a response:
// store faults become dependency failures and panics become internal errors.
//
// Roles are extracted before anything else, so a malformed credential is
// rejected even when authorization is disabled. With authorization enabled,
// POST, PUT and DELETE need the manager role while GET and HEAD accept either
// role. A rejected request never reaches the store.
func (m *ReportsManager) HandleRequest(ctx context.Context, req CanonicalRequest) (resp CanonicalResponse) {
	defer func() {
		_ = req.Body().Close()
	}()
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic while handling request", "method", req.Method(), "identifier", req.Identifier(), "panic", r)
			resp = Failure(&Error{Kind: KindInternal, Op: "handle request", Message: fmt.Sprintf("unexpected failure: %v", r)})
		}
	}()

	roles, err := m.roles.ExtractRoles(req.Authorization())
	if err != nil {
		slog.DebugContext(ctx, "credential rejected", "method", req.Method(), "err", err)
		return Failure(err)
	}

	if m.cfg.EnableAuthorization && !m.authorized(req.Method(), roles) {
		slog.InfoContext(ctx, "request forbidden", "method", req.Method(), "identifier", req.Identifier(), "roles", roles.Sorted())
		return Forbidden()
	}

	if err := ctx.Err(); err != nil {
		return Failure(&Error{Kind: KindInternal, Op: "handle request", Err: err})
	}

	switch req.Method() {
	case MethodPost:
		resp, err = m.create(ctx, req)
	case MethodPut:
		resp, err = m.update(ctx, req)
	case MethodGet:
		if req.Identifier() == "" {
			resp, err = m.list(ctx)
		} else {
			resp, err = m.fetch(ctx, req, true)
		}
	case MethodHead:
		resp, err = m.fetch(ctx, req, false)
	case MethodDelete:
		resp, err = m.remove(ctx, req)
	default:
		err = &Error{Kind: KindInvalidRequest, Op: "handle request", Message: fmt.Sprintf("unsupported method %q", req.Method())}
	}

	if err != nil {
		level := slog.LevelInfo
		if k := KindOf(err); k == KindDependency || k == KindInternal {
			level = slog.LevelError
		}
		slog.Log(ctx, level, "request failed", "method", req.Method(), "identifier", req.Identifier(), "kind", KindOf(err).String(), "err", err)
		return Failure(err)
	}

	return resp
}

func (m *ReportsManager) authorized(method string, roles RoleSet) bool {
	switch method {
	case MethodPost, MethodPut, MethodDelete:
		return roles.Has(m.cfg.ManagerRole)
	case MethodGet, MethodHead:
		return roles.HasAny(m.cfg.UserRole, m.cfg.ManagerRole)
	default:
		return false
	}
}

func (m *ReportsManager) create(ctx context.Context, req CanonicalRequest) (CanonicalResponse, error) {
	identifier := uuid.NewString()

	name := req.Name()
	if name == "" {
		name = identifier
	}

	meta := newObjectMetadata(name, req.Description(), TagBase64ContentType(req.ContentType(), req.BodyIsBase64Encoded()), req.ContentLength())

	put, err := m.put(ctx, identifier, req, meta)
	if err != nil {
		return CanonicalResponse{}, err
	}

	slog.InfoContext(ctx, "report created", "identifier", identifier, "version", put.VersionID, "size", put.Size)

	meta.ContentLength = put.Size
	doc, err := storedDocument(identifier, meta, 0, 1, nil)
	if err != nil {
		return CanonicalResponse{}, err
	}
	return Success(doc), nil
}

func (m *ReportsManager) update(ctx context.Context, req CanonicalRequest) (CanonicalResponse, error) {
	identifier := req.Identifier()

	current, err := m.currentMetadata(ctx, identifier)
	if err != nil {
		return CanonicalResponse{}, err
	}

	name := firstNonEmpty(req.Name(), current.Name(), identifier)
	description := firstNonEmpty(req.Description(), current.Description())
	contentType := TagBase64ContentType(firstNonEmpty(req.ContentType(), current.ContentType), req.BodyIsBase64Encoded())

	meta := newObjectMetadata(name, description, contentType, req.ContentLength())

	put, err := m.put(ctx, identifier, req, meta)
	if err != nil {
		return CanonicalResponse{}, err
	}

	versions, err := m.store.ListVersions(ctx, identifier)
	if err != nil {
		return CanonicalResponse{}, dependencyFailure("list versions", err)
	}

	index := len(versions) - 1
	for i, v := range versions {
		if v == put.VersionID {
			index = i
			break
		}
	}
	if index < 0 {
		index = 0
	}

	slog.InfoContext(ctx, "report updated", "identifier", identifier, "version", put.VersionID, "revision", index)

	meta.ContentLength = put.Size
	doc, err := storedDocument(identifier, meta, index, max(len(versions), index+1), nil)
	if err != nil {
		return CanonicalResponse{}, err
	}
	return Success(doc), nil
}

func (m *ReportsManager) put(ctx context.Context, identifier string, req CanonicalRequest, meta ObjectMetadata) (PutResult, error) {
	rc, err := req.Body().Open()
	if err != nil {
		return PutResult{}, &Error{Kind: KindInvalidRequest, Op: "read body", Err: err}
	}
	defer func() { _ = rc.Close() }()

	put, err := m.store.PutObject(ctx, identifier, rc, meta)
	if err != nil {
		return PutResult{}, dependencyFailure("put object", err)
	}
	return put, nil
}

func (m *ReportsManager) fetch(ctx context.Context, req CanonicalRequest, withBody bool) (CanonicalResponse, error) {
	identifier := req.Identifier()
	spec := req.RevisionSpecification()

	if spec.All {
		return CanonicalResponse{}, allUnsupported()
	}

	current, err := m.currentMetadata(ctx, identifier)
	if err != nil {
		return CanonicalResponse{}, err
	}

	versions, err := m.store.ListVersions(ctx, identifier)
	if err != nil {
		return CanonicalResponse{}, dependencyFailure("list versions", err)
	}

	index, token, err := spec.Resolve(identifier, versions)
	if err != nil {
		return CanonicalResponse{}, err
	}

	if !withBody {
		meta := current
		if index != len(versions)-1 {
			meta, err = m.versionMetadata(ctx, identifier, token)
			if err != nil {
				return CanonicalResponse{}, err
			}
		}
		doc, err := storedDocument(identifier, meta, index, len(versions), nil)
		if err != nil {
			return CanonicalResponse{}, err
		}
		return Success(doc), nil
	}

	obj, err := m.store.GetObject(ctx, identifier, token)
	if errors.Is(err, ErrNotFound) {
		return CanonicalResponse{}, documentNotFound(identifier)
	}
	if err != nil {
		return CanonicalResponse{}, dependencyFailure("get object", err)
	}

	doc, err := storedDocument(identifier, obj.Metadata, index, len(versions), ReaderBody(obj.Body))
	if err != nil {
		_ = obj.Body.Close()
		return CanonicalResponse{}, err
	}
	return Success(doc), nil
}

func (m *ReportsManager) list(ctx context.Context) (CanonicalResponse, error) {
	keys, err := m.store.ListKeys(ctx)
	if err != nil {
		return CanonicalResponse{}, dependencyFailure("list keys", err)
	}

	docs := make([]CanonicalDocument, 0, len(keys))
	for _, k := range keys {
		length := k.Metadata.ContentLength
		doc, err := NewCanonicalDocument(DocumentFields{
			Identifier:          k.Key,
			Name:                firstNonEmpty(k.Metadata.Name(), k.Key),
			Description:         k.Metadata.Description(),
			ContentType:         k.Metadata.ContentType,
			ContentLength:       &length,
			BodyIsBase64Encoded: strings.HasSuffix(k.Metadata.ContentType, Base64Suffix),
		})
		if err != nil {
			return CanonicalResponse{}, err
		}
		docs = append(docs, doc)
	}

	return Success(docs...), nil
}

func (m *ReportsManager) remove(ctx context.Context, req CanonicalRequest) (CanonicalResponse, error) {
	identifier := req.Identifier()
	spec := req.RevisionSpecification()

	if spec.All {
		return CanonicalResponse{}, allUnsupported()
	}

	current, err := m.currentMetadata(ctx, identifier)
	if err != nil {
		return CanonicalResponse{}, err
	}

	// The revision count has to be read before the delete changes it.
	versions, err := m.store.ListVersions(ctx, identifier)
	if err != nil {
		return CanonicalResponse{}, dependencyFailure("list versions", err)
	}
	count := len(versions)

	if !req.RevisionSpecified() {
		if err := m.store.DeleteObject(ctx, identifier, ""); err != nil {
			if errors.Is(err, ErrNotFound) {
				return CanonicalResponse{}, documentNotFound(identifier)
			}
			return CanonicalResponse{}, dependencyFailure("delete object", err)
		}

		slog.InfoContext(ctx, "report deleted", "identifier", identifier, "revisions", count)

		doc, err := storedDocument(identifier, current, max(count-1, 0), count, nil)
		if err != nil {
			return CanonicalResponse{}, err
		}
		return Success(doc), nil
	}

	index, token, err := spec.Resolve(identifier, versions)
	if err != nil {
		return CanonicalResponse{}, err
	}

	meta := current
	if index != count-1 {
		meta, err = m.versionMetadata(ctx, identifier, token)
		if err != nil {
			return CanonicalResponse{}, err
		}
	}

	if err := m.store.DeleteObject(ctx, identifier, token); err != nil {
		if errors.Is(err, ErrNotFound) {
			return CanonicalResponse{}, documentNotFound(identifier)
		}
		return CanonicalResponse{}, dependencyFailure("delete object", err)
	}

	slog.InfoContext(ctx, "report revision deleted", "identifier", identifier, "revision", index)

	doc, err := storedDocument(identifier, meta, index, count, nil)
	if err != nil {
		return CanonicalResponse{}, err
	}
	return Success(doc), nil
}

func (m *ReportsManager) currentMetadata(ctx context.Context, identifier string) (ObjectMetadata, error) {
	meta, err := m.store.GetObjectMetadata(ctx, identifier, "")
	if errors.Is(err, ErrNotFound) {
		return ObjectMetadata{}, metadataNotFound(identifier)
	}
	if err != nil {
		return ObjectMetadata{}, dependencyFailure("get object metadata", err)
	}
	return meta, nil
}

func (m *ReportsManager) versionMetadata(ctx context.Context, identifier, version string) (ObjectMetadata, error) {
	meta, err := m.store.GetObjectMetadata(ctx, identifier, version)
	if errors.Is(err, ErrNotFound) {
		return ObjectMetadata{}, documentNotFound(identifier)
	}
	if err != nil {
		return ObjectMetadata{}, dependencyFailure("get object metadata", err)
	}
	return meta, nil
}

func allUnsupported() *Error {
	return &Error{
		Kind:    KindUnsupported,
		Op:      "resolve revision",
		Message: "the 'all' revision selector is not supported for a single report",
	}
}

func newObjectMetadata(name, description, contentType string, length *int64) ObjectMetadata {
	meta := ObjectMetadata{
		ContentType: contentType,
		User:        map[string]string{MetaKeyName: name},
	}
	if description != "" {
		meta.User[MetaKeyDescription] = description
	}
	if length != nil {
		meta.ContentLength = *length
	}
	return meta
}

func storedDocument(identifier string, meta ObjectMetadata, revision, count int, body *Body) (CanonicalDocument, error) {
	length := meta.ContentLength
	return NewStoredDocument(DocumentFields{
		Identifier:          identifier,
		Revision:            intPtr(revision),
		RevisionCount:       intPtr(count),
		Name:                firstNonEmpty(meta.Name(), identifier),
		Description:         meta.Description(),
		ContentType:         meta.ContentType,
		ContentLength:       &length,
		Body:                body,
		BodyIsBase64Encoded: strings.HasSuffix(meta.ContentType, Base64Suffix),
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
