package clientcli

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout is the default HTTP client timeout.
const DefaultTimeout = 30 * time.Second

// Headers shared with the server.
const (
	headerReportName          = "report-name"
	headerReportDescription   = "report-description"
	headerReportIdentifier    = "report-identifier"
	headerReportRevision      = "report-revision"
	headerReportRevisionCount = "report-revision-count"
	headerTransferEncoding    = "Content-Transfer-Encoding"
)

// Client performs operations against a report server.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New creates a new Client with the given config and options.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}

	cfg = cfg.WithDefaults()

	c := &Client{
		config: &Config{
			Endpoint: strings.TrimSuffix(cfg.Endpoint, "/"),
			Token:    cfg.Token,
		},
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Upload creates a new report from a local file and returns the stored
// revision.
func (c *Client) Upload(ctx context.Context, opts UploadOptions) (*ReportInfo, error) {
	if opts.LocalPath == "" {
		return nil, fmt.Errorf("upload: %w", ErrEmptyPath)
	}
	if opts.Name == "" && opts.LocalPath != "-" {
		opts.Name = filepath.Base(opts.LocalPath)
	}

	return c.send(ctx, http.MethodPost, c.config.Endpoint+"/", content{
		localPath:   opts.LocalPath,
		name:        opts.Name,
		description: opts.Description,
		contentType: opts.ContentType,
		base64:      opts.Base64,
	})
}

// Update appends a revision to an existing report.
func (c *Client) Update(ctx context.Context, opts UpdateOptions) (*ReportInfo, error) {
	if opts.Identifier == "" {
		return nil, fmt.Errorf("update: %w", ErrEmptyIdentifier)
	}
	if opts.LocalPath == "" {
		return nil, fmt.Errorf("update: %w", ErrEmptyPath)
	}

	return c.send(ctx, http.MethodPut, c.reportURL(opts.Identifier, ""), content{
		localPath:   opts.LocalPath,
		name:        opts.Name,
		description: opts.Description,
		contentType: opts.ContentType,
		base64:      opts.Base64,
	})
}

type content struct {
	localPath   string
	name        string
	description string
	contentType string
	base64      bool
}

func (c *Client) send(ctx context.Context, method, target string, in content) (*ReportInfo, error) {
	body, size, closeBody, err := openContent(in.localPath, in.base64)
	if err != nil {
		return nil, err
	}
	defer closeBody()

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.ContentLength = size

	contentType := in.contentType
	if contentType == "" && in.localPath != "-" {
		contentType = detectContentType(in.localPath)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if in.name != "" {
		req.Header.Set(headerReportName, in.name)
	}
	if in.description != "" {
		req.Header.Set(headerReportDescription, in.description)
	}
	if in.base64 {
		req.Header.Set(headerTransferEncoding, "base64")
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, readServerError(resp)
	}

	return reportFromHeaders(resp.Header)
}

// openContent returns the request body for a local file or stdin. Base64
// content is encoded in memory.
func openContent(localPath string, encode bool) (io.Reader, int64, func(), error) {
	var (
		r       io.Reader
		size    int64 = -1
		closeFn       = func() {}
	)

	if localPath == "-" {
		r = os.Stdin
	} else {
		file, err := os.Open(localPath) //#nosec G304 -- localPath is user-provided input
		if err != nil {
			return nil, 0, nil, fmt.Errorf("open file: %w", err)
		}
		info, err := file.Stat()
		if err != nil {
			_ = file.Close()
			return nil, 0, nil, fmt.Errorf("stat file: %w", err)
		}
		r, size = file, info.Size()
		closeFn = func() { _ = file.Close() }
	}

	if !encode {
		return r, size, closeFn, nil
	}

	var buf bytes.Buffer
	enc := base64.NewEncoder(base64.StdEncoding, &buf)
	if _, err := io.Copy(enc, r); err != nil {
		closeFn()
		return nil, 0, nil, fmt.Errorf("encode content: %w", err)
	}
	_ = enc.Close()
	closeFn()

	return bytes.NewReader(buf.Bytes()), int64(buf.Len()), func() {}, nil
}

// Info fetches the metadata of a report revision without its content.
func (c *Client) Info(ctx context.Context, identifier, revision string) (*ReportInfo, error) {
	if identifier == "" {
		return nil, fmt.Errorf("info: %w", ErrEmptyIdentifier)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.reportURL(identifier, revision), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, readServerError(resp)
	}

	return reportFromHeaders(resp.Header)
}

// Get downloads a report revision.
// If opts.LocalPath is "-", the content is returned via the io.ReadCloser and must be closed by the caller.
// Otherwise, the content is written to the file and the io.ReadCloser is nil.
func (c *Client) Get(ctx context.Context, opts GetOptions) (*GetResult, io.ReadCloser, error) {
	if opts.Identifier == "" {
		return nil, nil, fmt.Errorf("get: %w", ErrEmptyIdentifier)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.reportURL(opts.Identifier, opts.Revision), http.NoBody)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		return nil, nil, readServerError(resp)
	}

	info, err := reportFromHeaders(resp.Header)
	if err != nil {
		_ = resp.Body.Close()
		return nil, nil, err
	}
	info.ContentType = resp.Header.Get("Content-Type")
	info.ContentLength = resp.ContentLength

	result := &GetResult{Report: *info, Size: resp.ContentLength}

	// If stdout requested, return the body for the caller to handle
	if opts.LocalPath == "-" {
		result.LocalPath = "-"
		return result, resp.Body, nil
	}

	localPath := opts.LocalPath
	if localPath == "" {
		localPath = localName(info)
	}
	result.LocalPath = localPath

	// Create parent directories if needed
	dir := filepath.Dir(localPath)
	if dir != "" && dir != "." {
		if mkdirErr := os.MkdirAll(dir, 0o750); mkdirErr != nil {
			_ = resp.Body.Close()
			return nil, nil, fmt.Errorf("create directory: %w", mkdirErr)
		}
	}

	file, createErr := os.Create(localPath) //#nosec G304 -- localPath is user-provided input
	if createErr != nil {
		_ = resp.Body.Close()
		return nil, nil, fmt.Errorf("create file: %w", createErr)
	}

	written, copyErr := io.Copy(file, resp.Body)
	_ = resp.Body.Close()
	if copyErr != nil {
		_ = file.Close()
		return nil, nil, fmt.Errorf("write file: %w", copyErr)
	}

	if closeErr := file.Close(); closeErr != nil {
		return nil, nil, fmt.Errorf("close file: %w", closeErr)
	}

	result.Size = written
	return result, nil, nil
}

// localName derives a safe file name for a downloaded report.
func localName(info *ReportInfo) string {
	name := filepath.Base(filepath.Clean("/" + info.Name))
	if name == "/" || name == "." || name == "" {
		name = info.Identifier
	}
	return name
}

// Delete deletes one or more reports, or the same revision of each.
// Continues on error, collecting results for all identifiers.
func (c *Client) Delete(ctx context.Context, opts DeleteOptions) ([]DeleteResult, error) {
	if len(opts.Identifiers) == 0 {
		return nil, ErrNoIdentifiers
	}

	results := make([]DeleteResult, 0, len(opts.Identifiers))

	for _, id := range opts.Identifiers {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		results = append(results, c.deleteSingle(ctx, id, opts.Revision))
	}

	return results, nil
}

func (c *Client) deleteSingle(ctx context.Context, identifier, revision string) DeleteResult {
	result := DeleteResult{Identifier: identifier, Revision: revision}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.reportURL(identifier, revision), http.NoBody)
	if err != nil {
		result.Err = fmt.Errorf("create request: %w", err)
		return result
	}

	resp, err := c.do(req)
	if err != nil {
		result.Err = err
		return result
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		result.Err = readServerError(resp)
		return result
	}

	result.Deleted = true
	if info, err := reportFromHeaders(resp.Header); err == nil {
		result.Report = info
	}
	return result
}

// HasDeleteErrors returns true if any delete operation failed.
func HasDeleteErrors(results []DeleteResult) bool {
	for _, r := range results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// List returns every report with the metadata of its current revision.
func (c *Client) List(ctx context.Context) ([]ReportInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.Endpoint+"/", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, readServerError(resp)
	}

	var entries []serverReport
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	reports := make([]ReportInfo, len(entries))
	for i, e := range entries {
		reports[i] = ReportInfo{
			Identifier:    e.Identifier,
			Name:          e.Name,
			Description:   e.Description,
			ContentType:   e.ContentType,
			ContentLength: e.ContentLength,
		}
	}
	return reports, nil
}

// TotalSize calculates the total size of the reports in bytes.
func TotalSize(reports []ReportInfo) int64 {
	var total int64
	for _, r := range reports {
		total += r.ContentLength
	}
	return total
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	return resp, nil
}

func (c *Client) reportURL(identifier, revision string) string {
	u := c.config.Endpoint + "/" + url.PathEscape(identifier)
	if revision != "" {
		u += "/" + url.PathEscape(revision)
	}
	return u
}

// reportFromHeaders reads the report metadata headers of a response.
func reportFromHeaders(h http.Header) (*ReportInfo, error) {
	info := &ReportInfo{
		Identifier:  h.Get(headerReportIdentifier),
		Name:        h.Get(headerReportName),
		Description: h.Get(headerReportDescription),
	}
	if info.Identifier == "" {
		return nil, ErrMissingIdentifier
	}

	if v := h.Get(headerReportRevision); v != "" {
		rev, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parse %s header: %w", headerReportRevision, err)
		}
		info.Revision = &rev
	}
	if v := h.Get(headerReportRevisionCount); v != "" {
		count, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parse %s header: %w", headerReportRevisionCount, err)
		}
		info.RevisionCount = &count
	}
	if v := h.Get("Content-Length"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			info.ContentLength = n
		}
	}
	info.ContentType = h.Get("Content-Type")

	return info, nil
}

// detectContentType returns MIME type based on file extension.
func detectContentType(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return "application/octet-stream"
	}

	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		return "application/octet-stream"
	}

	return mimeType
}

// readServerError builds an APIError from a failed response. HEAD
// responses carry no body, so only the status is known.
func readServerError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	var se serverError
	if json.Unmarshal(body, &se) == nil {
		apiErr.Code = se.Error
		apiErr.Message = se.Message
	}
	return apiErr
}

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Code       string // server error code, e.g. "not_found"
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	switch {
	case e.Message != "":
		return "server error: " + strconv.Itoa(e.StatusCode) + " " + e.Code + ": " + e.Message
	case e.Body != "":
		return "server error: " + strconv.Itoa(e.StatusCode) + " - " + e.Body
	default:
		return "server error: " + strconv.Itoa(e.StatusCode) + " " + http.StatusText(e.StatusCode)
	}
}

// Is reports whether target matches this error.
// It matches if target is an *APIError with the same StatusCode.
func (e *APIError) Is(target error) bool {
	var t *APIError
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return t.StatusCode == e.StatusCode
}

// IsNotFound returns true if the error is a 404.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Sentinel errors for common API error conditions.
// Use errors.Is() to check for these conditions.
var (
	// ErrNotFound is returned when the report or revision does not exist (404).
	ErrNotFound = &APIError{StatusCode: http.StatusNotFound}

	// ErrBadRequest is returned for malformed requests or credentials (400).
	ErrBadRequest = &APIError{StatusCode: http.StatusBadRequest}

	// ErrForbidden is returned when the token lacks the required role (403).
	ErrForbidden = &APIError{StatusCode: http.StatusForbidden}
)
