package cannedreports

import (
	"bytes"
	"fmt"
	"io"
	"sync"
)

type bodyKind uint8

const (
	bodyBytes bodyKind = iota + 1
	bodyReader
)

// Body is the content of a request or document. It holds either bytes that
// are already in memory or a reader that is consumed lazily, never both.
// A Body can be consumed once; lazy readers are closed after use.
type Body struct {
	kind bodyKind
	data []byte
	rc   io.ReadCloser

	mu       sync.Mutex
	consumed bool
}

// BytesBody returns a body backed by b.
func BytesBody(b []byte) *Body {
	return &Body{kind: bodyBytes, data: b}
}

// StringBody returns a body backed by s.
func StringBody(s string) *Body {
	return BytesBody([]byte(s))
}

// ReaderBody returns a body that reads from rc on demand.
func ReaderBody(rc io.ReadCloser) *Body {
	return &Body{kind: bodyReader, rc: rc}
}

// IsLazy reports whether the body is backed by a reader.
func (b *Body) IsLazy() bool {
	return b != nil && b.kind == bodyReader
}

// Open hands out the body content as a reader. The caller must close it.
// Only the first call succeeds.
func (b *Body) Open() (io.ReadCloser, error) {
	if b == nil {
		return nil, fmt.Errorf("open body: %w: no body", ErrInvalidInput)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.consumed {
		return nil, ErrBodyConsumed
	}
	b.consumed = true

	if b.kind == bodyReader {
		return b.rc, nil
	}
	return io.NopCloser(bytes.NewReader(b.data)), nil
}

// ReadAll consumes the body and returns its bytes.
func (b *Body) ReadAll() ([]byte, error) {
	rc, err := b.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}

// Close releases an unconsumed reader. It is safe to call on any body.
func (b *Body) Close() error {
	if b == nil {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.consumed {
		return nil
	}
	b.consumed = true

	if b.kind == bodyReader && b.rc != nil {
		return b.rc.Close()
	}
	return nil
}
