package cannedreports

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNotFound is returned when a report, its metadata or a revision is absent
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned when request validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrForbidden is returned when the caller lacks the required role
	ErrForbidden = errors.New("forbidden")
	// ErrUnsupported is returned for selectors or operations that are recognized but not offered
	ErrUnsupported = errors.New("unsupported operation")
	// ErrDependency is returned when the report store fails
	ErrDependency = errors.New("dependency failure")
	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
	// ErrBodyConsumed is returned when a body is read a second time
	ErrBodyConsumed = errors.New("body already consumed")
)

// Kind is the closed set of failure categories surfaced by the dispatcher.
type Kind uint8

const (
	KindInternal Kind = iota
	KindInvalidRequest
	KindUnsupported
	KindMetadataNotFound
	KindDocumentNotFound
	KindUnknownRevision
	KindForbidden
	KindDependency
)

type kindInfo struct {
	name     string
	code     string
	result   Result
	status   int
	sentinel error
}

var kinds = [...]kindInfo{
	KindInternal:         {"internal", "internal_error", ResultServiceException, http.StatusInternalServerError, ErrInternal},
	KindInvalidRequest:   {"invalid request", "invalid_request", ResultClientException, http.StatusBadRequest, ErrInvalidInput},
	KindUnsupported:      {"unsupported", "unsupported", ResultClientException, http.StatusBadRequest, ErrUnsupported},
	KindMetadataNotFound: {"metadata not found", "not_found", ResultNotFound, http.StatusNotFound, ErrNotFound},
	KindDocumentNotFound: {"document not found", "not_found", ResultNotFound, http.StatusNotFound, ErrNotFound},
	KindUnknownRevision:  {"unknown revision", "unknown_revision", ResultNotFound, http.StatusNotFound, ErrNotFound},
	KindForbidden:        {"forbidden", "forbidden", ResultForbidden, http.StatusForbidden, ErrForbidden},
	KindDependency:       {"dependency", "bad_gateway", ResultServiceException, http.StatusBadGateway, ErrDependency},
}

func (k Kind) info() kindInfo {
	if int(k) < len(kinds) {
		return kinds[k]
	}
	return kinds[KindInternal]
}

func (k Kind) String() string { return k.info().name }

// Code is the machine readable error code written by the transport.
func (k Kind) Code() string { return k.info().code }

// Result is the response outcome this kind maps to.
func (k Kind) Result() Result { return k.info().result }

// StatusCode is the suggested HTTP status for this kind.
func (k Kind) StatusCode() int { return k.info().status }

// Error is the tagged error type produced by the core. The Kind carries the
// response mapping; Op names the operation that failed.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel that corresponds to the error's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.info().sentinel
}

// KindOf returns the kind of err. Errors that are not tagged are classified
// by sentinel, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return KindDocumentNotFound
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidRequest
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrUnsupported):
		return KindUnsupported
	case errors.Is(err, ErrDependency):
		return KindDependency
	default:
		return KindInternal
	}
}

func metadataNotFound(identifier string) *Error {
	return &Error{
		Kind:    KindMetadataNotFound,
		Message: fmt.Sprintf("document metadata cannot be found with identifier '%s'", identifier),
	}
}

func documentNotFound(identifier string) *Error {
	return &Error{
		Kind:    KindDocumentNotFound,
		Message: fmt.Sprintf("document cannot be found with identifier '%s'", identifier),
	}
}

func unknownRevision(identifier string, spec RevisionSpecification) *Error {
	return &Error{
		Kind:    KindUnknownRevision,
		Message: fmt.Sprintf("revision specification [%s] does not specify a revision for [%s]", spec, identifier),
	}
}

// errorCoder is implemented by API errors of remote stores (smithy.APIError).
type errorCoder interface {
	ErrorCode() string
}

// dependencyFailure wraps a store fault. The message names the operation and
// the fault category only.
func dependencyFailure(op string, err error) *Error {
	return &Error{
		Kind:    KindDependency,
		Op:      op,
		Message: fmt.Sprintf("remote invocation failed with [%s]", faultCategory(err)),
		Err:     err,
	}
}

func faultCategory(err error) string {
	if err == nil {
		return "unknown"
	}
	var coder errorCoder
	if errors.As(err, &coder) && coder.ErrorCode() != "" {
		return coder.ErrorCode()
	}
	for {
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	return fmt.Sprintf("%T", err)
}

// FieldFailure is a single failed constraint on a named field.
type FieldFailure struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every constraint that failed while constructing a
// value, not just the first.
type ValidationError struct {
	Context  string
	Failures []FieldFailure
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("%s validation failed: %s", e.Context, strings.Join(parts, "; "))
}

// Is lets ValidationError match ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Fields returns the names of the failed fields in report order.
func (e *ValidationError) Fields() []string {
	names := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		names = append(names, f.Field)
	}
	return names
}
