package cannedreports

import (
	"errors"
	"net/http"
)

// Result is the outcome of a dispatched request.
type Result uint8

const (
	ResultSuccess Result = iota
	ResultAccepted
	ResultServiceException
	ResultClientException
	ResultNotFound
	ResultForbidden
)

var results = [...]struct {
	name        string
	status      int
	description string
}{
	ResultSuccess:          {"SUCCESS", http.StatusOK, "OK"},
	ResultAccepted:         {"ACCEPTED", http.StatusAccepted, "ACCEPTED"},
	ResultServiceException: {"SERVICE_EXCEPTION", http.StatusInternalServerError, "SERVER ERROR"},
	ResultClientException:  {"CLIENT_EXCEPTION", http.StatusBadRequest, "BAD REQUEST"},
	ResultNotFound:         {"NOT_FOUND", http.StatusNotFound, "NOT FOUND"},
	ResultForbidden:        {"FORBIDDEN", http.StatusForbidden, "FORBIDDEN"},
}

func (r Result) String() string {
	if int(r) < len(results) {
		return results[r].name
	}
	return "UNKNOWN"
}

// StatusCode is the suggested HTTP status of the result.
func (r Result) StatusCode() int {
	if int(r) < len(results) {
		return results[r].status
	}
	return http.StatusInternalServerError
}

// Description is the short status text of the result.
func (r Result) Description() string {
	if int(r) < len(results) {
		return results[r].description
	}
	return "SERVER ERROR"
}

// IsSuccess reports whether the result is SUCCESS or ACCEPTED.
func (r Result) IsSuccess() bool {
	return r == ResultSuccess || r == ResultAccepted
}

// CanonicalResponse is the transport neutral outcome of a request.
type CanonicalResponse struct {
	Result  Result
	Reports []CanonicalDocument
	Err     error
}

// Success returns a SUCCESS response carrying docs. Reports is never nil.
func Success(docs ...CanonicalDocument) CanonicalResponse {
	if docs == nil {
		docs = []CanonicalDocument{}
	}
	return CanonicalResponse{Result: ResultSuccess, Reports: docs}
}

func Accepted(docs ...CanonicalDocument) CanonicalResponse {
	if docs == nil {
		docs = []CanonicalDocument{}
	}
	return CanonicalResponse{Result: ResultAccepted, Reports: docs}
}

// Failure maps err to the result of its kind.
func Failure(err error) CanonicalResponse {
	return CanonicalResponse{
		Result:  KindOf(err).Result(),
		Reports: []CanonicalDocument{},
		Err:     err,
	}
}

func Forbidden() CanonicalResponse {
	return Failure(&Error{Kind: KindForbidden})
}

// StatusCode returns the HTTP status for the response. A tagged error's own
// status wins over the result default, so dependency failures render as 502.
func (r CanonicalResponse) StatusCode() int {
	var e *Error
	if r.Err != nil && errors.As(r.Err, &e) {
		return e.Kind.StatusCode()
	}
	if r.Err != nil && !r.Result.IsSuccess() {
		return KindOf(r.Err).StatusCode()
	}
	return r.Result.StatusCode()
}

// Report returns the first document, if any.
func (r CanonicalResponse) Report() (CanonicalDocument, bool) {
	if len(r.Reports) == 0 {
		return CanonicalDocument{}, false
	}
	return r.Reports[0], true
}
