package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sagarc03/cannedreports"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error   string                       `json:"error"`
	Message string                       `json:"message"`
	Fields  []cannedreports.FieldFailure `json:"fields,omitempty"`
}

// ReportEntry is one element of the list response.
type ReportEntry struct {
	Identifier    string `json:"identifier"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	ContentType   string `json:"content_type"`
	ContentLength int64  `json:"content_length"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	writeErrorResponse(w, code, ErrorResponse{Error: errCode, Message: message})
}

func writeErrorResponse(w http.ResponseWriter, code int, body ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError writes appropriate error response based on error type
func HandleError(w http.ResponseWriter, err error) {
	writeFailure(w, cannedreports.KindOf(err).StatusCode(), err)
}

func writeFailure(w http.ResponseWriter, status int, err error) {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		WriteError(w, http.StatusRequestEntityTooLarge, "payload_too_large",
			"report exceeds the maximum upload size of "+strconv.FormatInt(maxBytes.Limit, 10)+" bytes")
		return
	}

	kind := cannedreports.KindOf(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request error", "error", err)
	}

	var vErr *cannedreports.ValidationError
	if errors.As(err, &vErr) {
		writeErrorResponse(w, status, ErrorResponse{
			Error:   kind.Code(),
			Message: vErr.Context + " validation failed",
			Fields:  vErr.Failures,
		})
		return
	}

	WriteError(w, status, kind.Code(), publicMessage(kind, err))
}

// publicMessage never includes the wrapped cause, which may carry store
// details or credentials.
func publicMessage(kind cannedreports.Kind, err error) string {
	switch kind {
	case cannedreports.KindForbidden:
		return "forbidden"
	case cannedreports.KindInternal:
		return "internal server error"
	}

	var e *cannedreports.Error
	if !errors.As(err, &e) {
		return kind.String()
	}
	msg := e.Message
	if msg == "" {
		msg = kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	return msg
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}

func setDocumentHeaders(h http.Header, doc cannedreports.CanonicalDocument) {
	h.Set(HeaderReportIdentifier, doc.Identifier())
	h.Set(HeaderReportName, doc.Name())
	if doc.Description() != "" {
		h.Set(HeaderReportDescription, doc.Description())
	}
	if rev := doc.Revision(); rev != nil {
		h.Set(HeaderReportRevision, strconv.Itoa(*rev))
	}
	if count := doc.RevisionCount(); count != nil {
		h.Set(HeaderReportRevisionCount, strconv.Itoa(*count))
	}
}

// writeMetadata renders POST, PUT, DELETE and HEAD results as headers only.
// Content headers describe the report and are only sent for HEAD.
func writeMetadata(w http.ResponseWriter, resp cannedreports.CanonicalResponse, head bool) {
	if doc, ok := resp.Report(); ok {
		setDocumentHeaders(w.Header(), doc)
		if !head {
			w.WriteHeader(resp.StatusCode())
			return
		}
		if doc.ContentType() != "" {
			w.Header().Set("Content-Type", doc.ContentType())
		}
		if length := doc.ContentLength(); length != nil {
			w.Header().Set("Content-Length", strconv.FormatInt(*length, 10))
		}
	}
	w.WriteHeader(resp.StatusCode())
}

// writeContent renders a single report with its body.
func writeContent(w http.ResponseWriter, r *http.Request, resp cannedreports.CanonicalResponse) {
	doc, ok := resp.Report()
	if !ok || !doc.HasBody() {
		writeMetadata(w, resp, false)
		return
	}

	rc, err := doc.Body().Open()
	if err != nil {
		HandleError(w, err)
		return
	}
	defer func() { _ = rc.Close() }()

	setDocumentHeaders(w.Header(), doc)
	contentType := doc.ContentType()
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if length := doc.ContentLength(); length != nil && *length > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(*length, 10))
	}
	w.WriteHeader(resp.StatusCode())

	if _, err := io.Copy(w, rc); err != nil {
		slog.WarnContext(r.Context(), "failed to stream report", "identifier", doc.Identifier(), "err", err)
	}
}

// writeList renders a listing as a JSON array without bodies.
func writeList(w http.ResponseWriter, resp cannedreports.CanonicalResponse) {
	entries := make([]ReportEntry, 0, len(resp.Reports))
	for _, doc := range resp.Reports {
		entry := ReportEntry{
			Identifier:  doc.Identifier(),
			Name:        doc.Name(),
			Description: doc.Description(),
			ContentType: doc.ContentType(),
		}
		if length := doc.ContentLength(); length != nil {
			entry.ContentLength = *length
		}
		entries = append(entries, entry)
	}

	_ = WriteJSON(w, resp.StatusCode(), entries)
}
