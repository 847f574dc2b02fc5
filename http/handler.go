package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/sagarc03/cannedreports"
)

// Request and response headers carrying report metadata.
const (
	HeaderReportName          = "report-name"
	HeaderReportDescription   = "report-description"
	HeaderReportIdentifier    = "report-identifier"
	HeaderReportRevision      = "report-revision"
	HeaderReportRevisionCount = "report-revision-count"
	HeaderTransferEncoding    = "Content-Transfer-Encoding"
)

// ReportHeaders lists the metadata headers, for CORS exposure.
var ReportHeaders = []string{
	HeaderReportName,
	HeaderReportDescription,
	HeaderReportIdentifier,
	HeaderReportRevision,
	HeaderReportRevisionCount,
}

// Dispatcher runs canonical requests. *cannedreports.ReportsManager implements it.
type Dispatcher interface {
	HandleRequest(ctx context.Context, req cannedreports.CanonicalRequest) cannedreports.CanonicalResponse
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type HandlerConfig struct {
	MaxUploadSize int64 // 0 means no limit
	CORS          CORSConfig
}

// Handler binds report operations to HTTP.
type Handler struct {
	config     HandlerConfig
	dispatcher Dispatcher
}

// NewHandler creates a new Handler with the given configuration and dispatcher.
func NewHandler(config *HandlerConfig, dispatcher Dispatcher) *Handler {
	return &Handler{
		config:     *config,
		dispatcher: dispatcher,
	}
}

// Router returns an http.Handler with the report routes:
//
//	GET    /                         list reports
//	POST   /                         create a report
//	GET    /{identifier}[/{revision}] read a revision
//	HEAD   /{identifier}[/{revision}] read revision metadata
//	DELETE /{identifier}[/{revision}] delete the report or one revision
//	PUT    /{identifier}              append a revision
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger)
	r.Use(PathValidationMiddleware)

	if h.config.CORS.Enabled {
		exposed := h.config.CORS.ExposedHeaders
		if len(exposed) == 0 {
			exposed = ReportHeaders
		}
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   exposed,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusNotFound, "not_found", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.Get("/", h.handleList)
	r.Group(func(r chi.Router) {
		r.Use(LimitUploadSize(h.config.MaxUploadSize))
		r.Post("/", h.handlePost)
		r.Put("/{identifier}", h.handlePut)
	})

	for _, pattern := range []string{"/{identifier}", "/{identifier}/{revision}"} {
		r.Get(pattern, h.handleGet)
		r.Head(pattern, h.handleHead)
		r.Delete(pattern, h.handleDelete)
	}

	return r
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	resp, ok := h.dispatch(w, r, cannedreports.RequestFields{Method: cannedreports.MethodGet})
	if !ok {
		return
	}
	writeList(w, resp)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	resp, ok := h.dispatch(w, r, singleReport(r, cannedreports.MethodGet))
	if !ok {
		return
	}
	writeContent(w, r, resp)
}

func (h *Handler) handleHead(w http.ResponseWriter, r *http.Request) {
	resp, ok := h.dispatch(w, r, singleReport(r, cannedreports.MethodHead))
	if !ok {
		return
	}
	writeMetadata(w, resp, true)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	resp, ok := h.dispatch(w, r, singleReport(r, cannedreports.MethodDelete))
	if !ok {
		return
	}
	writeMetadata(w, resp, false)
}

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	resp, ok := h.dispatch(w, r, withContent(r, cannedreports.RequestFields{Method: cannedreports.MethodPost}))
	if !ok {
		return
	}
	writeMetadata(w, resp, false)
}

func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request) {
	fields := cannedreports.RequestFields{
		Method:     cannedreports.MethodPut,
		Identifier: chi.URLParam(r, "identifier"),
	}
	resp, ok := h.dispatch(w, r, withContent(r, fields))
	if !ok {
		return
	}
	writeMetadata(w, resp, false)
}

// dispatch builds the canonical request and runs it. Failures are written to
// w and reported as !ok.
func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request, fields cannedreports.RequestFields) (cannedreports.CanonicalResponse, bool) {
	fields.Authorization = r.Header.Get("Authorization")

	req, err := cannedreports.NewCanonicalRequest(fields)
	if err != nil {
		_ = fields.Body.Close()
		HandleError(w, err)
		return cannedreports.CanonicalResponse{}, false
	}

	resp := h.dispatcher.HandleRequest(r.Context(), req)
	if !resp.Result.IsSuccess() {
		err := resp.Err
		if err == nil {
			err = errors.New(strings.ToLower(resp.Result.Description()))
		}
		writeFailure(w, resp.StatusCode(), err)
		return resp, false
	}

	return resp, true
}

func singleReport(r *http.Request, method string) cannedreports.RequestFields {
	return cannedreports.RequestFields{
		Method:                method,
		Identifier:            chi.URLParam(r, "identifier"),
		RevisionSpecification: chi.URLParam(r, "revision"),
	}
}

func withContent(r *http.Request, fields cannedreports.RequestFields) cannedreports.RequestFields {
	fields.Name = r.Header.Get(HeaderReportName)
	fields.Description = r.Header.Get(HeaderReportDescription)
	fields.ContentType = r.Header.Get("Content-Type")
	fields.BodyIsBase64Encoded = strings.EqualFold(strings.TrimSpace(r.Header.Get(HeaderTransferEncoding)), "base64")

	switch {
	case r.ContentLength > 0:
		length := r.ContentLength
		fields.ContentLength = &length
	case r.ContentLength == 0 && r.Header.Get("Content-Length") != "":
		var zero int64
		fields.ContentLength = &zero
	}

	if r.Body != nil && r.Body != http.NoBody {
		fields.Body = cannedreports.ReaderBody(r.Body)
	}

	return fields
}
