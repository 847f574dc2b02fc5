package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sagarc03/cannedreports"
)

// RequestLogger logs one line per request with its outcome.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		slog.Log(r.Context(), level, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

// LimitUploadSize caps request bodies at max bytes. Zero or less disables the cap.
func LimitUploadSize(max int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if max <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, max)
			next.ServeHTTP(w, r)
		})
	}
}

// PathValidationMiddleware rejects paths whose first segment is not a valid
// report identifier.
func PathValidationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.EscapedPath(), "/")
		if path == "" {
			next.ServeHTTP(w, r)
			return
		}

		segment, _, _ := strings.Cut(path, "/")
		identifier, err := url.PathUnescape(segment)
		if err != nil || !cannedreports.IsValidIdentifier(identifier) {
			WriteError(w, http.StatusBadRequest, "invalid_identifier", "invalid report identifier")
			return
		}

		next.ServeHTTP(w, r)
	})
}
