// Package http exposes the reports manager over HTTP.
//
// Report metadata travels in headers (report-name, report-description,
// report-identifier, report-revision, report-revision-count); the body is
// the raw report content. Listings and errors are JSON.
//
// # Routes
//
//	GET    /                          list reports
//	POST   /                          create a report
//	PUT    /{identifier}              append a revision
//	GET    /{identifier}[/{revision}] read a revision
//	HEAD   /{identifier}[/{revision}] read revision metadata
//	DELETE /{identifier}[/{revision}] delete the report or one revision
//
// A revision selector is either absolute ("0", "3") or relative to the
// current revision ("-1", "+0"). The selector "all" is rejected.
//
// # Usage
//
//	manager, _ := cannedreports.NewReportsManager(store, roles, cannedreports.ManagerConfig{})
//	handler := http.NewHandler(&http.HandlerConfig{MaxUploadSize: 10 << 20}, manager)
//	srv := &nethttp.Server{Addr: ":8080", Handler: handler.Router()}
//
// Authorization is carried as a bearer JWT in the Authorization header and
// checked by the manager, not by middleware.
package http
