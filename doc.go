// Package cannedreports exposes a versioned document store through a
// transport neutral request and response model.
//
// A CanonicalRequest carries one of the verbs POST, PUT, GET, HEAD or DELETE.
// ReportsManager checks the caller's roles, resolves the requested revision
// and calls a ReportStore, returning a CanonicalResponse whose Result maps to
// an HTTP status.
//
// # Revisions
//
// Every write under an identifier appends a revision. Revisions are numbered
// from 0, oldest first. A RevisionSpecification selects one of them:
//
//   - "3" is absolute, the fourth revision
//   - "-1" and "+0" are relative to the current revision
//   - "" selects the current revision
//   - "all" parses but is not supported for single report operations
//
// # Stores
//
// ReportStore is implemented by the s3store, filesystem and database
// packages. See the http package for the REST binding.
package cannedreports
