package clientcli

// UploadOptions configures the creation of a new report.
type UploadOptions struct {
	LocalPath   string // "-" reads stdin
	Name        string // optional, defaults to the file name
	Description string
	ContentType string // optional, auto-detect if empty
	Base64      bool   // send the content base64 encoded
}

// UpdateOptions configures a new revision of an existing report.
// Empty fields keep the values of the current revision.
type UpdateOptions struct {
	Identifier  string
	LocalPath   string
	Name        string
	Description string
	ContentType string
	Base64      bool
}

// GetOptions configures a download.
type GetOptions struct {
	Identifier string
	Revision   string // empty = current; "-1", "2", ...
	LocalPath  string // empty = derive from the report name, "-" = stdout
}

// GetResult is the outcome of a download.
type GetResult struct {
	Report    ReportInfo `json:"report"`
	LocalPath string     `json:"local_path"`
	Size      int64      `json:"size_bytes"`
}

// DeleteOptions configures a delete operation. With an empty Revision each
// report is removed entirely.
type DeleteOptions struct {
	Identifiers []string
	Revision    string
}

// DeleteResult represents the result of deleting a single report or revision.
type DeleteResult struct {
	Identifier string      `json:"identifier"`
	Revision   string      `json:"revision,omitempty"`
	Deleted    bool        `json:"deleted"`
	Report     *ReportInfo `json:"report,omitempty"`
	Err        error       `json:"-"` // nil on success
}

// ReportInfo describes one report revision as returned by the server.
type ReportInfo struct {
	Identifier    string `json:"identifier"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	ContentType   string `json:"content_type,omitempty"`
	ContentLength int64  `json:"content_length,omitempty"`
	Revision      *int   `json:"revision,omitempty"`
	RevisionCount *int   `json:"revision_count,omitempty"`
}

// serverReport mirrors one element of the server's list response.
type serverReport struct {
	Identifier    string `json:"identifier"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	ContentType   string `json:"content_type"`
	ContentLength int64  `json:"content_length"`
}

// serverError mirrors the server's JSON error body.
type serverError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
