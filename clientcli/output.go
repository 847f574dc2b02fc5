package clientcli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Formatter formats results for output.
type Formatter interface {
	FormatReport(w io.Writer, verb string, report *ReportInfo) error
	FormatGet(w io.Writer, result *GetResult) error
	FormatDelete(w io.Writer, results []DeleteResult) error
	FormatList(w io.Writer, reports []ReportInfo) error
	FormatError(w io.Writer, err error) error
	FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error
	FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error
}

// NewFormatter returns the appropriate formatter based on flags.
func NewFormatter(jsonOutput, quiet bool) Formatter {
	if jsonOutput {
		return &JSONFormatter{}
	}
	return &HumanFormatter{Quiet: quiet}
}

// HumanFormatter outputs human-readable text.
type HumanFormatter struct {
	Quiet bool
}

// FormatReport prints the outcome of an upload, update or info call. In
// quiet mode only the identifier is printed, for use in scripts.
func (f *HumanFormatter) FormatReport(w io.Writer, verb string, report *ReportInfo) error {
	if f.Quiet {
		_, _ = fmt.Fprintln(w, report.Identifier)
		return nil
	}

	_, _ = fmt.Fprintf(w, "%s: %s\n", verb, report.Identifier)
	_, _ = fmt.Fprintf(w, "  Name:        %s\n", report.Name)
	if report.Description != "" {
		_, _ = fmt.Fprintf(w, "  Description: %s\n", report.Description)
	}
	if report.Revision != nil {
		_, _ = fmt.Fprintf(w, "  Revision:    %s\n", formatRevision(report))
	}
	if report.ContentType != "" {
		_, _ = fmt.Fprintf(w, "  Type:        %s\n", report.ContentType)
	}
	if report.ContentLength > 0 {
		_, _ = fmt.Fprintf(w, "  Size:        %s\n", formatSize(report.ContentLength))
	}
	return nil
}

// FormatGet formats a download as human-readable text.
func (f *HumanFormatter) FormatGet(w io.Writer, result *GetResult) error {
	if f.Quiet {
		return nil
	}

	label := result.Report.Identifier
	if result.Report.Revision != nil {
		label += " (revision " + formatRevision(&result.Report) + ")"
	}
	if result.LocalPath == "-" {
		_, _ = fmt.Fprintf(w, "Downloaded: %s (%s)\n", label, formatSize(result.Size))
	} else {
		_, _ = fmt.Fprintf(w, "Downloaded: %s -> %s (%s)\n", label, result.LocalPath, formatSize(result.Size))
	}
	return nil
}

// FormatDelete formats delete results as human-readable text.
func (f *HumanFormatter) FormatDelete(w io.Writer, results []DeleteResult) error {
	for i := range results {
		r := &results[i]
		target := r.Identifier
		if r.Revision != "" {
			target += "/" + r.Revision
		}
		if r.Err != nil {
			_, _ = fmt.Fprintf(w, "Error: %s - %v\n", target, r.Err)
			continue
		}
		if !f.Quiet {
			_, _ = fmt.Fprintf(w, "Deleted: %s\n", target)
		}
	}
	return nil
}

// FormatList formats the report listing as a table.
func (f *HumanFormatter) FormatList(w io.Writer, reports []ReportInfo) error {
	if len(reports) == 0 {
		_, _ = fmt.Fprintln(w, "No reports found")
		return nil
	}

	if f.Quiet {
		for i := range reports {
			_, _ = fmt.Fprintln(w, reports[i].Identifier)
		}
		return nil
	}

	// Calculate column widths
	idLen := 10 // "IDENTIFIER"
	nameLen := 4
	for i := range reports {
		idLen = max(idLen, len(reports[i].Identifier))
		nameLen = max(nameLen, len(reports[i].Name))
	}
	nameLen = min(nameLen, 40)

	_, _ = fmt.Fprintf(w, "%-*s  %-*s  %10s  %s\n", idLen, "IDENTIFIER", nameLen, "NAME", "SIZE", "TYPE")
	_, _ = fmt.Fprintf(w, "%s  %s  %s  %s\n", strings.Repeat("-", idLen), strings.Repeat("-", nameLen), strings.Repeat("-", 10), strings.Repeat("-", 20))

	for i := range reports {
		r := &reports[i]
		name := r.Name
		if len(name) > nameLen {
			name = name[:nameLen-3] + "..."
		}
		_, _ = fmt.Fprintf(w, "%-*s  %-*s  %10s  %s\n", idLen, r.Identifier, nameLen, name, formatSize(r.ContentLength), r.ContentType)
	}

	_, _ = fmt.Fprintf(w, "\n%d report(s) (%s total)\n", len(reports), formatSize(TotalSize(reports)))
	return nil
}

// FormatError formats an error as human-readable text.
func (f *HumanFormatter) FormatError(w io.Writer, err error) error {
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	return nil
}

// JSONFormatter outputs JSON.
type JSONFormatter struct{}

// FormatReport formats a single report as JSON.
func (f *JSONFormatter) FormatReport(w io.Writer, _ string, report *ReportInfo) error {
	return writeJSON(w, report)
}

// FormatGet formats a download as JSON.
func (f *JSONFormatter) FormatGet(w io.Writer, result *GetResult) error {
	return writeJSON(w, result)
}

// FormatDelete formats delete results as JSON.
func (f *JSONFormatter) FormatDelete(w io.Writer, results []DeleteResult) error {
	// Convert errors to strings for JSON output
	type jsonResult struct {
		DeleteResult
		Error string `json:"error,omitempty"`
	}

	output := struct {
		Results []jsonResult `json:"results"`
	}{
		Results: make([]jsonResult, len(results)),
	}

	for i, r := range results {
		jr := jsonResult{DeleteResult: r}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		}
		output.Results[i] = jr
	}

	return writeJSON(w, output)
}

// FormatList formats the report listing as JSON.
func (f *JSONFormatter) FormatList(w io.Writer, reports []ReportInfo) error {
	output := struct {
		Reports    []ReportInfo `json:"reports"`
		TotalBytes int64        `json:"total_bytes"`
	}{
		Reports:    reports,
		TotalBytes: TotalSize(reports),
	}
	if output.Reports == nil {
		output.Reports = []ReportInfo{}
	}
	return writeJSON(w, output)
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	output := struct {
		Error string `json:"error"`
	}{
		Error: err.Error(),
	}
	return writeJSON(w, output)
}

// formatRevision renders "2 of 3" when the count is known.
func formatRevision(r *ReportInfo) string {
	if r.Revision == nil {
		return ""
	}
	if r.RevisionCount == nil {
		return strconv.Itoa(*r.Revision)
	}
	return strconv.Itoa(*r.Revision) + " of " + strconv.Itoa(*r.RevisionCount)
}

// writeJSON writes a value as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/TB)
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatProfileList formats a list of profiles as human-readable text.
func (f *HumanFormatter) FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error {
	// Calculate column widths
	maxNameLen := 4     // "NAME"
	maxEndpointLen := 8 // "ENDPOINT"
	for i := range profiles {
		if len(profiles[i].Name) > maxNameLen {
			maxNameLen = len(profiles[i].Name)
		}
		if len(profiles[i].Endpoint) > maxEndpointLen {
			maxEndpointLen = len(profiles[i].Endpoint)
		}
	}
	if maxNameLen > 20 {
		maxNameLen = 20
	}
	if maxEndpointLen > 50 {
		maxEndpointLen = 50
	}

	// Print header
	_, _ = fmt.Fprintf(w, "  %-*s  %-*s  %s\n", maxNameLen, "NAME", maxEndpointLen, "ENDPOINT", "TOKEN")
	_, _ = fmt.Fprintf(w, "  %s  %s  %s\n", strings.Repeat("-", maxNameLen), strings.Repeat("-", maxEndpointLen), strings.Repeat("-", 20))

	// Print profiles
	for i := range profiles {
		p := &profiles[i]
		marker := " "
		if p.Name == defaultName {
			marker = "*"
		}

		name := p.Name
		if len(name) > maxNameLen {
			name = name[:maxNameLen-3] + "..."
		}

		endpoint := p.Endpoint
		if len(endpoint) > maxEndpointLen {
			endpoint = endpoint[:maxEndpointLen-3] + "..."
		}

		token := maskSecret(p.Token, showSecrets)

		_, _ = fmt.Fprintf(w, "%s %-*s  %-*s  %s\n", marker, maxNameLen, name, maxEndpointLen, endpoint, token)
	}

	return nil
}

// FormatProfileShow formats a single profile as human-readable text.
func (f *HumanFormatter) FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error {
	_, _ = fmt.Fprintf(w, "Name:       %s", profile.Name)
	if isDefault {
		_, _ = fmt.Fprintf(w, " (default)")
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Endpoint:   %s\n", profile.Endpoint)
	_, _ = fmt.Fprintf(w, "Token:      %s\n", maskSecret(profile.Token, showSecrets))
	return nil
}

// FormatProfileList formats a list of profiles as JSON.
func (f *JSONFormatter) FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error {
	type jsonProfile struct {
		Name     string `json:"name"`
		Endpoint string `json:"endpoint"`
		Token    string `json:"token,omitempty"`
		Default  bool   `json:"default,omitempty"`
	}

	output := struct {
		Profiles []jsonProfile `json:"profiles"`
	}{
		Profiles: make([]jsonProfile, len(profiles)),
	}

	for i := range profiles {
		p := &profiles[i]
		jp := jsonProfile{
			Name:     p.Name,
			Endpoint: p.Endpoint,
			Default:  p.Name == defaultName,
		}
		jp.Token = maskSecret(p.Token, showSecrets)
		output.Profiles[i] = jp
	}

	return writeJSON(w, output)
}

// FormatProfileShow formats a single profile as JSON.
func (f *JSONFormatter) FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error {
	output := struct {
		Name     string `json:"name"`
		Endpoint string `json:"endpoint"`
		Token    string `json:"token"`
		Default  bool   `json:"default"`
	}{
		Name:     profile.Name,
		Endpoint: profile.Endpoint,
		Token:    maskSecret(profile.Token, showSecrets),
		Default:  isDefault,
	}

	return writeJSON(w, output)
}

// maskSecret masks a secret string, showing only first 4 and last 4 characters.
// If showSecrets is true, returns the original value.
// If the secret is too short, returns all asterisks.
func maskSecret(secret string, showSecrets bool) string {
	if showSecrets {
		return secret
	}
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 8 {
		return "********"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}
