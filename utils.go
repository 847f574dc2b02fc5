package cannedreports

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxIdentifierLength bounds report identifiers; S3 keys are limited to 1024 bytes.
const MaxIdentifierLength = 1024

// IsValidIdentifier validates that a string can be used as a report
// identifier. It checks that the identifier:
//   - is not empty, "." or ".."
//   - is at most MaxIdentifierLength bytes
//   - does not contain "/" (the transport uses it to separate the revision)
//   - does not contain invalid characters: \ ? # ~
//   - is valid UTF-8
//   - does not contain null bytes, control characters (< 0x20), DEL (0x7f), or whitespace
func IsValidIdentifier(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}

	if len(id) > MaxIdentifierLength {
		return false
	}

	if strings.ContainsAny(id, `/\?#~`) {
		return false
	}

	if !utf8.ValidString(id) {
		return false
	}

	for _, r := range id {
		if r == 0 || r < 0x20 || r == 0x7f || unicode.IsSpace(r) {
			return false
		}
	}

	return true
}

// Base64Suffix marks a stored content type whose bytes are base64 text.
const Base64Suffix = "+base64"

// TagBase64ContentType appends Base64Suffix to contentType when the body was
// transmitted base64 encoded. It never adds the suffix twice and leaves an
// empty content type alone.
func TagBase64ContentType(contentType string, base64Encoded bool) string {
	if !base64Encoded || contentType == "" || strings.HasSuffix(contentType, Base64Suffix) {
		return contentType
	}
	return contentType + Base64Suffix
}
