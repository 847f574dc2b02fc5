package cannedreports

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// RevisionPattern is the grammar of a numeric revision selector.
const RevisionPattern = `^([-+])?([0-9]+)$`

var revisionRegex = regexp.MustCompile(RevisionPattern)

// RevisionSpecification selects one revision (or all revisions) of a report.
//
// An absolute specification is an index into the revisions ordered oldest
// first. A relative specification is an offset from the current revision, so
// "-1" is the revision before the current one. Only an explicit sign makes a
// specification relative: "0" is absolute (the first revision) while "+0" and
// "-0" are relative (the current revision).
type RevisionSpecification struct {
	All      bool
	Relative bool
	Value    int
}

// CurrentRevision selects the most recent revision.
var CurrentRevision = RevisionSpecification{Relative: true}

// ParseRevisionSpecification parses a textual selector. Empty text selects
// the current revision. The literal "ALL" (any case) selects every revision.
func ParseRevisionSpecification(text string) (RevisionSpecification, error) {
	if text == "" {
		return CurrentRevision, nil
	}

	if strings.EqualFold(text, "all") {
		return RevisionSpecification{All: true}, nil
	}

	m := revisionRegex.FindStringSubmatch(text)
	if m == nil {
		return RevisionSpecification{}, &Error{
			Kind:    KindInvalidRequest,
			Op:      "parse revision",
			Message: fmt.Sprintf("%q does not follow pattern '%s'", text, RevisionPattern),
		}
	}

	value, err := strconv.Atoi(text)
	if err != nil {
		return RevisionSpecification{}, &Error{
			Kind:    KindInvalidRequest,
			Op:      "parse revision",
			Message: fmt.Sprintf("%q is out of range", text),
		}
	}

	return RevisionSpecification{Relative: m[1] != "", Value: value}, nil
}

// IsCurrent reports whether the specification selects the current revision
// without reference to how many revisions exist.
func (r RevisionSpecification) IsCurrent() bool {
	return !r.All && r.Relative && r.Value == 0
}

// String returns the canonical textual form, which parses back to r.
func (r RevisionSpecification) String() string {
	if r.All {
		return "all"
	}
	if r.Relative && r.Value >= 0 {
		return "+" + strconv.Itoa(r.Value)
	}
	return strconv.Itoa(r.Value)
}

// Index computes the revision index for a report with count revisions. The
// returned index may be out of range; callers check it.
func (r RevisionSpecification) Index(count int) int {
	if r.Relative {
		return (count - 1) + r.Value
	}
	return r.Value
}

// Resolve selects a version token from versions, which must be ordered oldest
// first. It returns the chosen index and token, or an unknown revision error
// naming the identifier when the index falls outside the list.
func (r RevisionSpecification) Resolve(identifier string, versions []string) (int, string, error) {
	if r.All {
		return 0, "", &Error{
			Kind:    KindUnsupported,
			Op:      "resolve revision",
			Message: "the 'all' revision selector cannot address a single revision",
		}
	}

	index := r.Index(len(versions))
	if index < 0 || index >= len(versions) {
		return 0, "", unknownRevision(identifier, r)
	}

	return index, versions[index], nil
}
