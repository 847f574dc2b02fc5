package cannedreports

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// DocumentFields collects the values of a document before validation.
type DocumentFields struct {
	Identifier          string `json:"identifier" validate:"required"`
	Revision            *int   `json:"revision" validate:"omitempty,min=0"`
	RevisionCount       *int   `json:"revisionCount" validate:"omitempty,min=0"`
	Name                string `json:"name" validate:"required"`
	Description         string `json:"description"`
	ContentType         string `json:"contentType"`
	ContentLength       *int64 `json:"contentLength" validate:"omitempty,min=0"`
	Body                *Body  `json:"-" validate:"-"`
	BodyIsBase64Encoded bool   `json:"bodyIsBase64Encoded"`

	requireRevision bool
}

func validateDocumentFields(sl validator.StructLevel) {
	f := sl.Current().Interface().(DocumentFields)
	if f.requireRevision && f.Revision == nil {
		sl.ReportError(f.Revision, "revision", "Revision", "required", "")
	}
}

// CanonicalDocument describes one revision of a stored report. Documents in
// a listing carry no body.
type CanonicalDocument struct {
	identifier          string
	revision            *int
	revisionCount       *int
	name                string
	description         string
	contentType         string
	contentLength       *int64
	body                *Body
	bodyIsBase64Encoded bool
}

// NewCanonicalDocument validates f and builds the document. Identifier and
// name are required.
func NewCanonicalDocument(f DocumentFields) (CanonicalDocument, error) {
	f.requireRevision = false
	return newDocument(f)
}

// NewStoredDocument builds a document that came from a completed store
// operation, which must also carry its revision.
func NewStoredDocument(f DocumentFields) (CanonicalDocument, error) {
	f.requireRevision = true
	return newDocument(f)
}

func newDocument(f DocumentFields) (CanonicalDocument, error) {
	if err := validateStruct("CanonicalDocument", f); err != nil {
		return CanonicalDocument{}, err
	}

	return CanonicalDocument{
		identifier:          f.Identifier,
		revision:            f.Revision,
		revisionCount:       f.RevisionCount,
		name:                f.Name,
		description:         f.Description,
		contentType:         f.ContentType,
		contentLength:       f.ContentLength,
		body:                f.Body,
		bodyIsBase64Encoded: f.BodyIsBase64Encoded,
	}, nil
}

func (d CanonicalDocument) Identifier() string { return d.identifier }

// Revision is the ordinal of the revision, oldest first, or nil when unknown.
func (d CanonicalDocument) Revision() *int { return d.revision }

// RevisionCount is the number of revisions of the report, or nil when unknown.
func (d CanonicalDocument) RevisionCount() *int { return d.revisionCount }

func (d CanonicalDocument) Name() string { return d.name }

func (d CanonicalDocument) Description() string { return d.description }

func (d CanonicalDocument) ContentType() string { return d.contentType }

func (d CanonicalDocument) ContentLength() *int64 { return d.contentLength }

func (d CanonicalDocument) Body() *Body { return d.body }

func (d CanonicalDocument) HasBody() bool { return d.body != nil }

func (d CanonicalDocument) BodyIsBase64Encoded() bool { return d.bodyIsBase64Encoded }

// documentJSON is the wire shape of a document. Bodies are never serialized.
type documentJSON struct {
	Identifier    string `json:"identifier"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	ContentType   string `json:"content_type,omitempty"`
	ContentLength *int64 `json:"content_length,omitempty"`
	Revision      *int   `json:"revision,omitempty"`
	RevisionCount *int   `json:"revision_count,omitempty"`
}

// MarshalJSON writes the document metadata without its body.
func (d CanonicalDocument) MarshalJSON() ([]byte, error) {
	return json.Marshal(documentJSON{
		Identifier:    d.identifier,
		Name:          d.name,
		Description:   d.description,
		ContentType:   d.contentType,
		ContentLength: d.contentLength,
		Revision:      d.revision,
		RevisionCount: d.revisionCount,
	})
}

func (d CanonicalDocument) String() string {
	return fmt.Sprintf("CanonicalDocument{identifier=%q, revision=%s, name=%q, contentType=%q, body=%t}",
		d.identifier, optionalInt(d.revision), d.name, d.contentType, d.body != nil)
}

func optionalInt(v *int) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprint(*v)
}

func intPtr(v int) *int { return &v }
