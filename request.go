package cannedreports

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// HTTP methods understood by the dispatcher.
const (
	MethodPost   = "POST"
	MethodPut    = "PUT"
	MethodGet    = "GET"
	MethodDelete = "DELETE"
	MethodHead   = "HEAD"
)

// RequestFields collects the raw values of an inbound operation before they
// are validated into a CanonicalRequest.
type RequestFields struct {
	Method                string `json:"method" validate:"required,oneof=POST PUT GET DELETE HEAD"`
	Identifier            string `json:"identifier"`
	RevisionSpecification string `json:"revisionSpecification"`
	Name                  string `json:"name"`
	Description           string `json:"description"`
	ContentType           string `json:"contentType"`
	ContentLength         *int64 `json:"contentLength" validate:"-"`
	Authorization         string `json:"authorization"`
	Body                  *Body  `json:"body" validate:"-"`
	BodyIsBase64Encoded   bool   `json:"bodyIsBase64Encoded"`
}

// CanonicalRequest is the transport neutral form of an inbound operation.
// It is immutable once built.
type CanonicalRequest struct {
	method              string
	identifier          string
	revision            RevisionSpecification
	revisionSpecified   bool
	name                string
	description         string
	contentType         string
	contentLength       *int64
	authorization       string
	body                *Body
	bodyIsBase64Encoded bool
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	v.RegisterStructValidation(validateRequestFields, RequestFields{})
	v.RegisterStructValidation(validateDocumentFields, DocumentFields{})
	return v
}

func validateRequestFields(sl validator.StructLevel) {
	f := sl.Current().Interface().(RequestFields)

	switch f.Method {
	case MethodDelete, MethodPut, MethodHead:
		if f.Identifier == "" {
			sl.ReportError(f.Identifier, "identifier", "Identifier", "required", "")
		}
	}

	if f.Identifier != "" && !IsValidIdentifier(f.Identifier) {
		sl.ReportError(f.Identifier, "identifier", "Identifier", "identifier", "")
	}

	switch f.Method {
	case MethodPost, MethodPut:
		if f.Body == nil {
			sl.ReportError(f.Body, "body", "Body", "required", "")
		}
	}

	if f.ContentLength != nil && *f.ContentLength < 1 {
		sl.ReportError(*f.ContentLength, "contentLength", "ContentLength", "min", "1")
	}

	if _, err := ParseRevisionSpecification(f.RevisionSpecification); err != nil {
		sl.ReportError(f.RevisionSpecification, "revisionSpecification", "RevisionSpecification", "revision", RevisionPattern)
	}
}

// validateStruct runs the validator and converts its result into a
// ValidationError carrying every failure.
func validateStruct(context string, s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%s: %w", context, err)
	}

	vErr := &ValidationError{Context: context}
	for _, fe := range fieldErrs {
		vErr.Failures = append(vErr.Failures, FieldFailure{
			Field:   fe.Field(),
			Message: failureMessage(fe),
		})
	}
	return vErr
}

func failureMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "value is required"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min":
		return "minimum value " + fe.Param() + " not met"
	case "identifier":
		return "not a valid identifier"
	case "revision":
		return "does not follow pattern '" + fe.Param() + "'"
	default:
		return "failed constraint " + fe.Tag()
	}
}

// NewCanonicalRequest validates f and builds the request. The method is
// matched case-insensitively. All violations are reported together in a
// *ValidationError.
func NewCanonicalRequest(f RequestFields) (CanonicalRequest, error) {
	f.Method = strings.ToUpper(strings.TrimSpace(f.Method))

	if err := validateStruct("CanonicalRequest", f); err != nil {
		return CanonicalRequest{}, err
	}

	revision, err := ParseRevisionSpecification(f.RevisionSpecification)
	if err != nil {
		return CanonicalRequest{}, err
	}

	return CanonicalRequest{
		method:              f.Method,
		identifier:          f.Identifier,
		revision:            revision,
		revisionSpecified:   f.RevisionSpecification != "",
		name:                f.Name,
		description:         f.Description,
		contentType:         f.ContentType,
		contentLength:       f.ContentLength,
		authorization:       f.Authorization,
		body:                f.Body,
		bodyIsBase64Encoded: f.BodyIsBase64Encoded,
	}, nil
}

func (r CanonicalRequest) Method() string { return r.method }

func (r CanonicalRequest) Identifier() string { return r.identifier }

// RevisionSpecification returns the parsed selector, the current revision
// when none was given.
func (r CanonicalRequest) RevisionSpecification() RevisionSpecification { return r.revision }

// RevisionSpecified reports whether the caller supplied a selector.
func (r CanonicalRequest) RevisionSpecified() bool { return r.revisionSpecified }

func (r CanonicalRequest) Name() string { return r.name }

func (r CanonicalRequest) Description() string { return r.description }

func (r CanonicalRequest) ContentType() string { return r.contentType }

func (r CanonicalRequest) ContentLength() *int64 { return r.contentLength }

func (r CanonicalRequest) Authorization() string { return r.authorization }

func (r CanonicalRequest) Body() *Body { return r.body }

func (r CanonicalRequest) BodyIsBase64Encoded() bool { return r.bodyIsBase64Encoded }

// String describes the request for logs. Credentials and content are never included.
func (r CanonicalRequest) String() string {
	length := "nil"
	if r.contentLength != nil {
		length = fmt.Sprint(*r.contentLength)
	}
	return fmt.Sprintf(
		"CanonicalRequest{method=%s, identifier=%q, revision=%s, name=%q, contentType=%q, contentLength=%s, authorization=%t, body=%t, base64=%t}",
		r.method, r.identifier, r.revision, r.name, r.contentType, length,
		r.authorization != "", r.body != nil, r.bodyIsBase64Encoded,
	)
}
