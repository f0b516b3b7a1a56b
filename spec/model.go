package spec

import (
	"fmt"
	"strings"
)

// Dialect identifies the specification format a Document was loaded from.
type Dialect int

const (
	// DialectUnknown is the zero value; Load never returns it.
	DialectUnknown Dialect = iota
	// HyperSchema is the legacy JSON hyper-schema format (definitions with links).
	HyperSchema
	// OpenAPI2 is Swagger 2.0.
	OpenAPI2
	// OpenAPI3 is OpenAPI 3.0.x.
	OpenAPI3
)

// String returns the dialect name used in error messages.
func (d Dialect) String() string {
	switch d {
	case HyperSchema:
		return "HyperSchema"
	case OpenAPI2:
		return "OpenAPI2"
	case OpenAPI3:
		return "OpenAPI3"
	default:
		return "Unknown"
	}
}

// Location is where a parameter is carried in a request.
type Location string

const (
	InQuery    Location = "query"
	InPath     Location = "path"
	InHeader   Location = "header"
	InBody     Location = "body"
	InFormData Location = "formData"
)

// Document is the typed, immutable tree built from a specification file.
// It is safe for concurrent read-only use.
type Document struct {
	Dialect Dialect
	Title   string
	Version string

	// Operations are ordered by path template, then method.
	Operations []*Operation
}

// Operation returns the operation declared for (method, template), or nil.
func (d *Document) Operation(method, template string) *Operation {
	method = strings.ToUpper(method)
	for _, op := range d.Operations {
		if op.Method == method && op.Path == template {
			return op
		}
	}
	return nil
}

// Operation is one (method, path template) entry.
type Operation struct {
	Method      string // upper case
	Path        string // template, e.g. "/pets/{id}"
	OperationID string
	Summary     string

	Parameters  []*Parameter
	RequestBody *RequestBody

	// Responses is keyed by status code string ("200") or "default".
	Responses map[string]*Response
}

// String returns "METHOD /path".
func (o *Operation) String() string {
	return fmt.Sprintf("%s %s", o.Method, o.Path)
}

// Parameter returns the declared parameter with the given location and name.
// Header names compare case-insensitively.
func (o *Operation) Parameter(in Location, name string) *Parameter {
	for _, p := range o.Parameters {
		if p.In != in {
			continue
		}
		if p.Name == name || (in == InHeader && strings.EqualFold(p.Name, name)) {
			return p
		}
	}
	return nil
}

// ParametersIn returns the declared parameters for one location, in declaration order.
func (o *Operation) ParametersIn(in Location) []*Parameter {
	var out []*Parameter
	for _, p := range o.Parameters {
		if p.In == in {
			out = append(out, p)
		}
	}
	return out
}

// BodySchema returns the request body schema for a media type, or nil.
func (o *Operation) BodySchema(mediaType string) *Schema {
	if o.RequestBody == nil {
		return nil
	}
	if mt := o.RequestBody.Content.Lookup(mediaType); mt != nil {
		return mt.Schema
	}
	return nil
}

// Response returns the exact response declared for status, or nil.
func (o *Operation) Response(status int) *Response {
	if o.Responses == nil {
		return nil
	}
	return o.Responses[fmt.Sprint(status)]
}

// ResponseOrDefault returns the exact response for status, falling back to "default".
func (o *Operation) ResponseOrDefault(status int) *Response {
	if r := o.Response(status); r != nil {
		return r
	}
	if o.Responses == nil {
		return nil
	}
	return o.Responses["default"]
}

// Parameter is a declared request parameter.
type Parameter struct {
	Name     string
	In       Location
	Required bool
	Schema   *Schema

	// Explode is false when an array query parameter is sent as one
	// delimited value (explode: false, or OpenAPI 2 collectionFormat other
	// than multi). Delimiter is then the separator: "," for form style and
	// csv, " " for spaceDelimited and ssv, "|" for pipeDelimited and pipes,
	// "\t" for tsv.
	Explode   bool
	Delimiter string
}

// RequestBody holds the declared request payloads by media type.
type RequestBody struct {
	Required bool
	Content  Content
}

// Response describes one declared response.
type Response struct {
	Description string
	Content     Content
	Headers     map[string]*Header
}

// Header is a declared response header.
type Header struct {
	Name     string
	Required bool
	Schema   *Schema
}

// MediaType is the envelope around a schema for one content type.
type MediaType struct {
	Schema *Schema
}

// Content maps a folded, parameter-free media type to its envelope.
type Content map[string]*MediaType

// Lookup finds the envelope for a Content-Type header value. Parameters such as
// charset are ignored and the type compares case-insensitively.
func (c Content) Lookup(contentType string) *MediaType {
	if len(c) == 0 {
		return nil
	}
	return c[MediaTypeKey(contentType)]
}

// Schema is a typed schema node.
type Schema struct {
	// Type is one of string, integer, number, boolean, object, array, or empty.
	Type     string
	Format   string
	Nullable bool
	Enum     []any

	Properties map[string]*Schema
	// Required is kept in declaration order.
	Required []string

	// Items is the array item schema. A union of item alternatives is expressed
	// as an Items node carrying AnyOf.
	Items *Schema

	AnyOf []*Schema
	AllOf []*Schema
	OneOf []*Schema

	Minimum          *float64
	Maximum          *float64
	ExclusiveMinimum bool
	ExclusiveMaximum bool
	MultipleOf       *float64

	MinLength *int
	MaxLength *int
	Pattern   string

	MinItems    *int
	MaxItems    *int
	UniqueItems bool
}

// Property returns the declared property schema, or nil.
func (s *Schema) Property(name string) *Schema {
	if s == nil || s.Properties == nil {
		return nil
	}
	return s.Properties[name]
}

// Describe returns a short rendering of the schema used in "isn't any of" messages.
func (s *Schema) Describe() string {
	if s == nil {
		return "{}"
	}
	switch {
	case s.Type != "" && len(s.Enum) > 0:
		return fmt.Sprintf("%s%v", s.Type, s.Enum)
	case s.Type != "":
		return s.Type
	case len(s.AnyOf) > 0:
		return "anyOf" + describeAll(s.AnyOf)
	case len(s.OneOf) > 0:
		return "oneOf" + describeAll(s.OneOf)
	case len(s.AllOf) > 0:
		return "allOf" + describeAll(s.AllOf)
	}
	return "{}"
}

func describeAll(list []*Schema) string {
	parts := make([]string, len(list))
	for i, s := range list {
		parts[i] = s.Describe()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
