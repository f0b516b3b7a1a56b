package spec

import (
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	json "github.com/goccy/go-json"

	"github.com/erraggy/oasguard/internal/jsonutil"
)

// loadOpenAPI3 loads an OpenAPI 3 document. With a location, references to
// other files are resolved relative to it; without one they are rejected.
func loadOpenAPI3(data []byte, location string) (*Document, error) {
	loader := openapi3.NewLoader()
	if location == "" {
		loader.IsExternalRefsAllowed = false
		doc, err := loader.LoadFromData(data)
		if err != nil {
			return nil, err
		}
		return fromOpenAPI3(doc)
	}

	loader.IsExternalRefsAllowed = true
	doc, err := loader.LoadFromDataWithPath(data, &url.URL{Path: filepath.ToSlash(location)})
	if err != nil {
		return nil, err
	}
	return fromOpenAPI3(doc)
}

// loadOpenAPI2 converts a Swagger 2.0 tree to OpenAPI 3 and builds the typed
// tree from the result. Body parameters become the request body and formData
// parameters become a form request body.
func loadOpenAPI2(root map[string]any) (*Document, error) {
	raw, err := json.Marshal(root)
	if err != nil {
		return nil, err
	}

	var v2 openapi2.T
	if err := json.Unmarshal(raw, &v2); err != nil {
		return nil, err
	}

	v3, err := openapi2conv.ToV3(&v2)
	if err != nil {
		return nil, fmt.Errorf("convert to OpenAPI 3: %w", err)
	}
	if err := openapi3.NewLoader().ResolveRefsIn(v3, nil); err != nil {
		return nil, fmt.Errorf("resolve references: %w", err)
	}
	doc, err := fromOpenAPI3(v3)
	if err != nil {
		return nil, err
	}
	applyCollectionFormats(doc, root)
	return doc, nil
}

// applyCollectionFormats copies collectionFormat from Swagger 2.0 query array
// parameters, which the conversion to OpenAPI 3 drops. Operation parameters
// override path-level ones.
func applyCollectionFormats(doc *Document, root map[string]any) {
	paths, _ := root["paths"].(map[string]any)
	shared, _ := root["parameters"].(map[string]any)

	for _, op := range doc.Operations {
		item, _ := paths[op.Path].(map[string]any)
		if item == nil {
			continue
		}
		formats := make(map[string]string)
		collect := func(list any) {
			entries, _ := list.([]any)
			for _, entry := range entries {
				p, _ := entry.(map[string]any)
				if ref, ok := p["$ref"].(string); ok {
					p, _ = shared[strings.TrimPrefix(ref, "#/parameters/")].(map[string]any)
				}
				if p == nil || p["in"] != "query" || p["type"] != "array" {
					continue
				}
				name, _ := p["name"].(string)
				format, _ := p["collectionFormat"].(string)
				formats[name] = format
			}
		}
		collect(item["parameters"])
		opRaw, _ := item[strings.ToLower(op.Method)].(map[string]any)
		collect(opRaw["parameters"])

		for name, format := range formats {
			if p := op.Parameter(InQuery, name); p != nil {
				p.Explode, p.Delimiter = collectionFormat(format)
			}
		}
	}
}

// collectionFormat maps a Swagger 2.0 collectionFormat; csv is the default.
func collectionFormat(format string) (explode bool, delimiter string) {
	switch format {
	case "multi":
		return true, ","
	case "ssv":
		return false, " "
	case "tsv":
		return false, "\t"
	case "pipes":
		return false, "|"
	default:
		return false, ","
	}
}

type openapiConverter struct {
	schemas map[*openapi3.Schema]*Schema
}

func fromOpenAPI3(doc *openapi3.T) (*Document, error) {
	c := &openapiConverter{schemas: make(map[*openapi3.Schema]*Schema)}
	out := &Document{}
	if doc.Info != nil {
		out.Title = doc.Info.Title
		out.Version = doc.Info.Version
	}

	templates := make([]string, 0, len(doc.Paths))
	for template := range doc.Paths {
		templates = append(templates, template)
	}
	sort.Strings(templates)

	for _, template := range templates {
		item := doc.Paths[template]
		if item == nil {
			continue
		}
		for method, op := range item.Operations() {
			if op == nil {
				continue
			}
			out.Operations = append(out.Operations, c.operation(method, template, item, op))
		}
	}
	return out, nil
}

func (c *openapiConverter) operation(method, template string, item *openapi3.PathItem, op *openapi3.Operation) *Operation {
	out := &Operation{
		Method:      method,
		Path:        template,
		OperationID: op.OperationID,
		Summary:     op.Summary,
	}

	// Operation parameters override path-level ones with the same (in, name).
	seen := make(map[string]bool)
	for _, ref := range op.Parameters {
		if p := c.parameter(ref); p != nil {
			seen[string(p.In)+":"+p.Name] = true
			out.Parameters = append(out.Parameters, p)
		}
	}
	for _, ref := range item.Parameters {
		if p := c.parameter(ref); p != nil && !seen[string(p.In)+":"+p.Name] {
			out.Parameters = append(out.Parameters, p)
		}
	}

	if op.RequestBody != nil && op.RequestBody.Value != nil {
		out.RequestBody = &RequestBody{
			Required: op.RequestBody.Value.Required,
			Content:  c.content(op.RequestBody.Value.Content),
		}
	}

	if len(op.Responses) > 0 {
		out.Responses = make(map[string]*Response, len(op.Responses))
		for status, ref := range op.Responses {
			if ref == nil || ref.Value == nil {
				continue
			}
			out.Responses[status] = c.response(ref.Value)
		}
	}
	return out
}

func (c *openapiConverter) parameter(ref *openapi3.ParameterRef) *Parameter {
	if ref == nil || ref.Value == nil {
		return nil
	}
	p := ref.Value

	var in Location
	switch p.In {
	case openapi3.ParameterInQuery:
		in = InQuery
	case openapi3.ParameterInPath:
		in = InPath
	case openapi3.ParameterInHeader:
		in = InHeader
	default:
		// cookie parameters are not unpacked
		return nil
	}

	out := &Parameter{
		Name:     p.Name,
		In:       in,
		Required: p.Required || in == InPath,
		Explode:  true,
	}
	if p.Explode != nil {
		out.Explode = *p.Explode
	} else if p.Style != "" && p.Style != openapi3.SerializationForm {
		out.Explode = false
	}
	switch p.Style {
	case openapi3.SerializationSpaceDelimited:
		out.Delimiter = " "
	case openapi3.SerializationPipeDelimited:
		out.Delimiter = "|"
	default:
		out.Delimiter = ","
	}

	switch {
	case p.Schema != nil:
		out.Schema = c.schema(p.Schema)
	case len(p.Content) > 0:
		for _, mt := range p.Content {
			if mt != nil && mt.Schema != nil {
				out.Schema = c.schema(mt.Schema)
				break
			}
		}
	}
	return out
}

func (c *openapiConverter) response(r *openapi3.Response) *Response {
	out := &Response{Content: c.content(r.Content)}
	if r.Description != nil {
		out.Description = *r.Description
	}
	if len(r.Headers) > 0 {
		out.Headers = make(map[string]*Header, len(r.Headers))
		for name, ref := range r.Headers {
			if ref == nil || ref.Value == nil {
				continue
			}
			out.Headers[http.CanonicalHeaderKey(name)] = &Header{
				Name:     name,
				Required: ref.Value.Required,
				Schema:   c.schema(ref.Value.Schema),
			}
		}
	}
	return out
}

func (c *openapiConverter) content(content openapi3.Content) Content {
	if len(content) == 0 {
		return nil
	}
	out := make(Content, len(content))
	for mediaType, mt := range content {
		env := &MediaType{}
		if mt != nil {
			env.Schema = c.schema(mt.Schema)
		}
		out[MediaTypeKey(mediaType)] = env
	}
	return out
}

// schema converts a kin-openapi schema. Converted nodes are memoized by
// source pointer so recursive components yield a cyclic tree.
func (c *openapiConverter) schema(ref *openapi3.SchemaRef) *Schema {
	if ref == nil || ref.Value == nil {
		return nil
	}
	src := ref.Value
	if s, ok := c.schemas[src]; ok {
		return s
	}

	s := &Schema{
		Type:             src.Type,
		Format:           src.Format,
		Nullable:         src.Nullable,
		Required:         src.Required,
		Minimum:          src.Min,
		Maximum:          src.Max,
		ExclusiveMinimum: src.ExclusiveMin,
		ExclusiveMaximum: src.ExclusiveMax,
		MultipleOf:       src.MultipleOf,
		Pattern:          src.Pattern,
		UniqueItems:      src.UniqueItems,
	}
	c.schemas[src] = s

	if len(src.Enum) > 0 {
		s.Enum = make([]any, len(src.Enum))
		for i, v := range src.Enum {
			s.Enum[i] = jsonutil.Normalize(v)
		}
	}
	if src.MinLength > 0 {
		n := int(src.MinLength)
		s.MinLength = &n
	}
	if src.MaxLength != nil {
		n := int(*src.MaxLength)
		s.MaxLength = &n
	}
	if src.MinItems > 0 {
		n := int(src.MinItems)
		s.MinItems = &n
	}
	if src.MaxItems != nil {
		n := int(*src.MaxItems)
		s.MaxItems = &n
	}

	if len(src.Properties) > 0 {
		s.Properties = make(map[string]*Schema, len(src.Properties))
		for name, p := range src.Properties {
			s.Properties[name] = c.schema(p)
		}
	}
	s.Items = c.schema(src.Items)
	s.AnyOf = c.schemaList(src.AnyOf)
	s.OneOf = c.schemaList(src.OneOf)
	s.AllOf = c.schemaList(src.AllOf)
	return s
}

func (c *openapiConverter) schemaList(refs openapi3.SchemaRefs) []*Schema {
	if len(refs) == 0 {
		return nil
	}
	out := make([]*Schema, 0, len(refs))
	for _, ref := range refs {
		if s := c.schema(ref); s != nil {
			out = append(out, s)
		}
	}
	return out
}
