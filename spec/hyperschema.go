package spec

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/erraggy/oasguard/internal/jsonutil"
	"github.com/erraggy/oasguard/logging"
)

// hrefPlaceholder matches "{(%23%2Fdefinitions%2Fapp%2Fdefinitions%2Fidentity)}".
var hrefPlaceholder = regexp.MustCompile(`\{\(([^)]+)\)\}`)

// Link relations whose response is the enclosing resource schema when no
// targetSchema is given; "instances" responds with an array of it.
var resourceRels = map[string]bool{"": true, "self": true, "create": true, "update": true, "destroy": true}

type hyperLoader struct {
	root   map[string]any
	logger logging.Logger
	refs   map[string]*Schema
}

// loadHyperSchema turns every link of every definition into an Operation.
// The link's schema becomes the JSON request body (and, for GET, the query
// parameters); its targetSchema becomes the "default" response.
func loadHyperSchema(root map[string]any, logger logging.Logger) (*Document, error) {
	l := &hyperLoader{root: root, logger: logger, refs: make(map[string]*Schema)}
	doc := &Document{Title: getString(root, "title")}

	if err := l.addLinks(doc, getSlice(root, "links"), nil, "#"); err != nil {
		return nil, err
	}

	defs := getMap(root, "definitions")
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		def, ok := defs[name].(map[string]any)
		if !ok {
			continue
		}
		if err := l.addLinks(doc, getSlice(def, "links"), def, "definitions/"+name); err != nil {
			return nil, err
		}
	}

	if len(doc.Operations) == 0 {
		logger.Warn("hyper-schema declares no links", "definitions", len(names))
	}
	return doc, nil
}

// addLinks appends one operation per link. resource is the enclosing
// definition, nil for root links.
func (l *hyperLoader) addLinks(doc *Document, links []any, resource map[string]any, where string) error {
	for i, raw := range links {
		link, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		op, err := l.operation(resource, link)
		if err != nil {
			return fmt.Errorf("%s/links/%d: %w", where, i, err)
		}
		if existing := doc.Operation(op.Method, op.Path); existing != nil {
			l.logger.Warn("duplicate hyper-schema link ignored", "method", op.Method, "path", op.Path)
			continue
		}
		doc.Operations = append(doc.Operations, op)
	}
	return nil
}

func (l *hyperLoader) operation(resource, link map[string]any) (*Operation, error) {
	href := getString(link, "href")
	if href == "" {
		return nil, fmt.Errorf("link has no href")
	}

	method := strings.ToUpper(getString(link, "method"))
	if method == "" {
		method = "GET"
	}

	op := &Operation{
		Method:  method,
		Summary: getString(link, "title"),
	}

	path, params, err := l.expandHref(href)
	if err != nil {
		return nil, err
	}
	op.Path = path
	op.Parameters = params

	if raw := getMap(link, "schema"); raw != nil {
		reqSchema, err := l.schema(raw)
		if err != nil {
			return nil, fmt.Errorf("schema: %w", err)
		}
		op.RequestBody = &RequestBody{Content: Content{"application/json": {Schema: reqSchema}}}
		if method == "GET" {
			op.Parameters = append(op.Parameters, queryParams(reqSchema)...)
		}
	}

	respSchema, err := l.responseSchema(resource, link)
	if err != nil {
		return nil, fmt.Errorf("targetSchema: %w", err)
	}
	if respSchema != nil {
		op.Responses = map[string]*Response{
			"default": {Content: Content{"application/json": {Schema: respSchema}}},
		}
	}
	return op, nil
}

// expandHref rewrites pointer placeholders into "{name}" and declares a path
// parameter for each, typed by the schema the pointer targets.
func (l *hyperLoader) expandHref(href string) (string, []*Parameter, error) {
	var params []*Parameter
	var firstErr error

	path := hrefPlaceholder.ReplaceAllStringFunc(href, func(m string) string {
		encoded := hrefPlaceholder.FindStringSubmatch(m)[1]
		pointer, err := url.PathUnescape(encoded)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("href placeholder %q: %w", encoded, err)
			}
			return m
		}

		name := pointer[strings.LastIndex(pointer, "/")+1:]
		param := &Parameter{Name: name, In: InPath, Required: true}
		if target, err := resolvePointer(l.root, pointer); err == nil {
			if raw, ok := target.(map[string]any); ok {
				param.Schema, err = l.schema(raw)
				if err != nil && firstErr == nil {
					firstErr = err
				}
			}
		} else {
			l.logger.Warn("unresolved href placeholder", "pointer", pointer, "error", err)
		}
		params = append(params, param)
		return "{" + name + "}"
	})
	if firstErr != nil {
		return "", nil, firstErr
	}
	return path, params, nil
}

func (l *hyperLoader) responseSchema(resource, link map[string]any) (*Schema, error) {
	if raw := getMap(link, "targetSchema"); raw != nil {
		return l.schema(raw)
	}

	rel := getString(link, "rel")
	if rel != "instances" && !resourceRels[rel] {
		return nil, nil
	}
	if resource == nil || getMap(resource, "properties") == nil {
		return nil, nil
	}

	parent, err := l.schema(resource)
	if err != nil {
		return nil, err
	}
	if rel == "instances" {
		return &Schema{Type: "array", Items: parent}, nil
	}
	return parent, nil
}

func queryParams(s *Schema) []*Parameter {
	if s == nil || len(s.Properties) == 0 {
		return nil
	}
	required := make(map[string]bool, len(s.Required))
	for _, r := range s.Required {
		required[r] = true
	}

	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	params := make([]*Parameter, 0, len(names))
	for _, name := range names {
		params = append(params, &Parameter{
			Name:      name,
			In:        InQuery,
			Required:  required[name],
			Schema:    s.Properties[name],
			Explode:   true,
			Delimiter: ",",
		})
	}
	return params
}

// schema converts a raw draft-04 schema object. $ref targets are memoized by
// pointer so recursive definitions convert to a cyclic tree.
func (l *hyperLoader) schema(raw map[string]any) (*Schema, error) {
	if ref := getString(raw, "$ref"); ref != "" {
		if s, ok := l.refs[ref]; ok {
			return s, nil
		}
		target, err := resolvePointer(l.root, ref)
		if err != nil {
			return nil, err
		}
		obj, ok := target.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("reference %s is not a schema object", ref)
		}
		s := &Schema{}
		l.refs[ref] = s
		if err := l.fill(s, obj); err != nil {
			return nil, err
		}
		return s, nil
	}

	s := &Schema{}
	if err := l.fill(s, raw); err != nil {
		return nil, err
	}
	return s, nil
}

func (l *hyperLoader) fill(s *Schema, raw map[string]any) error {
	var types []string
	switch t := raw["type"].(type) {
	case string:
		types = []string{t}
	case []any:
		types = getStringSlice(raw, "type")
	}

	var concrete []string
	for _, t := range types {
		if t == "null" {
			s.Nullable = true
			continue
		}
		concrete = append(concrete, t)
	}
	switch len(concrete) {
	case 0:
	case 1:
		s.Type = concrete[0]
	default:
		// ["string", "integer"] is a union of single-type schemas.
		for _, t := range concrete {
			s.AnyOf = append(s.AnyOf, &Schema{Type: t})
		}
	}

	s.Format = getString(raw, "format")
	s.Pattern = getString(raw, "pattern")
	s.Required = getStringSlice(raw, "required")
	s.UniqueItems = getBool(raw, "uniqueItems")
	s.Minimum = getFloat(raw, "minimum")
	s.Maximum = getFloat(raw, "maximum")
	s.ExclusiveMinimum = getBool(raw, "exclusiveMinimum")
	s.ExclusiveMaximum = getBool(raw, "exclusiveMaximum")
	s.MultipleOf = getFloat(raw, "multipleOf")
	s.MinLength = getInt(raw, "minLength")
	s.MaxLength = getInt(raw, "maxLength")
	s.MinItems = getInt(raw, "minItems")
	s.MaxItems = getInt(raw, "maxItems")

	if enum := getSlice(raw, "enum"); len(enum) > 0 {
		s.Enum = make([]any, len(enum))
		for i, v := range enum {
			s.Enum[i] = jsonutil.Normalize(v)
		}
	}

	if props := getMap(raw, "properties"); len(props) > 0 {
		s.Properties = make(map[string]*Schema, len(props))
		for name, p := range props {
			pm, ok := p.(map[string]any)
			if !ok {
				continue
			}
			ps, err := l.schema(pm)
			if err != nil {
				return fmt.Errorf("properties/%s: %w", name, err)
			}
			s.Properties[name] = ps
		}
	}

	if items := getMap(raw, "items"); items != nil {
		is, err := l.schema(items)
		if err != nil {
			return fmt.Errorf("items: %w", err)
		}
		s.Items = is
	}

	var err error
	if s.AnyOf, err = l.schemaList(raw, "anyOf", s.AnyOf); err != nil {
		return err
	}
	if s.OneOf, err = l.schemaList(raw, "oneOf", nil); err != nil {
		return err
	}
	if s.AllOf, err = l.schemaList(raw, "allOf", nil); err != nil {
		return err
	}
	return nil
}

func (l *hyperLoader) schemaList(raw map[string]any, key string, into []*Schema) ([]*Schema, error) {
	for i, item := range getSlice(raw, key) {
		im, ok := item.(map[string]any)
		if !ok {
			continue
		}
		s, err := l.schema(im)
		if err != nil {
			return nil, fmt.Errorf("%s/%d: %w", key, i, err)
		}
		into = append(into, s)
	}
	return into, nil
}
