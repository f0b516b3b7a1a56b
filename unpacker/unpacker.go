// Package unpacker turns an HTTP request into the parameter bag a validator
// checks.
//
// Query values, the decoded body, and path placeholders are merged into one
// map, later sources winning: query, then body, then path. Declared
// parameters are coerced from their string form through a Coercer; undeclared
// ones are kept as raw strings.
package unpacker

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/erraggy/oasguard/internal/jsonutil"
	"github.com/erraggy/oasguard/oaserrors"
	"github.com/erraggy/oasguard/router"
	"github.com/erraggy/oasguard/schemavalidator"
	"github.com/erraggy/oasguard/spec"
)

// DefaultMaxBodySize is the default limit on request bodies (10 MiB).
const DefaultMaxBodySize int64 = 10 << 20

const formMediaType = "application/x-www-form-urlencoded"

// Coercer converts a raw string for a declared parameter.
// schemavalidator.Validator satisfies it.
type Coercer interface {
	Coerce(op *spec.Operation, in spec.Location, name, raw string) (any, schemavalidator.Coercion)
}

// Unpacker extracts parameters from requests. It holds only configuration and
// is safe for concurrent use.
type Unpacker struct {
	checkHeader bool
	maxBodySize int64
}

// Option configures an Unpacker.
type Option func(*Unpacker) error

// WithCheckHeader enables extraction of declared header parameters.
// When disabled, Bag.Headers is nil and header values are never read.
func WithCheckHeader(enabled bool) Option {
	return func(u *Unpacker) error {
		u.checkHeader = enabled
		return nil
	}
}

// WithMaxBodySize limits how many body bytes are read.
func WithMaxBodySize(size int64) Option {
	return func(u *Unpacker) error {
		if size <= 0 {
			return &oaserrors.ConfigError{Option: "MaxBodySize", Value: size, Message: "must be positive"}
		}
		u.maxBodySize = size
		return nil
	}
}

// New returns an Unpacker.
func New(opts ...Option) (*Unpacker, error) {
	u := &Unpacker{maxBodySize: DefaultMaxBodySize}
	for _, opt := range opts {
		if err := opt(u); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// CheckHeader reports whether header parameters are extracted.
func (u *Unpacker) CheckHeader() bool {
	return u.checkHeader
}

// Unpack builds the bag for r. match may be nil, in which case nothing is
// coerced. A malformed or oversized body is a *oaserrors.ParseError.
// The body is restored on r so later handlers can read it again.
func (u *Unpacker) Unpack(r *http.Request, match *router.Match, coercer Coercer) (*schemavalidator.Bag, error) {
	var op *spec.Operation
	if match != nil {
		op = match.Operation
	}
	c := binder{op: op, coercer: coercer}
	bag := schemavalidator.NewBag()

	if r.URL != nil {
		c.query(r.URL.Query(), bag.Params)
	}

	body, err := u.body(r, op)
	if err != nil {
		return nil, err
	}
	if obj, ok := body.(map[string]any); ok {
		for k, v := range obj {
			bag.Params[k] = v
		}
	}
	bag.Body = body

	if match != nil {
		for name, raw := range match.PathParams {
			bag.Params[name] = c.coerce(spec.InPath, name, raw)
		}
	}

	if u.checkHeader {
		bag.Headers = c.headers(r.Header)
	}
	return bag, nil
}

// binder coerces raw values for one operation.
type binder struct {
	op      *spec.Operation
	coercer Coercer
}

func (b binder) coerce(in spec.Location, name, raw string) any {
	if b.coercer == nil || b.op == nil {
		return raw
	}
	v, _ := b.coercer.Coerce(b.op, in, name, raw)
	return v
}

func (b binder) param(in spec.Location, name string) *spec.Parameter {
	if b.op == nil {
		return nil
	}
	return b.op.Parameter(in, name)
}

// query follows the declared style: a declared array collects repeated keys,
// or splits one delimited value when explode is off.
func (b binder) query(values url.Values, out map[string]any) {
	for name, raw := range values {
		p := b.param(spec.InQuery, name)
		isArray := p != nil && p.Schema != nil && p.Schema.Type == "array"

		if isArray && !p.Explode && len(raw) == 1 {
			if raw[0] == "" {
				out[name] = []any{}
				continue
			}
			sep := p.Delimiter
			if sep == "" {
				sep = ","
			}
			raw = strings.Split(raw[0], sep)
		}

		if !isArray && len(raw) == 1 {
			out[name] = b.coerce(spec.InQuery, name, raw[0])
			continue
		}

		list := make([]any, len(raw))
		for i, v := range raw {
			list[i] = b.coerce(spec.InQuery, name, v)
		}
		out[name] = list
	}
}

func (b binder) headers(h http.Header) map[string]any {
	out := make(map[string]any)
	if b.op == nil {
		return out
	}
	for _, p := range b.op.ParametersIn(spec.InHeader) {
		values := h.Values(p.Name)
		if len(values) == 0 {
			continue
		}
		out[p.Name] = b.coerce(spec.InHeader, p.Name, values[0])
	}
	return out
}

// body reads and decodes the request body by its media type. JSON is assumed
// when no Content-Type is sent.
func (u *Unpacker) body(r *http.Request, op *spec.Operation) (any, error) {
	data, err := u.readBody(r)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	contentType := r.Header.Get("Content-Type")
	mediaType := spec.MediaTypeKey(contentType)

	switch {
	case mediaType == "" || jsonutil.IsJSONMediaType(mediaType):
		v, err := jsonutil.Decode(data)
		if err != nil {
			return nil, &oaserrors.ParseError{Source: "request body", ContentType: contentType, Message: "invalid JSON", Cause: err}
		}
		if _, ok := v.(map[string]any); !ok {
			return nil, &oaserrors.ParseError{Source: "request body", ContentType: contentType, Message: "request body must be a JSON object"}
		}
		return v, nil

	case mediaType == formMediaType:
		values, err := url.ParseQuery(string(data))
		if err != nil {
			return nil, &oaserrors.ParseError{Source: "request body", ContentType: contentType, Message: "invalid form body", Cause: err}
		}
		var schema *spec.Schema
		if op != nil {
			schema = op.BodySchema(formMediaType)
		}
		return decodeForm(values, schema), nil
	}
	return nil, nil
}

func decodeForm(values url.Values, schema *spec.Schema) map[string]any {
	out := make(map[string]any, len(values))
	for name, raw := range values {
		prop := schema.Property(name)
		if len(raw) == 1 && (prop == nil || prop.Type != "array") {
			out[name], _ = schemavalidator.CoerceValue(raw[0], prop)
			continue
		}
		var items *spec.Schema
		if prop != nil {
			items = prop.Items
		}
		list := make([]any, len(raw))
		for i, v := range raw {
			list[i], _ = schemavalidator.CoerceValue(v, items)
		}
		out[name] = list
	}
	return out
}

func (u *Unpacker) readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, u.maxBodySize+1))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(data))
	if err != nil {
		return nil, &oaserrors.ParseError{Source: "request body", Message: "cannot read body", Cause: err}
	}
	if int64(len(data)) > u.maxBodySize {
		return nil, &oaserrors.ParseError{
			Source:  "request body",
			Message: fmt.Sprintf("body exceeds %d bytes", u.maxBodySize),
		}
	}
	return data, nil
}
