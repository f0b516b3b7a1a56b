package schemavalidator

import (
	"fmt"
	"net/http"

	"github.com/erraggy/oasguard/logging"
	"github.com/erraggy/oasguard/oaserrors"
	"github.com/erraggy/oasguard/router"
	"github.com/erraggy/oasguard/spec"
)

// Validator is the per-dialect validation capability. New selects the
// implementation once from the document's dialect.
type Validator interface {
	// Dialect reports which specification format the validator serves.
	Dialect() spec.Dialect

	// Resolve maps a method and path to a declared operation.
	// It returns a *oaserrors.NotFoundError when nothing matches.
	Resolve(method, path string) (*router.Match, error)

	// Coerce converts a raw string for the named parameter at the given
	// location. Undeclared parameters are returned as-is with NotCoerced.
	Coerce(op *spec.Operation, in spec.Location, name, raw string) (any, Coercion)

	// ValidateRequest checks an unpacked request. Failures are
	// *oaserrors.InvalidRequestError; a method the dialect cannot validate is
	// *oaserrors.UnsupportedMethodError.
	ValidateRequest(op *spec.Operation, bag *Bag) error

	// ValidateResponse checks a decoded response. Failures are
	// *oaserrors.InvalidResponseError.
	ValidateResponse(op *spec.Operation, resp *Response) error
}

// Bag is the uniform parameter set unpacked from one request.
// It is built fresh per request and never shared.
type Bag struct {
	// Params merges query, body, and path values, later sources winning.
	Params map[string]any

	// Headers holds declared header parameters. It is nil when header
	// checking is disabled, and header values are then never inspected.
	Headers map[string]any

	// Body is the decoded request body, or nil when the request had none.
	Body any
}

// NewBag returns an empty bag.
func NewBag() *Bag {
	return &Bag{Params: make(map[string]any)}
}

// Response is a captured response ready for validation.
type Response struct {
	StatusCode  int
	ContentType string
	Body        any

	// Headers holds declared response headers, coerced. It is nil when header
	// checking is disabled.
	Headers map[string]any
}

// Option configures New.
type Option func(*config) error

type config struct {
	prefix string
	logger logging.Logger
}

// WithPrefix sets a path prefix that is stripped before route matching.
func WithPrefix(prefix string) Option {
	return func(c *config) error {
		c.prefix = prefix
		return nil
	}
}

// WithLogger sets the logger for validation diagnostics.
func WithLogger(l logging.Logger) Option {
	return func(c *config) error {
		if l == nil {
			l = logging.NopLogger{}
		}
		c.logger = l
		return nil
	}
}

// New builds the validator for doc's dialect.
func New(doc *spec.Document, opts ...Option) (Validator, error) {
	cfg := &config{logger: logging.NopLogger{}}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("schemavalidator: invalid options: %w", err)
		}
	}
	if doc == nil {
		return nil, &oaserrors.ConfigError{Option: "document", Message: "document is required"}
	}

	r, err := router.New(doc, cfg.prefix)
	if err != nil {
		return nil, fmt.Errorf("schemavalidator: %w", err)
	}
	b := base{doc: doc, router: r, logger: cfg.logger.With("dialect", doc.Dialect.String())}

	switch doc.Dialect {
	case spec.OpenAPI3:
		return &operationValidator{base: b}, nil
	case spec.OpenAPI2, spec.HyperSchema:
		return &jsonSchemaValidator{base: b, checker: newChecker()}, nil
	default:
		return nil, &oaserrors.ConfigError{Option: "dialect", Value: doc.Dialect.String(), Message: "unsupported dialect"}
	}
}

// base carries what every dialect shares.
type base struct {
	doc    *spec.Document
	router *router.Router
	logger logging.Logger
}

func (b *base) Dialect() spec.Dialect {
	return b.doc.Dialect
}

func (b *base) Resolve(method, path string) (*router.Match, error) {
	return b.router.Resolve(method, path)
}

func (b *base) Coerce(op *spec.Operation, in spec.Location, name, raw string) (any, Coercion) {
	return coerceParameter(op, in, name, raw)
}

// ResponseHeaders extracts and coerces the headers declared for resp.
// Undeclared headers are ignored; absent ones are left out of the map.
func ResponseHeaders(op *spec.Operation, status int, h http.Header) map[string]any {
	out := make(map[string]any)
	if op == nil {
		return out
	}
	resp := op.ResponseOrDefault(status)
	if resp == nil {
		return out
	}
	for name, decl := range resp.Headers {
		values, ok := h[http.CanonicalHeaderKey(name)]
		if !ok || len(values) == 0 {
			continue
		}
		v, _ := CoerceValue(values[0], decl.Schema)
		out[decl.Name] = v
	}
	return out
}
