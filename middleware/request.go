package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/erraggy/oasguard/oaserrors"
	"github.com/erraggy/oasguard/schemavalidator"
	"github.com/erraggy/oasguard/spec"
	"github.com/erraggy/oasguard/unpacker"
)

type bagKey struct{}

// BagFromContext returns the parameters unpacked for the current request.
// It is set for requests that resolved to an operation and passed validation
// (or failed it under WithIgnoreError).
func BagFromContext(ctx context.Context) (*schemavalidator.Bag, bool) {
	bag, ok := ctx.Value(bagKey{}).(*schemavalidator.Bag)
	return bag, ok
}

// RequestValidation checks requests before they reach the wrapped handler.
type RequestValidation struct {
	cfg       *config
	validator schemavalidator.Validator
	unpacker  *unpacker.Unpacker
}

// NewRequestValidation builds request-side middleware for doc.
func NewRequestValidation(doc *spec.Document, opts ...Option) (*RequestValidation, error) {
	cfg, err := applyOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("middleware: invalid options: %w", err)
	}
	v, err := newValidator(doc, cfg)
	if err != nil {
		return nil, err
	}
	u, err := unpacker.New(unpacker.WithCheckHeader(cfg.checkHeader), unpacker.WithMaxBodySize(cfg.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("middleware: %w", err)
	}
	return &RequestValidation{cfg: cfg, validator: v, unpacker: u}, nil
}

func newValidator(doc *spec.Document, cfg *config) (schemavalidator.Validator, error) {
	v, err := schemavalidator.New(doc,
		schemavalidator.WithPrefix(cfg.prefix),
		schemavalidator.WithLogger(cfg.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("middleware: %w", err)
	}
	return v, nil
}

// Validator returns the validator in use.
func (m *RequestValidation) Validator() schemavalidator.Validator {
	return m.validator
}

// Wrap validates each request, then calls next.
//
// A malformed body is always returned as a *oaserrors.ParseError, and a
// method the dialect cannot validate as a *oaserrors.UnsupportedMethodError,
// whatever the policy. Validation failures follow the
// configured policy: returned (WithRaise), written as an error response
// (default), or ignored (WithIgnoreError). Under the first two next is never
// called.
func (m *RequestValidation) Wrap(next HandlerFunc) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		if m.cfg.acceptRequest != nil && !m.cfg.acceptRequest(r) {
			return next(w, r)
		}

		match, err := m.validator.Resolve(r.Method, r.URL.Path)
		if err != nil {
			if errors.Is(err, oaserrors.ErrNotFound) && !m.cfg.rejectUnmatched {
				m.cfg.logger.Debug("no operation for request", "method", r.Method, "path", r.URL.Path)
				return next(w, r)
			}
			if m.fail(w, r, err) {
				return next(w, r)
			}
			return m.raised(err)
		}

		bag, err := m.unpacker.Unpack(r, match, m.validator)
		if err != nil {
			return err
		}

		if err := m.validator.ValidateRequest(match.Operation, bag); err != nil {
			if !oaserrors.IsValidationFailure(err) {
				return err
			}
			if !m.fail(w, r, err) {
				return m.raised(err)
			}
		}

		return next(w, r.WithContext(context.WithValue(r.Context(), bagKey{}, bag)))
	}
}

// fail reports err and applies the policy. It returns true when the request
// should continue to the next handler.
func (m *RequestValidation) fail(w http.ResponseWriter, r *http.Request, err error) bool {
	m.cfg.logger.Warn("request validation failed", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	if m.cfg.errorHandler != nil {
		m.cfg.errorHandler(err, r)
	}
	switch {
	case m.cfg.raise:
		return false
	case m.cfg.ignoreError:
		return true
	}
	WriteError(w, m.cfg.errorStatus, err)
	return false
}

// raised returns err under WithRaise; otherwise the response has already been
// written and nil is returned.
func (m *RequestValidation) raised(err error) error {
	if m.cfg.raise {
		return err
	}
	return nil
}

// Handler wraps a standard handler. Errors that reach the edge, such as
// raised failures or parse errors, are written with WriteError.
func (m *RequestValidation) Handler(next http.Handler) http.Handler {
	return edge(m.Wrap(Adapt(next)), m.cfg)
}

func edge(h HandlerFunc, cfg *config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			cfg.logger.Error("validation error reached the edge", "method", r.Method, "path", r.URL.Path, "error", err.Error())
			WriteError(w, 0, err)
		}
	})
}
