package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/erraggy/oasguard/internal/jsonutil"
	"github.com/erraggy/oasguard/oaserrors"
	"github.com/erraggy/oasguard/schemavalidator"
	"github.com/erraggy/oasguard/spec"
)

// ResponseValidation checks responses produced by the wrapped handler.
type ResponseValidation struct {
	cfg       *config
	validator schemavalidator.Validator
}

// NewResponseValidation builds response-side middleware for doc.
func NewResponseValidation(doc *spec.Document, opts ...Option) (*ResponseValidation, error) {
	cfg, err := applyOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("middleware: invalid options: %w", err)
	}
	v, err := newValidator(doc, cfg)
	if err != nil {
		return nil, err
	}
	return &ResponseValidation{cfg: cfg, validator: v}, nil
}

// Validator returns the validator in use.
func (m *ResponseValidation) Validator() schemavalidator.Validator {
	return m.validator
}

// Wrap runs next into a buffer, validates what it produced, then sends it.
//
// Empty bodies are never validated, and neither are non-2xx responses while
// ValidateSuccessOnly is on. A body that cannot be decoded is returned as a
// *oaserrors.ParseError and nothing is sent. When next fails, its partial
// response is discarded and the error is returned. On a validation failure the
// original response is sent under WithIgnoreError, an error response is sent
// by default, and under WithRaise the failure is returned and nothing is sent.
func (m *ResponseValidation) Wrap(next HandlerFunc) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		if m.cfg.acceptRequest != nil && !m.cfg.acceptRequest(r) {
			return next(w, r)
		}

		match, err := m.validator.Resolve(r.Method, r.URL.Path)
		if err != nil {
			if errors.Is(err, oaserrors.ErrNotFound) {
				return next(w, r)
			}
			return err
		}

		rec := newRecorder()
		defer rec.release()

		if err := next(rec, r); err != nil {
			return err
		}

		if err := m.check(rec, match.Operation); err != nil {
			if !oaserrors.IsValidationFailure(err) {
				return err
			}
			m.cfg.logger.Warn("response validation failed",
				"method", r.Method, "path", r.URL.Path, "status", rec.Status(), "error", err.Error())
			if m.cfg.errorHandler != nil {
				m.cfg.errorHandler(err, r)
			}
			switch {
			case m.cfg.raise:
				return err
			case !m.cfg.ignoreError:
				WriteError(w, m.cfg.errorStatus, err)
				return nil
			}
		}

		return rec.flush(w)
	}
}

func (m *ResponseValidation) check(rec *recorder, op *spec.Operation) error {
	raw := rec.body.Bytes()
	if len(raw) == 0 {
		return nil
	}
	status := rec.Status()
	if m.cfg.validateSuccessOnly && (status < 200 || status > 299) {
		return nil
	}

	contentType := rec.Header().Get("Content-Type")
	mediaType := spec.MediaTypeKey(contentType)
	if mediaType == "" {
		contentType = "application/json"
	}

	var body any
	if !m.cfg.parseResponseByContentType || mediaType == "" || jsonutil.IsJSONMediaType(mediaType) {
		v, err := jsonutil.Decode(raw)
		if err != nil {
			return &oaserrors.ParseError{Source: responseBodySource, ContentType: contentType, Message: "invalid JSON", Cause: err}
		}
		body = v
	} else {
		body = string(raw)
	}

	resp := &schemavalidator.Response{StatusCode: status, ContentType: contentType, Body: body}
	if m.cfg.checkHeader {
		resp.Headers = schemavalidator.ResponseHeaders(op, status, rec.Header())
	}
	return m.validator.ValidateResponse(op, resp)
}

// Handler wraps a standard handler. Errors that reach the edge are written
// with WriteError.
func (m *ResponseValidation) Handler(next http.Handler) http.Handler {
	return edge(m.Wrap(Adapt(next)), m.cfg)
}
