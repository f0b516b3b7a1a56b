package schemavalidator

import (
	"sort"

	"github.com/erraggy/oasguard/internal/issues"
	"github.com/erraggy/oasguard/oaserrors"
	"github.com/erraggy/oasguard/spec"
)

// jsonSchemaValidator serves hyper-schema and OpenAPI 2 documents. It runs
// the full JSON-schema checker and reports every violation joined into one
// message. Every HTTP method is validated.
type jsonSchemaValidator struct {
	base
	checker *checker
}

// ValidateRequest checks path parameters, then the dialect's parameter shape,
// then headers when the bag carries them.
//
// Hyper-schema links describe their parameters as one object schema, so the
// merged params are checked against it whole. OpenAPI 2 parameters are
// declared one by one, so query parameters are checked individually and the
// body is checked against the body schema.
func (v *jsonSchemaValidator) ValidateRequest(op *spec.Operation, bag *Bag) error {
	if op == nil || bag == nil {
		return nil
	}

	var list issues.List
	v.checkDeclared(op.ParametersIn(spec.InPath), bag.Params, "path", &list)

	switch v.doc.Dialect {
	case spec.HyperSchema:
		if schema := op.BodySchema("application/json"); schema != nil {
			v.checker.Check(bag.Params, schema, "params", &list)
		}
	default:
		v.checkDeclared(op.ParametersIn(spec.InQuery), bag.Params, "query", &list)
		v.checkBody(op, bag.Body, &list)
	}

	if bag.Headers != nil {
		v.checkDeclared(op.ParametersIn(spec.InHeader), bag.Headers, "header", &list)
	}

	return v.finish(list, func(msg string) error {
		return &oaserrors.InvalidRequestError{Operation: op.String(), Message: msg}
	})
}

func (v *jsonSchemaValidator) checkDeclared(params []*spec.Parameter, values map[string]any, where string, list *issues.List) {
	for _, p := range params {
		path := issues.JoinPath(where, p.Name)
		value, ok := values[p.Name]
		if !ok && p.In == spec.InHeader {
			value, ok = lookupHeader(values, p.Name)
		}
		if !ok {
			if p.Required {
				list.Add(path, "required parameter %q is missing", p.Name)
			}
			continue
		}
		v.checker.Check(value, p.Schema, path, list)
	}
}

func (v *jsonSchemaValidator) checkBody(op *spec.Operation, body any, list *issues.List) {
	if op.RequestBody == nil {
		return
	}
	if body == nil {
		if op.RequestBody.Required {
			list.Add("body", "request body is required")
		}
		return
	}

	schema := op.BodySchema("application/json")
	if schema == nil {
		schema = op.BodySchema("application/x-www-form-urlencoded")
	}
	v.checker.Check(body, schema, "body", list)
}

// ValidateResponse falls back to the "default" response when the status is
// not declared. Undeclared content types pass through.
func (v *jsonSchemaValidator) ValidateResponse(op *spec.Operation, resp *Response) error {
	if op == nil || resp == nil {
		return nil
	}
	declared := op.ResponseOrDefault(resp.StatusCode)
	if declared == nil {
		return nil
	}

	var list issues.List
	if resp.Headers != nil {
		names := make([]string, 0, len(declared.Headers))
		for name := range declared.Headers {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			h := declared.Headers[name]
			path := issues.JoinPath("header", h.Name)
			value, ok := lookupHeader(resp.Headers, h.Name)
			if !ok {
				if h.Required {
					list.Add(path, "required header %q is missing", h.Name)
				}
				continue
			}
			v.checker.Check(value, h.Schema, path, &list)
		}
	}

	if media := declared.Content.Lookup(resp.ContentType); media != nil && media.Schema != nil {
		v.checker.Check(resp.Body, media.Schema, "response", &list)
	}

	return v.finish(list, func(msg string) error {
		return &oaserrors.InvalidResponseError{Operation: op.String(), StatusCode: resp.StatusCode, Message: msg}
	})
}

// finish logs warnings and turns errors into the caller's error type.
func (v *jsonSchemaValidator) finish(list issues.List, wrap func(string) error) error {
	for _, w := range list.Warnings() {
		v.logger.Debug("schema warning", "path", w.Path, "message", w.Message)
	}
	if !list.HasErrors() {
		return nil
	}
	return wrap(list.Message())
}
