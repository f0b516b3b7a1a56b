package schemavalidator

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/erraggy/oasguard/internal/jsonutil"
	"github.com/erraggy/oasguard/oaserrors"
	"github.com/erraggy/oasguard/spec"
)

// operationValidator checks OpenAPI 3 operations. It stops at the first
// violation and reports it as a single message.
type operationValidator struct {
	base
}

// ValidateRequest applies the per-method policy. GET and DELETE carry no
// parameter-level check, POST, PUT, and PATCH check the bag against the JSON
// body schema, and any other method cannot be validated.
func (v *operationValidator) ValidateRequest(op *spec.Operation, bag *Bag) error {
	if op == nil || bag == nil {
		return nil
	}

	switch strings.ToUpper(op.Method) {
	case http.MethodGet, http.MethodDelete:
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		if err := v.validatePostParams(op, bag.Params); err != nil {
			return &oaserrors.InvalidRequestError{Operation: op.String(), Message: err.Error()}
		}
	default:
		return &oaserrors.UnsupportedMethodError{Dialect: v.doc.Dialect.String(), Method: strings.ToUpper(op.Method)}
	}

	if bag.Headers != nil {
		if err := v.validateHeaders(op.ParametersIn(spec.InHeader), bag.Headers); err != nil {
			return &oaserrors.InvalidRequestError{Operation: op.String(), Message: err.Error()}
		}
	}
	return nil
}

func (v *operationValidator) validatePostParams(op *spec.Operation, params map[string]any) error {
	schema := op.BodySchema("application/json")
	if schema == nil {
		return nil
	}
	// params are a flat map and only an object schema can describe them
	if schema.Type != "" && schema.Type != "object" {
		return nil
	}

	// The bag merges query, body and path values, so only entries that are
	// present are checked. Required properties apply to nested objects only.
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := checkType(name, params[name], schema.Property(name)); err != nil {
			return err
		}
	}
	return nil
}

// validateHeaders checks declared header parameters in declaration order.
// Missing required headers are reported together.
func (v *operationValidator) validateHeaders(decls []*spec.Parameter, values map[string]any) error {
	var missing []string
	for _, p := range decls {
		value, ok := lookupHeader(values, p.Name)
		if !ok {
			if p.Required {
				missing = append(missing, p.Name)
			}
			continue
		}
		if err := checkType(p.Name, value, p.Schema); err != nil {
			return err
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required parameters %s not exist", strings.Join(missing, ","))
	}
	return nil
}

// ValidateResponse looks up the response by exact status. An undeclared status
// or content type passes through.
func (v *operationValidator) ValidateResponse(op *spec.Operation, resp *Response) error {
	if op == nil || resp == nil {
		return nil
	}
	declared := op.Response(resp.StatusCode)
	if declared == nil {
		return nil
	}

	fail := func(err error) error {
		return &oaserrors.InvalidResponseError{Operation: op.String(), StatusCode: resp.StatusCode, Message: err.Error()}
	}

	if resp.Headers != nil {
		if err := validateResponseHeaders(declared, resp.Headers); err != nil {
			return fail(err)
		}
	}

	media := declared.Content.Lookup(resp.ContentType)
	if media == nil || media.Schema == nil {
		return nil
	}
	if err := checkType("response", resp.Body, media.Schema); err != nil {
		return fail(err)
	}
	return nil
}

func validateResponseHeaders(declared *spec.Response, values map[string]any) error {
	names := make([]string, 0, len(declared.Headers))
	for name := range declared.Headers {
		names = append(names, name)
	}
	sort.Strings(names)

	var missing []string
	for _, name := range names {
		h := declared.Headers[name]
		value, ok := lookupHeader(values, h.Name)
		if !ok {
			if h.Required {
				missing = append(missing, h.Name)
			}
			continue
		}
		if err := checkType(h.Name, value, h.Schema); err != nil {
			return err
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required parameters %s not exist", strings.Join(missing, ","))
	}
	return nil
}

func lookupHeader(values map[string]any, name string) (any, bool) {
	if v, ok := values[name]; ok {
		return v, true
	}
	for k, v := range values {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

// checkType dispatches on the declared kind. A nil schema accepts anything.
func checkType(name string, value any, node *spec.Schema) error {
	if node == nil {
		return nil
	}
	if value == nil {
		if node.Nullable {
			return nil
		}
		return typeError(name, value, node)
	}

	switch node.Type {
	case "string":
		if _, ok := value.(string); ok {
			return checkEnum(name, value, node)
		}
	case "integer":
		if jsonutil.IsInteger(value) {
			return checkEnum(name, value, node)
		}
	case "number":
		if jsonutil.IsNumber(value) {
			return checkEnum(name, value, node)
		}
	case "boolean":
		if _, ok := value.(bool); ok {
			return nil
		}
	case "object":
		if obj, ok := value.(map[string]any); ok {
			return validateProperties(obj, node)
		}
	case "array":
		if list, ok := value.([]any); ok {
			return validateArray(name, list, node)
		}
	case "":
		if alts := alternatives(node); len(alts) > 0 {
			return checkAlternatives(name, value, alts)
		}
		if len(node.AllOf) > 0 {
			for _, sub := range node.AllOf {
				if err := checkType(name, value, sub); err != nil {
					return err
				}
			}
			return nil
		}
	}
	return typeError(name, value, node)
}

func typeError(name string, value any, node *spec.Schema) error {
	return fmt.Errorf("invalid parameter type %s %s %s %s", name, jsonutil.Display(value), jsonutil.TypeName(value), node.Type)
}

func checkEnum(name string, value any, node *spec.Schema) error {
	if len(node.Enum) == 0 {
		return nil
	}
	for _, allowed := range node.Enum {
		if jsonutil.Equal(value, allowed) {
			return nil
		}
	}
	return fmt.Errorf("Invalid parameter %s %s isn't in enum", name, jsonutil.Display(value))
}

// validateProperties checks each key present in obj against its declared
// property schema, then reports required keys that never appeared. Keys are
// visited in sorted order so the first failure is stable.
func validateProperties(obj map[string]any, node *spec.Schema) error {
	pending := make(map[string]bool, len(node.Required))
	for _, r := range node.Required {
		pending[r] = true
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := checkType(k, obj[k], node.Property(k)); err != nil {
			return err
		}
		delete(pending, k)
	}

	if len(pending) == 0 {
		return nil
	}
	missing := make([]string, 0, len(pending))
	for _, r := range node.Required {
		if pending[r] {
			missing = append(missing, r)
			delete(pending, r)
		}
	}
	return fmt.Errorf("required parameters %s not exist", strings.Join(missing, ","))
}

func validateArray(name string, list []any, node *spec.Schema) error {
	items := node.Items
	if items == nil {
		return nil
	}
	for _, elem := range list {
		if err := checkType(name, elem, items); err != nil {
			return err
		}
	}
	return nil
}

func alternatives(node *spec.Schema) []*spec.Schema {
	if len(node.AnyOf) > 0 {
		return node.AnyOf
	}
	return node.OneOf
}

// checkAlternatives passes when any alternative accepts value.
func checkAlternatives(name string, value any, alts []*spec.Schema) error {
	for _, alt := range alts {
		if checkType(name, value, alt) == nil {
			return nil
		}
	}
	return fmt.Errorf("Invalid parameter %s isn't any of %s", jsonutil.Display(value), describeList(alts))
}

func describeList(list []*spec.Schema) string {
	parts := make([]string, len(list))
	for i, s := range list {
		parts[i] = s.Describe()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
