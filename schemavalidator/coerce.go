package schemavalidator

import (
	"math"
	"strconv"

	"github.com/erraggy/oasguard/spec"
)

// Coercion is the outcome of converting a raw string parameter.
type Coercion int

const (
	// NotCoerced means the raw string is kept. A failed parse is not an error
	// at this layer; the type check reports it later if it matters.
	NotCoerced Coercion = iota
	// Coerced means the value was converted to the declared type.
	Coerced
	// CoercedToNull means a nullable parameter was sent as an empty string.
	CoercedToNull
)

// String returns the coercion name.
func (c Coercion) String() string {
	switch c {
	case NotCoerced:
		return "not coerced"
	case Coerced:
		return "coerced"
	case CoercedToNull:
		return "coerced to null"
	default:
		return "unknown"
	}
}

// CoerceValue converts raw according to schema.Type. On NotCoerced the raw
// string is returned unchanged.
//
//   - integer: base-10 integer literal, as int64
//   - boolean: "true"/"1" and "false"/"0"
//   - number: floating-point literal, NaN and infinities rejected
//
// When the type conversion does not apply and the schema is nullable, an
// empty string becomes nil with CoercedToNull.
func CoerceValue(raw string, schema *spec.Schema) (any, Coercion) {
	if schema == nil {
		return raw, NotCoerced
	}

	switch schema.Type {
	case "integer":
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n, Coerced
		}
	case "boolean":
		switch raw {
		case "true", "1":
			return true, Coerced
		case "false", "0":
			return false, Coerced
		}
	case "number":
		if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f, Coerced
		}
	}

	if schema.Nullable && raw == "" {
		return nil, CoercedToNull
	}
	return raw, NotCoerced
}

// coerceParameter looks up a declared parameter and coerces raw against it.
// Array parameters coerce against their item schema, since raw is one element.
func coerceParameter(op *spec.Operation, in spec.Location, name, raw string) (any, Coercion) {
	if op == nil {
		return raw, NotCoerced
	}
	p := op.Parameter(in, name)
	if p == nil || p.Schema == nil {
		return raw, NotCoerced
	}
	schema := p.Schema
	if schema.Type == "array" && schema.Items != nil {
		schema = schema.Items
	}
	return CoerceValue(raw, schema)
}
