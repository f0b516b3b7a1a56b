// Package jsonutil decodes JSON payloads into value trees that keep the
// integer/number distinction, and renders values for validation messages.
//
// encoding/json turns every number into float64, which would make 1 and 1.0
// indistinguishable. Decode keeps integral literals as int64 and everything
// else as float64.
package jsonutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// ErrTrailingData is returned when a payload holds more than one JSON value.
var ErrTrailingData = errors.New("unexpected data after top-level JSON value")

// Decode parses a single JSON value. Objects become map[string]any, arrays []any,
// integral numbers int64, other numbers float64.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, ErrTrailingData
	}

	return Normalize(v), nil
}

// Normalize converts json.Number leaves (and numbers produced by YAML decoders)
// into int64 or float64, recursing through maps and slices.
func Normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		return normalizeNumber(string(t))
	case map[string]any:
		for k, val := range t {
			t[k] = Normalize(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = Normalize(val)
		}
		return t
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case uint64:
		if t <= math.MaxInt64 {
			return int64(t)
		}
		return float64(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}

func normalizeNumber(lit string) any {
	if !strings.ContainsAny(lit, ".eE") {
		if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return i
		}
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return lit
	}
	return f
}

// Marshal encodes v as JSON.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// TypeName returns the JSON type name of a decoded value:
// null, string, boolean, integer, number, object, array, or unknown.
func TypeName(v any) string {
	if v == nil {
		return "null"
	}

	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "integer"
	case float32, float64:
		return "number"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map:
		return "object"
	case reflect.String:
		return "string"
	}
	return "unknown"
}

// IsInteger reports whether v is held as an integral Go type.
// A float64 with no fractional part is not an integer.
func IsInteger(v any) bool {
	return TypeName(v) == "integer"
}

// IsNumber reports whether v is held as any numeric Go type.
func IsNumber(v any) bool {
	name := TypeName(v)
	return name == "integer" || name == "number"
}

// Display renders a value for use in a validation message.
// Strings are shown raw, containers as compact JSON.
func Display(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'g', -1, 32)
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Equal compares two decoded values. Numbers compare by value regardless of
// their Go representation, so an enum member loaded as float64(1) equals int64(1).
func Equal(a, b any) bool {
	if IsNumber(a) && IsNumber(b) {
		return toFloat64(a) == toFloat64(b)
	}

	switch at := a.(type) {
	case map[string]any:
		bt, ok := b.(map[string]any)
		if !ok || len(at) != len(bt) {
			return false
		}
		for k, av := range at {
			bv, ok := bt[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	case []any:
		bt, ok := b.([]any)
		if !ok || len(at) != len(bt) {
			return false
		}
		for i := range at {
			if !Equal(at[i], bt[i]) {
				return false
			}
		}
		return true
	}

	return reflect.DeepEqual(a, b)
}

func toFloat64(v any) float64 {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	}
	return math.NaN()
}

// IsJSONMediaType reports whether a (parameter-free) media type carries JSON.
func IsJSONMediaType(mediaType string) bool {
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
