// Package schemavalidator checks unpacked requests and decoded responses
// against a loaded document.
//
// New picks one implementation per document dialect:
//
//   - OpenAPI 3 documents use an operation validator that stops at the first
//     violation. GET and DELETE requests carry no parameter-level check; POST,
//     PUT, and PATCH check the parameter bag against the JSON body schema;
//     other methods fail with *oaserrors.UnsupportedMethodError. Responses are
//     looked up by exact status code.
//   - OpenAPI 2 and hyper-schema documents use a JSON-schema checker that
//     reports every violation, joined with "; ". Format mismatches such as a
//     malformed uuid are logged as warnings and never fail. Responses fall back
//     to the "default" entry.
//
// # Coercion
//
// Query, path, and header values arrive as strings. CoerceValue converts them
// to the declared type when possible:
//
//	v, c := schemavalidator.CoerceValue("42", &spec.Schema{Type: "integer"})
//	// v == int64(42), c == schemavalidator.Coerced
//
// A value that does not parse is kept as a string, and the type check reports
// it if the operation validates that parameter.
//
// A Validator is immutable once built and safe for concurrent use.
package schemavalidator
