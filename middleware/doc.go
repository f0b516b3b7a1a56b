// Package middleware validates HTTP traffic against an API contract.
//
// RequestValidation checks requests before the wrapped handler runs, and
// ResponseValidation checks what the handler produced before the client sees
// it. Both load their rules from a spec.Document in any supported dialect
// (JSON hyper-schema, OpenAPI 2, OpenAPI 3).
//
// # Quick Start
//
//	doc, err := spec.LoadFile("openapi.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	reqMW, err := middleware.NewRequestValidation(doc)
//	if err != nil {
//		log.Fatal(err)
//	}
//	respMW, err := middleware.NewResponseValidation(doc)
//	if err != nil {
//		log.Fatal(err)
//	}
//	http.Handle("/", reqMW.Handler(respMW.Handler(app)))
//
// # Error Policy
//
// A validation failure takes exactly one path:
//
//   - substitute (default): an error response {"id": ..., "message": ...} is
//     written, 400 for requests and 500 for responses
//   - raise (WithRaise): the failure is returned from the HandlerFunc
//   - ignore (WithIgnoreError): traffic continues unchanged
//
// The error handler set by WithErrorHandler sees every failure regardless of
// path. Parse errors are not validation failures: a malformed body is always
// returned as a *oaserrors.ParseError.
//
// Requests that match no operation pass through unless WithRejectUnmatched
// is set.
package middleware
