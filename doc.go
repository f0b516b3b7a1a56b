// Package oasguard validates live HTTP traffic against an API contract.
//
// A contract is a JSON hyper-schema, an OpenAPI 2 (Swagger) document or an
// OpenAPI 3.0 document. oasguard loads it once, routes each request to the
// declared operation, and checks parameters, headers and bodies against the
// declared schemas, on the way in and on the way out.
//
// # Overview
//
// The module is split into small packages that build on each other:
//
//   - spec: load a contract (JSON or YAML) into an immutable operation tree
//   - router: resolve (method, path) to an operation, with an optional prefix
//   - unpacker: extract and coerce query, body, path and header values
//   - schemavalidator: the per-dialect request and response validators
//   - middleware: net/http request and response validation middleware
//   - oaserrors: typed errors shared by all of the above
//   - logging: the Logger interface with slog and zerolog adapters
//
// # Installation
//
//	go get github.com/erraggy/oasguard
//
// # Quick Start
//
//	doc, err := spec.LoadFile("openapi.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	reqMW, err := middleware.NewRequestValidation(doc, middleware.WithCheckHeader(true))
//	if err != nil {
//		log.Fatal(err)
//	}
//	respMW, err := middleware.NewResponseValidation(doc)
//	if err != nil {
//		log.Fatal(err)
//	}
//	log.Fatal(http.ListenAndServe(":8080", reqMW.Handler(respMW.Handler(app))))
//
// # Dialects
//
// OpenAPI 3 operations stop at the first violation and report it in a single
// message such as "invalid parameter type integer x string integer". GET and
// DELETE requests are routed but carry no parameter check; POST, PUT and PATCH
// are checked against the JSON request body schema.
//
// OpenAPI 2 and hyper-schema operations collect every violation and join them
// with "; ". String formats (email, uri, date, date-time, uuid) are reported as
// debug log entries rather than failures.
//
// # Command Line
//
// The oasguard command wraps the same pieces:
//
//	oasguard proxy --spec api.yaml --upstream http://localhost:8080
//	oasguard check --spec api.yaml -X POST --path /pets --body pet.json
//	oasguard routes --spec api.yaml -o yaml
//
// See the middleware package documentation for the error policy.
package oasguard
