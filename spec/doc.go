// Package spec loads API specifications into an immutable typed tree.
//
// Three dialects are supported: OpenAPI 3.0, Swagger/OpenAPI 2.0, and the
// legacy JSON hyper-schema format where resources carry "links". OpenAPI
// documents are parsed by kin-openapi; Swagger 2.0 is converted to OpenAPI 3
// before conversion, so both produce the same shape. Hyper-schema links are
// mapped onto operations: the link's href becomes the path template, its
// schema the JSON request body, and its targetSchema the "default" response.
//
// # Usage
//
//	doc, err := spec.LoadFile("openapi.yaml", spec.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	for _, op := range doc.Operations {
//	    fmt.Println(op.Method, op.Path)
//	}
//
// A Document is never modified after Load returns and may be shared across
// goroutines. Schema trees may be cyclic when the source uses recursive
// references.
package spec
