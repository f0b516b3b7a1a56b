// Package oaserrors provides structured error types for oasguard.
//
// Import path: github.com/erraggy/oasguard/oaserrors
//
// These error types enable programmatic error handling via [errors.Is] and [errors.As],
// allowing middleware callers and frameworks to tell a malformed payload apart from a
// contract violation, and a contract violation apart from an unrouted request.
//
// # Error Types
//
//   - [ParseError]: a request or response body could not be decoded
//   - [InvalidRequestError]: a request value fails its declared schema
//   - [InvalidResponseError]: a response value fails its declared schema
//   - [NotFoundError]: no operation resolves for (method, path)
//   - [UnsupportedMethodError]: the dialect cannot validate the operation's method
//   - [ConfigError]: invalid configuration or input options
//
// # Sentinel Errors
//
// Each error type has a corresponding sentinel error for use with errors.Is():
//
//   - [ErrParse]: Matches any [ParseError]
//   - [ErrInvalidRequest]: Matches any [InvalidRequestError]
//   - [ErrInvalidResponse]: Matches any [InvalidResponseError]
//   - [ErrNotFound]: Matches any [NotFoundError]
//   - [ErrUnsupportedMethod]: Matches any [UnsupportedMethodError]
//   - [ErrConfig]: Matches any [ConfigError]
//
// # Usage Examples
//
// Distinguish a broken payload from a schema mismatch:
//
//	err := handler(w, r)
//	switch {
//	case errors.Is(err, oaserrors.ErrParse):
//	    // the client (or the inner handler) emitted malformed JSON
//	case errors.Is(err, oaserrors.ErrInvalidRequest):
//	    // well-formed, but not what the contract declares
//	}
//
// Extract error details with errors.As():
//
//	var nf *oaserrors.NotFoundError
//	if errors.As(err, &nf) && nf.MethodMismatch {
//	    w.WriteHeader(http.StatusMethodNotAllowed)
//	}
package oaserrors
