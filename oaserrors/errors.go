package oaserrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
// These allow quick checks without type assertions.
var (
	// ErrParse indicates a request or response body could not be decoded.
	ErrParse = errors.New("parse error")

	// ErrInvalidRequest indicates a request does not conform to its declared schema.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidResponse indicates a response does not conform to its declared schema.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrNotFound indicates no operation in the specification matches a request.
	ErrNotFound = errors.New("operation not found")

	// ErrUnsupportedMethod indicates a dialect cannot validate the HTTP method of an operation.
	ErrUnsupportedMethod = errors.New("unsupported method")

	// ErrConfig indicates an invalid configuration.
	ErrConfig = errors.New("configuration error")
)

// ParseError represents a body that could not be decoded.
// A ParseError is never subject to error policy: it always reaches the caller.
type ParseError struct {
	// Source names what was being decoded (e.g., "request body", "response body", a file path)
	Source string
	// ContentType is the media type the decoder was chosen for (may be empty)
	ContentType string
	// Message describes the parsing failure
	Message string
	// Cause is the underlying error, if any
	Cause error
}

// Error returns a human-readable error message.
func (e *ParseError) Error() string {
	msg := "parse error"
	if e.Source != "" {
		msg += " in " + e.Source
	}
	if e.ContentType != "" {
		msg += " (" + e.ContentType + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// InvalidRequestError represents a request value that fails its declared schema.
// Message is the first failure found by the validator and is returned verbatim by Error.
type InvalidRequestError struct {
	// Operation identifies the matched operation (e.g., "POST /pets")
	Operation string
	// Message describes the violation
	Message string
	// Cause is the underlying error, if any
	Cause error
}

// Error returns the violation message.
func (e *InvalidRequestError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "invalid request"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *InvalidRequestError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *InvalidRequestError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// InvalidResponseError represents a response value that fails its declared schema.
type InvalidResponseError struct {
	// Operation identifies the matched operation (e.g., "GET /pets")
	Operation string
	// StatusCode is the status code of the offending response
	StatusCode int
	// Message describes the violation
	Message string
	// Cause is the underlying error, if any
	Cause error
}

// Error returns the violation message.
func (e *InvalidResponseError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "invalid response"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *InvalidResponseError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *InvalidResponseError) Is(target error) bool {
	return target == ErrInvalidResponse
}

// NotFoundError reports that no operation resolves for a request.
// Whether this is fatal is up to the caller; most deployments only validate
// a subset of their routes.
type NotFoundError struct {
	// Method is the HTTP method of the request
	Method string
	// Path is the request path, before prefix stripping
	Path string
	// MatchedPath is the path template that matched when only the method is missing
	MatchedPath string
	// MethodMismatch is true when a path template matched but declares no operation for Method
	MethodMismatch bool
}

// Error returns a human-readable error message.
func (e *NotFoundError) Error() string {
	if e.MethodMismatch {
		return fmt.Sprintf("method %s not allowed for path %s", e.Method, e.MatchedPath)
	}
	return fmt.Sprintf("no operation found for %s %s", e.Method, e.Path)
}

// Unwrap returns nil as NotFoundError has no underlying cause.
func (e *NotFoundError) Unwrap() error {
	return nil
}

// Is reports whether target matches this error type.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// UnsupportedMethodError reports an operation whose method the active dialect
// cannot validate. It indicates a specification or configuration defect.
type UnsupportedMethodError struct {
	// Dialect is the name of the specification dialect (e.g., "OpenAPI3")
	Dialect string
	// Method is the unsupported HTTP method
	Method string
}

// Error returns a human-readable error message.
func (e *UnsupportedMethodError) Error() string {
	return fmt.Sprintf("%s does not support %s method", e.Dialect, e.Method)
}

// Unwrap returns nil as UnsupportedMethodError has no underlying cause.
func (e *UnsupportedMethodError) Unwrap() error {
	return nil
}

// Is reports whether target matches this error type.
func (e *UnsupportedMethodError) Is(target error) bool {
	return target == ErrUnsupportedMethod
}

// ConfigError represents an invalid configuration or input.
// This includes invalid options, missing required inputs, and conflicting settings.
type ConfigError struct {
	// Option is the name of the problematic configuration option
	Option string
	// Value is the invalid value that was provided (may be nil)
	Value any
	// Message describes the configuration error
	Message string
	// Cause is the underlying error, if any
	Cause error
}

// Error returns a human-readable error message.
func (e *ConfigError) Error() string {
	msg := "configuration error"
	if e.Option != "" {
		msg += " for " + e.Option
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// IsValidationFailure reports whether err is a contract violation that error
// policy applies to (invalid request or invalid response).
func IsValidationFailure(err error) bool {
	return errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrInvalidResponse)
}
