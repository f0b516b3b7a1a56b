package middleware

import (
	"net/http"

	"github.com/erraggy/oasguard/logging"
	"github.com/erraggy/oasguard/oaserrors"
	"github.com/erraggy/oasguard/unpacker"
)

// ErrorHandler observes validation failures. It is called before the error
// policy applies, whether the failure is then raised, substituted, or ignored.
type ErrorHandler func(err error, r *http.Request)

// Option is a functional option for configuring validation middleware.
type Option func(*config) error

type config struct {
	prefix string

	// Error policy: at most one of raise and ignoreError is set.
	raise        bool
	ignoreError  bool
	errorHandler ErrorHandler
	errorStatus  int // 0 picks the status from the error kind

	validateSuccessOnly        bool
	checkHeader                bool
	parseResponseByContentType bool
	acceptRequest              func(*http.Request) bool
	rejectUnmatched            bool
	maxBodySize                int64

	logger     logging.Logger
	deprecated []string
}

func defaultConfig() *config {
	return &config{
		validateSuccessOnly: true,
		maxBodySize:         unpacker.DefaultMaxBodySize,
		logger:              logging.NopLogger{},
	}
}

func applyOptions(opts []Option) (*config, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.raise && cfg.ignoreError {
		return nil, &oaserrors.ConfigError{Option: "IgnoreError", Value: true, Message: "cannot be combined with Raise"}
	}
	for _, name := range cfg.deprecated {
		cfg.logger.Warn("deprecated option", "option", name)
	}
	return cfg, nil
}

// WithPrefix sets a path prefix stripped before route matching.
// Requests outside the prefix are not validated.
func WithPrefix(prefix string) Option {
	return func(c *config) error {
		c.prefix = prefix
		return nil
	}
}

// WithRaise returns validation failures from the wrapped HandlerFunc instead
// of writing an error response.
func WithRaise(raise bool) Option {
	return func(c *config) error {
		c.raise = raise
		return nil
	}
}

// WithIgnoreError lets traffic continue unchanged when validation fails.
// Failures still reach the error handler, which makes this the mode for
// detecting contract drift in production.
func WithIgnoreError(ignore bool) Option {
	return func(c *config) error {
		c.ignoreError = ignore
		return nil
	}
}

// WithErrorHandler sets a callback invoked for every validation failure.
func WithErrorHandler(h ErrorHandler) Option {
	return func(c *config) error {
		c.errorHandler = h
		return nil
	}
}

// WithValidateSuccessOnly limits response validation to 2xx responses.
// Default is true.
func WithValidateSuccessOnly(only bool) Option {
	return func(c *config) error {
		c.validateSuccessOnly = only
		return nil
	}
}

// WithValidateErrors validates non-2xx responses too.
//
// Deprecated: use WithValidateSuccessOnly(!validate).
func WithValidateErrors(validate bool) Option {
	return func(c *config) error {
		c.validateSuccessOnly = !validate
		c.deprecated = append(c.deprecated, "ValidateErrors")
		return nil
	}
}

// WithCheckHeader validates declared header parameters and response headers.
func WithCheckHeader(check bool) Option {
	return func(c *config) error {
		c.checkHeader = check
		return nil
	}
}

// WithParseResponseByContentType decodes response bodies as JSON only when the
// Content-Type says so. Other bodies are validated as the raw string.
// When disabled every response body is decoded as JSON.
func WithParseResponseByContentType(parse bool) Option {
	return func(c *config) error {
		c.parseResponseByContentType = parse
		return nil
	}
}

// WithAcceptRequestFilter skips validation for requests the predicate rejects.
func WithAcceptRequestFilter(accept func(*http.Request) bool) Option {
	return func(c *config) error {
		c.acceptRequest = accept
		return nil
	}
}

// WithRejectUnmatched treats requests matching no operation as errors,
// subject to the same policy as validation failures.
func WithRejectUnmatched(reject bool) Option {
	return func(c *config) error {
		c.rejectUnmatched = reject
		return nil
	}
}

// WithErrorStatus overrides the status code of substituted error responses.
func WithErrorStatus(status int) Option {
	return func(c *config) error {
		if status < 400 || status > 599 {
			return &oaserrors.ConfigError{Option: "ErrorStatus", Value: status, Message: "must be between 400 and 599"}
		}
		c.errorStatus = status
		return nil
	}
}

// WithLogger sets the logger for validation diagnostics.
func WithLogger(l logging.Logger) Option {
	return func(c *config) error {
		if l == nil {
			l = logging.NopLogger{}
		}
		c.logger = l
		return nil
	}
}

// WithMaxBodySize limits how many request body bytes are read.
// Default is 10 MiB.
func WithMaxBodySize(size int64) Option {
	return func(c *config) error {
		if size <= 0 {
			return &oaserrors.ConfigError{Option: "MaxBodySize", Value: size, Message: "must be positive"}
		}
		c.maxBodySize = size
		return nil
	}
}
