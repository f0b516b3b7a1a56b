package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/erraggy/oasguard/internal/jsonutil"
	"github.com/erraggy/oasguard/oaserrors"
	"github.com/erraggy/oasguard/schemavalidator"
	"github.com/erraggy/oasguard/spec"
	"github.com/erraggy/oasguard/unpacker"
)

// ErrCheckFailed is returned when a checked request or response violates the
// contract. The details have already been printed.
var ErrCheckFailed = errors.New("contract check failed")

// CheckConfig captures the inputs of the check command.
type CheckConfig struct {
	Spec        string
	Method      string
	Path        string
	Body        string
	ContentType string
	Headers     []string
	Prefix      string
	CheckHeader bool

	Status              int
	ResponseBody        string
	ResponseContentType string
	ResponseHeaders     []string

	Format  string
	Verbose bool
}

// CheckResult is the structured outcome of a check.
type CheckResult struct {
	Operation string `json:"operation,omitempty" yaml:"operation,omitempty"`
	Request   string `json:"request" yaml:"request"`
	Response  string `json:"response,omitempty" yaml:"response,omitempty"`
	Valid     bool   `json:"valid" yaml:"valid"`
}

var checkRunner = runCheck

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a single request (and optionally its response) against a contract",
		Example: strings.TrimSpace(`  oasguard check --spec api.yaml --method POST --path /pets --body pet.json
  oasguard check --spec api.yaml --path "/pets?limit=10" -H "X-Trace: abc" --check-header
  oasguard check --spec api.yaml --path /pets/1 --status 200 --response-body pet.json -o json`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveCheckConfig(cmd)
			if err != nil {
				return err
			}
			return checkRunner(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.String("spec", "", "Path to the contract document (JSON or YAML)")
	flags.StringP("method", "X", http.MethodGet, "Request method")
	flags.String("path", "", "Request path, optionally with a query string")
	flags.String("body", "", "File holding the request body, or - for stdin")
	flags.String("content-type", "application/json", "Request Content-Type when a body is given")
	flags.StringArrayP("header", "H", nil, "Request header as \"Name: value\" (repeatable)")
	flags.String("prefix", "", "Path prefix stripped before route matching")
	flags.Bool("check-header", false, "Validate declared header parameters and response headers")
	flags.Int("status", 0, "Response status code; enables response checking")
	flags.String("response-body", "", "File holding the response body")
	flags.String("response-content-type", "application/json", "Response Content-Type")
	flags.StringArray("response-header", nil, "Response header as \"Name: value\" (repeatable)")
	flags.StringP("output", "o", FormatText, "Output format: text, json, or yaml")

	return cmd
}

func resolveCheckConfig(cmd *cobra.Command) (*CheckConfig, error) {
	flags := cmd.Flags()
	cfg := &CheckConfig{}
	var err error

	get := func(name string, dst *string) {
		if err == nil {
			*dst, err = flags.GetString(name)
		}
	}
	get("spec", &cfg.Spec)
	get("method", &cfg.Method)
	get("path", &cfg.Path)
	get("body", &cfg.Body)
	get("content-type", &cfg.ContentType)
	get("prefix", &cfg.Prefix)
	get("response-body", &cfg.ResponseBody)
	get("response-content-type", &cfg.ResponseContentType)
	get("output", &cfg.Format)
	if err != nil {
		return nil, err
	}
	if cfg.Headers, err = flags.GetStringArray("header"); err != nil {
		return nil, err
	}
	if cfg.ResponseHeaders, err = flags.GetStringArray("response-header"); err != nil {
		return nil, err
	}
	if cfg.CheckHeader, err = flags.GetBool("check-header"); err != nil {
		return nil, err
	}
	if cfg.Status, err = flags.GetInt("status"); err != nil {
		return nil, err
	}
	if cfg.Verbose, err = flags.GetBool("verbose"); err != nil {
		return nil, err
	}

	cfg.Method = strings.ToUpper(strings.TrimSpace(cfg.Method))
	cfg.Path = strings.TrimSpace(cfg.Path)
	if cfg.Path == "" {
		return nil, newUsageError("check: --path is required")
	}
	if !strings.HasPrefix(cfg.Path, "/") {
		return nil, newUsageError(fmt.Sprintf("check: --path %q must start with /", cfg.Path))
	}
	if err := ValidateOutputFormat(cfg.Format); err != nil {
		return nil, err
	}
	if cfg.ResponseBody != "" && cfg.Status == 0 {
		cfg.Status = http.StatusOK
	}
	return cfg, nil
}

func runCheck(ctx context.Context, cfg *CheckConfig, out, logOut io.Writer) error {
	logger := NewLogger(logOut, cfg.Verbose)

	doc, err := loadSpec(cfg.Spec, logger)
	if err != nil {
		return err
	}
	v, err := schemavalidator.New(doc,
		schemavalidator.WithPrefix(cfg.Prefix),
		schemavalidator.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	result, err := check(ctx, cfg, v)
	if err != nil {
		return err
	}
	if err := writeCheckResult(out, result, cfg.Format); err != nil {
		return err
	}
	if !result.Valid {
		return ErrCheckFailed
	}
	return nil
}

// check runs one request, and a response when cfg.Status is set, through v.
// Contract violations land in the result; only I/O failures are returned.
func check(ctx context.Context, cfg *CheckConfig, v schemavalidator.Validator) (*CheckResult, error) {
	result := &CheckResult{Valid: true}
	pathOnly, _, _ := strings.Cut(cfg.Path, "?")

	match, err := v.Resolve(cfg.Method, pathOnly)
	if err != nil {
		if errors.Is(err, oaserrors.ErrNotFound) {
			result.Valid = false
			result.Request = err.Error()
			return result, nil
		}
		return nil, err
	}
	result.Operation = match.Operation.String()

	reqBody, err := readInput(cfg.Body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, cfg.Method, cfg.Path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, newUsageError(fmt.Sprintf("check: %v", err))
	}
	if len(reqBody) > 0 {
		req.Header.Set("Content-Type", cfg.ContentType)
	}
	headers, err := parseHeaders(cfg.Headers)
	if err != nil {
		return nil, err
	}
	for name, values := range headers {
		req.Header[name] = values
	}

	u, err := unpacker.New(unpacker.WithCheckHeader(cfg.CheckHeader))
	if err != nil {
		return nil, err
	}
	bag, err := u.Unpack(req, match, v)
	if err == nil {
		err = v.ValidateRequest(match.Operation, bag)
	}
	result.Request = describe(err)
	if err != nil {
		result.Valid = false
	}

	if cfg.Status == 0 {
		return result, nil
	}
	respBody, err := readInput(cfg.ResponseBody)
	if err != nil {
		return nil, err
	}
	err = checkResponse(cfg, v, match.Operation, respBody)
	result.Response = describe(err)
	if err != nil {
		result.Valid = false
	}
	return result, nil
}

func checkResponse(cfg *CheckConfig, v schemavalidator.Validator, op *spec.Operation, raw []byte) error {
	resp := &schemavalidator.Response{StatusCode: cfg.Status, ContentType: cfg.ResponseContentType}
	if len(raw) > 0 {
		if jsonutil.IsJSONMediaType(spec.MediaTypeKey(cfg.ResponseContentType)) {
			body, err := jsonutil.Decode(raw)
			if err != nil {
				return &oaserrors.ParseError{Source: "response body", ContentType: cfg.ResponseContentType, Message: "invalid JSON", Cause: err}
			}
			resp.Body = body
		} else {
			resp.Body = string(raw)
		}
	}
	if cfg.CheckHeader {
		headers, err := parseHeaders(cfg.ResponseHeaders)
		if err != nil {
			return err
		}
		resp.Headers = schemavalidator.ResponseHeaders(op, cfg.Status, headers)
	}
	return v.ValidateResponse(op, resp)
}

func parseHeaders(list []string) (http.Header, error) {
	h := make(http.Header, len(list))
	for _, line := range list {
		name, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, newUsageError(fmt.Sprintf("check: header %q must look like \"Name: value\"", line))
		}
		h.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	return h, nil
}

func describe(err error) string {
	if err == nil {
		return "ok"
	}
	return err.Error()
}

func readInput(path string) ([]byte, error) {
	switch path {
	case "":
		return nil, nil
	case "-":
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newUsageError(fmt.Sprintf("check: %v", err))
	}
	return data, nil
}

func writeCheckResult(w io.Writer, r *CheckResult, format string) error {
	if format != FormatText {
		return OutputStructured(w, r, format)
	}
	if r.Operation != "" {
		if _, err := fmt.Fprintf(w, "Operation: %s\n", r.Operation); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "Request:   %s\n", r.Request); err != nil {
		return err
	}
	if r.Response != "" {
		if _, err := fmt.Fprintf(w, "Response:  %s\n", r.Response); err != nil {
			return err
		}
	}
	verdict := "valid"
	if !r.Valid {
		verdict = "invalid"
	}
	_, err := fmt.Fprintf(w, "Result:    %s\n", verdict)
	return err
}
