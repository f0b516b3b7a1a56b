package commands

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erraggy/oasguard/internal/testutil"
	"github.com/erraggy/oasguard/logging"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// ===== Output Format Tests =====

func TestValidateOutputFormat(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		wantErr bool
	}{
		{"valid text", FormatText, false},
		{"valid json", FormatJSON, false},
		{"valid yaml", FormatYAML, false},
		{"invalid format", "xml", true},
		{"empty format", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFormat(tt.format)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUsage)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestOutputStructured(t *testing.T) {
	data := map[string]string{"key": "value"}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, OutputStructured(&buf, data, FormatJSON))
		assert.Equal(t, "{\n  \"key\": \"value\"\n}\n", buf.String())
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, OutputStructured(&buf, data, FormatYAML))
		assert.Equal(t, "key: value\n", buf.String())
	})

	t.Run("text is rejected", func(t *testing.T) {
		assert.Error(t, OutputStructured(io.Discard, data, FormatText))
	})
}

// ===== Proxy Config Tests =====

func captureProxy(t *testing.T) **ProxyConfig {
	t.Helper()
	var captured *ProxyConfig
	proxyRunner = func(_ context.Context, cfg *ProxyConfig, _ io.Writer) error {
		captured = cfg
		return nil
	}
	t.Cleanup(func() { proxyRunner = runProxy })
	return &captured
}

func TestProxyConfigFromFlags(t *testing.T) {
	captured := captureProxy(t)

	_, err := execute(t,
		"--verbose",
		"proxy",
		"--spec", "api.yaml",
		"--upstream", "http://localhost:8080",
		"--listen", ":9000",
		"--prefix", "/v1",
		"--raise",
		"--check-header",
		"--validate-success-only=false",
		"--error-status", "422",
	)
	require.NoError(t, err)
	require.NotNil(t, *captured)

	cfg := *captured
	assert.Equal(t, "api.yaml", cfg.Spec)
	assert.Equal(t, "http://localhost:8080", cfg.Upstream)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "/v1", cfg.Prefix)
	assert.True(t, cfg.Raise)
	assert.True(t, cfg.CheckHeader)
	assert.False(t, cfg.ValidateSuccessOnly)
	assert.True(t, cfg.ValidateResponses, "untouched flags keep their defaults")
	assert.Equal(t, 422, cfg.ErrorStatus)
	assert.True(t, cfg.Verbose)
}

func TestProxyConfigFromFile(t *testing.T) {
	captured := captureProxy(t)

	path := testutil.WriteFile(t, "oasguard.yaml", []byte(`
spec: contract.yaml
upstream: http://backend:8080
listen: ":7000"
ignore_error: true
validate_responses: false
max_body_size: 2048
`))

	_, err := execute(t, "--config", path, "proxy", "--listen", ":7001")
	require.NoError(t, err)

	cfg := *captured
	assert.Equal(t, path, cfg.ConfigPath)
	assert.Equal(t, "contract.yaml", cfg.Spec)
	assert.Equal(t, "http://backend:8080", cfg.Upstream)
	assert.Equal(t, ":7001", cfg.Listen, "flags override the file")
	assert.True(t, cfg.IgnoreError)
	assert.False(t, cfg.ValidateResponses)
	assert.True(t, cfg.ValidateSuccessOnly, "absent keys keep their defaults")
	assert.Equal(t, int64(2048), cfg.MaxBodySize)
}

func TestProxyConfigErrors(t *testing.T) {
	captureProxy(t)
	badYAML := testutil.WriteFile(t, "bad.yaml", []byte("spec: [unclosed"))

	tests := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{"missing spec", []string{"proxy", "--upstream", "http://u"}, "--spec is required"},
		{"missing upstream", []string{"proxy", "--spec", "a.yaml"}, "--upstream is required"},
		{"relative upstream", []string{"proxy", "--spec", "a.yaml", "--upstream", "localhost"}, "invalid --upstream"},
		{"raise and ignore", []string{"proxy", "--spec", "a.yaml", "--upstream", "http://u", "--raise", "--ignore-error"}, "mutually exclusive"},
		{"missing config file", []string{"--config", "/nonexistent/oasguard.yaml", "proxy"}, "config:"},
		{"invalid config file", []string{"--config", badYAML, "proxy"}, "invalid YAML"},
		{"unknown flag", []string{"proxy", "--nope"}, "unknown flag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUsage)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

// ===== Proxy Handler Tests =====

func TestProxyHandler(t *testing.T) {
	var upstreamHits atomic.Int32
	var via atomic.Value
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamHits.Add(1)
		via.Store(r.Header.Get("Via"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/characters":
			_, _ = w.Write([]byte(`{"school":"x"}`))
		case "/pets/mine":
			_, _ = w.Write([]byte(`{"not":"a list"}`))
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	defer upstream.Close()

	doc := testutil.LoadDocument(t, testutil.PetstoreV3)
	cfg := defaultProxyConfig()
	cfg.Upstream = upstream.URL

	handler, err := newProxyHandler(doc, &cfg, logging.NopLogger{})
	require.NoError(t, err)
	front := httptest.NewServer(handler)
	defer front.Close()

	t.Run("valid traffic is forwarded", func(t *testing.T) {
		upstreamHits.Store(0)
		resp, err := http.Get(front.URL + "/characters")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		body, _ := io.ReadAll(resp.Body)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, `{"school":"x"}`, string(body))
		assert.Equal(t, int32(1), upstreamHits.Load())
		assert.Equal(t, "1.1 oasguard/dev", via.Load())
	})

	t.Run("invalid request never reaches upstream", func(t *testing.T) {
		upstreamHits.Store(0)
		resp, err := http.Post(front.URL+"/validate", "application/json", strings.NewReader(`{"integer":"x"}`))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, int32(0), upstreamHits.Load())
		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "bad_request", body["id"])
	})

	t.Run("invalid upstream response is replaced", func(t *testing.T) {
		resp, err := http.Get(front.URL + "/pets/mine")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "invalid_response", body["id"])
	})
}

func TestProxyHandlerUpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	upstreamURL := upstream.URL
	upstream.Close()

	doc := testutil.LoadDocument(t, testutil.PetstoreV3)
	cfg := defaultProxyConfig()
	cfg.Upstream = upstreamURL
	logger := testutil.NewLogger()

	handler, err := newProxyHandler(doc, &cfg, logger)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/characters", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, []string{"upstream request failed"}, logger.Messages("error"))
}

// ===== Check Command Tests =====

func TestCheckCommand(t *testing.T) {
	specPath := testutil.WriteFixture(t, testutil.PetstoreV3)
	goodBody := testutil.WriteFile(t, "good.json", []byte(`{"string":"s","integer":1}`))
	badBody := testutil.WriteFile(t, "bad.json", []byte(`{"integer":"x"}`))
	pet := testutil.WriteFile(t, "pet.json", []byte(`{"id":1,"name":"rex"}`))

	tests := []struct {
		name      string
		args      []string
		wantValid bool
		wantLines []string
	}{
		{
			name:      "valid body",
			args:      []string{"--method", "POST", "--path", "/validate", "--body", goodBody},
			wantValid: true,
			wantLines: []string{"Operation: POST /validate", "Request:   ok", "Result:    valid"},
		},
		{
			name:      "invalid body",
			args:      []string{"-X", "post", "--path", "/validate", "--body", badBody},
			wantLines: []string{"Request:   invalid parameter type integer x string integer", "Result:    invalid"},
		},
		{
			name:      "unknown path",
			args:      []string{"--path", "/nowhere"},
			wantLines: []string{"Request:   no operation found for GET /nowhere"},
		},
		{
			name:      "valid response",
			args:      []string{"--path", "/pets/1", "--response-body", pet},
			wantValid: true,
			wantLines: []string{"Response:  ok"},
		},
		{
			name:      "missing response header",
			args:      []string{"--path", "/pets/1", "--status", "200", "--response-body", pet, "--check-header"},
			wantLines: []string{"Response:  required parameters X-Count not exist"},
		},
		{
			name:      "response header given",
			args:      []string{"--path", "/pets/1", "--response-body", pet, "--check-header", "--response-header", "X-Count: 2"},
			wantValid: true,
			wantLines: []string{"Result:    valid"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"check", "--spec", specPath}, tt.args...)
			out, err := execute(t, args...)
			if tt.wantValid {
				require.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrCheckFailed)
			}
			for _, line := range tt.wantLines {
				assert.Contains(t, out, line)
			}
		})
	}
}

func TestCheckCommandJSON(t *testing.T) {
	specPath := testutil.WriteFixture(t, testutil.PetstoreV3)
	badBody := testutil.WriteFile(t, "bad.json", []byte(`{"enum_string":"z"}`))

	out, err := execute(t, "check", "--spec", specPath, "-X", "PATCH", "--path", "/validate", "--body", badBody, "-o", "json")
	assert.ErrorIs(t, err, ErrCheckFailed)

	var result CheckResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "PATCH /validate", result.Operation)
	assert.Equal(t, "Invalid parameter enum_string z isn't in enum", result.Request)
	assert.False(t, result.Valid)
}

func TestCheckCommandErrors(t *testing.T) {
	specPath := testutil.WriteFixture(t, testutil.PetstoreV3)

	tests := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{"missing path", []string{"check", "--spec", specPath}, "--path is required"},
		{"relative path", []string{"check", "--spec", specPath, "--path", "pets"}, "must start with /"},
		{"missing spec", []string{"check", "--path", "/pets"}, "--spec is required"},
		{"bad format", []string{"check", "--spec", specPath, "--path", "/pets", "-o", "xml"}, "invalid format"},
		{"bad header", []string{"check", "--spec", specPath, "--path", "/characters", "-H", "nocolon"}, "must look like"},
		{"missing body file", []string{"check", "--spec", specPath, "-X", "POST", "--path", "/validate", "--body", "/nonexistent.json"}, "check:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUsage)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

// ===== Routes Command Tests =====

func TestRoutesCommand(t *testing.T) {
	specPath := testutil.WriteFixture(t, testutil.PetstoreV3)
	doc := testutil.LoadDocument(t, testutil.PetstoreV3)

	t.Run("text", func(t *testing.T) {
		out, err := execute(t, "routes", "--spec", specPath)
		require.NoError(t, err)
		assert.Contains(t, out, "METHOD")
		assert.Contains(t, out, "/pets/{id}")
		assert.Contains(t, out, "showPet")
		assert.Contains(t, out, "(OpenAPI3)")
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, "routes", "--spec", specPath, "-o", "json")
		require.NoError(t, err)

		var report RoutesReport
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		assert.Equal(t, "OpenAPI3", report.Dialect)
		assert.Equal(t, "Contract fixture", report.Title)
		require.Len(t, report.Routes, len(doc.Operations))

		var show *RouteInfo
		for i := range report.Routes {
			if report.Routes[i].OperationID == "showPet" {
				show = &report.Routes[i]
			}
		}
		require.NotNil(t, show)
		assert.Equal(t, []string{"path:id*"}, show.Parameters)
		assert.Equal(t, []string{"200", "404"}, show.Responses)
	})

	t.Run("hyper-schema", func(t *testing.T) {
		out, err := execute(t, "routes", "--spec", testutil.WriteFixture(t, testutil.HyperSchema), "-o", "yaml")
		require.NoError(t, err)
		assert.Contains(t, out, "dialect: HyperSchema")
	})
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "oasguard dev\n", out)

	out, err = execute(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "oasguard dev\n", out)

	out, err = execute(t, "version", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "Commit: unknown")
	assert.Contains(t, out, "Go Version: go")
}
