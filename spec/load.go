package spec

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/erraggy/oasguard/logging"
	"github.com/erraggy/oasguard/oaserrors"
	"go.yaml.in/yaml/v4"
)

// DefaultMaxFileSize bounds LoadFile reads.
const DefaultMaxFileSize int64 = 32 << 20

// Option configures a load.
type Option func(*loadConfig) error

type loadConfig struct {
	logger      logging.Logger
	dialect     Dialect
	maxFileSize int64
	sourceName  string
	location    string // file path, set by LoadFile
}

// WithLogger sets the logger for load diagnostics.
func WithLogger(l logging.Logger) Option {
	return func(c *loadConfig) error {
		if l == nil {
			l = logging.NopLogger{}
		}
		c.logger = l
		return nil
	}
}

// WithDialect skips detection and loads the document as the given dialect.
func WithDialect(d Dialect) Option {
	return func(c *loadConfig) error {
		if d < HyperSchema || d > OpenAPI3 {
			return &oaserrors.ConfigError{Option: "dialect", Value: d, Message: "unknown dialect"}
		}
		c.dialect = d
		return nil
	}
}

// WithMaxFileSize overrides DefaultMaxFileSize for LoadFile.
func WithMaxFileSize(n int64) Option {
	return func(c *loadConfig) error {
		if n <= 0 {
			return &oaserrors.ConfigError{Option: "maxFileSize", Value: n, Message: "must be positive"}
		}
		c.maxFileSize = n
		return nil
	}
}

// WithSourceName names the input in parse errors.
func WithSourceName(name string) Option {
	return func(c *loadConfig) error {
		c.sourceName = name
		return nil
	}
}

func applyOptions(opts []Option) (*loadConfig, error) {
	cfg := &loadConfig{
		logger:      logging.NopLogger{},
		maxFileSize: DefaultMaxFileSize,
		sourceName:  "specification",
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadFile reads and loads a specification file (JSON or YAML). OpenAPI 3
// documents may reference other files relative to path, e.g.
// "$ref: ./common.yaml#/Sample".
func LoadFile(path string, opts ...Option) (*Document, error) {
	opts = append([]Option{WithSourceName(path)}, opts...)
	cfg, err := applyOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("spec: invalid options: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("spec: %w", err)
	}
	if info.Size() > cfg.maxFileSize {
		return nil, &oaserrors.ParseError{
			Source:  path,
			Message: fmt.Sprintf("file size %d exceeds limit %d", info.Size(), cfg.maxFileSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("spec: %w", err)
	}
	if cfg.location, err = filepath.Abs(path); err != nil {
		return nil, fmt.Errorf("spec: %w", err)
	}
	return load(data, cfg)
}

// Load builds a Document from JSON or YAML bytes. The dialect is detected from
// the root: "openapi: 3.x", "swagger: 2.0", or a hyper-schema root carrying
// definitions or links. References must stay inside the document; use
// LoadFile for documents that reference other files.
func Load(data []byte, opts ...Option) (*Document, error) {
	cfg, err := applyOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("spec: invalid options: %w", err)
	}
	return load(data, cfg)
}

func load(data []byte, cfg *loadConfig) (*Document, error) {
	root, err := decodeRoot(data)
	if err != nil {
		return nil, &oaserrors.ParseError{Source: cfg.sourceName, Message: "invalid document", Cause: err}
	}

	dialect := cfg.dialect
	if dialect == DialectUnknown {
		dialect, err = detectDialect(root)
		if err != nil {
			return nil, &oaserrors.ParseError{Source: cfg.sourceName, Message: err.Error()}
		}
	}
	cfg.logger.Debug("loading specification", "source", cfg.sourceName, "dialect", dialect.String())

	var doc *Document
	switch dialect {
	case OpenAPI3:
		doc, err = loadOpenAPI3(data, cfg.location)
	case OpenAPI2:
		doc, err = loadOpenAPI2(root)
	case HyperSchema:
		doc, err = loadHyperSchema(root, cfg.logger)
	}
	if err != nil {
		return nil, &oaserrors.ParseError{Source: cfg.sourceName, Message: "cannot load " + dialect.String() + " document", Cause: err}
	}

	doc.Dialect = dialect
	sortOperations(doc.Operations)
	audit(doc, cfg.logger)
	cfg.logger.Info("specification loaded",
		"source", cfg.sourceName, "dialect", dialect.String(), "operations", len(doc.Operations))
	return doc, nil
}

// decodeRoot parses JSON or YAML into a tree with string keys only.
func decodeRoot(data []byte) (map[string]any, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	root, ok := stringKeys(raw).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("document root must be an object")
	}
	return root, nil
}

// stringKeys rewrites YAML mappings with non-string keys (such as unquoted
// status codes) into map[string]any.
func stringKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = stringKeys(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = stringKeys(val)
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = stringKeys(val)
		}
		return t
	default:
		return v
	}
}

func detectDialect(root map[string]any) (Dialect, error) {
	if v, ok := root["openapi"].(string); ok {
		if strings.HasPrefix(strings.TrimSpace(v), "3.") {
			return OpenAPI3, nil
		}
		return DialectUnknown, fmt.Errorf("unsupported openapi version %q", v)
	}
	if v, ok := root["swagger"]; ok {
		if s := strings.TrimSpace(fmt.Sprint(v)); s == "2.0" || s == "2" {
			return OpenAPI2, nil
		}
		return DialectUnknown, fmt.Errorf("unsupported swagger version %v", v)
	}
	if _, ok := root["definitions"]; ok {
		return HyperSchema, nil
	}
	if _, ok := root["links"]; ok {
		return HyperSchema, nil
	}
	return DialectUnknown, fmt.Errorf("cannot detect dialect: expected 'openapi: 3.x', 'swagger: 2.0', or a hyper-schema with definitions")
}

var methodOrder = map[string]int{
	"GET": 0, "PUT": 1, "POST": 2, "DELETE": 3, "OPTIONS": 4, "HEAD": 5, "PATCH": 6, "TRACE": 7,
}

func sortOperations(ops []*Operation) {
	sort.SliceStable(ops, func(i, j int) bool {
		if ops[i].Path != ops[j].Path {
			return ops[i].Path < ops[j].Path
		}
		oi, iok := methodOrder[ops[i].Method]
		oj, jok := methodOrder[ops[j].Method]
		if iok && jok {
			return oi < oj
		}
		return ops[i].Method < ops[j].Method
	})
}
