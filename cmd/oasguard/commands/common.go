// Package commands provides the cobra commands behind the oasguard CLI.
package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"go.yaml.in/yaml/v4"

	"github.com/erraggy/oasguard/logging"
	"github.com/erraggy/oasguard/spec"
)

// Output format constants
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ValidateOutputFormat validates an output format and returns an error if invalid.
func ValidateOutputFormat(format string) error {
	if format != FormatText && format != FormatJSON && format != FormatYAML {
		return newUsageError(fmt.Sprintf("invalid format '%s'. Valid formats: %s, %s, %s", format, FormatText, FormatJSON, FormatYAML))
	}
	return nil
}

// OutputStructured writes data to w as json or yaml.
func OutputStructured(w io.Writer, data any, format string) error {
	var out []byte
	var err error

	switch format {
	case FormatJSON:
		out, err = json.MarshalIndent(data, "", "  ")
	case FormatYAML:
		out, err = yaml.Marshal(data)
	default:
		return fmt.Errorf("invalid format for structured output: %s", format)
	}
	if err != nil {
		return fmt.Errorf("marshaling to %s: %w", format, err)
	}

	_, err = fmt.Fprintln(w, strings.TrimRight(string(out), "\n"))
	return err
}

// NewLogger returns a console logger on w. Debug output is enabled by verbose.
func NewLogger(w io.Writer, verbose bool) logging.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zl := zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: "15:04:05"}).
		Level(level).
		With().Timestamp().Logger()
	return logging.NewZerologAdapter(zl)
}

// loadSpec reads the document at path, mapping load failures to usage errors.
func loadSpec(path string, logger logging.Logger) (*spec.Document, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, newUsageError("--spec is required (set via flag or config file)")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, newUsageError(fmt.Sprintf("spec: %v", err))
	}
	doc, err := spec.LoadFile(path, spec.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	logger.Debug("spec loaded", "path", path, "dialect", doc.Dialect.String(), "operations", len(doc.Operations))
	return doc, nil
}
