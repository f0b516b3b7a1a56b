package commands

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.yaml.in/yaml/v4"

	"github.com/erraggy/oasguard/middleware"
	"github.com/erraggy/oasguard/unpacker"
)

// ProxyConfig captures the proxy settings after merging defaults, config
// file values and CLI overrides, in that order.
type ProxyConfig struct {
	Spec     string `yaml:"spec"`
	Upstream string `yaml:"upstream"`
	Listen   string `yaml:"listen"`
	Prefix   string `yaml:"prefix"`

	Raise                      bool  `yaml:"raise"`
	IgnoreError                bool  `yaml:"ignore_error"`
	CheckHeader                bool  `yaml:"check_header"`
	ValidateSuccessOnly        bool  `yaml:"validate_success_only"`
	ParseResponseByContentType bool  `yaml:"parse_response_by_content_type"`
	RejectUnmatched            bool  `yaml:"reject_unmatched"`
	ValidateResponses          bool  `yaml:"validate_responses"`
	ErrorStatus                int   `yaml:"error_status"`
	MaxBodySize                int64 `yaml:"max_body_size"`

	ConfigPath string `yaml:"-"`
	Verbose    bool   `yaml:"-"`
}

func defaultProxyConfig() ProxyConfig {
	return ProxyConfig{
		Listen:              ":8000",
		ValidateSuccessOnly: true,
		ValidateResponses:   true,
		MaxBodySize:         unpacker.DefaultMaxBodySize,
	}
}

func resolveProxyConfig(cmd *cobra.Command) (*ProxyConfig, error) {
	cfg := defaultProxyConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyProxyConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyProxyFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyProxyConfigFromFile(cfg *ProxyConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("config: %v", err))
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return newUsageError(fmt.Sprintf("config: invalid YAML in %s: %v", path, err))
	}
	return nil
}

func applyProxyFlagOverrides(flags *pflag.FlagSet, cfg *ProxyConfig) error {
	strs := map[string]*string{
		"spec":     &cfg.Spec,
		"upstream": &cfg.Upstream,
		"listen":   &cfg.Listen,
		"prefix":   &cfg.Prefix,
	}
	for name, dst := range strs {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = value
	}

	bools := map[string]*bool{
		"raise":                          &cfg.Raise,
		"ignore-error":                   &cfg.IgnoreError,
		"check-header":                   &cfg.CheckHeader,
		"validate-success-only":          &cfg.ValidateSuccessOnly,
		"parse-response-by-content-type": &cfg.ParseResponseByContentType,
		"reject-unmatched":               &cfg.RejectUnmatched,
		"validate-responses":             &cfg.ValidateResponses,
		"verbose":                        &cfg.Verbose,
	}
	for name, dst := range bools {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*dst = value
	}

	if flags.Changed("error-status") {
		value, err := flags.GetInt("error-status")
		if err != nil {
			return err
		}
		cfg.ErrorStatus = value
	}
	if flags.Changed("max-body-size") {
		value, err := flags.GetInt64("max-body-size")
		if err != nil {
			return err
		}
		cfg.MaxBodySize = value
	}
	return nil
}

func (c *ProxyConfig) normalize() {
	c.Spec = strings.TrimSpace(c.Spec)
	c.Upstream = strings.TrimSpace(c.Upstream)
	c.Listen = strings.TrimSpace(c.Listen)
	c.Prefix = strings.TrimSpace(c.Prefix)
}

func (c *ProxyConfig) validate() error {
	if c.Spec == "" {
		return newUsageError("proxy: --spec is required (set via flag or config file)")
	}
	if c.Upstream == "" {
		return newUsageError("proxy: --upstream is required (set via flag or config file)")
	}
	u, err := url.Parse(c.Upstream)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return newUsageError(fmt.Sprintf("proxy: invalid --upstream %q (want scheme://host[:port])", c.Upstream))
	}
	if c.Listen == "" {
		return newUsageError("proxy: --listen must not be empty")
	}
	if c.Raise && c.IgnoreError {
		return newUsageError("proxy: --raise and --ignore-error are mutually exclusive")
	}
	return nil
}

// middlewareOptions translates the config into middleware options.
func (c *ProxyConfig) middlewareOptions() []middleware.Option {
	opts := []middleware.Option{
		middleware.WithPrefix(c.Prefix),
		middleware.WithRaise(c.Raise),
		middleware.WithIgnoreError(c.IgnoreError),
		middleware.WithCheckHeader(c.CheckHeader),
		middleware.WithValidateSuccessOnly(c.ValidateSuccessOnly),
		middleware.WithParseResponseByContentType(c.ParseResponseByContentType),
		middleware.WithRejectUnmatched(c.RejectUnmatched),
		middleware.WithMaxBodySize(c.MaxBodySize),
	}
	if c.ErrorStatus != 0 {
		opts = append(opts, middleware.WithErrorStatus(c.ErrorStatus))
	}
	return opts
}
