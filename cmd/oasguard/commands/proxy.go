package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/erraggy/oasguard"
	"github.com/erraggy/oasguard/logging"
	"github.com/erraggy/oasguard/middleware"
	"github.com/erraggy/oasguard/spec"
)

const shutdownTimeout = 10 * time.Second

var proxyRunner = runProxy

func newProxyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Run a validating reverse proxy in front of an upstream service",
		Long: "Run a reverse proxy that validates every request before forwarding it " +
			"and every response before returning it. Options can be provided via flags or a config file.",
		Example: strings.TrimSpace(`  oasguard proxy --spec api.yaml --upstream http://localhost:8080
  oasguard proxy --spec api.yaml --upstream http://localhost:8080 --ignore-error --verbose
  oasguard --config oasguard.yaml proxy --listen :9000`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveProxyConfig(cmd)
			if err != nil {
				return err
			}
			return proxyRunner(cmd.Context(), cfg, cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.String("spec", "", "Path to the contract document (JSON or YAML)")
	flags.String("upstream", "", "Upstream base URL, e.g. http://localhost:8080")
	flags.String("listen", ":8000", "Address to listen on")
	flags.String("prefix", "", "Path prefix stripped before route matching")
	flags.Bool("raise", false, "Return validation failures as 500s instead of contract error bodies")
	flags.Bool("ignore-error", false, "Log validation failures and forward traffic unchanged")
	flags.Bool("check-header", false, "Validate declared header parameters and response headers")
	flags.Bool("validate-success-only", true, "Only validate 2xx responses")
	flags.Bool("parse-response-by-content-type", false, "Decode only JSON response bodies; validate others as strings")
	flags.Bool("reject-unmatched", false, "Reject requests that match no operation")
	flags.Bool("validate-responses", true, "Validate upstream responses")
	flags.Int("error-status", 0, "Status code for substituted error responses (400-599)")
	flags.Int64("max-body-size", 0, "Maximum request body size in bytes")

	return cmd
}

func runProxy(ctx context.Context, cfg *ProxyConfig, logOut io.Writer) error {
	logger := NewLogger(logOut, cfg.Verbose)

	doc, err := loadSpec(cfg.Spec, logger)
	if err != nil {
		return err
	}
	handler, err := newProxyHandler(doc, cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("proxy listening", "listen", cfg.Listen, "upstream", cfg.Upstream, "dialect", doc.Dialect.String())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("proxy: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("proxy: shutdown: %w", err)
	}
	return nil
}

// newProxyHandler forwards to cfg.Upstream through request validation and,
// unless disabled, response validation.
func newProxyHandler(doc *spec.Document, cfg *ProxyConfig, logger logging.Logger) (http.Handler, error) {
	target, err := url.Parse(cfg.Upstream)
	if err != nil {
		return nil, newUsageError(fmt.Sprintf("proxy: invalid --upstream %q: %v", cfg.Upstream, err))
	}

	rp := httputil.NewSingleHostReverseProxy(target)
	direct := rp.Director
	rp.Director = func(r *http.Request) {
		direct(r)
		r.Header.Add("Via", "1.1 "+oasguard.UserAgent())
	}
	rp.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("upstream request failed", "method", r.Method, "path", r.URL.Path, "error", err.Error())
		w.WriteHeader(http.StatusBadGateway)
	}

	opts := append(cfg.middlewareOptions(), middleware.WithLogger(logger))

	reqMW, err := middleware.NewRequestValidation(doc, opts...)
	if err != nil {
		return nil, err
	}
	var inner http.Handler = rp
	if cfg.ValidateResponses {
		respMW, err := middleware.NewResponseValidation(doc, opts...)
		if err != nil {
			return nil, err
		}
		inner = respMW.Handler(rp)
	}
	return reqMW.Handler(inner), nil
}
