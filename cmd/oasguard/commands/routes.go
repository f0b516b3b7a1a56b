package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/erraggy/oasguard/spec"
)

// RouteInfo describes one operation for the routes command.
type RouteInfo struct {
	Method      string   `json:"method" yaml:"method"`
	Path        string   `json:"path" yaml:"path"`
	OperationID string   `json:"operationId,omitempty" yaml:"operationId,omitempty"`
	Summary     string   `json:"summary,omitempty" yaml:"summary,omitempty"`
	Parameters  []string `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Responses   []string `json:"responses,omitempty" yaml:"responses,omitempty"`
}

// RoutesReport is the structured output of the routes command.
type RoutesReport struct {
	Title   string      `json:"title,omitempty" yaml:"title,omitempty"`
	Version string      `json:"version,omitempty" yaml:"version,omitempty"`
	Dialect string      `json:"dialect" yaml:"dialect"`
	Routes  []RouteInfo `json:"routes" yaml:"routes"`
}

func newRoutesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the operations a contract declares",
		Example: strings.TrimSpace(`  oasguard routes --spec api.yaml
  oasguard routes --spec api.yaml -o yaml`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := cmd.Flags().GetString("spec")
			if err != nil {
				return err
			}
			format, err := cmd.Flags().GetString("output")
			if err != nil {
				return err
			}
			if err := ValidateOutputFormat(format); err != nil {
				return err
			}
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}

			doc, err := loadSpec(path, NewLogger(cmd.ErrOrStderr(), verbose))
			if err != nil {
				return err
			}
			return writeRoutes(cmd.OutOrStdout(), buildRoutesReport(doc), format)
		},
	}

	cmd.Flags().String("spec", "", "Path to the contract document (JSON or YAML)")
	cmd.Flags().StringP("output", "o", FormatText, "Output format: text, json, or yaml")
	return cmd
}

func buildRoutesReport(doc *spec.Document) *RoutesReport {
	report := &RoutesReport{
		Title:   doc.Title,
		Version: doc.Version,
		Dialect: doc.Dialect.String(),
		Routes:  make([]RouteInfo, 0, len(doc.Operations)),
	}
	for _, op := range doc.Operations {
		info := RouteInfo{
			Method:      op.Method,
			Path:        op.Path,
			OperationID: op.OperationID,
			Summary:     op.Summary,
		}
		for _, p := range op.Parameters {
			name := fmt.Sprintf("%s:%s", p.In, p.Name)
			if p.Required {
				name += "*"
			}
			info.Parameters = append(info.Parameters, name)
		}
		for status := range op.Responses {
			info.Responses = append(info.Responses, status)
		}
		sort.Strings(info.Responses)
		report.Routes = append(report.Routes, info)
	}
	return report
}

func writeRoutes(w io.Writer, report *RoutesReport, format string) error {
	if format != FormatText {
		return OutputStructured(w, report, format)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "METHOD\tPATH\tOPERATION\tRESPONSES\n")
	for _, r := range report.Routes {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Method, r.Path, r.OperationID, strings.Join(r.Responses, ","))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d operations (%s)\n", len(report.Routes), report.Dialect)
	return err
}
