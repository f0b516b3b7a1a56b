package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/erraggy/oasguard"
)

// Execute runs the oasguard CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd constructs the root command so tests can exercise the CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oasguard",
		Short: "Validate HTTP traffic against an API contract",
		Long: "oasguard checks requests and responses against JSON hyper-schema, " +
			"OpenAPI 2 and OpenAPI 3 documents, as a reverse proxy or one request at a time.",
		Version:       oasguard.Version(),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.SetVersionTemplate("oasguard {{.Version}}\n")

	cmd.PersistentFlags().StringP("config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	for _, sub := range []*cobra.Command{
		newProxyCmd(),
		newCheckCmd(),
		newRoutesCmd(),
		newVersionCmd(),
	} {
		sub.SetFlagErrorFunc(flagError)
		cmd.AddCommand(sub)
	}
	cmd.SetFlagErrorFunc(flagError)

	return cmd
}

// flagError turns cobra flag errors into usage errors carrying the help text.
func flagError(c *cobra.Command, err error) error {
	return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the oasguard version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			if verbose {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), oasguard.BuildInfo())
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "oasguard %s\n", oasguard.Version())
			return err
		},
	}
}
