package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool

	flagProject  string
	flagLocation string
	flagChannel  string
	flagEndpoint string
)

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stratoctl",
		Short: "Strato resource management CLI",
		Long: `stratoctl manages Strato cloud resources through the provider's
long-running operation API.

Mutating commands build a channel-gated request, run local preflight
policies, submit the request, and poll the resulting operation to a
terminal state before fetching the final resource.

Release channels (--channel ga|beta|alpha) select which API surface a
request is built against; options outside the selected channel are
rejected before anything is sent.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().StringVar(&flagProject, "project", "", "project ID")
	rootCmd.PersistentFlags().StringVar(&flagLocation, "location", "", "location (region or zone)")
	rootCmd.PersistentFlags().StringVar(&flagChannel, "channel", "", "release channel (ga, beta, alpha)")
	rootCmd.PersistentFlags().StringVar(&flagEndpoint, "endpoint", "", "API endpoint override")

	// Add subcommands
	rootCmd.AddCommand(newClustersCommand())
	rootCmd.AddCommand(newFirewallPoliciesCommand())
	rootCmd.AddCommand(newSimulateCommand())
	rootCmd.AddCommand(newOperationsCommand())

	return rootCmd
}
