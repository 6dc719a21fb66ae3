package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	providerFile string
	verbose      bool
	checkMode    bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "zpamod",
		Short: "ZPA declarative resource reconciler",
		Long: `zpamod runs one declarative reconciliation against the Zscaler Private
Access management API: it reads a desired-state parameter document, looks up
the observed resource, and converges it with an idempotent create, update,
delete, or no-op.

Credentials come from the parameter document's provider block, a provider
file, or the ZPA_* environment variables, in that order of precedence.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&providerFile, "provider-file", "p", "", "YAML file with the provider credential block")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&checkMode, "check", false, "predict changes without mutating")

	// Add subcommands
	rootCmd.AddCommand(newReconcileCommand())
	rootCmd.AddCommand(newReorderCommand())
	rootCmd.AddCommand(newKindsCommand())

	return rootCmd
}
