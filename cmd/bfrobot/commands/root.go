package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose    bool
	jsonOutput bool
)

// ExitError carries a subprocess exit code up to main so it can be
// passed through unchanged.
type ExitError struct {
	Code int
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return fmt.Sprintf("engine exited with code %d", e.Code)
}

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bfrobot",
		Short: "bfrobot - Boardfarm testbed adapter for test engines",
		Long: `bfrobot runs suites against a hardware testbed: it deploys the board
and its companion devices when the root suite starts, gates each test on
its environment requirement tag, and releases the hardware when the run
ends.

Features:
  - Single deploy/release cycle per run, shared by nested suites
  - Per-test environment requirement gating (env_req: tags)
  - Built-in device accessor keywords plus a plugin keyword catalog
  - Inventory and environment config validation`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newKeywordsCommand())
	rootCmd.AddCommand(newWatchCommand())

	return rootCmd
}
