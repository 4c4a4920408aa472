package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/boardfarm/bfrobot/pkg/config"
)

func newRunCommand() *cobra.Command {
	var (
		opts     config.RunOptions
		engine   string
		listener string
	)

	cmd := &cobra.Command{
		Use:   "run [engine args...]",
		Short: "Run test suites against a deployed testbed",
		Long: `Execute the test engine with the testbed listener attached.

The listener deploys the board when the root suite starts, gates each
test on its env_req: tag, and releases the hardware when the run ends.
Everything after the flags is passed to the engine unchanged, so the
engine's own options (suite selection, output directory, variables)
work as usual.

The engine's exit code is passed through, so CI distinguishes failing
tests from adapter errors.`,
		Example: `  # Run a suite directory against a board
  bfrobot run --board-name my-board --env-config env.json --inventory-config inv.json ./suites

  # Skip booting and reuse the testbed as-is
  bfrobot run --board-name my-board --env-config env.json --inventory-config inv.json --skip-boot ./suites

  # Pass engine options after the adapter flags
  bfrobot run --board-name my-board --env-config env.json --inventory-config inv.json -- --outputdir results ./suites`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Validate(); err != nil {
				return err
			}

			engineArgs := buildEngineArgs(listener, &opts, args)
			log.Info().
				Str("board", opts.BoardName).
				Str("engine", engine).
				Strs("args", engineArgs).
				Msg("Starting test engine")

			code, err := runEngine(cmd.Context(), engine, engineArgs)
			if err != nil {
				return err
			}
			if code != 0 {
				return &ExitError{Code: code}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.BoardName, "board-name", "", "board name from the inventory")
	cmd.Flags().StringVar(&opts.EnvConfig, "env-config", "", "environment definition document (JSON or YAML)")
	cmd.Flags().StringVar(&opts.InventoryConfig, "inventory-config", "", "inventory document (JSON or YAML)")
	cmd.Flags().BoolVar(&opts.SkipBoot, "skip-boot", false, "skip booting, use devices as they are")
	cmd.Flags().BoolVar(&opts.SkipContingencyChecks, "skip-contingency-checks", false, "skip per-test contingency checks")
	cmd.Flags().StringVar(&opts.SaveConsoleLogs, "save-console-logs", "", "directory for device console log capture")
	cmd.Flags().BoolVar(&opts.Legacy, "legacy", false, "enable legacy device access mode")
	cmd.Flags().StringSliceVar(&opts.IgnoreDevices, "ignore-devices", nil, "device names to exclude from deployment")
	cmd.Flags().StringVar(&engine, "engine", "robot", "test engine binary")
	cmd.Flags().StringVar(&listener, "listener", defaultListener, "listener registration name")

	return cmd
}
