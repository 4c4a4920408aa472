package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/boardfarm/bfrobot/pkg/config"
	"github.com/boardfarm/bfrobot/pkg/envreq"
	"github.com/boardfarm/bfrobot/pkg/testbed"
)

func newValidateCommand() *cobra.Command {
	var (
		opts     config.RunOptions
		requires []string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate testbed configuration documents",
		Long: `Validate the environment and inventory documents for a board without
deploying anything.

This command checks:
  - Document syntax (JSON or YAML)
  - The board exists in the inventory
  - Every device entry carries a name and a type
  - Optional environment requirements against the environment document`,
		Example: `  # Validate configs for a board
  bfrobot validate --board-name my-board --env-config env.json --inventory-config inv.json

  # Additionally check that the environment satisfies a requirement
  bfrobot validate --board-name my-board --env-config env.json --inventory-config inv.json \
    --require dual_stack`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Validate(); err != nil {
				return err
			}

			env, err := testbed.LoadDocument(opts.EnvConfig)
			if err != nil {
				return fmt.Errorf("environment config: %w", err)
			}

			inventory, err := testbed.LoadInventory(opts.InventoryConfig, opts.BoardName)
			if err != nil {
				return fmt.Errorf("inventory config: %w", err)
			}

			cfg := testbed.NewConfig(opts.BoardName, env, inventory, &opts)
			dm, err := testbed.RegisterFromEntries(cfg)
			if err != nil {
				return fmt.Errorf("device entries: %w", err)
			}

			for _, expr := range requires {
				req, err := envreq.Parse(expr)
				if err != nil {
					return err
				}
				satisfied, err := req.SatisfiedBy(env)
				if err != nil {
					return err
				}
				if !satisfied {
					// Distinct exit code so scripts can tell "valid but
					// unmet" from malformed configuration.
					log.Warn().Str("requirement", req.Expr).Msg("Environment does not satisfy requirement")
					return &ExitError{Code: 3}
				}
			}

			log.Info().
				Str("board", opts.BoardName).
				Int("devices", len(dm.Devices())).
				Strs("types", dm.Types()).
				Msg("Configuration is valid")
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.BoardName, "board-name", "", "board name from the inventory")
	cmd.Flags().StringVar(&opts.EnvConfig, "env-config", "", "environment definition document (JSON or YAML)")
	cmd.Flags().StringVar(&opts.InventoryConfig, "inventory-config", "", "inventory document (JSON or YAML)")
	cmd.Flags().StringSliceVar(&opts.IgnoreDevices, "ignore-devices", nil, "device names to exclude")
	cmd.Flags().StringSliceVar(&requires, "require", nil, "environment requirement to check (preset or JSON)")

	return cmd
}
