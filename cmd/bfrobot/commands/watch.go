package commands

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/boardfarm/bfrobot/pkg/config"
)

func newWatchCommand() *cobra.Command {
	var (
		opts     config.RunOptions
		engine   string
		listener string
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <suite-dir> [engine args...]",
		Short: "Re-run suites when files change",
		Long: `Watch a suite directory and the configuration documents, re-running
the test engine whenever a relevant file changes. Intended for local
suite development against a testbed that tolerates repeated runs;
combine with --skip-boot to avoid re-provisioning on every change.`,
		Example: `  # Re-run on suite or config changes, reusing the booted testbed
  bfrobot watch --board-name my-board --env-config env.json --inventory-config inv.json \
    --skip-boot ./suites`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Validate(); err != nil {
				return err
			}

			suiteDir := args[0]
			passthrough := args

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return err
			}
			defer watcher.Close()

			if err := watchRecursive(watcher, suiteDir); err != nil {
				return err
			}
			for _, doc := range []string{opts.EnvConfig, opts.InventoryConfig} {
				if err := watcher.Add(filepath.Dir(doc)); err != nil {
					return err
				}
			}

			engineArgs := buildEngineArgs(listener, &opts, passthrough)
			runOnce := func() {
				code, err := runEngine(cmd.Context(), engine, engineArgs)
				if err != nil {
					log.Error().Err(err).Msg("Engine invocation failed")
					return
				}
				log.Info().Int("exit_code", code).Msg("Engine run finished")
			}

			log.Info().Str("dir", suiteDir).Msg("Watching for changes")
			runOnce()

			return watchLoop(cmd.Context(), watcher, debounce, runOnce)
		},
	}

	cmd.Flags().StringVar(&opts.BoardName, "board-name", "", "board name from the inventory")
	cmd.Flags().StringVar(&opts.EnvConfig, "env-config", "", "environment definition document (JSON or YAML)")
	cmd.Flags().StringVar(&opts.InventoryConfig, "inventory-config", "", "inventory document (JSON or YAML)")
	cmd.Flags().BoolVar(&opts.SkipBoot, "skip-boot", false, "skip booting, use devices as they are")
	cmd.Flags().BoolVar(&opts.SkipContingencyChecks, "skip-contingency-checks", false, "skip per-test contingency checks")
	cmd.Flags().StringSliceVar(&opts.IgnoreDevices, "ignore-devices", nil, "device names to exclude from deployment")
	cmd.Flags().StringVar(&engine, "engine", "robot", "test engine binary")
	cmd.Flags().StringVar(&listener, "listener", defaultListener, "listener registration name")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "quiet period before re-running")

	return cmd
}

// watchRecursive adds a directory tree to the watcher.
func watchRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
}

// watchLoop re-runs after a quiet period following a change, collapsing
// editor write bursts into a single run.
func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, debounce time.Duration, run func()) error {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			log.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("Change detected")
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("Watcher error")
		case <-timerC:
			timer = nil
			timerC = nil
			run()
		}
	}
}
