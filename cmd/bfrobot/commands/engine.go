package commands

import (
	"context"
	"errors"
	"os"
	"os/exec"

	"github.com/boardfarm/bfrobot/pkg/config"
)

// defaultListener is the listener registration passed to the engine.
const defaultListener = "BoardfarmListener"

// buildEngineArgs assembles the engine command line: the listener
// argument carrying the run options, followed by the caller's
// pass-through arguments.
func buildEngineArgs(listenerName string, opts *config.RunOptions, passthrough []string) []string {
	args := []string{"--listener", config.BuildListenerArg(listenerName, opts)}
	return append(args, passthrough...)
}

// runEngine executes the engine binary, wiring its stdio through, and
// returns its exit code.
func runEngine(ctx context.Context, binary string, args []string) (int, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode(), nil
	}
	return -1, err
}
