package lifecycle

import (
	"errors"
	"fmt"
)

// ErrNotDeployed is returned when a session accessor is used before the
// testbed reaches the active state.
var ErrNotDeployed = errors.New("testbed is not deployed")

// ErrReleased is returned when a session accessor is used after the
// testbed has been released.
var ErrReleased = errors.New("testbed has been released")

// DeployError wraps a failure during a named deployment phase.
type DeployError struct {
	// Phase is the deployment phase that failed (configure, reserve,
	// parse_config, register, setup_env).
	Phase string

	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *DeployError) Error() string {
	return fmt.Sprintf("deployment failed during %s: %v", e.Phase, e.Err)
}

// Unwrap returns the underlying error.
func (e *DeployError) Unwrap() error {
	return e.Err
}

// NewDeployError creates a DeployError for a phase.
func NewDeployError(phase string, err error) *DeployError {
	return &DeployError{Phase: phase, Err: err}
}

// TransitionError indicates a lifecycle call that is invalid in the
// current state.
type TransitionError struct {
	// Op is the attempted operation.
	Op string

	// State is the state the coordinator was in.
	State State
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Op, e.State)
}
