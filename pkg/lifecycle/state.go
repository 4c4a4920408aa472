package lifecycle

// State is the deployment state of a run. Transitions are strictly
// forward: Uninitialized -> Deploying -> Active -> Releasing -> Terminated,
// with Deploying able to jump straight to Terminated on a failed deploy.
type State int

const (
	// StateUninitialized is the state before the first suite starts.
	StateUninitialized State = iota

	// StateDeploying is the state while the testbed is being deployed.
	StateDeploying

	// StateActive is the state while tests may run against the testbed.
	StateActive

	// StateReleasing is the state while devices are being released.
	StateReleasing

	// StateTerminated is the final state; the testbed is gone.
	StateTerminated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateDeploying:
		return "deploying"
	case StateActive:
		return "active"
	case StateReleasing:
		return "releasing"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}
