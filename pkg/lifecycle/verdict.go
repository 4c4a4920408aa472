package lifecycle

// Action is the gate decision for a starting test.
type Action int

const (
	// ActionRun lets the test execute normally.
	ActionRun Action = iota

	// ActionSkip skips the test because the deployed environment does not
	// satisfy its requirement.
	ActionSkip

	// ActionError fails the test without running it: the requirement was
	// malformed, the testbed is unavailable, or a contingency check failed.
	ActionError
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionRun:
		return "run"
	case ActionSkip:
		return "skip"
	case ActionError:
		return "error"
	default:
		return "unknown"
	}
}

// Verdict is the gate decision for a test, with a human-readable reason
// for anything other than ActionRun.
type Verdict struct {
	// Action is the decision.
	Action Action

	// Reason explains a skip or error decision.
	Reason string

	// Err carries the underlying error for ActionError verdicts.
	Err error
}

func runVerdict() Verdict {
	return Verdict{Action: ActionRun}
}

func skipVerdict(reason string) Verdict {
	return Verdict{Action: ActionSkip, Reason: reason}
}

func errorVerdict(err error) Verdict {
	return Verdict{Action: ActionError, Reason: err.Error(), Err: err}
}
