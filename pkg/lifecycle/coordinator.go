package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/boardfarm/bfrobot/pkg/config"
	"github.com/boardfarm/bfrobot/pkg/envreq"
	"github.com/boardfarm/bfrobot/pkg/telemetry"
	"github.com/boardfarm/bfrobot/pkg/testbed"
)

// Coordinator binds the test engine's suite and test boundaries to the
// testbed deployment lifecycle. The testbed is deployed when the root
// suite starts and released when it ends; nested suites share the
// deployment. Each starting test is gated on its environment
// requirement tag.
type Coordinator struct {
	mu sync.Mutex

	opts  *config.RunOptions
	hooks *testbed.HookChain
	tel   *telemetry.Telemetry
	log   *telemetry.Logger

	runID      string
	state      State
	suiteDepth int

	cfg       *testbed.Config
	dm        *testbed.DeviceManager
	deployErr error

	// teardown is the release outcome, recorded for inspection after
	// the run ends.
	teardown *testbed.DeploymentStatus
}

// NewCoordinator creates a coordinator for a run.
func NewCoordinator(opts *config.RunOptions, hooks *testbed.HookChain, tel *telemetry.Telemetry) *Coordinator {
	if hooks == nil {
		hooks = testbed.NewHookChain()
	}
	runID := uuid.New().String()
	return &Coordinator{
		opts:  opts,
		hooks: hooks,
		tel:   tel,
		log:   tel.Logger.NewComponentLogger("lifecycle").WithRunID(runID).WithBoard(opts.BoardName),
		runID: runID,
		state: StateUninitialized,
	}
}

// RunID returns the unique identifier of this run.
func (c *Coordinator) RunID() string {
	return c.runID
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns the parsed configuration and device manager of the
// active deployment. It returns ErrNotDeployed before the testbed is
// active and ErrReleased after it has been released.
func (c *Coordinator) Session() (*testbed.Config, *testbed.DeviceManager, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateActive:
		return c.cfg, c.dm, nil
	case StateReleasing, StateTerminated:
		return nil, nil, ErrReleased
	default:
		return nil, nil, ErrNotDeployed
	}
}

// TeardownStatus returns the release outcome, or nil while the testbed
// has not been released.
func (c *Coordinator) TeardownStatus() *testbed.DeploymentStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.teardown
}

// StartSuite handles a suite boundary. Only the root suite (depth 0)
// triggers deployment; nested suites are counted so the matching
// EndSuite can be recognized.
func (c *Coordinator) StartSuite(ctx context.Context, name string) error {
	c.mu.Lock()
	c.suiteDepth++
	isRoot := c.suiteDepth == 1
	c.mu.Unlock()

	if !isRoot {
		c.log.WithSuite(name).Debug("nested suite started")
		return nil
	}

	return c.deploy(ctx, name)
}

// EndSuite handles a suite boundary. The root suite's end releases the
// testbed regardless of how the deployment went.
func (c *Coordinator) EndSuite(ctx context.Context, name string) error {
	c.mu.Lock()
	if c.suiteDepth > 0 {
		c.suiteDepth--
	}
	isRoot := c.suiteDepth == 0
	c.mu.Unlock()

	if !isRoot {
		c.log.WithSuite(name).Debug("nested suite ended")
		return nil
	}

	return c.release(ctx, name)
}

// StartTest gates a starting test on its environment requirement tag.
// Tests without an env_req tag always run. The verdict distinguishes an
// unsatisfied requirement (skip) from a malformed requirement, missing
// deployment or failed contingency check (error).
func (c *Coordinator) StartTest(ctx context.Context, name string, tags []string) Verdict {
	log := c.log.WithTest(name)

	_, span := c.tel.Tracer.StartGateSpan(ctx, name)
	defer span.End()

	verdict := c.gate(ctx, name, tags)
	c.tel.Metrics.RecordTestGate(verdict.Action.String())

	switch verdict.Action {
	case ActionSkip:
		log.WithField("reason", verdict.Reason).Info("test skipped")
		c.tel.Events.PublishTestSkipped(c.runID, name, verdict.Reason)
	case ActionError:
		c.tel.Tracer.RecordError(span, verdict.Err)
		log.WithError(verdict.Err).Error("test cannot run")
		c.tel.Events.PublishTestErrored(c.runID, name, verdict.Err)
	default:
		c.tel.Tracer.RecordSuccess(span)
		log.Debug("test admitted")
	}
	return verdict
}

func (c *Coordinator) gate(ctx context.Context, name string, tags []string) Verdict {
	c.mu.Lock()
	state := c.state
	cfg := c.cfg
	dm := c.dm
	deployErr := c.deployErr
	c.mu.Unlock()

	if state != StateActive {
		if deployErr != nil {
			return errorVerdict(fmt.Errorf("testbed deployment failed: %w", deployErr))
		}
		return errorVerdict(&TransitionError{Op: "start test", State: state})
	}

	// The flag disables the whole per-test gate, not just the hook: with
	// it set, even a test with an unmet requirement runs.
	if c.opts.SkipContingencyChecks {
		return runVerdict()
	}

	expr, ok := envreq.ExtractTag(tags)
	if !ok {
		return runVerdict()
	}

	req, err := envreq.Parse(expr)
	if err != nil {
		return errorVerdict(err)
	}

	satisfied, err := req.SatisfiedBy(cfg.EnvConfig())
	if err != nil {
		return errorVerdict(err)
	}
	if !satisfied {
		return skipVerdict(fmt.Sprintf("environment does not satisfy requirement %q", req.Expr))
	}

	if err := c.hooks.ContingencyCheck(ctx, req.Doc, dm); err != nil {
		return errorVerdict(fmt.Errorf("contingency check failed: %w", err))
	}

	return runVerdict()
}

// EndTest records a finished test. status is the engine's verdict
// string (PASS, FAIL, SKIP).
func (c *Coordinator) EndTest(ctx context.Context, name, status string) {
	c.log.WithTest(name).WithField("status", status).Debug("test ended")
}

func (c *Coordinator) deploy(ctx context.Context, suite string) error {
	c.mu.Lock()
	if c.state != StateUninitialized {
		state := c.state
		c.mu.Unlock()
		return &TransitionError{Op: "deploy", State: state}
	}
	c.state = StateDeploying
	c.mu.Unlock()

	log := c.log.WithSuite(suite)
	log.Info("deploying testbed")
	c.tel.Events.PublishDeployStarted(c.runID, c.opts.BoardName)

	spanCtx, span := c.tel.Tracer.StartDeploySpan(ctx, c.opts.BoardName, c.runID)
	defer span.End()
	timer := telemetry.NewTimer()

	cfg, dm, err := c.runDeploy(spanCtx)

	c.mu.Lock()
	if err != nil {
		c.deployErr = err
		c.state = StateTerminated
	} else {
		c.cfg = cfg
		c.dm = dm
		c.state = StateActive
	}
	c.mu.Unlock()

	if err != nil {
		c.tel.Tracer.RecordError(span, err)
		c.tel.Metrics.RecordDeploy(testbed.StatusFailed, timer.Elapsed())
		c.tel.Events.PublishDeployFailed(c.runID, c.opts.BoardName, err)
		log.WithError(err).Error("testbed deployment failed")
		return err
	}

	c.tel.Tracer.RecordSuccess(span)
	c.tel.Metrics.RecordDeploy(testbed.StatusSuccess, timer.Elapsed())
	c.tel.Metrics.SetActiveRuns(1)
	c.tel.Metrics.SetDevicesRegistered(len(dm.Devices()))
	c.tel.Events.PublishDeployFinished(c.runID, c.opts.BoardName, timer.Elapsed())
	log.WithField("devices", len(dm.Devices())).Info("testbed deployed")
	return nil
}

// runDeploy executes the deployment hook sequence. Each first-result
// hook falls back to the built-in implementation when no plugin
// handles it.
func (c *Coordinator) runDeploy(ctx context.Context) (*testbed.Config, *testbed.DeviceManager, error) {
	if err := c.hooks.Configure(ctx, c.opts); err != nil {
		return nil, nil, NewDeployError("configure", err)
	}

	inventory, err := c.hooks.ReserveDevices(ctx, c.opts)
	if err != nil {
		return nil, nil, NewDeployError("reserve", err)
	}
	if inventory == nil {
		inventory, err = testbed.LoadInventory(c.opts.InventoryConfig, c.opts.BoardName)
		if err != nil {
			return nil, nil, NewDeployError("reserve", err)
		}
	}

	env, err := testbed.LoadDocument(c.opts.EnvConfig)
	if err != nil {
		return nil, nil, NewDeployError("parse_config", err)
	}

	cfg, err := c.hooks.ParseConfig(ctx, c.opts, inventory, env)
	if err != nil {
		return nil, nil, NewDeployError("parse_config", err)
	}
	if cfg == nil {
		cfg = testbed.NewConfig(c.opts.BoardName, env, inventory, c.opts)
	}

	dm, err := c.hooks.RegisterDevices(ctx, c.opts, cfg)
	if err != nil {
		return nil, nil, NewDeployError("register", err)
	}
	if dm == nil {
		dm, err = testbed.RegisterFromEntries(cfg)
		if err != nil {
			return nil, nil, NewDeployError("register", err)
		}
	}

	if !c.opts.SkipBoot {
		if err := c.hooks.SetupEnv(ctx, c.opts, cfg, dm); err != nil {
			return nil, nil, NewDeployError("setup_env", err)
		}
	}

	return cfg, dm, nil
}

func (c *Coordinator) release(ctx context.Context, suite string) error {
	c.mu.Lock()
	if c.teardown != nil || c.state == StateReleasing || c.state == StateUninitialized {
		// Nothing deployed, or already released.
		c.mu.Unlock()
		return nil
	}
	deployErr := c.deployErr
	cfg := c.cfg
	dm := c.dm
	c.state = StateReleasing
	c.mu.Unlock()

	log := c.log.WithSuite(suite)
	log.Info("releasing devices")

	spanCtx, span := c.tel.Tracer.StartReleaseSpan(ctx, c.opts.BoardName, c.runID)
	defer span.End()
	timer := telemetry.NewTimer()

	// Plugins see the deployment outcome so they can adjust teardown; a
	// failed deploy may still have reserved hardware to return.
	status := testbed.DeploymentStatus{Status: testbed.StatusSuccess}
	if deployErr != nil {
		status = testbed.DeploymentStatus{Status: testbed.StatusFailed, Exception: deployErr.Error()}
	}
	err := c.hooks.ReleaseDevices(spanCtx, c.opts, cfg, dm, status)
	if err != nil {
		status.Status = testbed.StatusFailed
		status.Exception = err.Error()
	}

	c.mu.Lock()
	c.state = StateTerminated
	c.cfg = nil
	c.dm = nil
	c.teardown = &status
	c.mu.Unlock()

	c.tel.Metrics.SetActiveRuns(0)
	c.tel.Metrics.RecordRelease(status.Status, timer.Elapsed())
	c.tel.Events.PublishReleaseFinished(c.runID, c.opts.BoardName, timer.Elapsed())

	if err != nil {
		c.tel.Tracer.RecordError(span, err)
		log.WithError(err).Error("device release reported errors")
		return err
	}
	c.tel.Tracer.RecordSuccess(span)
	log.Info("devices released")
	return nil
}
