package lifecycle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/boardfarm/bfrobot/pkg/config"
	"github.com/boardfarm/bfrobot/pkg/envreq"
	"github.com/boardfarm/bfrobot/pkg/telemetry"
	"github.com/boardfarm/bfrobot/pkg/testbed"
)

const testInventory = `{
  "my-board": {
    "devices": [
      {"name": "cpe-1", "type": "CPE"},
      {"name": "lan-1", "type": "LAN"}
    ]
  }
}`

const testEnvDual = `{
  "environment_def": {
    "board": {"eRouter_Provisioning_mode": "dual"}
  }
}`

func newTestTelemetry(t *testing.T) *telemetry.Telemetry {
	t.Helper()
	cfg := telemetry.DefaultConfig()
	cfg.Logging.Level = "error"
	tel, err := telemetry.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("telemetry.New: %v", err)
	}
	return tel
}

func newTestOptions(t *testing.T) *config.RunOptions {
	t.Helper()
	dir := t.TempDir()
	invPath := filepath.Join(dir, "inv.json")
	envPath := filepath.Join(dir, "env.json")
	if err := os.WriteFile(invPath, []byte(testInventory), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(envPath, []byte(testEnvDual), 0o644); err != nil {
		t.Fatal(err)
	}
	return &config.RunOptions{
		BoardName:       "my-board",
		EnvConfig:       envPath,
		InventoryConfig: invPath,
		SkipBoot:        true,
	}
}

func TestCoordinator_RootSuiteDeploysAndReleases(t *testing.T) {
	ctx := context.Background()
	c := NewCoordinator(newTestOptions(t), nil, newTestTelemetry(t))

	if c.State() != StateUninitialized {
		t.Fatalf("initial state = %s", c.State())
	}

	if err := c.StartSuite(ctx, "Root"); err != nil {
		t.Fatalf("StartSuite: %v", err)
	}
	if c.State() != StateActive {
		t.Fatalf("state after root start = %s", c.State())
	}

	cfg, dm, err := c.Session()
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if cfg.Board != "my-board" {
		t.Errorf("board = %q", cfg.Board)
	}
	if len(dm.Devices()) != 2 {
		t.Errorf("devices = %d, want 2", len(dm.Devices()))
	}

	if err := c.EndSuite(ctx, "Root"); err != nil {
		t.Fatalf("EndSuite: %v", err)
	}
	if c.State() != StateTerminated {
		t.Fatalf("state after root end = %s", c.State())
	}
	if ts := c.TeardownStatus(); ts == nil || ts.Status != testbed.StatusSuccess {
		t.Errorf("teardown status = %+v", ts)
	}

	if _, _, err := c.Session(); !errors.Is(err, ErrReleased) {
		t.Errorf("Session after release = %v, want ErrReleased", err)
	}
}

func TestCoordinator_NestedSuitesShareDeployment(t *testing.T) {
	ctx := context.Background()

	deploys := 0
	hooks := testbed.NewHookChain()
	hooks.Register(&countingHooks{deploys: &deploys})

	c := NewCoordinator(newTestOptions(t), hooks, newTestTelemetry(t))

	if err := c.StartSuite(ctx, "Root"); err != nil {
		t.Fatalf("StartSuite root: %v", err)
	}
	if err := c.StartSuite(ctx, "Nested"); err != nil {
		t.Fatalf("StartSuite nested: %v", err)
	}
	if deploys != 1 {
		t.Fatalf("deploys = %d, want 1", deploys)
	}

	if err := c.EndSuite(ctx, "Nested"); err != nil {
		t.Fatalf("EndSuite nested: %v", err)
	}
	if c.State() != StateActive {
		t.Fatalf("nested suite end released the testbed (state %s)", c.State())
	}
	if err := c.EndSuite(ctx, "Root"); err != nil {
		t.Fatalf("EndSuite root: %v", err)
	}
	if c.State() != StateTerminated {
		t.Fatalf("state after root end = %s", c.State())
	}
}

type countingHooks struct {
	testbed.NopHooks
	deploys  *int
	released *testbed.DeploymentStatus
}

func (h *countingHooks) SetupEnv(context.Context, *config.RunOptions, *testbed.Config, *testbed.DeviceManager) error {
	*h.deploys++
	return nil
}

func (h *countingHooks) ReleaseDevices(ctx context.Context, opts *config.RunOptions, cfg *testbed.Config, dm *testbed.DeviceManager, status testbed.DeploymentStatus) error {
	if h.released != nil {
		*h.released = status
	}
	return nil
}

func TestStartTest_NoTagRuns(t *testing.T) {
	ctx := context.Background()
	c := NewCoordinator(newTestOptions(t), nil, newTestTelemetry(t))
	if err := c.StartSuite(ctx, "Root"); err != nil {
		t.Fatal(err)
	}

	v := c.StartTest(ctx, "Plain Test", []string{"smoke"})
	if v.Action != ActionRun {
		t.Errorf("verdict = %s (%s), want run", v.Action, v.Reason)
	}
}

func TestStartTest_SatisfiedRequirementRuns(t *testing.T) {
	ctx := context.Background()
	c := NewCoordinator(newTestOptions(t), nil, newTestTelemetry(t))
	if err := c.StartSuite(ctx, "Root"); err != nil {
		t.Fatal(err)
	}

	v := c.StartTest(ctx, "Dual Stack Test", []string{envreq.TagPrefix + "dual_stack"})
	if v.Action != ActionRun {
		t.Errorf("verdict = %s (%s), want run", v.Action, v.Reason)
	}
}

func TestStartTest_UnsatisfiedRequirementSkips(t *testing.T) {
	ctx := context.Background()
	c := NewCoordinator(newTestOptions(t), nil, newTestTelemetry(t))
	if err := c.StartSuite(ctx, "Root"); err != nil {
		t.Fatal(err)
	}

	v := c.StartTest(ctx, "IPv6 Test", []string{envreq.TagPrefix + "ipv6_only"})
	if v.Action != ActionSkip {
		t.Fatalf("verdict = %s, want skip", v.Action)
	}
	if v.Reason == "" {
		t.Error("skip verdict missing reason")
	}
}

func TestStartTest_MalformedRequirementErrors(t *testing.T) {
	ctx := context.Background()
	c := NewCoordinator(newTestOptions(t), nil, newTestTelemetry(t))
	if err := c.StartSuite(ctx, "Root"); err != nil {
		t.Fatal(err)
	}

	v := c.StartTest(ctx, "Bad Tag Test", []string{envreq.TagPrefix + "no_such_preset"})
	if v.Action != ActionError {
		t.Fatalf("verdict = %s, want error", v.Action)
	}
	var pe *envreq.ParseError
	if !errors.As(v.Err, &pe) {
		t.Errorf("verdict error = %v, want *envreq.ParseError", v.Err)
	}
}

func TestStartTest_ContingencyCheckFailureErrors(t *testing.T) {
	ctx := context.Background()
	failure := errors.New("lan-1 unreachable")
	hooks := testbed.NewHookChain()
	hooks.Register(&contingencyHooks{err: failure})

	c := NewCoordinator(newTestOptions(t), hooks, newTestTelemetry(t))
	if err := c.StartSuite(ctx, "Root"); err != nil {
		t.Fatal(err)
	}

	v := c.StartTest(ctx, "Checked Test", []string{envreq.TagPrefix + "dual_stack"})
	if v.Action != ActionError {
		t.Fatalf("verdict = %s, want error", v.Action)
	}
	if !errors.Is(v.Err, failure) {
		t.Errorf("verdict error = %v", v.Err)
	}
}

func TestStartTest_SkipContingencyChecks(t *testing.T) {
	ctx := context.Background()
	hooks := testbed.NewHookChain()
	hooks.Register(&contingencyHooks{err: errors.New("must not be consulted")})

	opts := newTestOptions(t)
	opts.SkipContingencyChecks = true
	c := NewCoordinator(opts, hooks, newTestTelemetry(t))
	if err := c.StartSuite(ctx, "Root"); err != nil {
		t.Fatal(err)
	}

	v := c.StartTest(ctx, "Unchecked Test", []string{envreq.TagPrefix + "dual_stack"})
	if v.Action != ActionRun {
		t.Errorf("verdict = %s (%s), want run", v.Action, v.Reason)
	}

	// The flag bypasses the whole gate: even an unmet requirement runs.
	v = c.StartTest(ctx, "Unmet But Unchecked Test", []string{envreq.TagPrefix + "ipv6_only"})
	if v.Action != ActionRun {
		t.Errorf("unmet requirement verdict = %s (%s), want run", v.Action, v.Reason)
	}

	// Even a malformed requirement is not inspected.
	v = c.StartTest(ctx, "Malformed But Unchecked Test", []string{envreq.TagPrefix + "no_such_preset"})
	if v.Action != ActionRun {
		t.Errorf("malformed requirement verdict = %s (%s), want run", v.Action, v.Reason)
	}
}

type contingencyHooks struct {
	testbed.NopHooks
	err error
}

func (h *contingencyHooks) ContingencyCheck(context.Context, map[string]interface{}, *testbed.DeviceManager) error {
	return h.err
}

func TestDeployFailure(t *testing.T) {
	ctx := context.Background()
	opts := newTestOptions(t)
	opts.InventoryConfig = filepath.Join(t.TempDir(), "missing.json")

	var released testbed.DeploymentStatus
	deploys := 0
	hooks := testbed.NewHookChain()
	hooks.Register(&countingHooks{deploys: &deploys, released: &released})

	c := NewCoordinator(opts, hooks, newTestTelemetry(t))
	err := c.StartSuite(ctx, "Root")
	if err == nil {
		t.Fatal("expected deploy failure for missing inventory")
	}
	var de *DeployError
	if !errors.As(err, &de) || de.Phase != "reserve" {
		t.Fatalf("error = %v, want *DeployError in reserve phase", err)
	}
	if c.State() != StateTerminated {
		t.Fatalf("state after failed deploy = %s", c.State())
	}

	// Tests after a failed deploy error rather than run or skip.
	v := c.StartTest(ctx, "Any Test", nil)
	if v.Action != ActionError {
		t.Fatalf("verdict = %s, want error", v.Action)
	}

	// Release still runs so plugins can return reserved hardware, and it
	// sees the failed status.
	if err := c.EndSuite(ctx, "Root"); err != nil {
		t.Fatalf("EndSuite: %v", err)
	}
	if released.Status != testbed.StatusFailed {
		t.Errorf("release status = %q, want failed", released.Status)
	}
	if ts := c.TeardownStatus(); ts == nil || ts.Exception == "" {
		t.Errorf("teardown = %+v, want recorded exception", ts)
	}
}

func TestStartTest_BeforeDeploy(t *testing.T) {
	c := NewCoordinator(newTestOptions(t), nil, newTestTelemetry(t))
	v := c.StartTest(context.Background(), "Early Test", nil)
	if v.Action != ActionError {
		t.Fatalf("verdict = %s, want error", v.Action)
	}
}
