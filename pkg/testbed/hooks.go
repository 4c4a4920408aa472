package testbed

import (
	"context"
	"errors"
	"sync"

	"github.com/boardfarm/bfrobot/pkg/config"
)

// Deployment status values reported to the release hook.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// DeploymentStatus describes the outcome of the deployment phase, passed
// to the release hook so plugins can adjust teardown behavior.
type DeploymentStatus struct {
	// Status is StatusSuccess or StatusFailed.
	Status string `json:"status"`

	// Exception is the deployment error message when Status is failed.
	Exception string `json:"exception,omitempty"`
}

// Hooks is the deployment hook sequence a testbed plugin may implement.
// All calls are synchronous; any asynchronous behavior inside a plugin is
// fully awaited before the call returns.
//
// ReserveDevices, ParseConfig and RegisterDevices are first-result hooks:
// a nil result means "not handled" and the next plugin (or the built-in
// fallback) is consulted.
type Hooks interface {
	// Configure lets a plugin adjust itself from the run options.
	Configure(ctx context.Context, opts *config.RunOptions) error

	// ReserveDevices reserves hardware and returns the board's inventory
	// entry, or nil to defer to the next plugin.
	ReserveDevices(ctx context.Context, opts *config.RunOptions) (map[string]interface{}, error)

	// ParseConfig merges inventory and environment documents into a
	// Config, or returns nil to defer.
	ParseConfig(ctx context.Context, opts *config.RunOptions, inventory, env map[string]interface{}) (*Config, error)

	// RegisterDevices builds the device manager for the run, or returns
	// nil to defer.
	RegisterDevices(ctx context.Context, opts *config.RunOptions, cfg *Config) (*DeviceManager, error)

	// SetupEnv boots and provisions the deployed devices.
	SetupEnv(ctx context.Context, opts *config.RunOptions, cfg *Config, dm *DeviceManager) error

	// ReleaseDevices returns reserved hardware. Called on a best-effort
	// basis even after a failed run.
	ReleaseDevices(ctx context.Context, opts *config.RunOptions, cfg *Config, dm *DeviceManager, status DeploymentStatus) error

	// ContingencyCheck verifies the deployed devices can satisfy an
	// environment requirement before a test runs.
	ContingencyCheck(ctx context.Context, envReq map[string]interface{}, dm *DeviceManager) error
}

// NopHooks implements Hooks with no-ops, for embedding in plugins that
// only care about part of the sequence.
type NopHooks struct{}

func (NopHooks) Configure(context.Context, *config.RunOptions) error { return nil }

func (NopHooks) ReserveDevices(context.Context, *config.RunOptions) (map[string]interface{}, error) {
	return nil, nil
}

func (NopHooks) ParseConfig(context.Context, *config.RunOptions, map[string]interface{}, map[string]interface{}) (*Config, error) {
	return nil, nil
}

func (NopHooks) RegisterDevices(context.Context, *config.RunOptions, *Config) (*DeviceManager, error) {
	return nil, nil
}

func (NopHooks) SetupEnv(context.Context, *config.RunOptions, *Config, *DeviceManager) error {
	return nil
}

func (NopHooks) ReleaseDevices(context.Context, *config.RunOptions, *Config, *DeviceManager, DeploymentStatus) error {
	return nil
}

func (NopHooks) ContingencyCheck(context.Context, map[string]interface{}, *DeviceManager) error {
	return nil
}

// HookChain dispatches hook calls to registered plugins in registration
// order.
type HookChain struct {
	mu      sync.RWMutex
	plugins []Hooks
}

// NewHookChain creates an empty hook chain.
func NewHookChain() *HookChain {
	return &HookChain{}
}

// Register appends a plugin to the chain.
func (c *HookChain) Register(h Hooks) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plugins = append(c.plugins, h)
}

// Len returns the number of registered plugins.
func (c *HookChain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.plugins)
}

func (c *HookChain) snapshot() []Hooks {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Hooks(nil), c.plugins...)
}

// Configure runs the configure hook on every plugin; the first error
// aborts the sequence.
func (c *HookChain) Configure(ctx context.Context, opts *config.RunOptions) error {
	for _, h := range c.snapshot() {
		if err := h.Configure(ctx, opts); err != nil {
			return err
		}
	}
	return nil
}

// ReserveDevices returns the first non-nil inventory entry produced by a
// plugin, or nil when no plugin handles the reservation.
func (c *HookChain) ReserveDevices(ctx context.Context, opts *config.RunOptions) (map[string]interface{}, error) {
	for _, h := range c.snapshot() {
		inventory, err := h.ReserveDevices(ctx, opts)
		if err != nil {
			return nil, err
		}
		if inventory != nil {
			return inventory, nil
		}
	}
	return nil, nil
}

// ParseConfig returns the first non-nil Config produced by a plugin.
func (c *HookChain) ParseConfig(ctx context.Context, opts *config.RunOptions, inventory, env map[string]interface{}) (*Config, error) {
	for _, h := range c.snapshot() {
		cfg, err := h.ParseConfig(ctx, opts, inventory, env)
		if err != nil {
			return nil, err
		}
		if cfg != nil {
			return cfg, nil
		}
	}
	return nil, nil
}

// RegisterDevices returns the first non-nil DeviceManager produced by a
// plugin.
func (c *HookChain) RegisterDevices(ctx context.Context, opts *config.RunOptions, cfg *Config) (*DeviceManager, error) {
	for _, h := range c.snapshot() {
		dm, err := h.RegisterDevices(ctx, opts, cfg)
		if err != nil {
			return nil, err
		}
		if dm != nil {
			return dm, nil
		}
	}
	return nil, nil
}

// SetupEnv runs environment setup on every plugin; the first error aborts.
func (c *HookChain) SetupEnv(ctx context.Context, opts *config.RunOptions, cfg *Config, dm *DeviceManager) error {
	for _, h := range c.snapshot() {
		if err := h.SetupEnv(ctx, opts, cfg, dm); err != nil {
			return err
		}
	}
	return nil
}

// ReleaseDevices runs release on every plugin, best effort: every plugin
// is called even when earlier ones fail, and the errors are joined.
func (c *HookChain) ReleaseDevices(ctx context.Context, opts *config.RunOptions, cfg *Config, dm *DeviceManager, status DeploymentStatus) error {
	var errs []error
	for _, h := range c.snapshot() {
		if err := h.ReleaseDevices(ctx, opts, cfg, dm, status); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ContingencyCheck runs the contingency check on every plugin; the first
// error aborts.
func (c *HookChain) ContingencyCheck(ctx context.Context, envReq map[string]interface{}, dm *DeviceManager) error {
	for _, h := range c.snapshot() {
		if err := h.ContingencyCheck(ctx, envReq, dm); err != nil {
			return err
		}
	}
	return nil
}
