// Package keywords exposes the testbed to test cases: a static library
// of device accessors plus a dynamic catalog that plugins extend with
// their own keywords.
package keywords

import (
	"errors"
	"fmt"

	"github.com/boardfarm/bfrobot/pkg/envreq"
	"github.com/boardfarm/bfrobot/pkg/lifecycle"
	"github.com/boardfarm/bfrobot/pkg/telemetry"
	"github.com/boardfarm/bfrobot/pkg/testbed"
)

// LibraryModule is the module name the built-in keywords register under.
const LibraryModule = "boardfarm"

// ErrRequirementNotMet marks a RequireEnvironment failure caused by the
// deployed environment, as opposed to a malformed expression. Callers
// can turn it into a skip rather than a failure.
var ErrRequirementNotMet = errors.New("environment requirement not met")

// Library is the built-in keyword surface over the active deployment.
// Every accessor goes through the lifecycle coordinator, so keywords
// used before deployment or after release fail with a clear error
// instead of a nil dereference.
type Library struct {
	coord *lifecycle.Coordinator
	log   *telemetry.Logger
	tel   *telemetry.Telemetry
	ctx   *testContext
}

// NewLibrary creates the built-in keyword library bound to a run.
func NewLibrary(coord *lifecycle.Coordinator, tel *telemetry.Telemetry) *Library {
	return &Library{
		coord: coord,
		log:   tel.Logger.NewComponentLogger("keywords").WithRunID(coord.RunID()),
		tel:   tel,
		ctx:   newTestContext(),
	}
}

// GetDeviceByType returns the index-th device of the given type from
// the active deployment.
func (l *Library) GetDeviceByType(deviceType string, index int) (testbed.Device, error) {
	_, dm, err := l.coord.Session()
	if err != nil {
		return nil, err
	}
	return dm.GetDeviceByType(deviceType, index)
}

// GetDevicesByType returns all devices of the given type, keyed by name.
func (l *Library) GetDevicesByType(deviceType string) (map[string]testbed.Device, error) {
	_, dm, err := l.coord.Session()
	if err != nil {
		return nil, err
	}
	return dm.GetDevicesByType(deviceType), nil
}

// DeviceManager returns the device manager of the active deployment.
func (l *Library) DeviceManager() (*testbed.DeviceManager, error) {
	_, dm, err := l.coord.Session()
	if err != nil {
		return nil, err
	}
	return dm, nil
}

// BoardfarmConfig returns the merged configuration of the active
// deployment.
func (l *Library) BoardfarmConfig() (*testbed.Config, error) {
	cfg, _, err := l.coord.Session()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogStep writes a structured log line marking a test step.
func (l *Library) LogStep(message string) {
	l.log.Info(message)
}

// SetTestContext stores a value under a key, visible to later keywords
// and tests until cleared.
func (l *Library) SetTestContext(key string, value interface{}) {
	l.ctx.set(key, value)
}

// GetTestContext returns the value stored under a key. An absent key
// yields the fallback when given, or nil; it is never an error.
func (l *Library) GetTestContext(key string, fallback ...interface{}) (interface{}, error) {
	if v, ok := l.ctx.get(key); ok {
		return v, nil
	}
	if len(fallback) > 0 {
		return fallback[0], nil
	}
	return nil, nil
}

// ClearTestContext removes all stored context values.
func (l *Library) ClearTestContext() {
	l.ctx.clear()
}

// RequireEnvironment fails unless the deployed environment satisfies
// the requirement expression. Use it to guard individual keywords or
// setup steps rather than whole tests.
func (l *Library) RequireEnvironment(expr string) error {
	cfg, _, err := l.coord.Session()
	if err != nil {
		return err
	}
	req, err := envreq.Parse(expr)
	if err != nil {
		return err
	}
	satisfied, err := req.SatisfiedBy(cfg.EnvConfig())
	if err != nil {
		return err
	}
	if !satisfied {
		return fmt.Errorf("%w: %q", ErrRequirementNotMet, req.Expr)
	}
	return nil
}

// RegisterInto registers the built-in keywords with a catalog.
func (l *Library) RegisterInto(cat *Catalog) error {
	entries := []struct {
		name string
		doc  string
		tags []string
		fn   interface{}
	}{
		{"get_device_by_type", "Returns the index-th device of a type from the deployed testbed.", []string{"devices"}, l.GetDeviceByType},
		{"get_devices_by_type", "Returns all devices of a type, keyed by device name.", []string{"devices"}, l.GetDevicesByType},
		{"get_device_manager", "Returns the device manager of the deployed testbed.", []string{"devices"}, l.DeviceManager},
		{"get_boardfarm_config", "Returns the merged environment and inventory configuration.", []string{"config"}, l.BoardfarmConfig},
		{"log_step", "Logs a structured test step marker.", []string{"logging"}, l.LogStep},
		{"set_test_context", "Stores a value shared across keywords and tests.", []string{"context"}, l.SetTestContext},
		{"get_test_context", "Retrieves a stored value, with an optional fallback.", []string{"context"}, l.GetTestContext},
		{"clear_test_context", "Removes all stored context values.", []string{"context"}, l.ClearTestContext},
		{"require_environment", "Fails unless the environment satisfies the requirement.", []string{"environment"}, l.RequireEnvironment},
	}
	for _, e := range entries {
		if err := cat.Register(LibraryModule, e.name, e.doc, e.tags, e.fn); err != nil {
			return err
		}
	}
	return nil
}
