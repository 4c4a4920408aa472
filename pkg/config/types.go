// Package config holds the immutable run configuration for a test
// execution and the codec for the engine's listener argument form.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the shared struct validator.
var validate = validator.New()

// RunOptions is the configuration for one test run. It is created once at
// process start from CLI or listener arguments and never mutated.
type RunOptions struct {
	// BoardName identifies the target board in the inventory.
	BoardName string `json:"board_name" validate:"required"`

	// EnvConfig is the path to the environment definition document.
	EnvConfig string `json:"env_config" validate:"required"`

	// InventoryConfig is the path to the inventory document.
	InventoryConfig string `json:"inventory_config" validate:"required"`

	// SkipBoot skips device booting and uses devices as they are.
	SkipBoot bool `json:"skip_boot,omitempty"`

	// SkipContingencyChecks disables per-test environment gating.
	SkipContingencyChecks bool `json:"skip_contingency_checks,omitempty"`

	// SaveConsoleLogs is a directory for console log capture, if set.
	SaveConsoleLogs string `json:"save_console_logs,omitempty"`

	// Legacy enables the legacy device access mode.
	Legacy bool `json:"legacy,omitempty"`

	// IgnoreDevices lists device names excluded from deployment.
	IgnoreDevices []string `json:"ignore_devices,omitempty"`
}

// Validate checks that the required options are present.
func (o *RunOptions) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("invalid run options: %w", err)
	}
	return nil
}

// Ignored reports whether a device name is on the ignore list.
func (o *RunOptions) Ignored(deviceName string) bool {
	for _, name := range o.IgnoreDevices {
		if name == deviceName {
			return true
		}
	}
	return false
}
