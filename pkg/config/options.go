package config

import (
	"fmt"
	"strings"
)

// Option names accepted in listener arguments. Names may use dashes or
// underscores; they are normalized to underscores internally.
const (
	optBoardName             = "board_name"
	optEnvConfig             = "env_config"
	optInventoryConfig       = "inventory_config"
	optSkipBoot              = "skip_boot"
	optSkipContingencyChecks = "skip_contingency_checks"
	optSaveConsoleLogs       = "save_console_logs"
	optLegacy                = "legacy"
	optIgnoreDevices         = "ignore_devices"
)

// ParseListenerArg parses the colon-separated key=value option form used
// when the coordinator is attached directly as an engine listener, e.g.
//
//	board_name=my-board:env_config=env.json:inventory_config=inv.json:skip_boot=true
//
// Boolean flags accept true/false/1/0/yes/no; a bare flag (empty value)
// means true. Unknown option names are rejected.
func ParseListenerArg(arg string) (*RunOptions, error) {
	opts := &RunOptions{}
	if strings.TrimSpace(arg) == "" {
		return opts, nil
	}

	for _, pair := range strings.Split(arg, ":") {
		if pair == "" {
			continue
		}
		name, value, _ := strings.Cut(pair, "=")
		if err := opts.set(normalizeOptionName(name), value); err != nil {
			return nil, err
		}
	}

	return opts, nil
}

// BuildListenerArg produces the listener argument string for the given
// listener name and options, the inverse of ParseListenerArg. Only options
// that differ from their zero value are included.
func BuildListenerArg(listenerName string, opts *RunOptions) string {
	parts := []string{listenerName}

	parts = append(parts,
		optBoardName+"="+opts.BoardName,
		optEnvConfig+"="+opts.EnvConfig,
		optInventoryConfig+"="+opts.InventoryConfig,
	)

	if opts.SkipBoot {
		parts = append(parts, optSkipBoot+"=true")
	}
	if opts.SkipContingencyChecks {
		parts = append(parts, optSkipContingencyChecks+"=true")
	}
	if opts.SaveConsoleLogs != "" {
		parts = append(parts, optSaveConsoleLogs+"="+opts.SaveConsoleLogs)
	}
	if opts.Legacy {
		parts = append(parts, optLegacy+"=true")
	}
	if len(opts.IgnoreDevices) > 0 {
		parts = append(parts, optIgnoreDevices+"="+strings.Join(opts.IgnoreDevices, ","))
	}

	return strings.Join(parts, ":")
}

// set assigns a single normalized option.
func (o *RunOptions) set(name, value string) error {
	switch name {
	case optBoardName:
		o.BoardName = value
	case optEnvConfig:
		o.EnvConfig = value
	case optInventoryConfig:
		o.InventoryConfig = value
	case optSkipBoot:
		o.SkipBoot = parseBool(value)
	case optSkipContingencyChecks:
		o.SkipContingencyChecks = parseBool(value)
	case optSaveConsoleLogs:
		o.SaveConsoleLogs = value
	case optLegacy:
		o.Legacy = parseBool(value)
	case optIgnoreDevices:
		o.IgnoreDevices = splitDeviceList(value)
	default:
		return fmt.Errorf("unknown listener option: %s", name)
	}
	return nil
}

// normalizeOptionName converts dashes to underscores so that both
// skip-boot and skip_boot address the same option.
func normalizeOptionName(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), "-", "_")
}

// parseBool interprets the boolean representations accepted in listener
// arguments. An empty value means the flag was given without a value.
func parseBool(value string) bool {
	switch strings.ToLower(value) {
	case "true", "1", "yes", "":
		return true
	}
	return false
}

// splitDeviceList splits a comma-separated device list, dropping empty
// entries.
func splitDeviceList(value string) []string {
	var names []string
	for _, name := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return names
}
