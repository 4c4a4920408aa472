package testbed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/boardfarm/bfrobot/pkg/config"
)

// Config is the merged inventory and environment configuration for one
// run. It shares the lifetime of the deployment: created when devices are
// deployed, discarded when they are released.
type Config struct {
	// Board is the board name the run targets.
	Board string `json:"board"`

	env       map[string]interface{}
	inventory map[string]interface{}
}

// NewConfig merges a board inventory entry with an environment document.
// Devices on the ignore list are dropped from the inventory entry.
func NewConfig(board string, env, inventory map[string]interface{}, opts *config.RunOptions) *Config {
	if opts != nil && len(opts.IgnoreDevices) > 0 {
		inventory = filterDevices(inventory, opts)
	}
	return &Config{Board: board, env: env, inventory: inventory}
}

// EnvConfig returns the environment definition document.
func (c *Config) EnvConfig() map[string]interface{} { return c.env }

// InventoryConfig returns the board's inventory entry.
func (c *Config) InventoryConfig() map[string]interface{} { return c.inventory }

// DeviceEntries returns the inventory device entries for the board.
func (c *Config) DeviceEntries() []map[string]interface{} {
	raw, ok := c.inventory["devices"].([]interface{})
	if !ok {
		return nil
	}
	entries := make([]map[string]interface{}, 0, len(raw))
	for _, item := range raw {
		if entry, ok := item.(map[string]interface{}); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

// ProvisioningMode returns the board provisioning mode from the
// environment definition, or the empty string when absent.
func (c *Config) ProvisioningMode() string {
	envDef, _ := c.env["environment_def"].(map[string]interface{})
	board, _ := envDef["board"].(map[string]interface{})
	switch mode := board["eRouter_Provisioning_mode"].(type) {
	case string:
		return mode
	case []interface{}:
		if len(mode) > 0 {
			if s, ok := mode[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

// filterDevices returns a copy of the inventory entry without the ignored
// devices.
func filterDevices(inventory map[string]interface{}, opts *config.RunOptions) map[string]interface{} {
	filtered := make(map[string]interface{}, len(inventory))
	for k, v := range inventory {
		filtered[k] = v
	}

	raw, ok := inventory["devices"].([]interface{})
	if !ok {
		return filtered
	}

	kept := make([]interface{}, 0, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]interface{})
		if ok {
			if name, _ := entry["name"].(string); opts.Ignored(name) {
				continue
			}
		}
		kept = append(kept, item)
	}
	filtered["devices"] = kept
	return filtered
}

// LoadDocument reads a JSON or YAML document from disk. The format is
// chosen by file extension; anything that is not .yaml/.yml is treated as
// JSON.
func LoadDocument(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", path, err)
	}

	doc := make(map[string]interface{})
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML document %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse JSON document %s: %w", path, err)
		}
	}
	return doc, nil
}

// LoadInventory loads the inventory document and selects the entry for
// the given board.
func LoadInventory(path, board string) (map[string]interface{}, error) {
	doc, err := LoadDocument(path)
	if err != nil {
		return nil, err
	}

	entry, ok := doc[board].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("board %q not found in inventory %s", board, path)
	}
	return entry, nil
}

// RegisterFromEntries builds a device manager from inventory device
// entries, used when no plugin registers richer device handles.
func RegisterFromEntries(cfg *Config) (*DeviceManager, error) {
	dm := NewDeviceManager()
	for _, entry := range cfg.DeviceEntries() {
		name, _ := entry["name"].(string)
		deviceType, _ := entry["type"].(string)
		if name == "" || deviceType == "" {
			return nil, fmt.Errorf("inventory device entry missing name or type: %v", entry)
		}

		attrs := make(map[string]interface{}, len(entry))
		for k, v := range entry {
			if k != "name" && k != "type" {
				attrs[k] = v
			}
		}

		if err := dm.Register(&GenericDevice{
			DeviceName: name,
			DeviceType: deviceType,
			Attributes: attrs,
		}); err != nil {
			return nil, err
		}
	}
	return dm, nil
}
