// Package testbed models the surface of the external device-testbed
// framework this adapter drives: live device handles, the device manager,
// the merged run configuration, and the deployment hook chain.
package testbed

import (
	"fmt"
	"sort"
	"sync"
)

// Device is an opaque handle to a live, externally managed device
// connection.
type Device interface {
	// Name is the unique device name from the inventory.
	Name() string

	// Type is the device role, e.g. "CPE", "ACS", "LAN".
	Type() string
}

// GenericDevice is the minimal Device implementation used when no plugin
// supplies a richer handle.
type GenericDevice struct {
	// DeviceName is the inventory device name.
	DeviceName string `json:"name"`

	// DeviceType is the device role.
	DeviceType string `json:"type"`

	// Attributes carries the remaining inventory entry fields.
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// Name implements Device.
func (d *GenericDevice) Name() string { return d.DeviceName }

// Type implements Device.
func (d *GenericDevice) Type() string { return d.DeviceType }

// DeviceNotFoundError reports a device lookup with zero matches or an
// out-of-range index.
type DeviceNotFoundError struct {
	// DeviceType is the requested type.
	DeviceType string

	// Index is the requested positional index.
	Index int

	// Count is how many devices of the type are deployed.
	Count int
}

// Error implements the error interface.
func (e *DeviceNotFoundError) Error() string {
	if e.Count == 0 {
		return fmt.Sprintf("device not found: no devices of type %q deployed", e.DeviceType)
	}
	return fmt.Sprintf("device not found: type %q has %d device(s), index %d out of range",
		e.DeviceType, e.Count, e.Index)
}

// DeviceManager holds the devices registered for the current run, keyed by
// type with a stable positional order.
type DeviceManager struct {
	mu      sync.RWMutex
	devices []Device
	byName  map[string]Device
}

// NewDeviceManager creates an empty device manager.
func NewDeviceManager() *DeviceManager {
	return &DeviceManager{byName: make(map[string]Device)}
}

// Register adds a device. Registration order determines positional
// indexes within a type. Duplicate names are rejected.
func (m *DeviceManager) Register(device Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byName[device.Name()]; exists {
		return fmt.Errorf("device %q already registered", device.Name())
	}
	m.devices = append(m.devices, device)
	m.byName[device.Name()] = device
	return nil
}

// GetDeviceByType returns the device of the given type at the given
// positional index. Lookups are idempotent and non-mutating; a zero-match
// type or out-of-range index yields a *DeviceNotFoundError.
func (m *DeviceManager) GetDeviceByType(deviceType string, index int) (Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := m.ofTypeLocked(deviceType)
	if index < 0 || index >= len(matched) {
		return nil, &DeviceNotFoundError{DeviceType: deviceType, Index: index, Count: len(matched)}
	}
	return matched[index], nil
}

// GetDevicesByType returns all devices of a type keyed by device name.
// The result may be empty.
func (m *DeviceManager) GetDevicesByType(deviceType string) map[string]Device {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]Device)
	for _, d := range m.ofTypeLocked(deviceType) {
		result[d.Name()] = d
	}
	return result
}

// GetDeviceByName returns a device by its inventory name.
func (m *DeviceManager) GetDeviceByName(name string) (Device, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.byName[name]
	return d, ok
}

// Devices returns all registered devices in registration order.
func (m *DeviceManager) Devices() []Device {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]Device(nil), m.devices...)
}

// Types returns the distinct device types present, sorted.
func (m *DeviceManager) Types() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	var types []string
	for _, d := range m.devices {
		if !seen[d.Type()] {
			seen[d.Type()] = true
			types = append(types, d.Type())
		}
	}
	sort.Strings(types)
	return types
}

func (m *DeviceManager) ofTypeLocked(deviceType string) []Device {
	var matched []Device
	for _, d := range m.devices {
		if d.Type() == deviceType {
			matched = append(matched, d)
		}
	}
	return matched
}
