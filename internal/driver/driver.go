// Package driver defines the device-driver collaborator that discovers
// devices and delivers value updates, along with the drivers zwavebox ships.
package driver

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/neox5/zwavebox/internal/config"
)

// Metadata describes a device value as reported by the driver.
type Metadata struct {
	Unit  string `json:"unit,omitempty"`
	Type  string `json:"type,omitempty"`
	Label string `json:"label,omitempty"`
}

// Composite is a value that carries its own unit.
type Composite struct {
	Value float64
	Unit  string
}

// ValueUpdate is one value-updated notification for a device.
//
// NewValue holds a bool, a number, a Composite or, for decoded JSON, a
// map[string]any with "value" and "unit" keys. Anything else is malformed.
type ValueUpdate struct {
	Endpoint        int
	PropertyName    string
	PropertyKeyName string
	NewValue        any
	Metadata        Metadata
}

// RawName returns the property name metrics are derived from.
func (u ValueUpdate) RawName() string {
	if u.PropertyKeyName != "" {
		return u.PropertyKeyName
	}
	return u.PropertyName
}

// Description returns the human readable description of the value.
func (u ValueUpdate) Description() string {
	if u.Metadata.Label != "" {
		return u.Metadata.Label
	}
	return u.RawName()
}

// Device is a node known to the driver.
type Device interface {
	NodeID() int
	Name() string

	// RefreshValues requests a fresh read of every value of the device.
	// Results arrive as value updates.
	RefreshValues(ctx context.Context) error
}

// Handler receives driver notifications. Implementations must not block.
type Handler interface {
	OnError(err error)
	OnReady(devices []Device)
	OnValueUpdated(dev Device, upd ValueUpdate)
}

// Driver connects to the device network.
type Driver interface {
	// Start opens the driver and begins delivering notifications to h. An
	// error means the driver could not start.
	Start(ctx context.Context, h Handler) error
	Close() error
}

// Error reports a driver connectivity or protocol failure.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("driver %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("driver %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Open selects a driver for path. YAML files are served by the simulated
// driver; any other path is read as a stream of JSON value updates.
func Open(path string, logger *slog.Logger) (Driver, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		catalog, err := config.LoadCatalog(path)
		if err != nil {
			return nil, &Error{Op: "open", Path: path, Err: err}
		}
		return NewSim(catalog, logger), nil
	default:
		return NewStream(path, logger), nil
	}
}
