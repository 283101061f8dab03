package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `
seed: 42
report_interval: 5s
devices:
  - node: 2
    name: Smart Plug
    values:
      - property: Electric W Consumed
        label: Electric Consumption [W]
        unit: W
        min: 0
        max: 200
      - property: currentValue
        type: boolean
  - node: 3
    values:
      - property: CO₂ Level
        unit: ppm
        min: 400
        max: 1200
        composite: true
`

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testCatalog), 0o600))

	c, err := LoadCatalog(path)
	require.NoError(t, err)

	require.NotNil(t, c.Seed)
	assert.Equal(t, uint64(42), *c.Seed)
	assert.Equal(t, DefaultCatalogClockInterval, c.ClockInterval)
	assert.Equal(t, 5*time.Second, c.ReportInterval)
	require.Len(t, c.Devices, 2)

	plug := c.Devices[0]
	assert.Equal(t, "Smart Plug", plug.Name)
	require.Len(t, plug.Values, 2)
	assert.Equal(t, "number", plug.Values[0].Type)
	assert.Equal(t, "W", plug.Values[0].Unit)
	assert.Equal(t, "boolean", plug.Values[1].Type)
	assert.Equal(t, 1, plug.Values[1].Max)

	assert.Equal(t, "Node 3", c.Devices[1].Name)
	assert.True(t, c.Devices[1].Values[0].Composite)
}

func TestParseCatalog_SeedOptional(t *testing.T) {
	c, err := ParseCatalog([]byte("devices:\n  - node: 1\n    values:\n      - property: x\n        max: 5\n"))
	require.NoError(t, err)
	assert.Nil(t, c.Seed)
}

func TestLoadCatalog_MissingFile(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no devices", "devices: []"},
		{"bad node", "devices:\n  - node: 0\n"},
		{"duplicate node", "devices:\n  - node: 1\n  - node: 1\n"},
		{"empty property", "devices:\n  - node: 1\n    values:\n      - unit: W\n"},
		{"bad type", "devices:\n  - node: 1\n    values:\n      - property: x\n        type: string\n"},
		{"empty range", "devices:\n  - node: 1\n    values:\n      - property: x\n"},
		{"max below min", "devices:\n  - node: 1\n    values:\n      - property: x\n        min: 5\n        max: 1\n"},
		{"malformed yaml", "devices: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}
