package config

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v4"
)

const (
	DefaultCatalogClockInterval  = 1 * time.Second
	DefaultCatalogReportInterval = 10 * time.Second
)

// Catalog describes the simulated devices served by the sim driver.
type Catalog struct {
	// Seed makes simulated values repeatable. Unset seeds from the clock.
	Seed *uint64 `yaml:"seed,omitempty"`

	ClockInterval  time.Duration   `yaml:"clock_interval,omitempty"`
	ReportInterval time.Duration   `yaml:"report_interval,omitempty"`
	Devices        []CatalogDevice `yaml:"devices"`
}

// CatalogDevice is one simulated node.
type CatalogDevice struct {
	Node   int            `yaml:"node"`
	Name   string         `yaml:"name"`
	Values []CatalogValue `yaml:"values"`
}

// CatalogValue is one simulated property of a node.
type CatalogValue struct {
	Endpoint    int    `yaml:"endpoint,omitempty"`
	Property    string `yaml:"property"`
	PropertyKey string `yaml:"property_key,omitempty"`
	Label       string `yaml:"label,omitempty"`
	Unit        string `yaml:"unit,omitempty"`

	// Type is "number" (default) or "boolean".
	Type string `yaml:"type,omitempty"`

	Min int `yaml:"min"`
	Max int `yaml:"max"`

	// Accumulate sums successive draws, as a meter would.
	Accumulate bool `yaml:"accumulate,omitempty"`

	// Composite reports the unit inside the value instead of the metadata.
	Composite bool `yaml:"composite,omitempty"`
}

// LoadCatalog reads and validates a device catalogue.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read device catalogue: %w", err)
	}

	return ParseCatalog(data)
}

// ParseCatalog parses and validates a YAML device catalogue.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid device catalogue: %w", err)
	}

	return &c, nil
}

// Validate applies defaults and checks catalogue consistency.
func (c *Catalog) Validate() error {
	if c.ClockInterval == 0 {
		c.ClockInterval = DefaultCatalogClockInterval
	}
	if c.ReportInterval == 0 {
		c.ReportInterval = DefaultCatalogReportInterval
	}
	if c.ClockInterval < 0 || c.ReportInterval < 0 {
		return fmt.Errorf("intervals must be positive")
	}

	if len(c.Devices) == 0 {
		return fmt.Errorf("at least one device must be defined")
	}

	nodes := make(map[int]struct{}, len(c.Devices))
	for i := range c.Devices {
		d := &c.Devices[i]
		if d.Node <= 0 {
			return fmt.Errorf("device at index %d: node id must be positive", i)
		}
		if _, dup := nodes[d.Node]; dup {
			return fmt.Errorf("device %d: duplicate node id", d.Node)
		}
		nodes[d.Node] = struct{}{}

		if d.Name == "" {
			d.Name = fmt.Sprintf("Node %d", d.Node)
		}

		for j := range d.Values {
			v := &d.Values[j]
			if v.Property == "" {
				return fmt.Errorf("device %d value at index %d: property cannot be empty", d.Node, j)
			}
			if v.Type == "" {
				v.Type = "number"
			}
			if v.Type != "number" && v.Type != "boolean" {
				return fmt.Errorf("device %d property %q: invalid type %q (must be number or boolean)", d.Node, v.Property, v.Type)
			}
			if v.Type == "boolean" && v.Min == 0 && v.Max == 0 {
				v.Max = 1
			}
			if v.Max <= v.Min {
				return fmt.Errorf("device %d property %q: max %d must be greater than min %d", d.Node, v.Property, v.Max, v.Min)
			}
		}
	}

	return nil
}
