package metric

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeUnit(t *testing.T) {
	tests := []struct {
		unit string
		want string
	}{
		{"", ""},
		{"A", "amperes"},
		{"°C", "celsius"},
		{"kWh", "kilowatt_hours"},
		{"%", "percent"},
		{"ppm", "ppm"},
		{"V", "volts"},
		{"W", "watts"},
		{"lux", "lux"},
		{"°F", "°F"},
	}

	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeUnit(tt.unit))
		})
	}
}

func TestDeriveName(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		suffix string
		want   string
	}{
		{"power", "Electric W Consumed", "watts", "zwave_electric_w_consumed_watts"},
		{"subscript", "CO₂ Level", "ppm", "zwave_co2_level_ppm"},
		{"parentheses", "Air temperature (internal)", "celsius", "zwave_air_temperature_internal_celsius"},
		{"no suffix", "currentValue", "", "zwave_currentvalue"},
		{"unknown unit", "Illuminance", "lux", "zwave_illuminance_lux"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveName(tt.raw, tt.suffix)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, DeriveName(tt.raw, tt.suffix))
		})
	}
}

func TestDeriveName_Sanitized(t *testing.T) {
	raws := []string{
		"Electric kWh Consumed (total)",
		"  double  spaced  ",
		"CO₂ (ppm) ₂₂",
		"((()))",
		"",
	}

	for _, raw := range raws {
		got := DeriveName(raw, NormalizeUnit("W"))
		assert.NotContains(t, got, " ", raw)
		assert.NotContains(t, got, "₂", raw)
		assert.False(t, strings.ContainsAny(got, "()"), raw)
		assert.True(t, strings.HasPrefix(got, Namespace+"_"), raw)
	}
}

func TestDeriveName_Collision(t *testing.T) {
	assert.Equal(t, DeriveName("CO₂ Level", "ppm"), DeriveName("co2 (level)", "ppm"))
}
