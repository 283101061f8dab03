package engine

import (
	"encoding/json"

	"github.com/neox5/zwavebox/internal/driver"
)

// Coerce converts a raw value payload into a sample value and its unit.
//
// Booleans become 1 or 0 without a unit. Numbers keep their value and take
// the metadata unit. Composite values use their own unit when set and the
// metadata unit otherwise. Any other payload is a *MalformedValueError.
func Coerce(raw any, metadataUnit string) (float64, string, error) {
	switch v := raw.(type) {
	case bool:
		if v {
			return 1, "", nil
		}
		return 0, "", nil

	case driver.Composite:
		return v.Value, unitOr(v.Unit, metadataUnit), nil

	case *driver.Composite:
		if v != nil {
			return v.Value, unitOr(v.Unit, metadataUnit), nil
		}

	case map[string]any:
		if f, ok := number(v["value"]); ok {
			switch u := v["unit"].(type) {
			case nil:
				return f, metadataUnit, nil
			case string:
				return f, unitOr(u, metadataUnit), nil
			}
		}

	default:
		if f, ok := number(raw); ok {
			return f, metadataUnit, nil
		}
	}

	return 0, "", &MalformedValueError{Value: raw}
}

// number reports the float value of any Go numeric kind.
func number(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func unitOr(unit, fallback string) string {
	if unit != "" {
		return unit
	}
	return fallback
}
