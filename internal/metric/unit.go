package metric

// PowerSuffix is the suffix of metrics that carry instantaneous power.
const PowerSuffix = "watts"

// unitSuffixes maps device unit symbols to metric name suffixes.
var unitSuffixes = map[string]string{
	"A":   "amperes",
	"°C":  "celsius",
	"kWh": "kilowatt_hours",
	"%":   "percent",
	"ppm": "ppm",
	"V":   "volts",
	"W":   PowerSuffix,
}

// NormalizeUnit returns the metric name suffix for a unit symbol.
// Unknown symbols are returned unchanged and an empty symbol yields an
// empty suffix.
func NormalizeUnit(unit string) string {
	if unit == "" {
		return ""
	}
	if suffix, ok := unitSuffixes[unit]; ok {
		return suffix
	}
	return unit
}
