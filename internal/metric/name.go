package metric

import "strings"

// Namespace prefixes every derived device metric.
const Namespace = "zwave"

var nameReplacer = strings.NewReplacer(
	" ", "_",
	"₂", "2",
	"(", "",
	")", "",
)

// DeriveName builds the metric identifier for a device property.
//
// The raw name is lower-cased, spaces become underscores, a subscript two
// becomes a plain 2 and parentheses are dropped. Distinct raw names may
// derive the same identifier; they then share one instrument.
func DeriveName(raw, suffix string) string {
	name := Namespace + "_" + nameReplacer.Replace(strings.ToLower(raw))
	if suffix != "" {
		name += "_" + suffix
	}
	return name
}
