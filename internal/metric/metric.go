package metric

// EnergyMetricName is the single counter that accumulates estimated energy
// for every power-reporting device channel.
const EnergyMetricName = "estimated_power_joules"

const energyHelp = "Estimated energy in joules, integrated from instantaneous power readings"

// LabelNames is the label schema shared by every device instrument.
var LabelNames = []string{"node", "endpoint", "name"}

// Labels identifies the device channel a sample belongs to.
type Labels struct {
	Node     string
	Endpoint string
	Name     string
}

// Values returns the label values in LabelNames order.
func (l Labels) Values() []string {
	return []string{l.Node, l.Endpoint, l.Name}
}

// Recorder receives translated samples. The Prometheus registry is the
// primary recorder; push exporters mirror the same stream.
type Recorder interface {
	SetGauge(id, help string, labels Labels, value float64) error
	AddEnergy(labels Labels, joules float64)
}
