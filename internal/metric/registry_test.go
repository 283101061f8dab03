package metric

import (
	"bytes"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingRegisterer counts Register calls on the wrapped registry.
type countingRegisterer struct {
	prometheus.Registerer
	calls int
}

func (c *countingRegisterer) Register(col prometheus.Collector) error {
	c.calls++
	return c.Registerer.Register(col)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRegistry(t *testing.T) (*Registry, *prometheus.Registry, *countingRegisterer) {
	t.Helper()
	promReg := prometheus.NewRegistry()
	counting := &countingRegisterer{Registerer: promReg}
	reg, err := NewRegistry(counting, discardLogger())
	require.NoError(t, err)
	return reg, promReg, counting
}

func TestRegistry_GetOrCreate(t *testing.T) {
	reg, _, counting := newTestRegistry(t)
	base := counting.calls

	first, err := reg.GetOrCreate("zwave_electric_w_consumed_watts", "Electric Consumption [W]", LabelNames)
	require.NoError(t, err)
	assert.Equal(t, base+1, counting.calls)
	assert.Equal(t, 1, reg.Len())

	second, err := reg.GetOrCreate("zwave_electric_w_consumed_watts", "ignored", []string{"other"})
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, base+1, counting.calls)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_LogsThroughInjectedLogger(t *testing.T) {
	var buf bytes.Buffer
	reg, err := NewRegistry(prometheus.NewRegistry(), slog.New(slog.NewTextHandler(&buf, nil)))
	require.NoError(t, err)

	_, err = reg.GetOrCreate("zwave_humidity_percent", "Humidity", LabelNames)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "registered prometheus metric")
	assert.Contains(t, buf.String(), "name=zwave_humidity_percent")
}

func TestRegistry_FirstRegistrationWins(t *testing.T) {
	reg, promReg, _ := newTestRegistry(t)

	require.NoError(t, reg.SetGauge("zwave_air_temperature_celsius", "Air temperature", Labels{"3", "0", "Sensor"}, 21.5))
	require.NoError(t, reg.SetGauge("zwave_air_temperature_celsius", "Different help", Labels{"4", "0", "Hall"}, 19))

	expected := `
# HELP zwave_air_temperature_celsius Air temperature
# TYPE zwave_air_temperature_celsius gauge
zwave_air_temperature_celsius{endpoint="0",name="Hall",node="4"} 19
zwave_air_temperature_celsius{endpoint="0",name="Sensor",node="3"} 21.5
`
	err := testutil.GatherAndCompare(promReg, strings.NewReader(expected), "zwave_air_temperature_celsius")
	assert.NoError(t, err)
}

func TestRegistry_AdoptsExistingCollector(t *testing.T) {
	promReg := prometheus.NewRegistry()
	existing := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "zwave_humidity_percent",
		Help: "Humidity",
	}, LabelNames)
	promReg.MustRegister(existing)

	reg, err := NewRegistry(promReg, discardLogger())
	require.NoError(t, err)

	g, err := reg.GetOrCreate("zwave_humidity_percent", "Humidity", LabelNames)
	require.NoError(t, err)
	assert.Same(t, existing, g)
}

func TestRegistry_RegistrationFailureNotCached(t *testing.T) {
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zwave_conflict",
		Help: "Conflicting counter",
	}))

	reg, err := NewRegistry(promReg, discardLogger())
	require.NoError(t, err)

	_, err = reg.GetOrCreate("zwave_conflict", "Gauge", LabelNames)
	assert.Error(t, err)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_AddEnergy(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	labels := Labels{Node: "2", Endpoint: "0", Name: "Plug"}

	reg.AddEnergy(labels, 50)
	reg.AddEnergy(labels, 0)
	reg.AddEnergy(labels, -10)
	reg.AddEnergy(labels, math.NaN())
	reg.AddEnergy(labels, math.Inf(1))
	reg.AddEnergy(labels, 25)

	assert.InDelta(t, 75.0, testutil.ToFloat64(reg.energy.WithLabelValues(labels.Values()...)), 1e-9)
}

func TestNewRegistry_Duplicate(t *testing.T) {
	promReg := prometheus.NewRegistry()
	_, err := NewRegistry(promReg, discardLogger())
	require.NoError(t, err)

	_, err = NewRegistry(promReg, discardLogger())
	assert.Error(t, err)
}
