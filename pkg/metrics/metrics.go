// Package metrics exposes Prometheus counters for authorization building.
//
// A nil *Collector is valid and records nothing, so callers that do not
// configure metrics need no special casing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "dpcauth"

// Build outcomes used as the "result" label.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Slot kinds used as the "kind" label of padded slots.
const (
	KindInput  = "input"
	KindOutput = "output"
)

// Collector holds the builder metrics.
type Collector struct {
	builds      *prometheus.CounterVec
	dummySlots  *prometheus.CounterVec
	valueMoved  prometheus.Counter
	lastNetwork prometheus.Gauge
}

// NewCollector creates the builder metrics and registers them with reg.
// An empty namespace selects DefaultNamespace.
func NewCollector(namespace string, reg prometheus.Registerer) (*Collector, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	c := &Collector{
		builds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "authorizations_total",
				Help:      "Number of authorization builds by result",
			},
			[]string{"result"},
		),
		dummySlots: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dummy_records_total",
				Help:      "Number of dummy records synthesized to fill fixed slots",
			},
			[]string{"kind"},
		),
		valueMoved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "output_value_total",
				Help:      "Sum of real output amounts in successful builds",
			},
		),
		lastNetwork: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_network_id",
				Help:      "Network id of the most recent successful build",
			},
		),
	}

	for _, col := range []prometheus.Collector{c.builds, c.dummySlots, c.valueMoved, c.lastNetwork} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// ObserveBuild records the outcome of one build.
func (c *Collector) ObserveBuild(err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.builds.WithLabelValues(ResultFailure).Inc()
		return
	}
	c.builds.WithLabelValues(ResultSuccess).Inc()
}

// ObserveDummy records n dummy records of the given kind.
func (c *Collector) ObserveDummy(kind string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.dummySlots.WithLabelValues(kind).Add(float64(n))
}

// ObserveAuthorization records the network and real output amounts of a
// successful build.
func (c *Collector) ObserveAuthorization(networkID uint8, amounts ...uint64) {
	if c == nil {
		return
	}
	c.lastNetwork.Set(float64(networkID))
	for _, amount := range amounts {
		c.valueMoved.Add(float64(amount))
	}
}
