// Package metrics records container activity in prometheus collectors.
package metrics

import (
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/sghaida/odirt/di"
)

// Collector implements di.Observer on top of its own prometheus registry.
type Collector struct {
	registry *prometheus.Registry

	Instantiations       *prometheus.CounterVec
	InstantiationSeconds *prometheus.HistogramVec
	Resolutions          *prometheus.CounterVec
	ResolutionSeconds    prometheus.Histogram
	Dispatches           *prometheus.CounterVec
	HandlersInvoked      prometheus.Counter
}

var _ di.Observer = (*Collector)(nil)

// NewCollector creates a collector whose metric names start with namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	instantiations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instantiations_total",
			Help:      "Provider invocations by definition, policy and outcome",
		},
		[]string{"definition", "policy", "outcome"},
	)
	instantiationSeconds := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "instantiation_duration_seconds",
			Help:      "Provider invocation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"policy"},
	)
	resolutions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Top-level Get and GetAll calls by signature and outcome",
		},
		[]string{"signature", "outcome"},
	)
	resolutionSeconds := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolution_duration_seconds",
			Help:      "Top-level resolution duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
	dispatches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "Event dispatches by payload signature and outcome",
		},
		[]string{"signature", "outcome"},
	)
	handlersInvoked := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handlers_invoked_total",
			Help:      "Event handlers invoked",
		},
	)

	registry.MustRegister(
		instantiations,
		instantiationSeconds,
		resolutions,
		resolutionSeconds,
		dispatches,
		handlersInvoked,
	)

	return &Collector{
		registry:             registry,
		Instantiations:       instantiations,
		InstantiationSeconds: instantiationSeconds,
		Resolutions:          resolutions,
		ResolutionSeconds:    resolutionSeconds,
		Dispatches:           dispatches,
		HandlersInvoked:      handlersInvoked,
	}
}

// Registry returns the prometheus registry of this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Instantiated implements di.Observer.
func (c *Collector) Instantiated(definition string, policy di.Policy, took time.Duration, err error) {
	c.Instantiations.WithLabelValues(definition, policy.String(), outcome(err)).Inc()
	c.InstantiationSeconds.WithLabelValues(policy.String()).Observe(took.Seconds())
}

// Resolved implements di.Observer.
func (c *Collector) Resolved(signature string, took time.Duration, err error) {
	c.Resolutions.WithLabelValues(signature, outcome(err)).Inc()
	c.ResolutionSeconds.Observe(took.Seconds())
}

// Dispatched implements di.Observer.
func (c *Collector) Dispatched(signature string, handlers int, err error) {
	c.Dispatches.WithLabelValues(signature, outcome(err)).Inc()
	c.HandlersInvoked.Add(float64(handlers))
}

// WriteText writes every gathered metric family in the prometheus text
// exposition format.
func (c *Collector) WriteText(w io.Writer) error {
	families, err := c.registry.Gather()
	if err != nil {
		return errors.Wrap(err, "metrics: gather")
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return errors.Wrap(err, "metrics: write")
		}
	}
	return nil
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
