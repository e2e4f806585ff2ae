package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the availability computation metrics.
type Metrics struct {
	ComputationDuration *prometheus.HistogramVec
	SlowComputations    prometheus.Counter
	gatherer            prometheus.Gatherer
}

// New registers the metrics on reg. Pass prometheus.NewRegistry() in tests.
func New(namespace string, reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ComputationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "computation_duration_seconds",
				Help:      "Wall-clock time to compute available slots for one request",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"outcome"},
		),
		SlowComputations: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "slow_computations_total",
				Help:      "Computations that exceeded the slow threshold",
			},
		),
		gatherer: reg,
	}
}

// ObserveComputation satisfies availability.Recorder.
func (m *Metrics) ObserveComputation(elapsed time.Duration, slow bool, outcome string) {
	m.ComputationDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	if slow {
		m.SlowComputations.Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
