// Package metrics provides the prometheus-backed sink for solve runs.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records solve progress in Prometheus metrics.
type PromSink struct {
	iterations *prometheus.CounterVec
	residual   *prometheus.GaugeVec
	duration   *prometheus.HistogramVec
	failures   *prometheus.CounterVec
}

// NewPromSink registers solve metrics on the provided Prometheus registerer.
// If reg is nil, the default registerer is used. Already registered
// collectors are reused.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		iterations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revs_coordination_iterations_total",
			Help: "Total number of price-coordination iterations",
		}, []string{"strategy"}),
		residual: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "revs_coordination_residual",
			Help: "Residual of the latest price update",
		}, []string{"strategy"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "revs_solve_duration_seconds",
			Help:    "Wall time of one strategy run",
			Buckets: prometheus.DefBuckets,
		}, []string{"strategy", "converged"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revs_home_solve_failures_total",
			Help: "Homes whose subproblem could not be solved",
		}, []string{"strategy"}),
	}

	for i, c := range []prometheus.Collector{s.iterations, s.residual, s.duration, s.failures} {
		if err := reg.Register(c); err != nil {
			are, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				return nil, err
			}
			switch i {
			case 0:
				s.iterations = are.ExistingCollector.(*prometheus.CounterVec)
			case 1:
				s.residual = are.ExistingCollector.(*prometheus.GaugeVec)
			case 2:
				s.duration = are.ExistingCollector.(*prometheus.HistogramVec)
			case 3:
				s.failures = are.ExistingCollector.(*prometheus.CounterVec)
			}
		}
	}
	return s, nil
}

// RecordIteration counts one coordination round and publishes its residual.
func (s *PromSink) RecordIteration(strategy string, _ int, residual float64) {
	s.iterations.WithLabelValues(strategy).Inc()
	s.residual.WithLabelValues(strategy).Set(residual)
}

// RecordSolve observes a finished strategy run.
func (s *PromSink) RecordSolve(strategy string, duration time.Duration, homes, failed int, converged bool) {
	s.duration.WithLabelValues(strategy, strconv.FormatBool(converged)).Observe(duration.Seconds())
	s.failures.WithLabelValues(strategy).Add(float64(failed))
}
