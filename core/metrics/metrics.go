// Package metrics defines the sink interface through which solve runs report
// their progress. The prometheus-backed implementation lives in
// infra/metrics; NopSink is used when metrics are disabled.
package metrics

import "time"

// Sink receives solve observations. Implementations must be safe for
// concurrent use.
type Sink interface {
	// RecordIteration reports one coordination round and its residual.
	RecordIteration(strategy string, iteration int, residual float64)
	// RecordSolve reports a finished strategy run.
	RecordSolve(strategy string, duration time.Duration, homes, failed int, converged bool)
}

// NopSink discards all observations.
type NopSink struct{}

func (NopSink) RecordIteration(string, int, float64)              {}
func (NopSink) RecordSolve(string, time.Duration, int, int, bool) {}
