// Package metrics defines small instrumentation primitives so core
// packages can record measurements without depending on a concrete
// backend. The Prometheus implementation lives in adapters/prometheus.
package metrics

// Counter only ever goes up.
type Counter interface {
	Inc()
	// Add increments by delta, which must be >= 0.
	Add(delta float64)
}

// Gauge goes up and down.
type Gauge interface {
	Set(value float64)
	Inc()
	Dec()
	Add(delta float64)
}

// Histogram samples observations into buckets, typically latencies in
// seconds.
type Histogram interface {
	Observe(value float64)
}

// Timer records an elapsed duration. Create it when the operation
// starts and call ObserveDuration when it completes:
//
//	defer m.CommandDuration("create-user").ObserveDuration()
type Timer interface {
	ObserveDuration()
}
