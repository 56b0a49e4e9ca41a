// Package metrics instruments one assembler run with Prometheus
// counters and a histogram. Nothing here touches the global default
// registry: callers supply their own prometheus.Registerer, so concurrent
// or repeated runs in the same process never collide.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the full set of instruments one assembler run reports to.
type Metrics struct {
	ClassesLaidOut   prometheus.Counter
	FunctionsEmitted prometheus.Counter
	Diagnostics      prometheus.Counter
	Cancellations    prometheus.Counter
	EmitDuration     prometheus.Histogram
}

// New builds a Metrics instrument set and registers every instrument with
// reg. A build fails atomically: if any Register call fails (most commonly
// a duplicate registration against a reused Registerer), the error is
// returned and no partial Metrics is handed back.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ClassesLaidOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wasmaot_classes_laid_out_total",
			Help: "Number of classes assigned a memory layout.",
		}),
		FunctionsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wasmaot_functions_emitted_total",
			Help: "Number of WebAssembly functions emitted.",
		}),
		Diagnostics: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wasmaot_diagnostics_total",
			Help: "Number of non-fatal diagnostics reported during emit.",
		}),
		Cancellations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wasmaot_cancellations_total",
			Help: "Number of emit runs stopped by a cancellation checkpoint.",
		}),
		EmitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wasmaot_emit_duration_seconds",
			Help:    "Wall-clock duration of a full module assembly run.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	for _, c := range []prometheus.Collector{
		m.ClassesLaidOut,
		m.FunctionsEmitted,
		m.Diagnostics,
		m.Cancellations,
		m.EmitDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Noop returns a Metrics whose instruments are registered only with a fresh
// private registry that nothing else can reach, for callers (tests, one-off
// CLI runs) that don't want a registry at all.
func Noop() *Metrics {
	m, _ := New(prometheus.NewRegistry())
	return m
}
