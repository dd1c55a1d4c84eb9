// Package metrics wires the coordinator's per-block observability
// surface into Prometheus, matching the style of the other example
// repos' metrics packages: a single struct of pre-registered
// collectors, handed around as an optional dependency.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector the coordinator reports against. The
// zero value is not usable; construct with New.
type Metrics struct {
	racedBlocks     prometheus.Counter
	committedBlocks prometheus.Counter
	blockSeconds    prometheus.Histogram
	workerBusySecs  *prometheus.HistogramVec
}

// New registers and returns a Metrics bound to namespace, e.g.
// "parallelevm". Registering the same namespace twice against the same
// registerer panics, consistent with the usual client_golang contract.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		racedBlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "raced_blocks_total",
			Help:      "Number of blocks whose speculative result was discarded in favor of the shadow engine's.",
		}),
		committedBlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_committed_total",
			Help:      "Number of blocks committed, whichever engine produced the committed state.",
		}),
		blockSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "block_process_seconds",
			Help:      "Wall-clock time to fully process one block, from snapshot fan-out to commit.",
			Buckets:   prometheus.DefBuckets,
		}),
		workerBusySecs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "worker_busy_seconds",
			Help:      "Time a worker engine spent between BeginBlock and EndBlock, labeled by engine id.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"engine"}),
	}
	if reg != nil {
		reg.MustRegister(m.racedBlocks, m.committedBlocks, m.blockSeconds, m.workerBusySecs)
	}
	return m
}

// RaceDetected records one block falling back to the shadow engine.
func (m *Metrics) RaceDetected() { m.racedBlocks.Inc() }

// BlockCommitted records one successfully committed block.
func (m *Metrics) BlockCommitted() { m.committedBlocks.Inc() }

// StartBlock begins timing one block's processing; call the returned
// func once, at the end of processing, to record the observation.
func (m *Metrics) StartBlock() func() {
	start := time.Now()
	return func() { m.blockSeconds.Observe(time.Since(start).Seconds()) }
}

// WorkerBusy reports how long engine id spent processing one block.
func (m *Metrics) WorkerBusy(engineID string, d time.Duration) {
	m.workerBusySecs.WithLabelValues(engineID).Observe(d.Seconds())
}
