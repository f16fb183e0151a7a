// Package metrics exposes the Prometheus counters and histograms the
// ambient observability layer in SPEC_FULL.md §2 calls for, in the
// shape of DanDo385-go-edu's mini-50-all-features
// internal/middleware/metrics.go: one struct of pre-registered
// collectors, constructed once and threaded through explicitly rather
// than reached for via package-level globals.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the counters and histograms the engine's components
// update: receipts emitted, anomalies raised (by classification),
// halts triggered, and ledger ingest latency.
type Metrics struct {
	ReceiptsEmittedTotal *prometheus.CounterVec
	AnomaliesTotal       *prometheus.CounterVec
	HaltsTotal           prometheus.Counter
	IngestDuration       prometheus.Histogram
}

// New constructs a Metrics bundle and registers its collectors with
// reg. Pass prometheus.NewRegistry() for an isolated registry (tests)
// or prometheus.DefaultRegisterer for process-wide export.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ReceiptsEmittedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "proofpack_receipts_emitted_total",
			Help: "Total receipts emitted, labeled by receipt_type.",
		}, []string{"receipt_type"}),
		AnomaliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "proofpack_anomalies_total",
			Help: "Total anomaly receipts emitted, labeled by classification.",
		}, []string{"classification"}),
		HaltsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "proofpack_halts_total",
			Help: "Total halt receipts emitted.",
		}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "proofpack_ledger_ingest_duration_seconds",
			Help:    "Ledger Ingest call latency.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.ReceiptsEmittedTotal, m.AnomaliesTotal, m.HaltsTotal, m.IngestDuration)
	return m
}

// IncReceipt increments the emitted-receipts counter for receiptType.
func (m *Metrics) IncReceipt(receiptType string) {
	if m == nil {
		return
	}
	m.ReceiptsEmittedTotal.WithLabelValues(receiptType).Inc()
}

// IncAnomaly satisfies stoprule.Counters.
func (m *Metrics) IncAnomaly(classification string) {
	if m == nil {
		return
	}
	m.AnomaliesTotal.WithLabelValues(classification).Inc()
}

// IncHalt satisfies stoprule.Counters.
func (m *Metrics) IncHalt() {
	if m == nil {
		return
	}
	m.HaltsTotal.Inc()
}

// ObserveIngest records the duration of a ledger Ingest call.
func (m *Metrics) ObserveIngest(seconds float64) {
	if m == nil {
		return
	}
	m.IngestDuration.Observe(seconds)
}
