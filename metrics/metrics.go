// Package metrics holds the Prometheus collectors for the availability
// service. Collectors are registered on a caller-supplied registry so tests
// can use a fresh one.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collectors implements availability.UpsertObserver, availability.ImportObserver
// and the report cache observer. A nil *Collectors is a valid no-op.
type Collectors struct {
	Upserts     *prometheus.CounterVec
	BatchSize   prometheus.Histogram
	Imports     *prometheus.CounterVec
	ReportCache *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		Upserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "availability",
			Name:      "upserts_total",
			Help:      "Upsert batches by target status and result.",
		}, []string{"status", "result"}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "availability",
			Name:      "upsert_batch_size",
			Help:      "Number of dates per upsert batch.",
			Buckets:   []float64{1, 2, 5, 10, 31, 62, 186, 366},
		}),
		Imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "availability",
			Name:      "import_entries_total",
			Help:      "Snapshot entries by import outcome.",
		}, []string{"outcome"}),
		ReportCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "availability",
			Name:      "report_cache_total",
			Help:      "Month report cache lookups by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(c.Upserts, c.BatchSize, c.Imports, c.ReportCache)
	return c
}

func (c *Collectors) ObserveUpsert(status string, batchSize int, err error) {
	if c == nil {
		return
	}
	result := "committed"
	if err != nil {
		result = "rolled_back"
	}
	c.Upserts.WithLabelValues(status, result).Inc()
	c.BatchSize.Observe(float64(batchSize))
}

func (c *Collectors) ObserveImport(outcome string, n int) {
	if c == nil {
		return
	}
	c.Imports.WithLabelValues(outcome).Add(float64(n))
}

func (c *Collectors) ObserveCache(result string) {
	if c == nil {
		return
	}
	c.ReportCache.WithLabelValues(result).Inc()
}
