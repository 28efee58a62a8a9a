// Package metrics exposes Prometheus counters for sales and imports.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is safe to use as a nil pointer; every method becomes a no-op.
type Metrics struct {
	salesCommitted prometheus.Counter
	salesRejected  *prometheus.CounterVec
	saleAmount     prometheus.Counter
	importRows     *prometheus.CounterVec
	reportCache    *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		salesCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "apotek",
			Name:      "sales_committed_total",
			Help:      "Sales committed with their stock decrements.",
		}),
		salesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apotek",
			Name:      "sales_rejected_total",
			Help:      "Sales that did not commit, by reason.",
		}, []string{"reason"}),
		saleAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "apotek",
			Name:      "sales_amount_total",
			Help:      "Sum of committed sale totals.",
		}),
		importRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apotek",
			Name:      "import_rows_total",
			Help:      "Bulk import rows by outcome.",
		}, []string{"outcome"}),
		reportCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apotek",
			Name:      "report_cache_total",
			Help:      "Threshold report cache lookups by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.salesCommitted, m.salesRejected, m.saleAmount, m.importRows, m.reportCache)
	return m
}

func (m *Metrics) SaleCommitted(amount float64) {
	if m == nil {
		return
	}
	m.salesCommitted.Inc()
	m.saleAmount.Add(amount)
}

func (m *Metrics) SaleRejected(reason string) {
	if m == nil {
		return
	}
	m.salesRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) ImportRows(succeeded, failed int) {
	if m == nil {
		return
	}
	m.importRows.WithLabelValues("success").Add(float64(succeeded))
	m.importRows.WithLabelValues("failed").Add(float64(failed))
}

func (m *Metrics) ReportCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.reportCache.WithLabelValues(result).Inc()
}
