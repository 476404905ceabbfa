package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the valuation registry.
type Metrics struct {
	// Successful mutations by record kind
	RecordsCreated *prometheus.CounterVec

	// Rejected operations by operation and error code
	OperationFailures *prometheus.CounterVec

	// Service operation latency by operation
	OperationLatency *prometheus.HistogramVec

	// ROI cache lookups by result: hit, miss, error
	ROICacheLookups *prometheus.CounterVec

	// Registry-wide value tracked, refreshed on each totals read
	ValueTracked prometheus.Gauge
}

// New registers the valuation metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RecordsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ecovalue_records_created_total",
			Help: "Registry records created by kind",
		}, []string{"kind"}), // kind: "service", "payment_program", "measurement", "credit_issuance"

		OperationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ecovalue_operation_failures_total",
			Help: "Failed registry operations by operation and error code",
		}, []string{"operation", "code"}),

		OperationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ecovalue_operation_duration_seconds",
			Help:    "Duration of registry operations",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),

		ROICacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ecovalue_roi_cache_lookups_total",
			Help: "ROI cache lookups by result",
		}, []string{"result"}),

		ValueTracked: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ecovalue_total_value_tracked",
			Help: "Sum of annual value across registered services at the last totals read",
		}),
	}
}

func (m *Metrics) IncrementCreated(kind string) {
	if m != nil {
		m.RecordsCreated.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) IncrementFailure(operation, code string) {
	if m != nil {
		m.OperationFailures.WithLabelValues(operation, code).Inc()
	}
}

func (m *Metrics) ObserveLatency(operation string, d time.Duration) {
	if m != nil {
		m.OperationLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementROICache(result string) {
	if m != nil {
		m.ROICacheLookups.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) SetValueTracked(v float64) {
	if m != nil {
		m.ValueTracked.Set(v)
	}
}
