package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// OperationsTotal counts every resource.Insert/Remove/Get/List
	// call by kind, operation and outcome ("ok"/"error").
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carl_resource_operations_total",
			Help: "Total number of resource operations by kind, operation and outcome",
		},
		[]string{"kind", "operation", "outcome"},
	)

	// TransactionDuration times Manager.Resources/ResourcesMut bodies
	// end to end, including the backend commit/rollback.
	TransactionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "carl_resource_transaction_duration_seconds",
			Help:    "Manager transaction duration in seconds by mode and outcome",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode", "outcome"},
	)

	// LiveSubscriptions is set to 1 by the Collector for every resource
	// kind that has a subscription channel; open Subscription handles
	// are not counted.
	LiveSubscriptions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "carl_resource_live_subscriptions",
			Help: "1 for each resource kind that has a subscription channel",
		},
		[]string{"kind"},
	)

	// LaggedEventsTotal counts Lagged deliveries by resource kind —
	// a subscriber falling behind a Broadcaster's retained capacity.
	LaggedEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carl_resource_subscription_lagged_total",
			Help: "Total number of Lagged events delivered to subscribers by resource kind",
		},
		[]string{"kind"},
	)

	// ResourcesTotal is the number of stored values per kind,
	// sampled by the Collector from Manager.Resources(List).
	ResourcesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "carl_resources_total",
			Help: "Total number of stored resources by kind",
		},
		[]string{"kind"},
	)

	// OperationDuration times a single Insert/Remove/Get/List call by
	// kind and operation (Contains is not timed), independent of the surrounding
	// Manager transaction recorded by TransactionDuration.
	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "carl_resource_operation_duration_seconds",
			Help:    "Resource store operation duration in seconds by kind and operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind", "operation"},
	)
)

func init() {
	prometheus.MustRegister(OperationsTotal)
	prometheus.MustRegister(TransactionDuration)
	prometheus.MustRegister(LiveSubscriptions)
	prometheus.MustRegister(LaggedEventsTotal)
	prometheus.MustRegister(ResourcesTotal)
	prometheus.MustRegister(OperationDuration)
}

// Handler returns the Prometheus HTTP handler for the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveTransaction records one Manager.Resources/ResourcesMut call.
func ObserveTransaction(mode string, d time.Duration, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	TransactionDuration.WithLabelValues(mode, outcome).Observe(d.Seconds())
}

// ObserveOperation records one resource.Insert/Remove/Get/List call.
func ObserveOperation(kind, operation string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	OperationsTotal.WithLabelValues(kind, operation, outcome).Inc()
}

// ObserveLagged records one Lagged delivery for kind.
func ObserveLagged(kind string) {
	LaggedEventsTotal.WithLabelValues(kind).Inc()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
