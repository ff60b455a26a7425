package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WorkerMetrics tracks analysis-completed events handled by the referral worker.
type WorkerMetrics struct {
	registry

	events        *prometheus.CounterVec
	eventDuration *prometheus.HistogramVec
	eventInFlight prometheus.Gauge
	queueLag      prometheus.Histogram
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	r := newRegistry(service)
	f := r.factory

	return &WorkerMetrics{
		registry: r,
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "referral_events_total",
			Help:        "Handled analysis-completed events by status.",
			ConstLabels: r.labels,
		}, []string{"status"}),
		eventDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "referral_event_duration_seconds",
			Help:        "Event handling time by status.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: r.labels,
		}, []string{"status"}),
		eventInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "referral_events_in_flight",
			Help:        "Events currently being handled.",
			ConstLabels: r.labels,
		}),
		queueLag: f.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "queue_lag_seconds",
			Help:        "Delay between analysis completion and the worker picking the event up.",
			Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
			ConstLabels: r.labels,
		}),
	}
}

func (m *WorkerMetrics) StartEvent() {
	m.eventInFlight.Inc()
}

func (m *WorkerMetrics) FinishEvent(duration time.Duration, err error) {
	m.eventInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.events.WithLabelValues(status).Inc()
	m.eventDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// ObserveQueueLag ignores negative lags caused by clock skew between producers.
func (m *WorkerMetrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.Observe(lag.Seconds())
}
