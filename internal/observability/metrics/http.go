package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerMetrics holds the API's request, analysis and chat metrics.
type HTTPServerMetrics struct {
	registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	uploadsTotal   *prometheus.CounterVec
	uploadDuration *prometheus.HistogramVec
	chatReplies    *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	r := newRegistry(service)
	f := r.factory

	return &HTTPServerMetrics{
		registry: r,
		requestTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "requests_total",
			Help:        "HTTP requests by method, route and status code.",
			ConstLabels: r.labels,
		}, []string{"method", "path", "code"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "request_duration_seconds",
			Help:        "HTTP request latency by method and route.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: r.labels,
		}, []string{"method", "path"}),
		requestInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "in_flight_requests",
			Help:        "Requests currently being served.",
			ConstLabels: r.labels,
		}),
		uploadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "analysis",
			Name:        "uploads_total",
			Help:        "Document uploads by outcome (analyzed, fallback, rejected, error).",
			ConstLabels: r.labels,
		}, []string{"outcome"}),
		uploadDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Upload handling time by outcome.",
			// LLM analysis may run up to the two minute analysis timeout.
			Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60, 90, 120},
			ConstLabels: r.labels,
		}, []string{"outcome"}),
		chatReplies: f.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "chat",
			Name:        "replies_total",
			Help:        "Chat replies by referral flag and whether LLM guidance was included.",
			ConstLabels: r.labels,
		}, []string{"referred", "ai_guidance"}),
	}
}

type routeContextKey struct{}

func routeFromContext(ctx context.Context) string {
	route, _ := ctx.Value(routeContextKey{}).(string)
	return route
}

// Middleware instruments next with request count, latency and in-flight
// gauges. Paths carrying identifiers are collapsed to their route template.
func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	pathLabel := promhttp.WithLabelFromCtx("path", routeFromContext)

	instrumented := promhttp.InstrumentHandlerInFlight(m.requestInFlight,
		promhttp.InstrumentHandlerCounter(m.requestTotal,
			promhttp.InstrumentHandlerDuration(m.requestDuration, next, pathLabel),
			pathLabel,
		),
	)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), routeContextKey{}, routeTemplate(r.URL.Path))
		instrumented.ServeHTTP(w, r.WithContext(ctx))
	})
}

func routeTemplate(path string) string {
	if strings.HasPrefix(path, "/api/documents/") {
		return "/api/documents/{document_id}"
	}
	return path
}

// ObserveAnalysis matches ports.AnalysisObserver.
func (m *HTTPServerMetrics) ObserveAnalysis(outcome string, duration time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.uploadsTotal.WithLabelValues(outcome).Inc()
	m.uploadDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObserveChatReply matches ports.ChatObserver.
func (m *HTTPServerMetrics) ObserveChatReply(referred, aiGuidance bool) {
	m.chatReplies.WithLabelValues(strconv.FormatBool(referred), strconv.FormatBool(aiGuidance)).Inc()
}
