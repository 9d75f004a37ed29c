// Package metrics exposes dashboard and HTTP metrics to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TobiSchelling/crisisboard/internal/pipeline"
)

// Collector holds all Prometheus metrics for one dashboard process. Each
// collector owns its registry, so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	Transactions      *prometheus.CounterVec
	RecomputeDuration *prometheus.HistogramVec
	FilteredMessages  prometheus.Gauge
	WordCloudSize     prometheus.Gauge
	Revision          prometheus.Gauge

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewCollector creates a collector with its metrics registered under namespace.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		Transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Published filter transactions by action.",
		}, []string{"action"}),
		RecomputeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recompute_duration_seconds",
			Help:      "Time from mutation to published snapshot.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"variant"}),
		FilteredMessages: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "filtered_messages",
			Help:      "Messages in the current filtered view.",
		}),
		WordCloudSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "word_cloud_words",
			Help:      "Words in the current word cloud.",
		}),
		Revision: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_revision",
			Help:      "Revision of the last published snapshot.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	c.registry.MustRegister(
		c.Transactions,
		c.RecomputeDuration,
		c.FilteredMessages,
		c.WordCloudSize,
		c.Revision,
		c.HTTPRequests,
		c.HTTPDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// TransactionPublished records one published snapshot.
func (c *Collector) TransactionPublished(snap *pipeline.Snapshot, elapsed time.Duration) {
	c.Transactions.WithLabelValues(string(snap.Action)).Inc()
	c.RecomputeDuration.WithLabelValues(string(snap.Variant)).Observe(elapsed.Seconds())
	c.FilteredMessages.Set(float64(len(snap.Filtered)))
	c.WordCloudSize.Set(float64(len(snap.WordCloud)))
	c.Revision.Set(float64(snap.Revision))
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Middleware counts requests by chi route pattern, so path parameters do
// not explode label cardinality.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(started).Seconds())
	})
}

var _ pipeline.Observer = (*Collector)(nil)
