// Package metrics exposes Prometheus counters for the sync pipeline and the
// HTTP surface.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cashflow"

// Metrics holds the collectors of one process.
//
// Metrics:
//   - cashflow_messages_fetched_total - unread messages pulled from mailboxes
//   - cashflow_messages_parsed_total{template} - messages turned into transactions
//   - cashflow_messages_skipped_total{reason} - messages dropped by the engine
//   - cashflow_messages_marked_read_total - messages flagged \Seen after a sync
//   - cashflow_export_failures_total{sink} - failed sink exports
//   - cashflow_sync_duration_seconds - wall time of a full sync
//   - cashflow_http_request_duration_seconds{method,route,status}
type Metrics struct {
	registry *prometheus.Registry

	MessagesFetched    prometheus.Counter
	MessagesParsed     *prometheus.CounterVec
	MessagesSkipped    *prometheus.CounterVec
	MessagesMarkedRead prometheus.Counter
	ExportFailures     *prometheus.CounterVec
	SyncDuration       prometheus.Histogram
	HTTPDuration       *prometheus.HistogramVec
}

// New registers a fresh set of collectors on their own registry, so several
// instances can coexist in tests.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		MessagesFetched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_fetched_total",
			Help:      "Total number of unread messages fetched from mailboxes",
		}),
		MessagesParsed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_parsed_total",
			Help:      "Total number of messages parsed into transactions",
		}, []string{"template"}),
		MessagesSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_skipped_total",
			Help:      "Total number of messages that produced no transaction",
		}, []string{"reason"}), // "no_template" or "zero_amount"
		MessagesMarkedRead: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_marked_read_total",
			Help:      "Total number of messages flagged as read after a sync",
		}),
		ExportFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_failures_total",
			Help:      "Total number of failed exports per sink",
		}, []string{"sink"}),
		SyncDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of a mailbox sync in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
