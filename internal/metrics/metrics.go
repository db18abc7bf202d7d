// Package metrics exposes the broker's prometheus counters and gauges,
// fed from internal/system.Counters snapshots and the append/read path.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tideline-io/tideline/internal/system"
)

// Registry holds the broker's collectors and the handler that serves
// them over HTTP.
type Registry struct {
	registry *prometheus.Registry

	streamsGauge    prometheus.Gauge
	topicsGauge     prometheus.Gauge
	partitionsGauge prometheus.Gauge
	segmentsGauge   prometheus.Gauge

	messagesAppended prometheus.Counter
	messagesPolled   prometheus.Counter
	appendErrors     prometheus.Counter
	appendLatency    prometheus.Histogram
	pollLatency      prometheus.Histogram
}

// New builds a Registry with all collectors registered.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		streamsGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tideline",
			Name:      "streams",
			Help:      "Number of streams currently held by the broker.",
		}),
		topicsGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tideline",
			Name:      "topics",
			Help:      "Number of topics currently held across all streams.",
		}),
		partitionsGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tideline",
			Name:      "partitions",
			Help:      "Number of partitions currently held across all topics.",
		}),
		segmentsGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tideline",
			Name:      "segments",
			Help:      "Number of segments across all partitions, counted as one per partition; segments opened by rollover are not included.",
		}),
		messagesAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tideline",
			Name:      "messages_appended_total",
			Help:      "Total messages successfully appended.",
		}),
		messagesPolled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tideline",
			Name:      "messages_polled_total",
			Help:      "Total messages returned by poll operations.",
		}),
		appendErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tideline",
			Name:      "append_errors_total",
			Help:      "Total append operations that returned an error.",
		}),
		appendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tideline",
			Name:      "append_latency_seconds",
			Help:      "Latency of append operations.",
			Buckets:   prometheus.DefBuckets,
		}),
		pollLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tideline",
			Name:      "poll_latency_seconds",
			Help:      "Latency of poll operations.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		r.streamsGauge, r.topicsGauge, r.partitionsGauge, r.segmentsGauge,
		r.messagesAppended, r.messagesPolled, r.appendErrors,
		r.appendLatency, r.pollLatency,
	)
	return r
}

// Handler returns the HTTP handler that serves this registry's metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveSnapshot copies a system.Counters snapshot into the gauges.
func (r *Registry) ObserveSnapshot(c system.Counters) {
	r.streamsGauge.Set(float64(c.Streams))
	r.topicsGauge.Set(float64(c.Topics))
	r.partitionsGauge.Set(float64(c.Partitions))
	r.segmentsGauge.Set(float64(c.Segments))
}

func (r *Registry) RecordAppend(messageCount int, seconds float64, err error) {
	r.appendLatency.Observe(seconds)
	if err != nil {
		r.appendErrors.Inc()
		return
	}
	r.messagesAppended.Add(float64(messageCount))
}

func (r *Registry) RecordPoll(messageCount int, seconds float64) {
	r.messagesPolled.Add(float64(messageCount))
	r.pollLatency.Observe(seconds)
}
