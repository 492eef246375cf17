package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "geofeed"

// Metrics holds the prometheus collectors exported by the service.
type Metrics struct {
	FeedRequests        *prometheus.CounterVec
	FeedRequestDuration *prometheus.HistogramVec
	SocialGraphDegraded *prometheus.CounterVec
	IngestedPosts       *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg. Passing a nil
// registry uses a fresh one, which keeps tests isolated.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		FeedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_requests_total",
			Help:      "Feed requests by mode and outcome.",
		}, []string{"mode", "outcome"}),
		FeedRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feed_request_duration_seconds",
			Help:      "Feed request latency by mode.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		SocialGraphDegraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "socialgraph_degraded_total",
			Help:      "Following lookups that fell back to an empty set.",
		}, []string{"reason"}),
		IngestedPosts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_posts_total",
			Help:      "Post events applied from the ingest stream.",
		}, []string{"op"}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.FeedRequests,
		m.FeedRequestDuration,
		m.SocialGraphDegraded,
		m.IngestedPosts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveFeedRequest records one feed request.
func (m *Metrics) ObserveFeedRequest(mode, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.FeedRequests.WithLabelValues(mode, outcome).Inc()
	m.FeedRequestDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// SocialGraphDegradedInc counts a degraded following lookup.
func (m *Metrics) SocialGraphDegradedInc(reason string) {
	if m == nil {
		return
	}
	m.SocialGraphDegraded.WithLabelValues(reason).Inc()
}

// IngestedPostInc counts an applied ingest event.
func (m *Metrics) IngestedPostInc(op string) {
	if m == nil {
		return
	}
	m.IngestedPosts.WithLabelValues(op).Inc()
}
