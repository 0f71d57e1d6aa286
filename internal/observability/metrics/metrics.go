package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/docsentry/docsentry/internal/chat"
	"github.com/docsentry/docsentry/internal/security"
)

var (
	_ security.Observer = (*SecurityMetrics)(nil)
	_ chat.Observer     = (*ChatMetrics)(nil)
)

// SecurityMetrics exposes counters for the security pipeline. It
// implements the security.Observer interface.
type SecurityMetrics struct {
	classifications *prometheus.CounterVec
	filterActions   *prometheus.CounterVec
}

func NewSecurityMetrics(reg prometheus.Registerer) *SecurityMetrics {
	m := &SecurityMetrics{
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docsentry",
			Subsystem: "security",
			Name:      "classifications_total",
			Help:      "Intent classifications by verdict",
		}, []string{"classification"}),
		filterActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docsentry",
			Subsystem: "security",
			Name:      "output_filter_actions_total",
			Help:      "Output filter verdicts by action",
		}, []string{"action"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.classifications, m.filterActions)
	return m
}

func (m *SecurityMetrics) ObserveClassification(classification string) {
	if m == nil {
		return
	}
	m.classifications.WithLabelValues(classification).Inc()
}

func (m *SecurityMetrics) ObserveOutputFilter(action string) {
	if m == nil {
		return
	}
	m.filterActions.WithLabelValues(action).Inc()
}

// ChatMetrics tracks request outcomes and streaming latency.
type ChatMetrics struct {
	requests      *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	streamSeconds prometheus.Histogram
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docsentry",
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Chat requests by mode and outcome",
		}, []string{"mode", "outcome"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docsentry",
			Subsystem: "chat",
			Name:      "cache_lookups_total",
			Help:      "Query cache lookups by result",
		}, []string{"result"}),
		streamSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "docsentry",
			Subsystem: "chat",
			Name:      "stream_duration_seconds",
			Help:      "Wall time of streaming responses",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requests, m.cacheLookups, m.streamSeconds)
	return m
}

func (m *ChatMetrics) ObserveRequest(mode, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(mode, outcome).Inc()
}

func (m *ChatMetrics) ObserveCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *ChatMetrics) ObserveStreamDuration(seconds float64) {
	if m == nil {
		return
	}
	m.streamSeconds.Observe(seconds)
}
