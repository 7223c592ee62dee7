package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session minting collectors. Outcome is "ok" or a broker error kind.
type Sessions struct {
	Minted   *prometheus.CounterVec
	Upstream prometheus.Histogram
}

// NewSessions registers collectors on reg (prometheus.DefaultRegisterer in
// main, a fresh registry in tests).
func NewSessions(reg prometheus.Registerer) *Sessions {
	f := promauto.With(reg)
	return &Sessions{
		Minted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatkit",
			Name:      "session_requests_total",
			Help:      "Session mint requests by outcome.",
		}, []string{"outcome"}),
		Upstream: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "chatkit",
			Name:      "upstream_duration_seconds",
			Help:      "Latency of upstream session creation calls.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Observe counts one mint attempt. upstreamSeconds is the duration of the
// upstream call alone and is ignored when no call was made.
func (s *Sessions) Observe(outcome string, upstreamSeconds float64, calledUpstream bool) {
	if s == nil {
		return
	}
	s.Minted.WithLabelValues(outcome).Inc()
	if calledUpstream {
		s.Upstream.Observe(upstreamSeconds)
	}
}
