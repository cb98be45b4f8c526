package server

import (
	"io"

	"github.com/VictoriaMetrics/metrics"
)

// Metrics holds the server counters, exported in Prometheus text format
type Metrics struct {
	set *metrics.Set

	// activeSessions reports live sessions; set by the Listener
	activeSessions func() int

	connectionsAccepted *metrics.Counter
	getHits             *metrics.Counter
	getMisses           *metrics.Counter
	sets                *metrics.Counter
	protocolErrors      *metrics.Counter
}

func NewMetrics() *Metrics {
	set := metrics.NewSet()
	m := &Metrics{
		set:                 set,
		connectionsAccepted: set.NewCounter("memkv_connections_accepted_total"),
		getHits:             set.NewCounter(`memkv_requests_total{op="get",result="hit"}`),
		getMisses:           set.NewCounter(`memkv_requests_total{op="get",result="miss"}`),
		sets:                set.NewCounter(`memkv_requests_total{op="set",result="stored"}`),
		protocolErrors:      set.NewCounter("memkv_protocol_errors_total"),
	}
	set.NewGauge("memkv_connections_active", func() float64 {
		if m.activeSessions == nil {
			return 0
		}
		return float64(m.activeSessions())
	})
	return m
}

// trackSessions makes the active connection gauge read from count
func (m *Metrics) trackSessions(count func() int) {
	m.activeSessions = count
}

func (m *Metrics) WritePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
}
