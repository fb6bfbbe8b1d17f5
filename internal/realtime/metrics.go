package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the realtime collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Connections is the number of registered WebSocket sessions.
	Connections prometheus.Gauge

	// Broadcasts counts local fan-out calls.
	Broadcasts prometheus.Counter

	// Deliveries counts per-connection send attempts.
	// Labels: result (delivered|failed)
	Deliveries *prometheus.CounterVec

	// InboundMessages counts frames received from clients.
	InboundMessages prometheus.Counter

	// RelayErrors counts failed Redis publishes that fell back to local delivery.
	RelayErrors prometheus.Counter
}

// NewMetrics registers the realtime collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "vidshare",
			Subsystem: "realtime",
			Name:      "connections",
			Help:      "Number of live WebSocket connections.",
		}),
		Broadcasts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "vidshare",
			Subsystem: "realtime",
			Name:      "broadcasts_total",
			Help:      "Number of local broadcast fan-outs.",
		}),
		Deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vidshare",
			Subsystem: "realtime",
			Name:      "deliveries_total",
			Help:      "Per-connection delivery attempts by result.",
		}, []string{"result"}),
		InboundMessages: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "vidshare",
			Subsystem: "realtime",
			Name:      "inbound_messages_total",
			Help:      "Frames received from WebSocket clients.",
		}),
		RelayErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "vidshare",
			Subsystem: "realtime",
			Name:      "relay_errors_total",
			Help:      "Redis relay publishes that failed and fell back to local delivery.",
		}),
	}
}

func (m *Metrics) setConnections(n int) {
	if m == nil {
		return
	}
	m.Connections.Set(float64(n))
}

func (m *Metrics) observeBroadcast(res Result) {
	if m == nil {
		return
	}
	m.Broadcasts.Inc()
	m.Deliveries.WithLabelValues("delivered").Add(float64(res.Delivered))
	m.Deliveries.WithLabelValues("failed").Add(float64(res.Failed))
}

func (m *Metrics) inbound() {
	if m == nil {
		return
	}
	m.InboundMessages.Inc()
}

func (m *Metrics) relayError() {
	if m == nil {
		return
	}
	m.RelayErrors.Inc()
}

// TrackRegistry keeps the Connections gauge in sync with r.
func (m *Metrics) TrackRegistry(r *Registry) {
	if m == nil || r == nil {
		return
	}
	r.SetCountChangeHandler(m.setConnections)
	m.setConnections(r.Count())
}
