package chat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors updated by the hub.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Connections prometheus.Gauge
	Rooms       prometheus.Gauge
	Received    *prometheus.CounterVec
	Dropped     *prometheus.CounterVec
	Deliveries  prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
// Pass nil to create unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "roomchat",
			Name:      "connections",
			Help:      "Number of live connections.",
		}),
		Rooms: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "roomchat",
			Name:      "rooms",
			Help:      "Number of allocated rooms.",
		}),
		Received: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roomchat",
			Name:      "frames_received_total",
			Help:      "Inbound frames accepted for dispatch, by type.",
		}, []string{"type"}),
		Dropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roomchat",
			Name:      "frames_dropped_total",
			Help:      "Inbound or outbound frames discarded, by reason.",
		}, []string{"reason"}),
		Deliveries: f.NewCounter(prometheus.CounterOpts{
			Namespace: "roomchat",
			Name:      "broadcast_deliveries_total",
			Help:      "Frames handed to room members by broadcasts.",
		}),
	}
}

func (m *Metrics) setConnections(n int) {
	if m != nil {
		m.Connections.Set(float64(n))
	}
}

func (m *Metrics) setRooms(n int) {
	if m != nil {
		m.Rooms.Set(float64(n))
	}
}

func (m *Metrics) received(t string) {
	if m != nil {
		m.Received.WithLabelValues(t).Inc()
	}
}

func (m *Metrics) dropped(reason string) {
	if m != nil {
		m.Dropped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) delivered(n int) {
	if m != nil && n > 0 {
		m.Deliveries.Add(float64(n))
	}
}
