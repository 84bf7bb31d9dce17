package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the server.
type Metrics struct {
	// Connection metrics
	activeConnections   prometheus.Gauge
	connectionsTotal    prometheus.Counter
	disconnectionsTotal prometheus.Counter
	rejectedHandshakes  prometheus.Counter

	// Routing metrics
	messagesRouted *prometheus.CounterVec // by outcome: "delivered" or "stored"
	readReceipts   prometheus.Counter
	typingRelayed  prometheus.Counter

	// Presence metrics
	presenceBroadcasts prometheus.Counter
	presenceFanout     prometheus.Histogram

	// Event surface metrics
	eventsReceived *prometheus.CounterVec // by event name
	eventsSent     *prometheus.CounterVec // by event name
	eventsDropped  prometheus.Counter     // pushes refused by a full outbound queue
	eventsUnknown  prometheus.Counter     // unparseable or unrecognized inbound frames
}

// NewMetrics registers all server metrics against the given registerer.
// Taking the registerer explicitly keeps multiple server instances (as in
// tests) from colliding in the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		activeConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pulse_active_connections",
			Help: "Current number of live client connections",
		}),
		connectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "pulse_connections_total",
			Help: "Total number of accepted client connections",
		}),
		disconnectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "pulse_disconnections_total",
			Help: "Total number of client disconnections",
		}),
		rejectedHandshakes: factory.NewCounter(prometheus.CounterOpts{
			Name: "pulse_rejected_handshakes_total",
			Help: "Connections closed for missing a user identifier at handshake",
		}),
		messagesRouted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_messages_routed_total",
			Help: "Messages accepted by the router, by delivery outcome",
		}, []string{"outcome"}),
		readReceipts: factory.NewCounter(prometheus.CounterOpts{
			Name: "pulse_read_receipts_total",
			Help: "Total number of mark-read events processed",
		}),
		typingRelayed: factory.NewCounter(prometheus.CounterOpts{
			Name: "pulse_typing_relayed_total",
			Help: "Typing events forwarded to an online recipient",
		}),
		presenceBroadcasts: factory.NewCounter(prometheus.CounterOpts{
			Name: "pulse_presence_broadcasts_total",
			Help: "Presence transitions announced to other clients",
		}),
		presenceFanout: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pulse_presence_fanout",
			Help:    "Number of clients that received each presence announcement",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		eventsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_events_received_total",
			Help: "Events received from clients by event name",
		}, []string{"event"}),
		eventsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_events_sent_total",
			Help: "Events pushed to clients by event name",
		}, []string{"event"}),
		eventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "pulse_events_dropped_total",
			Help: "Events refused because a client's outbound queue was full",
		}),
		eventsUnknown: factory.NewCounter(prometheus.CounterOpts{
			Name: "pulse_events_unknown_total",
			Help: "Inbound frames that were malformed or named an unknown event",
		}),
	}
}

// RecordConnected tracks an accepted connection.
func (m *Metrics) RecordConnected(active int) {
	m.connectionsTotal.Inc()
	m.activeConnections.Set(float64(active))
}

// RecordDisconnected tracks a closed connection.
func (m *Metrics) RecordDisconnected(active int) {
	m.disconnectionsTotal.Inc()
	m.activeConnections.Set(float64(active))
}

// RecordRejectedHandshake tracks a connection closed at handshake.
func (m *Metrics) RecordRejectedHandshake() {
	m.rejectedHandshakes.Inc()
}

// RecordMessageRouted tracks a routed message by outcome.
func (m *Metrics) RecordMessageRouted(delivered bool) {
	outcome := "stored"
	if delivered {
		outcome = "delivered"
	}
	m.messagesRouted.WithLabelValues(outcome).Inc()
}

// RecordReadReceipt tracks a processed mark-read event.
func (m *Metrics) RecordReadReceipt() {
	m.readReceipts.Inc()
}

// RecordTypingRelayed tracks a forwarded typing event.
func (m *Metrics) RecordTypingRelayed() {
	m.typingRelayed.Inc()
}

// RecordPresenceBroadcast tracks one presence announcement and its fanout.
func (m *Metrics) RecordPresenceBroadcast(recipients int) {
	m.presenceBroadcasts.Inc()
	m.presenceFanout.Observe(float64(recipients))
}

// RecordEventReceived tracks an inbound event by name.
func (m *Metrics) RecordEventReceived(event string) {
	m.eventsReceived.WithLabelValues(event).Inc()
}

// RecordEventSent tracks an outbound event by name.
func (m *Metrics) RecordEventSent(event string) {
	m.eventsSent.WithLabelValues(event).Inc()
}

// RecordEventDropped tracks a push refused by a full outbound queue.
func (m *Metrics) RecordEventDropped() {
	m.eventsDropped.Inc()
}

// RecordUnknownEvent tracks a malformed or unrecognized inbound frame.
func (m *Metrics) RecordUnknownEvent() {
	m.eventsUnknown.Inc()
}
