package server

import (
	"github.com/rs/zerolog"

	"github.com/aeolun/pulse/pkg/protocol"
)

// PresenceBroadcaster announces online/offline transitions to every other
// connected client and serves the one-time snapshot a new connection gets.
// Presence is best-effort: no acknowledgment is expected and a slow client
// may transiently hold a stale view until the next announcement.
type PresenceBroadcaster struct {
	registry *Registry
	metrics  *Metrics
	log      zerolog.Logger
}

// NewPresenceBroadcaster wires a broadcaster over the given registry.
func NewPresenceBroadcaster(registry *Registry, metrics *Metrics, log zerolog.Logger) *PresenceBroadcaster {
	return &PresenceBroadcaster{registry: registry, metrics: metrics, log: log}
}

// Announce pushes a presence-changed event to every online user except the
// one whose status changed. It returns the number of clients that accepted
// the event.
func (b *PresenceBroadcaster) Announce(userID, status string) int {
	payload := protocol.PresenceChangedPayload{UserID: userID, Status: status}

	delivered := 0
	for _, peer := range b.registry.OnlinePeers(userID) {
		if peer.Push(protocol.EventPresenceChanged, payload) {
			delivered++
		}
	}

	b.metrics.RecordPresenceBroadcast(delivered)
	b.log.Debug().
		Str("user_id", userID).
		Str("status", status).
		Int("recipients", delivered).
		Msg("presence announced")

	return delivered
}

// SnapshotFor returns the presence entry of every known user, the requester
// included, as of the moment of connect.
func (b *PresenceBroadcaster) SnapshotFor(requesterID string) []protocol.PresenceEntry {
	return b.registry.Snapshot()
}
