package server

import (
	"github.com/rs/zerolog"

	"github.com/aeolun/pulse/pkg/protocol"
)

// TypingRelay forwards ephemeral composing-state events to one recipient.
// Nothing is persisted and repeated identical calls each produce a push;
// debouncing and expiry are entirely the sending client's job.
type TypingRelay struct {
	registry *Registry
	metrics  *Metrics
	log      zerolog.Logger
}

// NewTypingRelay wires a relay over the registry.
func NewTypingRelay(registry *Registry, metrics *Metrics, log zerolog.Logger) *TypingRelay {
	return &TypingRelay{registry: registry, metrics: metrics, log: log}
}

// Relay pushes a typing-changed event to toID if online. It reports whether
// the event was forwarded.
func (t *TypingRelay) Relay(fromID, toID string, isTyping bool) bool {
	peer, online := t.registry.OnlinePeer(toID)
	if !online {
		return false
	}

	accepted := peer.Push(protocol.EventTypingChanged, protocol.TypingChangedPayload{
		From:     fromID,
		IsTyping: isTyping,
	})
	if accepted {
		t.metrics.RecordTypingRelayed()
	}
	return accepted
}
