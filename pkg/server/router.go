package server

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/aeolun/pulse/pkg/protocol"
	"github.com/aeolun/pulse/pkg/store"
)

// Router accepts outbound messages from a connection, persists them into the
// conversation store and forwards them to the recipient when online. There is
// no retry and no queue for offline recipients: an undelivered message is
// only recoverable through history replay.
type Router struct {
	store    *store.Store
	registry *Registry
	metrics  *Metrics
	log      zerolog.Logger
}

// NewRouter wires a router over the store and registry.
func NewRouter(st *store.Store, registry *Registry, metrics *Metrics, log zerolog.Logger) *Router {
	return &Router{store: st, registry: registry, metrics: metrics, log: log}
}

// Send stores a message from fromID to toID and routes it. If the recipient
// is online it receives the message live, the status advances to delivered,
// and the sender is told about the transition. The sender always gets an ack
// carrying the message with its status as of routing. The routed message is
// returned.
func (rt *Router) Send(sender Peer, fromID, toID, text string) protocol.Message {
	msg := rt.store.Append(fromID, toID, text)

	recipient, online := rt.registry.OnlinePeer(toID)
	if online {
		rt.pushTo(recipient, protocol.EventMessageReceived, msg)

		updated, err := rt.store.AdvanceStatus(msg.ID, protocol.StatusDelivered)
		if err == nil {
			msg = updated
		}
		rt.pushTo(sender, protocol.EventMessageStatusChanged, protocol.StatusChangedPayload{
			ID:     msg.ID,
			Status: protocol.StatusDelivered,
		})
	} else {
		// Not an error: unknown and offline recipients look the same here.
		rt.log.Debug().
			Str("from", fromID).
			Str("to", toID).
			Str("message_id", msg.ID).
			Msg("recipient offline, message stored only")
	}

	rt.pushTo(sender, protocol.EventMessageSentAck, msg)
	rt.metrics.RecordMessageRouted(online)

	return msg
}

// MarkRead records that a message was read and notifies its original sender
// if online. The sender is taken from the stored message; the client-supplied
// fallback is only trusted when the message ID is unknown to the store.
func (rt *Router) MarkRead(messageID, fallbackFrom string) {
	senderID := fallbackFrom

	msg, err := rt.store.AdvanceStatus(messageID, protocol.StatusRead)
	switch {
	case err == nil:
		senderID = msg.From
	case errors.Is(err, store.ErrUnknownMessage):
		rt.log.Debug().
			Str("message_id", messageID).
			Str("claimed_sender", fallbackFrom).
			Msg("read receipt for unknown message, trusting client-supplied sender")
	case errors.Is(err, store.ErrStatusRegression):
		// Cannot happen: read is the terminal status. Keep the stored sender
		// regardless.
		senderID = msg.From
	}

	rt.metrics.RecordReadReceipt()

	peer, online := rt.registry.OnlinePeer(senderID)
	if !online {
		return
	}
	rt.pushTo(peer, protocol.EventMessageStatusChanged, protocol.StatusChangedPayload{
		ID:     messageID,
		Status: protocol.StatusRead,
	})
}

func (rt *Router) pushTo(peer Peer, event string, payload any) {
	if peer == nil {
		return
	}
	peer.Push(event, payload)
}
