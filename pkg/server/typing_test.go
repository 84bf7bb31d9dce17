package server

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeolun/pulse/pkg/protocol"
)

func newTestTypingRelay() (*TypingRelay, *Registry) {
	r := NewRegistry()
	return NewTypingRelay(r, newTestMetrics(), zerolog.Nop()), r
}

func TestRelayToOnlineRecipient(t *testing.T) {
	relay, reg := newTestTypingRelay()
	bobPeer := &fakePeer{}
	reg.Register("bob", bobPeer)

	assert.True(t, relay.Relay("alice", "bob", true))

	events := bobPeer.of(protocol.EventTypingChanged)
	require.Len(t, events, 1)
	payload := events[0].payload.(protocol.TypingChangedPayload)
	assert.Equal(t, "alice", payload.From)
	assert.True(t, payload.IsTyping)
}

func TestRelayToOfflineRecipient(t *testing.T) {
	relay, reg := newTestTypingRelay()
	bobPeer := &fakePeer{}
	reg.Register("bob", bobPeer)
	reg.MarkOffline("bob", bobPeer)

	assert.False(t, relay.Relay("alice", "bob", true))
	assert.Empty(t, bobPeer.all())
}

func TestRelayNoDeduplication(t *testing.T) {
	relay, reg := newTestTypingRelay()
	bobPeer := &fakePeer{}
	reg.Register("bob", bobPeer)

	relay.Relay("alice", "bob", true)
	relay.Relay("alice", "bob", true)
	relay.Relay("alice", "bob", false)

	assert.Len(t, bobPeer.of(protocol.EventTypingChanged), 3)
}
