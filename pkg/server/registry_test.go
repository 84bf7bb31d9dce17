package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	peer := &fakePeer{}

	r.Register("alice", peer)

	u, ok := r.Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, "alice", u.ID)
	assert.True(t, u.Online)
	assert.Same(t, peer, u.Peer.(*fakePeer))
}

func TestLookupUnknownUser(t *testing.T) {
	r := NewRegistry()

	_, ok := r.Lookup("ghost")
	assert.False(t, ok)

	_, ok = r.OnlinePeer("ghost")
	assert.False(t, ok)
}

func TestLastConnectionWins(t *testing.T) {
	r := NewRegistry()
	first := &fakePeer{}
	second := &fakePeer{}

	r.Register("alice", first)
	r.Register("alice", second)

	u, ok := r.Lookup("alice")
	require.True(t, ok)
	assert.True(t, u.Online)
	assert.Same(t, second, u.Peer.(*fakePeer))
}

func TestMarkOfflineStaleGuard(t *testing.T) {
	r := NewRegistry()
	old := &fakePeer{}
	fresh := &fakePeer{}

	r.Register("alice", old)
	r.Register("alice", fresh)

	// The stale connection's disconnect must not flip the fresher entry.
	assert.False(t, r.MarkOffline("alice", old))

	u, _ := r.Lookup("alice")
	assert.True(t, u.Online)

	assert.True(t, r.MarkOffline("alice", fresh))
	u, _ = r.Lookup("alice")
	assert.False(t, u.Online)
}

func TestMarkOfflineIdempotent(t *testing.T) {
	r := NewRegistry()
	peer := &fakePeer{}

	r.Register("alice", peer)
	assert.True(t, r.MarkOffline("alice", peer))
	assert.False(t, r.MarkOffline("alice", peer))
}

func TestMarkOfflineUnknownUser(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.MarkOffline("ghost", &fakePeer{}))
}

func TestOfflineUserStaysKnown(t *testing.T) {
	r := NewRegistry()
	peer := &fakePeer{}

	r.Register("alice", peer)
	r.MarkOffline("alice", peer)

	u, ok := r.Lookup("alice")
	require.True(t, ok)
	assert.False(t, u.Online)
	assert.Contains(t, r.KnownUserIDs(), "alice")
}

func TestSnapshotSortedAndComplete(t *testing.T) {
	r := NewRegistry()
	alicePeer := &fakePeer{}

	r.Register("carol", &fakePeer{})
	r.Register("alice", alicePeer)
	r.Register("bob", &fakePeer{})
	r.MarkOffline("alice", alicePeer)

	entries := r.Snapshot()
	require.Len(t, entries, 3)
	assert.Equal(t, "alice", entries[0].ID)
	assert.False(t, entries[0].Online)
	assert.Equal(t, "bob", entries[1].ID)
	assert.True(t, entries[1].Online)
	assert.Equal(t, "carol", entries[2].ID)
	assert.True(t, entries[2].Online)
}

func TestOnlinePeersExcludes(t *testing.T) {
	r := NewRegistry()
	alicePeer := &fakePeer{}
	bobPeer := &fakePeer{}
	carolPeer := &fakePeer{}

	r.Register("alice", alicePeer)
	r.Register("bob", bobPeer)
	r.Register("carol", carolPeer)
	r.MarkOffline("carol", carolPeer)

	peers := r.OnlinePeers("alice")
	require.Len(t, peers, 1)
	assert.Same(t, bobPeer, peers[0].(*fakePeer))
}
