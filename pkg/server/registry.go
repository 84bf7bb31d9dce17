package server

import (
	"sort"
	"sync"

	"github.com/aeolun/pulse/pkg/protocol"
)

// Peer is the outbound side of a live connection. Push must never block;
// it reports whether the event was accepted for delivery.
type Peer interface {
	Push(event string, payload any) bool
}

// ConnectedUser is the registry's record for one user identifier. A record
// is created on the user's first connection and then only mutated; it is
// never removed, so a returning user overwrites their prior state.
type ConnectedUser struct {
	ID     string
	Peer   Peer
	Online bool
}

// Registry maps user identifiers to their live connection and online flag.
// It is the ground truth for presence. A single mutex serializes all
// transitions, which is sufficient at the expected connection counts.
type Registry struct {
	mu    sync.Mutex
	users map[string]*ConnectedUser
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{users: make(map[string]*ConnectedUser)}
}

// Register records a user as online on the given peer, replacing any prior
// connection. Last connection wins; there is no multi-device fan-out.
func (r *Registry) Register(userID string, p Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		u = &ConnectedUser{ID: userID}
		r.users[userID] = u
	}
	u.Peer = p
	u.Online = true
}

// MarkOffline flips a user offline, but only if the stored peer is still the
// one that is disconnecting. A stale disconnect racing a fresher reconnect
// leaves the registry untouched. It reports whether the flag actually
// flipped, so the caller can pair the flip with exactly one announcement.
func (r *Registry) MarkOffline(userID string, p Peer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok || !u.Online || u.Peer != p {
		return false
	}
	u.Online = false
	return true
}

// Lookup returns a copy of the record for userID. Unknown users are simply
// not found; callers treat that as offline.
func (r *Registry) Lookup(userID string) (ConnectedUser, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return ConnectedUser{}, false
	}
	return *u, true
}

// OnlinePeer returns the peer for userID if the user is currently online.
func (r *Registry) OnlinePeer(userID string) (Peer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok || !u.Online {
		return nil, false
	}
	return u.Peer, true
}

// OnlinePeers returns the peers of every online user except the one named.
func (r *Registry) OnlinePeers(except string) []Peer {
	r.mu.Lock()
	defer r.mu.Unlock()

	peers := make([]Peer, 0, len(r.users))
	for id, u := range r.users {
		if id == except || !u.Online {
			continue
		}
		peers = append(peers, u.Peer)
	}
	return peers
}

// Snapshot returns a presence entry for every known user, sorted by ID.
func (r *Registry) Snapshot() []protocol.PresenceEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]protocol.PresenceEntry, 0, len(r.users))
	for _, u := range r.users {
		entries = append(entries, protocol.PresenceEntry{ID: u.ID, Online: u.Online})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}

// KnownUserIDs returns every user identifier the registry has ever seen.
func (r *Registry) KnownUserIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	return ids
}
