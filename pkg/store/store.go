// Package store keeps the in-memory conversation history between user pairs.
// It is the only owner of message state: messages are created here, both
// participants' logs share the same record, and status transitions are
// applied here so every view observes them. Nothing is ever persisted;
// history lives exactly as long as the process.
package store

import (
	"errors"
	"sync"
	"time"

	"github.com/aeolun/pulse/pkg/protocol"
)

var (
	// ErrUnknownMessage is returned when a message ID was never issued by
	// this store.
	ErrUnknownMessage = errors.New("store: unknown message")

	// ErrStatusRegression is returned when a transition would move a
	// message's status backwards. The stored message is left untouched.
	ErrStatusRegression = errors.New("store: status transition would regress")
)

// pairKey identifies one participant's view of a conversation.
type pairKey struct {
	owner string
	other string
}

// Store is an append-only conversation log keyed by directed user pair.
// Appending a message inserts the same record into both directions, so each
// participant's log holds the full bidirectional history in send order.
type Store struct {
	mu   sync.Mutex
	logs map[pairKey][]*protocol.Message
	byID map[string]*protocol.Message
	ids  *IDGenerator
}

// New returns an empty conversation store.
func New() *Store {
	return &Store{
		logs: make(map[pairKey][]*protocol.Message),
		byID: make(map[string]*protocol.Message),
		ids:  NewIDGenerator(),
	}
}

// Append creates a message from one user to another with a fresh ID, the
// current timestamp and status sent, records it in both participants' logs,
// and returns a copy of it.
func (s *Store) Append(from, to, text string) protocol.Message {
	msg := &protocol.Message{
		ID:        s.ids.Next(),
		From:      from,
		To:        to,
		Text:      text,
		Timestamp: time.Now().UTC(),
		Status:    protocol.StatusSent,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs[pairKey{from, to}] = append(s.logs[pairKey{from, to}], msg)
	s.logs[pairKey{to, from}] = append(s.logs[pairKey{to, from}], msg)
	s.byID[msg.ID] = msg

	return *msg
}

// AdvanceStatus moves a message's delivery status forward and returns a copy
// of the updated message. Re-applying the current status is a no-op that
// still returns the message; moving backwards returns ErrStatusRegression
// with the untouched message.
func (s *Store) AdvanceStatus(id string, status protocol.Status) (protocol.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.byID[id]
	if !ok {
		return protocol.Message{}, ErrUnknownMessage
	}
	if status.Rank() < msg.Status.Rank() {
		return *msg, ErrStatusRegression
	}
	msg.Status = status
	return *msg, nil
}

// History returns copies of every message between owner and other, oldest
// first. Unknown pairs yield an empty slice.
func (s *Store) History(owner, other string) []protocol.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.logs[pairKey{owner, other}]
	out := make([]protocol.Message, len(log))
	for i, msg := range log {
		out[i] = *msg
	}
	return out
}
