// Package protocol defines the JSON event surface spoken between the Pulse
// server and its clients. Every WebSocket frame carries a single Envelope;
// the Event field selects the payload type.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Client → server events.
const (
	EventSendMessage = "send-message"
	EventMarkRead    = "mark-read"
	EventSetTyping   = "set-typing"
	EventGetHistory  = "get-history"
	EventSearchUsers = "search-users"
)

// Server → client events.
const (
	EventOnlineSnapshot       = "online-snapshot"
	EventPresenceChanged      = "presence-changed"
	EventMessageReceived      = "message-received"
	EventMessageSentAck       = "message-sent-ack"
	EventMessageStatusChanged = "message-status-changed"
	EventTypingChanged        = "typing-changed"
	EventHistoryResult        = "history-result"
	EventSearchResult         = "search-result"
)

// Presence states carried by presence-changed events.
const (
	PresenceOnline  = "online"
	PresenceOffline = "offline"
)

var (
	ErrMissingEvent = errors.New("protocol: envelope has no event name")
)

// Status is the delivery status of a message. Transitions only move forward:
// sent → delivered → read.
type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
)

// Rank orders statuses for forward-only transition checks. Unknown statuses
// rank below sent so they can never overwrite a real one.
func (s Status) Rank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	default:
		return 0
	}
}

// Message is a single direct message as stored and as sent on the wire.
// IDs are decimal-encoded snowflakes; strings survive JavaScript clients
// that would truncate a 64-bit JSON number.
type Message struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
}

// Envelope frames every event on the wire.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode marshals an event name and payload into a wire frame.
func Encode(event string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Payload: raw})
}

// Decode parses a wire frame into an Envelope. The payload stays raw until
// the handler binds it to a concrete type.
func Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Event == "" {
		return nil, ErrMissingEvent
	}
	return &env, nil
}

// Bind unmarshals the envelope payload into v. A missing payload binds the
// zero value, matching clients that omit empty objects.
func (e *Envelope) Bind(v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("bind %s payload: %w", e.Event, err)
	}
	return nil
}

// SendMessagePayload asks the server to route a message to another user.
type SendMessagePayload struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// MarkReadPayload reports that the connected user has read a message.
// From names the original sender; the server prefers the sender recorded
// on the stored message and uses From only when the ID is unknown.
type MarkReadPayload struct {
	MessageID string `json:"messageId"`
	From      string `json:"from"`
}

// SetTypingPayload relays composing state to a single recipient.
type SetTypingPayload struct {
	To       string `json:"to"`
	IsTyping bool   `json:"isTyping"`
}

// GetHistoryPayload requests the full conversation log with one user.
type GetHistoryPayload struct {
	With string `json:"with"`
}

// SearchUsersPayload requests a substring match over known user IDs.
type SearchUsersPayload struct {
	Query string `json:"query"`
}

// PresenceEntry is one row of the online snapshot.
type PresenceEntry struct {
	ID     string `json:"id"`
	Online bool   `json:"online"`
}

// PresenceChangedPayload announces a user's transition to online or offline.
type PresenceChangedPayload struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

// StatusChangedPayload reports a delivery status transition for a message.
type StatusChangedPayload struct {
	ID     string `json:"id"`
	Status Status `json:"status"`
}

// TypingChangedPayload tells a recipient that From started or stopped typing.
type TypingChangedPayload struct {
	From     string `json:"from"`
	IsTyping bool   `json:"isTyping"`
}

// HistoryResultPayload answers a get-history request.
type HistoryResultPayload struct {
	With     string    `json:"with"`
	Messages []Message `json:"messages"`
}

// SearchResultEntry is one match of a user search.
type SearchResultEntry struct {
	ID string `json:"id"`
}
