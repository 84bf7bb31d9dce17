package server

import (
	"unicode/utf8"

	"github.com/aeolun/pulse/pkg/protocol"
)

// handleEvent dispatches one inbound frame to the appropriate handler.
// Malformed frames and unknown events are dropped, not answered: this wire
// has no error surface, every failure mode degrades to a no-op.
func (s *Server) handleEvent(sess *Session, raw []byte) {
	env, err := protocol.Decode(raw)
	if err != nil {
		s.metrics.RecordUnknownEvent()
		sess.log.Debug().Err(err).Msg("ignoring malformed frame")
		return
	}

	s.metrics.RecordEventReceived(env.Event)

	switch env.Event {
	case protocol.EventSendMessage:
		s.handleSendMessage(sess, env)
	case protocol.EventMarkRead:
		s.handleMarkRead(sess, env)
	case protocol.EventSetTyping:
		s.handleSetTyping(sess, env)
	case protocol.EventGetHistory:
		s.handleGetHistory(sess, env)
	case protocol.EventSearchUsers:
		s.handleSearchUsers(sess, env)
	default:
		s.metrics.RecordUnknownEvent()
		sess.log.Debug().Str("event", env.Event).Msg("ignoring unknown event")
	}
}

func (s *Server) handleSendMessage(sess *Session, env *protocol.Envelope) {
	var p protocol.SendMessagePayload
	if err := env.Bind(&p); err != nil {
		sess.log.Debug().Err(err).Msg("ignoring bad send-message payload")
		return
	}
	if p.To == "" {
		return
	}

	text := p.Text
	if max := s.config.MaxMessageLength; max > 0 && len(text) > max {
		cut := max
		// Back up so the cut never splits a multi-byte rune.
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	s.router.Send(sess, sess.userID, p.To, text)
}

func (s *Server) handleMarkRead(sess *Session, env *protocol.Envelope) {
	var p protocol.MarkReadPayload
	if err := env.Bind(&p); err != nil {
		sess.log.Debug().Err(err).Msg("ignoring bad mark-read payload")
		return
	}
	if p.MessageID == "" {
		return
	}

	s.router.MarkRead(p.MessageID, p.From)
}

func (s *Server) handleSetTyping(sess *Session, env *protocol.Envelope) {
	var p protocol.SetTypingPayload
	if err := env.Bind(&p); err != nil {
		sess.log.Debug().Err(err).Msg("ignoring bad set-typing payload")
		return
	}
	if p.To == "" {
		return
	}

	s.typing.Relay(sess.userID, p.To, p.IsTyping)
}

func (s *Server) handleGetHistory(sess *Session, env *protocol.Envelope) {
	var p protocol.GetHistoryPayload
	if err := env.Bind(&p); err != nil {
		sess.log.Debug().Err(err).Msg("ignoring bad get-history payload")
		return
	}

	messages := s.store.History(sess.userID, p.With)
	sess.Push(protocol.EventHistoryResult, protocol.HistoryResultPayload{
		With:     p.With,
		Messages: messages,
	})
}

func (s *Server) handleSearchUsers(sess *Session, env *protocol.Envelope) {
	var p protocol.SearchUsersPayload
	if err := env.Bind(&p); err != nil {
		sess.log.Debug().Err(err).Msg("ignoring bad search-users payload")
		return
	}

	results := s.search.Search(sess.userID, p.Query)
	sess.Push(protocol.EventSearchResult, results)
}
