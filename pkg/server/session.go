package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/aeolun/pulse/pkg/protocol"
)

// Session is one live client connection. Outbound events go through a
// bounded queue drained by the write pump, so pushing never blocks the
// router or broadcaster on a slow reader. A session whose queue overflows
// is disconnected rather than allowed to stall everyone else.
type Session struct {
	id     uint64
	userID string
	conn   *websocket.Conn
	send   chan []byte
	server *Server
	log    zerolog.Logger

	done      chan struct{}
	closeOnce sync.Once
}

func newSession(id uint64, userID string, conn *websocket.Conn, srv *Server) *Session {
	return &Session{
		id:     id,
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, srv.config.SendQueueSize),
		server: srv,
		done:   make(chan struct{}),
		log: srv.log.With().
			Uint64("session_id", id).
			Str("user_id", userID).
			Logger(),
	}
}

// UserID returns the trusted identifier supplied at handshake.
func (s *Session) UserID() string {
	return s.userID
}

// Push queues an event for delivery to this client. It never blocks: a full
// queue refuses the event, tears the session down, and reports false.
func (s *Session) Push(event string, payload any) bool {
	data, err := protocol.Encode(event, payload)
	if err != nil {
		s.log.Error().Err(err).Str("event", event).Msg("failed to encode event")
		return false
	}

	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.send <- data:
		s.server.metrics.RecordEventSent(event)
		return true
	default:
		s.server.metrics.RecordEventDropped()
		s.log.Warn().Str("event", event).Msg("outbound queue full, disconnecting slow client")
		s.teardown()
		return false
	}
}

// teardown closes the connection exactly once. The read pump notices the
// closed connection and runs the shared disconnect path.
func (s *Session) teardown() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

// readPump consumes inbound frames and dispatches them until the connection
// dies, then triggers the disconnect path.
func (s *Session) readPump() {
	defer func() {
		s.teardown()
		s.server.dropSession(s)
	}()

	cfg := s.server.config
	s.conn.SetReadLimit(cfg.ReadLimit())
	s.conn.SetReadDeadline(time.Now().Add(cfg.PongWait()))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(cfg.PongWait()))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				s.log.Debug().Err(err).Msg("read error")
			}
			return
		}
		s.server.handleEvent(s, raw)
	}
}

// writePump drains the outbound queue and keeps the connection alive with
// periodic pings.
func (s *Session) writePump() {
	ticker := time.NewTicker(s.server.config.PingInterval)
	defer func() {
		ticker.Stop()
		s.teardown()
	}()

	for {
		select {
		case data := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(s.server.config.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.log.Debug().Err(err).Msg("write error")
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.server.config.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			s.conn.SetWriteDeadline(time.Now().Add(s.server.config.WriteTimeout))
			s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
