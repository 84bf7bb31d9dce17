package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aeolun/pulse/pkg/protocol"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// The userId credential is supplied by a trusted upstream; origin
		// checking belongs to that layer, not this subsystem.
		return true
	},
}

// HandleWebSocket upgrades the connection and runs the connection lifecycle:
// register, announce online, snapshot, pumps. A handshake without a user
// identifier is terminated immediately with no other side effects.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	if userID == "" {
		s.metrics.RecordRejectedHandshake()
		s.log.Info().Str("remote", ws.RemoteAddr().String()).Msg("closing connection without user identifier")
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "user identifier required"),
			time.Now().Add(time.Second))
		ws.Close()
		return
	}

	sess := newSession(s.nextSessionID.Add(1), userID, ws, s)
	s.trackSession(sess)

	// Registration must precede the pumps so the first events the client can
	// trigger already see it online.
	s.registry.Register(userID, sess)

	go sess.writePump()

	s.presence.Announce(userID, protocol.PresenceOnline)
	sess.Push(protocol.EventOnlineSnapshot, s.presence.SnapshotFor(userID))

	// The read pump starts last: a disconnect must not be processed before
	// the online announcement and snapshot are out.
	go sess.readPump()

	sess.log.Info().Str("remote", ws.RemoteAddr().String()).Msg("user connected")
}
