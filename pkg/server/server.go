// Package server implements the Pulse presence and direct-messaging server:
// a WebSocket endpoint backed by a connection registry, presence
// broadcaster, message router, typing relay and user search, all sharing an
// in-memory conversation store.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/aeolun/pulse/pkg/protocol"
	"github.com/aeolun/pulse/pkg/store"
)

// Server owns the process-wide chat state and its HTTP surface. All shared
// state lives on explicit, injected components rather than package globals,
// so tests can run isolated instances side by side.
type Server struct {
	config  Config
	log     zerolog.Logger
	metrics *Metrics
	prom    *prometheus.Registry

	registry *Registry
	store    *store.Store
	router   *Router
	presence *PresenceBroadcaster
	typing   *TypingRelay
	search   *UserSearch

	sessMu        sync.Mutex
	sessions      map[uint64]*Session
	nextSessionID atomic.Uint64

	httpServer *http.Server
	startTime  time.Time
}

// NewServer wires up a server with the given configuration.
func NewServer(config Config, log zerolog.Logger) *Server {
	prom := prometheus.NewRegistry()
	prom.MustRegister(collectors.NewGoCollector())
	metrics := NewMetrics(prom)

	registry := NewRegistry()
	st := store.New()

	s := &Server{
		config:    config,
		log:       log,
		metrics:   metrics,
		prom:      prom,
		registry:  registry,
		store:     st,
		router:    NewRouter(st, registry, metrics, log),
		presence:  NewPresenceBroadcaster(registry, metrics, log),
		typing:    NewTypingRelay(registry, metrics, log),
		search:    NewUserSearch(registry),
		sessions:  make(map[uint64]*Session),
		startTime: time.Now(),
	}
	return s
}

// Handler returns the full HTTP surface: the WebSocket endpoint plus health
// and metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWebSocket)
	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(s.prom, promhttp.HandlerOpts{}))
	return mux
}

// Start begins serving on the configured port. It returns once the listener
// is running; serve errors after that are logged.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.HTTPPort)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	case <-time.After(100 * time.Millisecond):
	}

	go func() {
		if err := <-errCh; err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("http server error")
		}
	}()

	s.log.Info().Str("addr", addr).Msg("server listening")
	return nil
}

// Stop gracefully shuts the server down: the listener stops accepting, then
// every live session is closed.
func (s *Server) Stop() error {
	var err error
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = s.httpServer.Shutdown(ctx)
	}

	s.closeAllSessions()
	return err
}

// ActiveSessionCount returns the number of live connections.
func (s *Server) ActiveSessionCount() int {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	return len(s.sessions)
}

func (s *Server) trackSession(sess *Session) {
	s.sessMu.Lock()
	s.sessions[sess.id] = sess
	active := len(s.sessions)
	s.sessMu.Unlock()

	s.metrics.RecordConnected(active)
}

// dropSession runs the disconnect path for a session. It is idempotent: the
// second teardown of the same session is a no-op, and the offline
// announcement fires only when this session actually flipped the registry
// flag (a stale disconnect racing a fresh reconnect does not).
func (s *Server) dropSession(sess *Session) {
	s.sessMu.Lock()
	_, tracked := s.sessions[sess.id]
	if tracked {
		delete(s.sessions, sess.id)
	}
	active := len(s.sessions)
	s.sessMu.Unlock()

	if !tracked {
		return
	}

	s.metrics.RecordDisconnected(active)

	if s.registry.MarkOffline(sess.userID, sess) {
		s.presence.Announce(sess.userID, protocol.PresenceOffline)
		sess.log.Info().Msg("user disconnected")
	} else {
		sess.log.Debug().Msg("stale disconnect, registry untouched")
	}
}

func (s *Server) closeAllSessions() {
	s.sessMu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.sessMu.Unlock()

	for _, sess := range sessions {
		sess.teardown()
	}
}
