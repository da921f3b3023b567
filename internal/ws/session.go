package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// State is the lifecycle of one socket session.
//
//	Connecting → Authenticated → Joined → Closed
//
// Connecting → Closed on auth failure; Joined → Closed on disconnect,
// unrecoverable error, or server shutdown. Closed is terminal.
type State int32

const (
	StateConnecting State = iota
	StateAuthenticated
	StateJoined
	StateClosed
)

// SessionConfig tunes the socket pumps.
type SessionConfig struct {
	SendBuffer    int           // outbound queue length
	MaxFrameBytes int64         // read limit per inbound frame
	WriteWait     time.Duration // deadline for a single write
	PingInterval  time.Duration // server ping cadence
	PongWait      time.Duration // allowed silence before the read pump fails
}

// Session is one live websocket connection plus its authenticated identity
// and room memberships. All socket writes are funneled through a single
// writer goroutine; Deliver only ever touches the buffered send channel, so
// broadcasters never block on a peer's socket.
type Session struct {
	UserID   uint
	FullName string
	Role     string

	conn     *websocket.Conn
	registry *Registry
	cfg      SessionConfig
	log      zerolog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	mu    sync.Mutex
	state State
	rooms map[string]struct{}
}

// NewSession wraps an upgraded connection with an authenticated identity.
// The session starts in the Authenticated state (AuthGate runs before the
// session exists) and its write pump starts immediately.
func NewSession(conn *websocket.Conn, registry *Registry, userID uint, fullName, role string, cfg SessionConfig) *Session {
	s := &Session{
		UserID:   userID,
		FullName: fullName,
		Role:     role,
		conn:     conn,
		registry: registry,
		cfg:      cfg,
		log: log.With().
			Str("component", "ws.session").
			Uint("user_id", userID).
			Logger(),
		send:  make(chan []byte, cfg.SendBuffer),
		done:  make(chan struct{}),
		state: StateAuthenticated,
		rooms: make(map[string]struct{}),
	}
	go s.writePump()
	return s
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Join registers the session in a room and transitions to Joined.
func (s *Session) Join(key string) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.rooms[key] = struct{}{}
	s.state = StateJoined
	s.mu.Unlock()

	s.registry.Join(key, s)
}

// Rooms returns a snapshot of the keys the session has joined.
func (s *Session) Rooms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.rooms))
	for k := range s.rooms {
		out = append(out, k)
	}
	return out
}

// Deliver queues a payload for the socket without blocking. It fails when
// the session is closed or its outbound queue is saturated; the registry
// interprets either as a dead member.
func (s *Session) Deliver(payload []byte) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.send <- payload:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Kick closes the session with the given close code. Implements Member.
func (s *Session) Kick(code int, reason string) { s.Close(code, reason) }

// Close leaves every joined room, sends a close frame with the given code,
// and releases the socket. Safe to call multiple times; only the first call
// has any effect. A client disconnect reaches here through the read pump, so
// it cancels only this session's sends, never in-flight broadcasts to other
// members.
func (s *Session) Close(code int, reason string) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = StateClosed
		rooms := make([]string, 0, len(s.rooms))
		for k := range s.rooms {
			rooms = append(rooms, k)
		}
		s.rooms = make(map[string]struct{})
		s.mu.Unlock()

		for _, key := range rooms {
			s.registry.Leave(key, s)
		}

		close(s.done) // stops the write pump, which sends the close frame

		if s.conn != nil {
			deadline := time.Now().Add(s.cfg.WriteWait)
			msg := websocket.FormatCloseMessage(code, reason)
			_ = s.conn.WriteControl(websocket.CloseMessage, msg, deadline)
			_ = s.conn.Close()
		}
		s.log.Debug().Int("code", code).Str("reason", reason).Msg("session closed")
	})
}

// writePump is the session's single writer goroutine: it drains the send
// queue onto the socket and keeps the connection alive with periodic pings.
func (s *Session) writePump() {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case payload := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.log.Debug().Err(err).Msg("write failed")
				go s.Close(websocket.CloseAbnormalClosure, "write failure")
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				go s.Close(websocket.CloseAbnormalClosure, "ping failure")
				return
			}
		case <-s.done:
			return
		}
	}
}

// readLoop consumes inbound frames and hands each one to handle until the
// socket errors (disconnect). It configures the read limit and pong-based
// liveness before the first read.
func (s *Session) readLoop(handle func(raw []byte)) {
	s.conn.SetReadLimit(s.cfg.MaxFrameBytes)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			code, reason := closeCodeForReadError(err)
			s.Close(code, reason)
			return
		}
		handle(raw)
	}
}

// closeCodeForReadError maps a read-pump failure onto the close code the
// session reports. Only a genuine client close frame counts as a normal
// close; protocol violations and transport failures are abnormal.
func closeCodeForReadError(err error) (int, string) {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return websocket.CloseNormalClosure, "client disconnected"
	}
	return websocket.CloseAbnormalClosure, "read failure"
}
