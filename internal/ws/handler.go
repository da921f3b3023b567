package ws

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/coursehub/go-realtime-backend/internal/auth"
	"github.com/coursehub/go-realtime-backend/internal/domain"
)

// UserDirectory resolves chat peers for existence checks.
type UserDirectory interface {
	GetUser(ctx context.Context, id uint) (*domain.User, error)
}

// CourseDirectory resolves courses for comment-room existence checks.
type CourseDirectory interface {
	GetCourse(ctx context.Context, id uint) (*domain.Course, error)
}

// Handler owns the websocket upgrade endpoints. It is the AuthGate: the
// bearer token in the "token" query parameter is validated before a session
// exists, and a bad token closes the socket with CloseAuthFailure before any
// application data is exchanged. There is no server-side retry; the client
// must reconnect with a fresh token.
type Handler struct {
	Registry *Registry
	Gateway  *Gateway
	Users    UserDirectory
	Courses  CourseDirectory

	Secret     []byte
	SessionCfg SessionConfig

	upgrader websocket.Upgrader
}

// NewHandler builds the websocket handler. Origin checking is delegated to
// the HTTP layer's CORS posture; the upgrader accepts any origin.
func NewHandler(registry *Registry, gateway *Gateway, users UserDirectory, courses CourseDirectory, secret []byte, cfg SessionConfig) *Handler {
	return &Handler{
		Registry:   registry,
		Gateway:    gateway,
		Users:      users,
		Courses:    courses,
		Secret:     secret,
		SessionCfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ServeChat upgrades GET /ws/chat/:id — a personal chat with user :id. Both
// participants derive the identical canonical room key, so whoever connects
// first creates the room.
func (h *Handler) ServeChat(c *gin.Context) {
	claims, conn, ok := h.authGate(c)
	if !ok {
		return
	}

	peerID, err := parseID(c.Param("id"))
	if err != nil {
		h.rejectUpgraded(conn, CloseTargetNotFound, "invalid peer id")
		return
	}
	if _, err := h.Users.GetUser(c.Request.Context(), peerID); err != nil {
		h.rejectUpgraded(conn, CloseTargetNotFound, "peer not found")
		return
	}

	s := NewSession(conn, h.Registry, claims.UserID, claims.FullName, claims.Role, h.SessionCfg)
	connectionsGauge.Inc()
	defer connectionsGauge.Dec()

	key := ChatRoomKey(claims.UserID, peerID)
	s.Join(key)
	log.Info().
		Str("component", "ws.handler").
		Uint("user_id", claims.UserID).
		Str("room", key).
		Msg("chat session joined")

	s.readLoop(func(raw []byte) {
		h.Gateway.HandleChatFrame(context.Background(), s, peerID, raw)
	})
}

// ServeComments upgrades GET /ws/comments/:course_id — the comment room of a
// course.
func (h *Handler) ServeComments(c *gin.Context) {
	claims, conn, ok := h.authGate(c)
	if !ok {
		return
	}

	courseID, err := parseID(c.Param("course_id"))
	if err != nil {
		h.rejectUpgraded(conn, CloseTargetNotFound, "invalid course id")
		return
	}
	if _, err := h.Courses.GetCourse(c.Request.Context(), courseID); err != nil {
		h.rejectUpgraded(conn, CloseTargetNotFound, "course not found")
		return
	}

	s := NewSession(conn, h.Registry, claims.UserID, claims.FullName, claims.Role, h.SessionCfg)
	connectionsGauge.Inc()
	defer connectionsGauge.Dec()

	key := CommentRoomKey(courseID)
	s.Join(key)
	log.Info().
		Str("component", "ws.handler").
		Uint("user_id", claims.UserID).
		Str("room", key).
		Msg("comment session joined")

	s.readLoop(func(raw []byte) {
		h.Gateway.HandleCommentFrame(context.Background(), s, courseID, raw)
	})
}

// authGate validates the query-parameter token and performs the upgrade.
// Token validation happens before the upgrade; the handshake is completed
// for invalid tokens only so the 4000 close code can be delivered on the
// websocket itself, and the socket carries no application data either way.
func (h *Handler) authGate(c *gin.Context) (*auth.Claims, *websocket.Conn, bool) {
	token := c.Query("token")
	claims, authErr := auth.ValidateToken(h.Secret, token)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().
			Str("component", "ws.handler").
			Err(err).
			Msg("websocket upgrade failed")
		return nil, nil, false
	}

	if authErr != nil {
		authFailures.Inc()
		h.rejectUpgraded(conn, CloseAuthFailure, "authentication failed")
		return nil, nil, false
	}
	return claims, conn, true
}

// rejectUpgraded closes an upgraded socket that never became a session.
func (h *Handler) rejectUpgraded(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(h.SessionCfg.WriteWait)
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
	_ = conn.Close()
}

// parseID parses a positive numeric path parameter.
func parseID(s string) (uint, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}
