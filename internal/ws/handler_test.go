package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/coursehub/go-realtime-backend/internal/auth"
	"github.com/coursehub/go-realtime-backend/internal/domain"
	"github.com/coursehub/go-realtime-backend/internal/repo"
	"github.com/coursehub/go-realtime-backend/internal/services"
)

var handlerTestSecret = []byte("ws-test-secret")

// dbDirectory adapts repo lookups to the handler's directory interfaces.
type dbDirectory struct{ db *gorm.DB }

func (d dbDirectory) GetUser(ctx context.Context, id uint) (*domain.User, error) {
	return repo.GetUser(ctx, d.db, id)
}

func (d dbDirectory) GetCourse(ctx context.Context, id uint) (*domain.Course, error) {
	return repo.GetCourse(ctx, d.db, id)
}

func newHandlerTestServer(t *testing.T) (*httptest.Server, *gorm.DB, *Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:ws_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	registry := NewRegistry()
	gateway := &Gateway{
		Registry: registry,
		Chats:    &services.ChatService{DB: db},
		Comments: &services.CommentService{DB: db},
	}
	dirs := dbDirectory{db: db}
	h := NewHandler(registry, gateway, dirs, dirs, handlerTestSecret, SessionConfig{
		SendBuffer:    16,
		MaxFrameBytes: 16 << 10,
		WriteWait:     2 * time.Second,
		PingInterval:  30 * time.Second,
		PongWait:      60 * time.Second,
	})

	r := gin.New()
	r.GET("/ws/chat/:id", h.ServeChat)
	r.GET("/ws/comments/:course_id", h.ServeComments)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, db, registry
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

// expectClose reads until the connection fails and asserts the close code.
func expectClose(t *testing.T, conn *websocket.Conn, want int) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	ce, ok := err.(*websocket.CloseError)
	if !ok {
		t.Fatalf("expected close error, got %v", err)
	}
	if ce.Code != want {
		t.Fatalf("expected close code %d, got %d", want, ce.Code)
	}
}

func TestServeChat_InvalidTokenClosedWith4000(t *testing.T) {
	srv, _, _ := newHandlerTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/chat/2?token=garbage"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	expectClose(t, conn, CloseAuthFailure)
}

func TestServeChat_MissingTokenClosedWith4000(t *testing.T) {
	srv, _, _ := newHandlerTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/chat/2"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	expectClose(t, conn, CloseAuthFailure)
}

func TestServeChat_UnknownPeerClosedWith4004(t *testing.T) {
	srv, db, _ := newHandlerTestServer(t)
	if err := db.Create(&domain.User{ID: 1, FullName: "A", Email: "a@x.com", Role: domain.RoleStudent}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	token, err := auth.GenerateToken(handlerTestSecret, 1, domain.RoleStudent, "A", time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/chat/99?token="+token), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	expectClose(t, conn, CloseTargetNotFound)
}

func TestServeComments_UnknownCourseClosedWith4004(t *testing.T) {
	srv, db, _ := newHandlerTestServer(t)
	if err := db.Create(&domain.User{ID: 1, FullName: "A", Email: "a@x.com", Role: domain.RoleStudent}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	token, err := auth.GenerateToken(handlerTestSecret, 1, domain.RoleStudent, "A", time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/comments/42?token="+token), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	expectClose(t, conn, CloseTargetNotFound)
}

func TestServeChat_MessageReachesBothParticipants(t *testing.T) {
	srv, db, registry := newHandlerTestServer(t)
	users := []domain.User{
		{ID: 1, FullName: "Alice", Email: "alice@x.com", Role: domain.RoleStudent},
		{ID: 2, FullName: "Bob", Email: "bob@x.com", Role: domain.RoleStudent},
	}
	for i := range users {
		if err := db.Create(&users[i]).Error; err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}

	dial := func(userID uint, name, path string) *websocket.Conn {
		token, err := auth.GenerateToken(handlerTestSecret, userID, domain.RoleStudent, name, time.Hour)
		if err != nil {
			t.Fatalf("token: %v", err)
		}
		conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, path+"?token="+token), nil)
		if err != nil {
			t.Fatalf("dial %s: %v", path, err)
		}
		t.Cleanup(func() { conn.Close() })
		return conn
	}

	alice := dial(1, "Alice", "/ws/chat/2")
	bob := dial(2, "Bob", "/ws/chat/1")

	// Wait until both sessions are in the shared room before sending.
	deadline := time.Now().Add(2 * time.Second)
	for registry.MemberCount(ChatRoomKey(1, 2)) < 2 {
		if time.Now().After(deadline) {
			t.Fatal("sessions never joined the room")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := alice.WriteJSON(map[string]string{"message": "hello bob"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	for _, conn := range []*websocket.Conn{bob, alice} {
		_ = conn.SetReadDeadline(deadline)
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var ev struct {
			Message    string `json:"message"`
			SenderID   uint   `json:"sender_id"`
			ReceiverID uint   `json:"receiver_id"`
			Timestamp  string `json:"timestamp"`
		}
		if err := json.Unmarshal(raw, &ev); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if ev.Message != "hello bob" || ev.SenderID != 1 || ev.ReceiverID != 2 {
			t.Fatalf("unexpected event: %+v", ev)
		}
		if ev.Timestamp == "" {
			t.Fatal("event must carry a timestamp")
		}
	}

	// The message is durable independent of delivery.
	var count int64
	if err := db.Model(&domain.ChatMessage{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 persisted message, got %d", count)
	}
}
