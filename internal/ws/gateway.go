package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coursehub/go-realtime-backend/internal/domain"
	"github.com/coursehub/go-realtime-backend/internal/services"
)

// ChatStore persists direct messages. Implemented by services.ChatService.
type ChatStore interface {
	Persist(ctx context.Context, senderID, receiverID uint, body string) (*domain.ChatMessage, error)
}

// CommentStore persists course comments. Implemented by services.CommentService.
type CommentStore interface {
	Persist(ctx context.Context, userID, courseID uint, body string, parentID *uint) (*domain.Comment, error)
}

// Inbound frame shapes. A chat frame carries {"message": ...}; a comment
// frame carries {"comment": ..., "parent_comment_id"?: ...}.
type chatFrame struct {
	Message *string `json:"message"`
}

type commentFrame struct {
	Comment         *string `json:"comment"`
	ParentCommentID *uint   `json:"parent_comment_id"`
}

// Outbound event shapes, enriched at broadcast time.
type chatEvent struct {
	Message    string `json:"message"`
	SenderID   uint   `json:"sender_id"`
	ReceiverID uint   `json:"receiver_id"`
	Timestamp  string `json:"timestamp"`
}

type commentEvent struct {
	Comment      string `json:"comment"`
	UserID       uint   `json:"user_id"`
	UserFullName string `json:"user_fullname"`
	Timestamp    string `json:"timestamp"`
	CourseID     uint   `json:"course_id"`
}

// errorFrame is sent back to the offending session only. A rejected frame
// never closes the session; the client may correct and resend.
type errorFrame struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Gateway validates inbound frames, persists them, and fans the enriched
// event out to the room. Broadcast happens only after persistence succeeds —
// an unpersisted message is never delivered.
//
// The persist + broadcast pair runs under a per-room sequencing mutex, so
// concurrent senders in one room cannot interleave: every member observes
// events in the order they were persisted. Rooms remain independent.
type Gateway struct {
	Registry *Registry
	Chats    ChatStore
	Comments CommentStore

	seq sync.Map // room key -> *sync.Mutex
}

// roomSequencer returns the ordering mutex for a room, creating it on first
// use. Sequencer entries are tiny and keyed like rooms; they are not evicted.
func (g *Gateway) roomSequencer(key string) *sync.Mutex {
	v, _ := g.seq.LoadOrStore(key, new(sync.Mutex))
	return v.(*sync.Mutex)
}

// HandleChatFrame processes one inbound frame from a session joined to the
// personal chat room shared with peerID.
func (g *Gateway) HandleChatFrame(ctx context.Context, s *Session, peerID uint, raw []byte) {
	var f chatFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		g.reject(s, "bad_request", "malformed JSON frame")
		return
	}
	if f.Message == nil {
		g.reject(s, "bad_request", "missing required field: message")
		return
	}

	// Sequence persist + fan-out per room: delivery order is persist order.
	key := ChatRoomKey(s.UserID, peerID)
	seq := g.roomSequencer(key)
	seq.Lock()
	defer seq.Unlock()

	msg, err := g.Chats.Persist(ctx, s.UserID, peerID, *f.Message)
	if err != nil {
		g.rejectErr(s, err)
		return
	}

	payload, err := json.Marshal(chatEvent{
		Message:    msg.Body,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Timestamp:  msg.Timestamp.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		g.reject(s, "internal_error", "failed to encode event")
		return
	}

	// Room-scoped fan-out: the sender's other devices receive their own echo.
	delivered := g.Registry.Broadcast(key, payload, nil)
	broadcastsTotal.WithLabelValues("chat").Inc()
	log.Debug().
		Str("component", "ws.gateway").
		Str("room", key).
		Int("delivered", delivered).
		Msg("chat message broadcast")
}

// HandleCommentFrame processes one inbound frame from a session joined to a
// course comment room.
func (g *Gateway) HandleCommentFrame(ctx context.Context, s *Session, courseID uint, raw []byte) {
	var f commentFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		g.reject(s, "bad_request", "malformed JSON frame")
		return
	}
	if f.Comment == nil {
		g.reject(s, "bad_request", "missing required field: comment")
		return
	}

	key := CommentRoomKey(courseID)
	seq := g.roomSequencer(key)
	seq.Lock()
	defer seq.Unlock()

	c, err := g.Comments.Persist(ctx, s.UserID, courseID, *f.Comment, f.ParentCommentID)
	if err != nil {
		g.rejectErr(s, err)
		return
	}

	payload, err := json.Marshal(commentEvent{
		Comment:      c.Body,
		UserID:       s.UserID,
		UserFullName: s.FullName,
		Timestamp:    c.CreatedAt.UTC().Format(time.RFC3339Nano),
		CourseID:     c.CourseID,
	})
	if err != nil {
		g.reject(s, "internal_error", "failed to encode event")
		return
	}

	delivered := g.Registry.Broadcast(key, payload, nil)
	broadcastsTotal.WithLabelValues("comment").Inc()
	log.Debug().
		Str("component", "ws.gateway").
		Str("room", key).
		Int("delivered", delivered).
		Msg("comment broadcast")
}

// rejectErr maps service errors onto error frames. Validation and not-found
// failures are the client's to fix; anything else is a transient server-side
// condition and is reported as such (the client may resend).
func (g *Gateway) rejectErr(s *Session, err error) {
	switch {
	case errors.Is(err, services.ErrEmptyBody):
		g.reject(s, "bad_request", "body must not be empty")
	case errors.Is(err, services.ErrBodyTooLong):
		g.reject(s, "bad_request", "comment exceeds maximum length")
	case errors.Is(err, services.ErrUserNotFound):
		g.reject(s, "not_found", "receiver not found")
	case errors.Is(err, services.ErrCourseNotFound):
		g.reject(s, "not_found", "course not found")
	case errors.Is(err, services.ErrParentNotFound):
		g.reject(s, "not_found", "parent comment not found")
	case errors.Is(err, services.ErrParentMismatch):
		g.reject(s, "bad_request", "parent comment belongs to another course")
	default:
		log.Error().
			Str("component", "ws.gateway").
			Uint("user_id", s.UserID).
			Err(err).
			Msg("message persistence failed")
		g.reject(s, "internal_error", "message could not be stored, try again")
	}
}

// reject delivers an error frame to the offending session only and counts
// the rejection. Delivery failure here is ignored; the read pump will notice
// a dead socket on its own.
func (g *Gateway) reject(s *Session, code, message string) {
	framesRejected.WithLabelValues(code).Inc()
	payload, err := json.Marshal(errorFrame{Code: code, Message: message})
	if err != nil {
		return
	}
	_ = s.Deliver(payload)
}
