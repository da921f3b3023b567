// Package services – ChatService
//
// This file implements ChatService, the application-level component that owns
// persistence and retrieval of direct chat messages. The websocket gateway
// calls Persist on every inbound chat frame before fan-out; the history
// endpoint calls HistoryPage, which also marks the fetched messages as read
// for the caller.
//
// Observability: public methods are OpenTelemetry-instrumented; spans include
// the participant identifiers.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/coursehub/go-realtime-backend/internal/domain"
	"github.com/coursehub/go-realtime-backend/internal/repo"
)

// ChatService coordinates chat message persistence and history reads.
type ChatService struct {
	DB *gorm.DB
}

// Persist validates and stores one direct message, assigning the server-side
// timestamp. The receiver must exist; the message is durable regardless of
// whether the receiver currently holds a live socket.
func (s *ChatService) Persist(ctx context.Context, senderID, receiverID uint, body string) (*domain.ChatMessage, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Persist",
		trace.WithAttributes(
			attribute.Int("sender.id", int(senderID)),
			attribute.Int("receiver.id", int(receiverID)),
		),
	)
	defer span.End()

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyBody
	}
	if _, err := repo.GetUser(ctx, s.DB, receiverID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return repo.CreateChatMessage(ctx, s.DB, senderID, receiverID, body)
}

// HistoryPage returns one page of the conversation between userID and peerID
// in persistence order, plus the total message count. Messages the peer sent
// to the caller are marked read as a side effect, matching the read-receipt
// behavior of the history view.
func (s *ChatService) HistoryPage(ctx context.Context, userID, peerID uint, page, pageSize int) ([]domain.ChatMessage, int64, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "HistoryPage",
		trace.WithAttributes(
			attribute.Int("user.id", int(userID)),
			attribute.Int("peer.id", int(peerID)),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	if _, err := repo.GetUser(ctx, s.DB, peerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrUserNotFound
		}
		return nil, 0, err
	}

	total, err := repo.CountConversation(ctx, s.DB, userID, peerID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ChatMessage{}, 0, nil
	}

	items, err := repo.ListConversationPage(ctx, s.DB, userID, peerID, offset, pageSize)
	if err != nil {
		return nil, 0, err
	}
	if err := repo.MarkConversationRead(ctx, s.DB, userID, peerID); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
