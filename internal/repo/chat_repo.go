// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for direct chat
// messages.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a record is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/coursehub/go-realtime-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateChatMessage persists one direct message from senderID to receiverID.
// Timestamp is assigned server-side in UTC; durability does not depend on
// either participant being connected.
func CreateChatMessage(ctx context.Context, db *gorm.DB, senderID, receiverID uint, body string) (*domain.ChatMessage, error) {
	m := &domain.ChatMessage{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
		Timestamp:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// CountConversation returns the total number of messages exchanged between
// userID and peerID in either direction.
func CountConversation(ctx context.Context, db *gorm.DB, userID, peerID uint) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ChatMessage{}).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, peerID, peerID, userID).
		Count(&total).Error
	return total, err
}

// ListConversationPage returns a page of the conversation between userID and
// peerID ordered by persistence time ascending, so clients replay history in
// the order it was delivered to the room.
func ListConversationPage(ctx context.Context, db *gorm.DB, userID, peerID uint, offset, limit int) ([]domain.ChatMessage, error) {
	var out []domain.ChatMessage
	err := db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, peerID, peerID, userID).
		Order("timestamp asc, id asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// MarkConversationRead flags every message sent by peerID to readerID as
// read. Called when the reader fetches history.
func MarkConversationRead(ctx context.Context, db *gorm.DB, readerID, peerID uint) error {
	return db.WithContext(ctx).
		Model(&domain.ChatMessage{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", peerID, readerID, false).
		Update("is_read", true).Error
}

// GetUser fetches a user by id, or ErrNotFound.
func GetUser(ctx context.Context, db *gorm.DB, id uint) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}
