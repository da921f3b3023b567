// Chat-history and comment-thread HTTP handlers.
//
// These endpoints are the durable read side of the realtime layer:
//   - GET /chats/{id}/messages      (conversation with user {id}, paginated)
//   - GET /courses/{id}/comments    (full reply tree of a course)
//
// A message persisted while its recipient was offline is retrievable here,
// so durability never depends on live delivery.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/coursehub/go-realtime-backend/internal/domain"
	"github.com/coursehub/go-realtime-backend/internal/http/middleware"
	"github.com/coursehub/go-realtime-backend/internal/services"
	"github.com/coursehub/go-realtime-backend/internal/utils"
)

// ChatHistoryService defines the conversation reads consumed by handlers.
//
// Implementations must be safe for concurrent use and honor the provided
// context for cancellation and timeouts.
type ChatHistoryService interface {
	// HistoryPage returns one page of the conversation between userID and
	// peerID plus the total count, marking fetched peer messages as read.
	HistoryPage(ctx context.Context, userID, peerID uint, page, pageSize int) ([]domain.ChatMessage, int64, error)
}

// CommentThreadService defines the thread reads consumed by handlers.
type CommentThreadService interface {
	// Thread materializes the comment tree of a course.
	Thread(ctx context.Context, courseID uint) ([]*services.CommentNode, error)
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ChatHistoryResponse wraps a page of messages and pagination information.
type ChatHistoryResponse struct {
	Messages   []domain.ChatMessage `json:"messages"`
	Pagination Pagination           `json:"pagination"`
}

// CommentThreadResponse wraps a course's materialized comment tree.
type CommentThreadResponse struct {
	CourseID uint                    `json:"course_id"`
	Comments []*services.CommentNode `json:"comments"`
}

// clampPagination parses and bounds page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 50
		maxPageSize     = 200
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// pathID parses a positive numeric path parameter.
func pathID(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || v == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid "+name)
		return 0, false
	}
	return uint(v), true
}

// ListChatHistory returns the paginated conversation between the caller and
// the user in the path.
func (h *Handlers) ListChatHistory(c *gin.Context) {
	userID, okID := middleware.AuthUserID(c)
	if !okID {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}
	peerID, okPeer := pathID(c, "id")
	if !okPeer {
		return
	}
	page, pageSize := clampPagination(c)

	items, total, err := h.chatSvc.HistoryPage(c.Request.Context(), userID, peerID, page, pageSize)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeHistoryFailed, "failed to load conversation")
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ChatHistoryResponse{
		Messages: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// ListCourseComments returns the materialized comment tree of a course.
func (h *Handlers) ListCourseComments(c *gin.Context) {
	courseID, okCourse := pathID(c, "id")
	if !okCourse {
		return
	}

	nodes, err := h.commentSvc.Thread(c.Request.Context(), courseID)
	if err != nil {
		if errors.Is(err, services.ErrCourseNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "course not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeHistoryFailed, "failed to load comments")
		return
	}
	ok(c, http.StatusOK, CommentThreadResponse{CourseID: courseID, Comments: nodes})
}
