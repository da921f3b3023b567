// Package services – CommentService
//
// This file implements CommentService, which owns course-comment persistence
// and thread materialization. Replies form an adjacency list via ParentID;
// Thread builds the tree with a breadth-first walk bounded by MaxDepth so
// adversarial reply chains cannot trigger unbounded work.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/coursehub/go-realtime-backend/internal/domain"
	"github.com/coursehub/go-realtime-backend/internal/repo"
)

// CommentService coordinates comment persistence and thread reads.
type CommentService struct {
	DB *gorm.DB

	// MaxDepth bounds thread materialization; 0 falls back to 10 levels.
	MaxDepth int
}

// CommentNode is one comment plus its direct replies, as returned by Thread.
type CommentNode struct {
	ID           uint           `json:"id"`
	UserID       uint           `json:"user_id"`
	UserFullName string         `json:"user_fullname"`
	Body         string         `json:"comment"`
	CreatedAt    string         `json:"timestamp"`
	Replies      []*CommentNode `json:"replies"`
}

// Persist validates and stores a comment on courseID, optionally threaded
// under parentID.
//
// Validation:
//   - body must be non-empty after trimming and at most domain.MaxCommentLen
//     runes;
//   - the course must exist;
//   - when parentID is given, the parent must exist and belong to the same
//     course — replies to missing parents are rejected, never persisted as
//     orphans.
func (s *CommentService) Persist(ctx context.Context, userID, courseID uint, body string, parentID *uint) (*domain.Comment, error) {
	tr := otel.Tracer("services/CommentService")
	ctx, span := tr.Start(ctx, "Persist",
		trace.WithAttributes(
			attribute.Int("user.id", int(userID)),
			attribute.Int("course.id", int(courseID)),
		),
	)
	defer span.End()

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyBody
	}
	if utf8.RuneCountInString(body) > domain.MaxCommentLen {
		return nil, ErrBodyTooLong
	}

	if _, err := repo.GetCourse(ctx, s.DB, courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}

	if parentID != nil {
		parent, err := repo.GetComment(ctx, s.DB, *parentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrParentNotFound
			}
			return nil, err
		}
		if parent.CourseID != courseID {
			return nil, ErrParentMismatch
		}
	}

	return repo.CreateComment(ctx, s.DB, userID, courseID, body, parentID)
}

// Thread materializes the full comment tree of a course: root comments in
// chronological order, each carrying its replies recursively down to the
// depth bound. The walk is breadth-first with one query per level, so depth
// and query count stay bounded no matter how replies are nested.
func (s *CommentService) Thread(ctx context.Context, courseID uint) ([]*CommentNode, error) {
	tr := otel.Tracer("services/CommentService")
	ctx, span := tr.Start(ctx, "Thread",
		trace.WithAttributes(attribute.Int("course.id", int(courseID))),
	)
	defer span.End()

	if _, err := repo.GetCourse(ctx, s.DB, courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}

	roots, err := repo.ListRootComments(ctx, s.DB, courseID)
	if err != nil {
		return nil, err
	}

	maxDepth := s.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 10
	}

	byID := make(map[uint]*CommentNode, len(roots))
	out := make([]*CommentNode, 0, len(roots))
	frontier := make([]uint, 0, len(roots))
	for i := range roots {
		n := toNode(&roots[i])
		byID[n.ID] = n
		out = append(out, n)
		frontier = append(frontier, n.ID)
	}

	for depth := 1; depth < maxDepth && len(frontier) > 0; depth++ {
		replies, err := repo.ListRepliesByParents(ctx, s.DB, frontier)
		if err != nil {
			return nil, err
		}
		frontier = frontier[:0]
		for i := range replies {
			r := &replies[i]
			parent, ok := byID[*r.ParentID]
			if !ok {
				continue
			}
			n := toNode(r)
			parent.Replies = append(parent.Replies, n)
			byID[n.ID] = n
			frontier = append(frontier, n.ID)
		}
	}

	return out, nil
}

// toNode converts a comment row into its tree representation.
func toNode(c *domain.Comment) *CommentNode {
	return &CommentNode{
		ID:           c.ID,
		UserID:       c.UserID,
		UserFullName: c.User.FullName,
		Body:         c.Body,
		CreatedAt:    c.CreatedAt.UTC().Format(time.RFC3339Nano),
		Replies:      []*CommentNode{},
	}
}
