// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for course comments
// and their reply threads.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/coursehub/go-realtime-backend/internal/domain"
)

// CreateComment persists a comment (or a reply when parentID is non-nil) on a
// course. The caller is responsible for validating body length and parent
// existence; this function only writes the row.
func CreateComment(ctx context.Context, db *gorm.DB, userID, courseID uint, body string, parentID *uint) (*domain.Comment, error) {
	c := &domain.Comment{
		UserID:    userID,
		CourseID:  courseID,
		Body:      body,
		ParentID:  parentID,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetComment fetches a comment by id, or ErrNotFound. Used to verify reply
// targets before persisting a threaded comment.
func GetComment(ctx context.Context, db *gorm.DB, id uint) (*domain.Comment, error) {
	var c domain.Comment
	if err := db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCourse fetches a course by id, or ErrNotFound.
func GetCourse(ctx context.Context, db *gorm.DB, id uint) (*domain.Course, error) {
	var course domain.Course
	if err := db.WithContext(ctx).First(&course, id).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

// ListRootComments returns the top-level comments of a course (ParentID nil)
// ordered oldest first, with the author preloaded for display names.
func ListRootComments(ctx context.Context, db *gorm.DB, courseID uint) ([]domain.Comment, error) {
	var out []domain.Comment
	err := db.WithContext(ctx).
		Preload("User").
		Where("course_id = ? AND parent_id IS NULL", courseID).
		Order("created_at asc, id asc").
		Find(&out).Error
	return out, err
}

// ListRepliesByParents returns all direct replies to the given parent ids in
// one query. The service layer uses this for breadth-first thread
// materialization, one round trip per depth level.
func ListRepliesByParents(ctx context.Context, db *gorm.DB, parentIDs []uint) ([]domain.Comment, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	var out []domain.Comment
	err := db.WithContext(ctx).
		Preload("User").
		Where("parent_id IN ?", parentIDs).
		Order("created_at asc, id asc").
		Find(&out).Error
	return out, err
}
