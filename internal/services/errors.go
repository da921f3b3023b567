// Package services defines the business logic for messaging, comments, and
// payment settlement. This file centralizes common service-level error values
// so that they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages, websocket error frames, or HTTP status codes is
// performed at the handler/gateway layer.
package services

import "errors"

// Messaging errors.
var (
	// ErrEmptyBody is returned when a chat or comment frame carries an empty
	// body after trimming.
	ErrEmptyBody = errors.New("message body is empty")

	// ErrBodyTooLong is returned when a comment exceeds the maximum allowed
	// length.
	ErrBodyTooLong = errors.New("comment exceeds maximum length")

	// ErrUserNotFound indicates that a referenced user (chat peer or sender)
	// does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrCourseNotFound indicates that the referenced course does not exist.
	ErrCourseNotFound = errors.New("course not found")

	// ErrParentNotFound is returned when a reply references a parent comment
	// that does not exist. The reply is rejected rather than persisted as an
	// orphan.
	ErrParentNotFound = errors.New("parent comment not found")

	// ErrParentMismatch is returned when a reply targets a parent comment
	// that belongs to a different course.
	ErrParentMismatch = errors.New("parent comment belongs to another course")
)

// Settlement errors.
var (
	// ErrOrderNotFound indicates the order referenced by a payment callback
	// does not exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrOrderCancelled is returned when settlement is requested for an order
	// in the terminal cancelled state.
	ErrOrderCancelled = errors.New("order is cancelled")
)

// Wallet errors.
var (
	// ErrWalletForbidden is returned when a user without the mentor or admin
	// role requests wallet or profit information.
	ErrWalletForbidden = errors.New("wallet access requires mentor or admin role")
)
