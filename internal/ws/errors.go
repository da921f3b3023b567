// Package ws implements the realtime messaging core: the room registry,
// per-socket sessions, the message gateway that validates/persists/broadcasts
// inbound frames, and the authenticated upgrade handlers.
package ws

import "errors"

var (
	// ErrSessionClosed is returned when delivering to a session that has
	// already transitioned to the closed state.
	ErrSessionClosed = errors.New("session closed")

	// ErrSendBufferFull is returned when a session's outbound queue is full.
	// The registry treats it like any other delivery failure: the member is
	// removed from the room and kicked.
	ErrSendBufferFull = errors.New("session send buffer full")
)

// Websocket close codes used by the upgrade handlers and shutdown path.
const (
	// CloseAuthFailure rejects a socket whose token is missing, malformed,
	// or expired. Sent before any application data is exchanged.
	CloseAuthFailure = 4000

	// CloseTargetNotFound rejects a socket whose chat peer or course does
	// not exist.
	CloseTargetNotFound = 4004

	// CloseDeliveryFailure is sent to a member evicted from a room after a
	// failed delivery (dead or saturated send path).
	CloseDeliveryFailure = 4500
)
