// Package handlers defines HTTP-layer error codes used across all API
// endpoints. These constants give clients a stable, machine-readable taxonomy
// that supplements human-readable messages; handlers select the most specific
// matching code and pass it to fail() along with the HTTP status.
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeSettlementFailed = "settlement_failed"
	ErrCodeHistoryFailed    = "history_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
