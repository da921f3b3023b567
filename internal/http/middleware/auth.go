// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides bearer-token authentication for the REST surface. The
// websocket upgrade path authenticates separately (query-parameter token in
// the ws package) because browsers cannot set headers on upgrade requests.
package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/coursehub/go-realtime-backend/internal/auth"
)

// Context keys populated by RequireAuth.
const (
	// CtxUserID holds the authenticated user id as uint.
	CtxUserID = "authUserID"
	// CtxRole holds the authenticated user's role.
	CtxRole = "authRole"
	// CtxFullName holds the authenticated user's display name.
	CtxFullName = "authFullName"
)

// RequireAuth validates the Authorization bearer token and attaches the
// resolved identity to the Gin context. Requests without a valid token are
// rejected with 401; there is no anonymous access to the API group.
func RequireAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		const prefix = "Bearer "
		if !strings.HasPrefix(raw, prefix) {
			unauthorized(c)
			return
		}
		claims, err := auth.ValidateToken(secret, strings.TrimSpace(raw[len(prefix):]))
		if err != nil {
			unauthorized(c)
			return
		}
		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxRole, claims.Role)
		c.Set(CtxFullName, claims.FullName)
		// String form for log/rate-limit keying.
		c.Set("userID", strconv.FormatUint(uint64(claims.UserID), 10))
		c.Next()
	}
}

// unauthorized aborts with the standard error envelope.
func unauthorized(c *gin.Context) {
	rid := c.Writer.Header().Get(requestIDHeader)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": rid,
		"code":       "unauthorized",
		"message":    "missing or invalid bearer token",
	})
}

// AuthUserID extracts the authenticated user id attached by RequireAuth.
func AuthUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(CtxUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// AuthRole extracts the authenticated role attached by RequireAuth.
func AuthRole(c *gin.Context) string {
	if v, ok := c.Get(CtxRole); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
