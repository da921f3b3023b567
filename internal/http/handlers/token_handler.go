// Token issuance endpoint.
//
// Identity (registration, passwords, OTP) is owned by a separate service; in
// deployment that service signs tokens with the shared secret and this
// endpoint stays disabled. For local development and integration testing,
// POST /auth/token issues a token for an existing user id so websocket and
// API clients can be exercised end to end.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/coursehub/go-realtime-backend/internal/auth"
	"github.com/coursehub/go-realtime-backend/internal/repo"
)

// TokenRequest selects the user to mint a token for.
type TokenRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

// TokenResponse carries the signed bearer token.
type TokenResponse struct {
	Token    string `json:"token"`
	UserID   uint   `json:"user_id"`
	Role     string `json:"role"`
	FullName string `json:"full_name"`
}

// IssueToken mints a signed token for an existing user.
func (h *Handlers) IssueToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user_id is required")
		return
	}

	user, err := repo.GetUser(c.Request.Context(), h.db, req.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to resolve user")
		return
	}

	token, err := auth.GenerateToken(h.jwtSecret, user.ID, user.Role, user.FullName, h.tokenTTL)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to sign token")
		return
	}
	ok(c, http.StatusOK, TokenResponse{
		Token:    token,
		UserID:   user.ID,
		Role:     user.Role,
		FullName: user.FullName,
	})
}
