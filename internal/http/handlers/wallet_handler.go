// Wallet and course-profit read endpoints.
//
//   - GET /wallet    balance visible to the caller (mentor or admin)
//   - GET /profits   per-course settlement counters, role-scoped
//
// Students receive 403 from both; the ledger has nothing to show them.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/coursehub/go-realtime-backend/internal/domain"
	"github.com/coursehub/go-realtime-backend/internal/http/middleware"
	"github.com/coursehub/go-realtime-backend/internal/services"
)

// WalletResponse is the balance payload. Amounts are serialized as decimal
// strings, never floats.
type WalletResponse struct {
	UserID  uint   `json:"user_id"`
	Role    string `json:"role"`
	Balance string `json:"balance"`
}

// ProfitsResponse lists the course-profit counters visible to the caller.
type ProfitsResponse struct {
	Profits []domain.CourseProfit `json:"profits"`
}

// GetWallet returns the caller's wallet balance.
func (h *Handlers) GetWallet(c *gin.Context) {
	userID, okID := middleware.AuthUserID(c)
	if !okID {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}
	role := middleware.AuthRole(c)

	bal, err := h.walletSvc.Balance(c.Request.Context(), userID, role)
	if err != nil {
		if errors.Is(err, services.ErrWalletForbidden) {
			fail(c, http.StatusForbidden, ErrCodeForbidden, "wallet access requires a mentor or admin role")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to load wallet")
		return
	}
	ok(c, http.StatusOK, WalletResponse{
		UserID:  userID,
		Role:    role,
		Balance: bal.StringFixed(2),
	})
}

// ListProfits returns the course-profit counters the caller may see: all
// courses for admins, owned courses for mentors.
func (h *Handlers) ListProfits(c *gin.Context) {
	userID, okID := middleware.AuthUserID(c)
	if !okID {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}
	role := middleware.AuthRole(c)

	profits, err := h.walletSvc.CourseProfits(c.Request.Context(), userID, role)
	if err != nil {
		if errors.Is(err, services.ErrWalletForbidden) {
			fail(c, http.StatusForbidden, ErrCodeForbidden, "profit access requires a mentor or admin role")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to load profits")
		return
	}
	if profits == nil {
		profits = []domain.CourseProfit{}
	}
	ok(c, http.StatusOK, ProfitsResponse{Profits: profits})
}
