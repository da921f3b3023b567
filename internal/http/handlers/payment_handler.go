// Payment-gateway callback endpoints.
//
// The external gateway redirects the buyer's browser back to these routes
// after checkout:
//
//   - GET /payments/execute?paymentId={id}&PayerID={payer}
//     resolves the payment, settles the order, then redirects to
//     /payments/success or /payments/failed.
//   - GET /payments/cancel   buyer abandoned checkout at the gateway
//   - GET /payments/success  terminal confirmation page
//   - GET /payments/failed   terminal failure page
//
// ExecutePayment is safe to hit repeatedly: a duplicate callback finds the
// order already completed and redirects to success without crediting again.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/coursehub/go-realtime-backend/internal/http/middleware"
	"github.com/coursehub/go-realtime-backend/internal/repo"
	"github.com/coursehub/go-realtime-backend/internal/services"
)

// Terminal redirect targets for the gateway callback.
const (
	paymentSuccessPath = "/payments/success"
	paymentFailedPath  = "/payments/failed"
)

// ExecutePayment handles the gateway's success callback. The order is
// resolved through the provider payment id echoed in the query string; the
// PayerID parameter is required by the gateway contract but carries no
// authority here.
func (h *Handlers) ExecutePayment(c *gin.Context) {
	providerID := c.Query("paymentId")
	payerID := c.Query("PayerID")
	if providerID == "" || payerID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "paymentId and PayerID are required")
		return
	}

	lg := middleware.LoggerFrom(c)

	payment, err := repo.GetPaymentByProviderID(c.Request.Context(), h.db, providerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "unknown payment")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to resolve payment")
		return
	}

	res, err := h.settlementSvc.Apply(c.Request.Context(), payment.OrderID)
	if err != nil {
		if errors.Is(err, services.ErrOrderCancelled) {
			lg.Warn().
				Uint("order_id", payment.OrderID).
				Msg("settlement refused for cancelled order")
			c.Redirect(http.StatusFound, paymentFailedPath)
			return
		}
		lg.Error().
			Err(err).
			Uint("order_id", payment.OrderID).
			Msg("settlement failed")
		fail(c, http.StatusInternalServerError, ErrCodeSettlementFailed, "settlement failed")
		return
	}

	if res.Applied {
		lg.Info().
			Uint("order_id", payment.OrderID).
			Str("admin_total", res.AdminTotal.StringFixed(2)).
			Int("mentors", len(res.MentorTotals)).
			Msg("order settled")
	} else {
		lg.Info().
			Uint("order_id", payment.OrderID).
			Msg("duplicate settlement callback ignored")
	}
	c.Redirect(http.StatusFound, paymentSuccessPath)
}

// CancelPayment handles the gateway's cancel redirect. Nothing is settled;
// the order stays pending.
func (h *Handlers) CancelPayment(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{
		"status":  "cancelled",
		"message": "payment was cancelled before completion",
	})
}

// PaymentSuccess is the terminal confirmation page of the checkout flow.
func (h *Handlers) PaymentSuccess(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{
		"status":  "success",
		"message": "payment completed and courses unlocked",
	})
}

// PaymentFailed is the terminal failure page of the checkout flow.
func (h *Handlers) PaymentFailed(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{
		"status":  "failed",
		"message": "payment could not be completed",
	})
}
