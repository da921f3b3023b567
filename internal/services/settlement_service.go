// Package services – SettlementService
//
// This file implements the payment-settlement ledger. A completed payment
// triggers Apply(orderID), which runs exactly one transaction per order:
// profit counters and wallets are credited for every line item, then the
// order performs its gated pending → completed transition. The gate is the
// idempotency mechanism — if another caller already completed the order, all
// credits from this call roll back and the result is a successful no-op.
//
// Money arithmetic uses shopspring/decimal exclusively. The platform takes a
// fixed 10% cut per line item, rounded down to the cent; the mentor receives
// the exact remainder, so adminShare + mentorShare == price for every item.
package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/coursehub/go-realtime-backend/internal/domain"
	"github.com/coursehub/go-realtime-backend/internal/repo"
)

// platformCut is the fixed fraction of every sale retained by the platform.
var platformCut = decimal.RequireFromString("0.10")

// errLostSettlementRace signals that the gated status update affected zero
// rows: a concurrent caller completed the order first. It never escapes
// Apply; the transaction rolls back and the call reports an idempotent no-op.
var errLostSettlementRace = errors.New("order settled by concurrent caller")

// SplitPrice computes the admin and mentor shares of a line-item price.
// The admin share is floor(price * 0.10) at cent precision; the mentor share
// is the exact remainder, so the two always sum back to price.
func SplitPrice(price decimal.Decimal) (adminShare, mentorShare decimal.Decimal) {
	adminShare = price.Mul(platformCut).RoundFloor(2)
	mentorShare = price.Sub(adminShare)
	return adminShare, mentorShare
}

// SettlementHooks are the downstream collaborators invoked once per settled
// line item, strictly after the settlement transaction commits.
type SettlementHooks interface {
	// OrderSettled is called exactly once per order that this process
	// transitioned to completed, with the settled line items. Failures are
	// the hook's responsibility to retry; the settlement itself is already
	// durable.
	OrderSettled(ctx context.Context, order *domain.Order, items []domain.OrderItem)
}

// SettlementResult reports what a call to Apply actually did.
type SettlementResult struct {
	// Applied is false when the order had already been settled and the call
	// was an idempotent no-op.
	Applied bool
	// AdminTotal is the platform credit across all line items (zero when
	// Applied is false).
	AdminTotal decimal.Decimal
	// MentorTotals maps each mentor touched by the order to their credit.
	// One mentor may supply several purchased courses in a single order.
	MentorTotals map[uint]decimal.Decimal
}

// SettlementService applies the profit-sharing ledger transaction for
// completed orders. Wallet balances and profit counters are mutated only
// here, inside the per-order transaction.
type SettlementService struct {
	DB    *gorm.DB
	Hooks SettlementHooks
}

// Apply settles orderID.
//
// Precondition: the order exists. If it is already completed, the call is a
// no-op that returns success without re-crediting; if it is cancelled,
// ErrOrderCancelled is returned. Any mid-transaction failure rolls back the
// entire settlement, and the call is safe to retry.
func (s *SettlementService) Apply(ctx context.Context, orderID uint) (*SettlementResult, error) {
	tr := otel.Tracer("services/SettlementService")
	ctx, span := tr.Start(ctx, "Apply",
		trace.WithAttributes(attribute.Int("order.id", int(orderID))),
	)
	defer span.End()

	res := &SettlementResult{
		AdminTotal:   decimal.Zero,
		MentorTotals: map[uint]decimal.Decimal{},
	}
	var order *domain.Order

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = repo.GetOrderWithItems(ctx, tx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		switch order.Status {
		case domain.OrderCompleted:
			// Idempotency gate: duplicate completion callbacks succeed
			// without touching the ledger.
			return errLostSettlementRace
		case domain.OrderCancelled:
			return ErrOrderCancelled
		}

		for _, item := range order.Items {
			adminShare, mentorShare := SplitPrice(item.Price)
			if err := repo.UpsertCourseProfit(ctx, tx, item.CourseID, adminShare, mentorShare); err != nil {
				return err
			}
			res.AdminTotal = res.AdminTotal.Add(adminShare)
			mentorID := item.Course.MentorID
			prev, ok := res.MentorTotals[mentorID]
			if !ok {
				prev = decimal.Zero
			}
			res.MentorTotals[mentorID] = prev.Add(mentorShare)
		}

		for mentorID, amount := range res.MentorTotals {
			if err := repo.CreditMentorWallet(ctx, tx, mentorID, amount); err != nil {
				return err
			}
		}
		if err := repo.CreditAdminWallet(ctx, tx, res.AdminTotal); err != nil {
			return err
		}

		// The gate. Zero rows affected means another transaction completed
		// the order between our read and this update; everything above rolls
		// back with errLostSettlementRace.
		applied, err := repo.MarkOrderCompleted(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !applied {
			return errLostSettlementRace
		}
		if err := repo.MarkPaymentCompleted(ctx, tx, orderID); err != nil {
			return err
		}

		res.Applied = true
		return nil
	})

	if errors.Is(err, errLostSettlementRace) {
		return &SettlementResult{
			Applied:      false,
			AdminTotal:   decimal.Zero,
			MentorTotals: map[uint]decimal.Decimal{},
		}, nil
	}
	if err != nil {
		return nil, err
	}

	// Post-commit effects fire exactly once: only the call that performed
	// the pending → completed transition reaches this point with Applied set.
	if res.Applied && s.Hooks != nil {
		s.Hooks.OrderSettled(ctx, order, order.Items)
	}
	return res, nil
}
