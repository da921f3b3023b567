// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the settlement-ledger repository:
// order/payment lookups, profit-counter and wallet upserts, and the
// post-settlement enrollment/cart collaborators.
//
// All mutating functions here are expected to run inside the transaction the
// settlement service opens per order; none of them manage transactions
// themselves.
package repo

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/coursehub/go-realtime-backend/internal/domain"
)

// GetOrderWithItems fetches an order with its line items and their courses
// preloaded, or ErrNotFound.
func GetOrderWithItems(ctx context.Context, db *gorm.DB, orderID uint) (*domain.Order, error) {
	var o domain.Order
	err := db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Course").
		First(&o, orderID).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// GetPaymentByProviderID resolves a payment row from the identifier the
// external gateway echoes back on its success redirect.
func GetPaymentByProviderID(ctx context.Context, db *gorm.DB, providerPaymentID string) (*domain.Payment, error) {
	var p domain.Payment
	err := db.WithContext(ctx).
		Where("provider_payment_id = ?", providerPaymentID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// MarkOrderCompleted performs the gated pending → completed transition. It
// returns true when this call performed the transition and false when the
// order was not in pending state (the idempotency gate). The status predicate
// in the WHERE clause is what makes settlement exactly-once.
func MarkOrderCompleted(ctx context.Context, db *gorm.DB, orderID uint) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ? AND status = ?", orderID, domain.OrderPending).
		Update("status", domain.OrderCompleted)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkPaymentCompleted mirrors the gateway outcome onto the payment row.
func MarkPaymentCompleted(ctx context.Context, db *gorm.DB, orderID uint) error {
	return db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("order_id = ?", orderID).
		Update("status", domain.PaymentCompleted).Error
}

// UpsertCourseProfit advances the per-course settlement counters: purchase
// count +1, admin/mentor running totals grown by the given shares. The row is
// created lazily on the first settled purchase of the course.
func UpsertCourseProfit(ctx context.Context, db *gorm.DB, courseID uint, adminShare, mentorShare decimal.Decimal) error {
	var cp domain.CourseProfit
	err := db.WithContext(ctx).
		Where(domain.CourseProfit{CourseID: courseID}).
		FirstOrCreate(&cp).Error
	if err != nil {
		return err
	}
	return db.WithContext(ctx).
		Model(&cp).
		Updates(map[string]any{
			"number_of_purchases": cp.NumberOfPurchases + 1,
			"admin_profit":        cp.AdminProfit.Add(adminShare),
			"mentor_profit":       cp.MentorProfit.Add(mentorShare),
		}).Error
}

// CreditMentorWallet adds amount to the mentor's wallet, creating the wallet
// row lazily. Must run inside the settlement transaction.
func CreditMentorWallet(ctx context.Context, db *gorm.DB, mentorID uint, amount decimal.Decimal) error {
	var w domain.MentorWallet
	err := db.WithContext(ctx).
		Where(domain.MentorWallet{MentorID: mentorID}).
		FirstOrCreate(&w).Error
	if err != nil {
		return err
	}
	return db.WithContext(ctx).
		Model(&w).
		Update("balance", w.Balance.Add(amount)).Error
}

// CreditAdminWallet adds amount to the singleton platform wallet (fixed key,
// created lazily under the same transaction discipline as mentor wallets).
func CreditAdminWallet(ctx context.Context, db *gorm.DB, amount decimal.Decimal) error {
	var w domain.AdminWallet
	err := db.WithContext(ctx).
		Where(domain.AdminWallet{ID: domain.AdminWalletID}).
		FirstOrCreate(&w).Error
	if err != nil {
		return err
	}
	return db.WithContext(ctx).
		Model(&w).
		Update("balance", w.Balance.Add(amount)).Error
}

// GetMentorWallet returns a mentor's wallet, or ErrNotFound when nothing has
// been settled for them yet.
func GetMentorWallet(ctx context.Context, db *gorm.DB, mentorID uint) (*domain.MentorWallet, error) {
	var w domain.MentorWallet
	err := db.WithContext(ctx).
		Where("mentor_id = ?", mentorID).
		First(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// GetAdminWallet returns the platform wallet, or ErrNotFound before the
// first settlement.
func GetAdminWallet(ctx context.Context, db *gorm.DB) (*domain.AdminWallet, error) {
	var w domain.AdminWallet
	if err := db.WithContext(ctx).First(&w, domain.AdminWalletID).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

// ListCourseProfits returns all profit counters, most recently updated first.
func ListCourseProfits(ctx context.Context, db *gorm.DB) ([]domain.CourseProfit, error) {
	var out []domain.CourseProfit
	err := db.WithContext(ctx).
		Order("updated_at desc").
		Find(&out).Error
	return out, err
}

// ListCourseProfitsByMentor returns profit counters restricted to courses
// owned by mentorID.
func ListCourseProfitsByMentor(ctx context.Context, db *gorm.DB, mentorID uint) ([]domain.CourseProfit, error) {
	var out []domain.CourseProfit
	err := db.WithContext(ctx).
		Joins("JOIN courses ON courses.id = course_profits.course_id").
		Where("courses.mentor_id = ?", mentorID).
		Order("course_profits.updated_at desc").
		Find(&out).Error
	return out, err
}

// CreateEnrollment grants userID access to courseID. Duplicate enrollments
// (retried hooks) are absorbed by the unique index: the insert is attempted
// only when no row exists.
func CreateEnrollment(ctx context.Context, db *gorm.DB, userID, courseID uint) error {
	var e domain.Enrollment
	return db.WithContext(ctx).
		Where(domain.Enrollment{UserID: userID, CourseID: courseID}).
		FirstOrCreate(&e).Error
}

// RemoveCartItem deletes the cart entry for (userID, courseID) once the
// purchase has settled. Removing an absent row is a no-op.
func RemoveCartItem(ctx context.Context, db *gorm.DB, userID, courseID uint) error {
	return db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Delete(&domain.CartItem{}).Error
}
