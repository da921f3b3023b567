// Package services – WalletService
//
// Read-side of the ledger: wallet balances and course-profit listings for
// mentors and admins. Balances are never mutated here; that is the
// SettlementService's exclusive territory.
package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/coursehub/go-realtime-backend/internal/domain"
	"github.com/coursehub/go-realtime-backend/internal/repo"
)

// WalletService serves wallet and profit reads, gated by role.
type WalletService struct {
	DB *gorm.DB
}

// Balance returns the wallet balance visible to the caller: mentors see their
// own wallet, admins see the platform wallet. A wallet that has never been
// credited reads as zero.
func (s *WalletService) Balance(ctx context.Context, userID uint, role string) (decimal.Decimal, error) {
	switch role {
	case domain.RoleMentor:
		w, err := repo.GetMentorWallet(ctx, s.DB, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return decimal.Zero, nil
			}
			return decimal.Zero, err
		}
		return w.Balance, nil
	case domain.RoleAdmin:
		w, err := repo.GetAdminWallet(ctx, s.DB)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return decimal.Zero, nil
			}
			return decimal.Zero, err
		}
		return w.Balance, nil
	default:
		return decimal.Zero, ErrWalletForbidden
	}
}

// CourseProfits lists profit counters: all of them for admins, only owned
// courses for mentors.
func (s *WalletService) CourseProfits(ctx context.Context, userID uint, role string) ([]domain.CourseProfit, error) {
	switch role {
	case domain.RoleAdmin:
		return repo.ListCourseProfits(ctx, s.DB)
	case domain.RoleMentor:
		return repo.ListCourseProfitsByMentor(ctx, s.DB, userID)
	default:
		return nil, ErrWalletForbidden
	}
}
