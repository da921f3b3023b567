package handlers

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/coursehub/go-realtime-backend/internal/domain"
	"github.com/coursehub/go-realtime-backend/internal/services"
)

// WalletReader defines the wallet/profit reads consumed by handlers.
type WalletReader interface {
	Balance(ctx context.Context, userID uint, role string) (decimal.Decimal, error)
	CourseProfits(ctx context.Context, userID uint, role string) ([]domain.CourseProfit, error)
}

// Settler defines the settlement entry point consumed by the payment
// callback handlers.
type Settler interface {
	Apply(ctx context.Context, orderID uint) (*services.SettlementResult, error)
}

// Handlers bundles the service dependencies shared by the HTTP endpoints.
// Construct it once at startup with NewHandlers and register its methods on
// the router.
type Handlers struct {
	db            *gorm.DB
	chatSvc       ChatHistoryService
	commentSvc    CommentThreadService
	walletSvc     WalletReader
	settlementSvc Settler
	jwtSecret     []byte
	tokenTTL      time.Duration
}

// NewHandlers wires the handler set. All dependencies are required except the
// settlement hooks, which live inside the settlement service itself.
func NewHandlers(
	db *gorm.DB,
	chatSvc ChatHistoryService,
	commentSvc CommentThreadService,
	walletSvc WalletReader,
	settlementSvc Settler,
	jwtSecret []byte,
	tokenTTL time.Duration,
) *Handlers {
	return &Handlers{
		db:            db,
		chatSvc:       chatSvc,
		commentSvc:    commentSvc,
		walletSvc:     walletSvc,
		settlementSvc: settlementSvc,
		jwtSecret:     jwtSecret,
		tokenTTL:      tokenTTL,
	}
}
