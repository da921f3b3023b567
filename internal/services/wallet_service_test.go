package services

import (
	"context"
	"errors"
	"testing"

	"github.com/coursehub/go-realtime-backend/internal/domain"
)

func TestWallet_Balance_RoleGate(t *testing.T) {
	db := newTestDB(t)
	svc := &WalletService{DB: db}

	if _, err := svc.Balance(context.Background(), 1, domain.RoleStudent); !errors.Is(err, ErrWalletForbidden) {
		t.Fatalf("expected ErrWalletForbidden for student, got %v", err)
	}
	if _, err := svc.Balance(context.Background(), 1, "anything-else"); !errors.Is(err, ErrWalletForbidden) {
		t.Fatalf("expected ErrWalletForbidden for unknown role, got %v", err)
	}
}

func TestWallet_Balance_ZeroBeforeFirstSettlement(t *testing.T) {
	db := newTestDB(t)
	svc := &WalletService{DB: db}
	ctx := context.Background()

	bal, err := svc.Balance(ctx, 10, domain.RoleMentor)
	if err != nil {
		t.Fatalf("mentor balance: %v", err)
	}
	if !bal.IsZero() {
		t.Fatalf("expected zero balance, got %s", bal)
	}

	bal, err = svc.Balance(ctx, 1, domain.RoleAdmin)
	if err != nil {
		t.Fatalf("admin balance: %v", err)
	}
	if !bal.IsZero() {
		t.Fatalf("expected zero platform balance, got %s", bal)
	}
}

func TestWallet_Balance_AfterSettlement(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, 1, "Buyer", domain.RoleStudent)
	seedUser(t, db, 10, "Mentor", domain.RoleMentor)
	seedCourse(t, db, 1, 10, "100.00")
	seedOrder(t, db, 1, 1, map[uint]string{1: "100.00"})

	ctx := context.Background()
	if _, err := (&SettlementService{DB: db}).Apply(ctx, 1); err != nil {
		t.Fatalf("settle: %v", err)
	}

	svc := &WalletService{DB: db}
	mentorBal, err := svc.Balance(ctx, 10, domain.RoleMentor)
	if err != nil {
		t.Fatalf("mentor balance: %v", err)
	}
	if mentorBal.String() != "90" {
		t.Fatalf("expected mentor balance 90, got %s", mentorBal)
	}
	adminBal, err := svc.Balance(ctx, 2, domain.RoleAdmin)
	if err != nil {
		t.Fatalf("admin balance: %v", err)
	}
	if adminBal.String() != "10" {
		t.Fatalf("expected platform balance 10, got %s", adminBal)
	}
}

func TestWallet_CourseProfits_ScopedByRole(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, 1, "Buyer", domain.RoleStudent)
	seedUser(t, db, 10, "Mentor One", domain.RoleMentor)
	seedUser(t, db, 11, "Mentor Two", domain.RoleMentor)
	seedCourse(t, db, 1, 10, "100.00")
	seedCourse(t, db, 2, 11, "50.00")
	seedOrder(t, db, 1, 1, map[uint]string{1: "100.00", 2: "50.00"})

	ctx := context.Background()
	if _, err := (&SettlementService{DB: db}).Apply(ctx, 1); err != nil {
		t.Fatalf("settle: %v", err)
	}

	svc := &WalletService{DB: db}

	all, err := svc.CourseProfits(ctx, 99, domain.RoleAdmin)
	if err != nil {
		t.Fatalf("admin profits: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("admin must see all profit rows, got %d", len(all))
	}

	mine, err := svc.CourseProfits(ctx, 10, domain.RoleMentor)
	if err != nil {
		t.Fatalf("mentor profits: %v", err)
	}
	if len(mine) != 1 || mine[0].CourseID != 1 {
		t.Fatalf("mentor must see only owned courses, got %+v", mine)
	}

	if _, err := svc.CourseProfits(ctx, 1, domain.RoleStudent); !errors.Is(err, ErrWalletForbidden) {
		t.Fatalf("expected ErrWalletForbidden for student, got %v", err)
	}
}
