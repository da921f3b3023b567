package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/coursehub/go-realtime-backend/internal/auth"
	"github.com/coursehub/go-realtime-backend/internal/domain"
	"github.com/coursehub/go-realtime-backend/internal/http/middleware"
	"github.com/coursehub/go-realtime-backend/internal/repo"
	"github.com/coursehub/go-realtime-backend/internal/services"
)

var testSecret = []byte("handler-test-secret")

// testEnv is one fully wired handler stack over a fresh in-memory database.
type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	chatSvc := &services.ChatService{DB: db}
	commentSvc := &services.CommentService{DB: db}
	walletSvc := &services.WalletService{DB: db}
	settlementSvc := &services.SettlementService{DB: db}
	h := NewHandlers(db, chatSvc, commentSvc, walletSvc, settlementSvc, testSecret, time.Hour)

	r := gin.New()
	r.GET("/payments/execute", h.ExecutePayment)
	r.GET("/payments/cancel", h.CancelPayment)
	r.GET("/payments/success", h.PaymentSuccess)
	r.GET("/payments/failed", h.PaymentFailed)
	r.POST("/api/v1/auth/token", h.IssueToken)

	authed := r.Group("/api/v1", middleware.RequireAuth(testSecret))
	authed.GET("/chats/:id/messages", h.ListChatHistory)
	authed.GET("/courses/:id/comments", h.ListCourseComments)
	authed.GET("/wallet", h.GetWallet)
	authed.GET("/profits", h.ListProfits)

	return &testEnv{db: db, router: r}
}

func (e *testEnv) seedUser(t *testing.T, id uint, name, role string) {
	t.Helper()
	u := &domain.User{ID: id, FullName: name, Email: fmt.Sprintf("u%d@example.com", id), Role: role}
	if err := e.db.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func (e *testEnv) seedCourse(t *testing.T, id, mentorID uint, price string) {
	t.Helper()
	c := &domain.Course{ID: id, Title: "Course", Price: decimal.RequireFromString(price), MentorID: mentorID}
	if err := e.db.Create(c).Error; err != nil {
		t.Fatalf("seed course: %v", err)
	}
}

func (e *testEnv) seedPaidOrder(t *testing.T, orderID, buyerID, courseID uint, price, providerID string) {
	t.Helper()
	if err := e.db.Create(&domain.Order{ID: orderID, UserID: buyerID, Status: domain.OrderPending}).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	p := decimal.RequireFromString(price)
	if err := e.db.Create(&domain.OrderItem{OrderID: orderID, CourseID: courseID, Price: p}).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	if err := e.db.Create(&domain.Payment{
		OrderID: orderID, ProviderPaymentID: providerID, Amount: p, Status: domain.PaymentPending,
	}).Error; err != nil {
		t.Fatalf("seed payment: %v", err)
	}
}

func (e *testEnv) get(t *testing.T, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewReader(raw)
}

func tokenFor(t *testing.T, userID uint, role, name string) string {
	t.Helper()
	raw, err := auth.GenerateToken(testSecret, userID, role, name, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return raw
}

func TestExecutePayment_SettlesAndRedirects(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, 1, "Buyer", domain.RoleStudent)
	e.seedUser(t, 10, "Mentor", domain.RoleMentor)
	e.seedCourse(t, 1, 10, "100.00")
	e.seedPaidOrder(t, 1, 1, 1, "100.00", "PAY-abc")

	w := e.get(t, "/payments/execute?paymentId=PAY-abc&PayerID=payer-1", "")
	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", w.Code, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc != "/payments/success" {
		t.Fatalf("expected success redirect, got %q", loc)
	}

	var order domain.Order
	if err := e.db.First(&order, 1).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if order.Status != domain.OrderCompleted {
		t.Fatalf("expected completed order, got %s", order.Status)
	}
}

func TestExecutePayment_DuplicateCallbackCreditsOnce(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, 1, "Buyer", domain.RoleStudent)
	e.seedUser(t, 10, "Mentor", domain.RoleMentor)
	e.seedCourse(t, 1, 10, "100.00")
	e.seedPaidOrder(t, 1, 1, 1, "100.00", "PAY-abc")

	for i := 0; i < 2; i++ {
		w := e.get(t, "/payments/execute?paymentId=PAY-abc&PayerID=payer-1", "")
		if w.Code != http.StatusFound || w.Header().Get("Location") != "/payments/success" {
			t.Fatalf("callback %d: code=%d loc=%q", i, w.Code, w.Header().Get("Location"))
		}
	}

	var wlt domain.MentorWallet
	if err := e.db.Where("mentor_id = ?", 10).First(&wlt).Error; err != nil {
		t.Fatalf("load wallet: %v", err)
	}
	if !wlt.Balance.Equal(decimal.RequireFromString("90.00")) {
		t.Fatalf("expected single credit of 90.00, got %s", wlt.Balance)
	}
}

func TestExecutePayment_ParamValidation(t *testing.T) {
	e := newTestEnv(t)

	w := e.get(t, "/payments/execute?paymentId=PAY-x", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without PayerID, got %d", w.Code)
	}

	w = e.get(t, "/payments/execute?paymentId=PAY-missing&PayerID=p", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown payment, got %d", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if resp.Code != ErrCodeNotFound {
		t.Fatalf("expected %q, got %q", ErrCodeNotFound, resp.Code)
	}
}

func TestGetWallet_RoleGating(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, 1, "Student", domain.RoleStudent)
	e.seedUser(t, 10, "Mentor", domain.RoleMentor)
	e.seedCourse(t, 1, 10, "100.00")
	e.seedPaidOrder(t, 1, 1, 1, "100.00", "PAY-abc")
	if w := e.get(t, "/payments/execute?paymentId=PAY-abc&PayerID=p", ""); w.Code != http.StatusFound {
		t.Fatalf("settle: %d", w.Code)
	}

	// No token
	if w := e.get(t, "/api/v1/wallet", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	// Student is refused
	if w := e.get(t, "/api/v1/wallet", tokenFor(t, 1, domain.RoleStudent, "Student")); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for student, got %d", w.Code)
	}

	// Mentor sees the settled balance
	w := e.get(t, "/api/v1/wallet", tokenFor(t, 10, domain.RoleMentor, "Mentor"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp WalletResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Balance != "90.00" {
		t.Fatalf("expected balance 90.00, got %q", resp.Balance)
	}
}

func TestListChatHistory_PaginatedEnvelope(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, 1, "A", domain.RoleStudent)
	e.seedUser(t, 2, "B", domain.RoleStudent)
	for i := 0; i < 7; i++ {
		if _, err := repo.CreateChatMessage(context.Background(), e.db, 1, 2, fmt.Sprintf("m%d", i)); err != nil {
			t.Fatalf("seed message: %v", err)
		}
	}

	w := e.get(t, "/api/v1/chats/1/messages?page=2&page_size=3", tokenFor(t, 2, domain.RoleStudent, "B"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp ChatHistoryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Pagination.Total != 7 || resp.Pagination.TotalPages != 3 {
		t.Fatalf("unexpected pagination: %+v", resp.Pagination)
	}
	if !resp.Pagination.HasNext {
		t.Fatal("page 2 of 3 must report has_next")
	}
	if len(resp.Messages) != 3 || resp.Messages[0].Body != "m3" {
		t.Fatalf("unexpected page contents: %+v", resp.Messages)
	}
}

func TestListChatHistory_UnknownPeer(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, 1, "A", domain.RoleStudent)

	w := e.get(t, "/api/v1/chats/99/messages", tokenFor(t, 1, domain.RoleStudent, "A"))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestListCourseComments_ReturnsTree(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, 1, "Alice", domain.RoleStudent)
	e.seedUser(t, 10, "Mentor", domain.RoleMentor)
	e.seedCourse(t, 1, 10, "50.00")

	svc := &services.CommentService{DB: e.db}
	ctx := context.Background()
	root, err := svc.Persist(ctx, 1, 1, "root", nil)
	if err != nil {
		t.Fatalf("seed comment: %v", err)
	}
	if _, err := svc.Persist(ctx, 1, 1, "reply", &root.ID); err != nil {
		t.Fatalf("seed reply: %v", err)
	}

	w := e.get(t, "/api/v1/courses/1/comments", tokenFor(t, 1, domain.RoleStudent, "Alice"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp CommentThreadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Comments) != 1 || len(resp.Comments[0].Replies) != 1 {
		t.Fatalf("unexpected tree: %+v", resp.Comments)
	}
}

func TestIssueToken_RoundtripsThroughAuth(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, 10, "Mentor", domain.RoleMentor)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token",
		jsonBody(t, TokenRequest{UserID: 10}))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp TokenResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	// The minted token must be accepted by the protected API.
	if w := e.get(t, "/api/v1/wallet", resp.Token); w.Code != http.StatusOK {
		t.Fatalf("minted token rejected: %d", w.Code)
	}
}

func TestIssueToken_UnknownUser(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token",
		jsonBody(t, TokenRequest{UserID: 123}))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
