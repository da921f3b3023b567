// Package domain defines the persistence models for the realtime messaging
// and settlement core of the marketplace backend. These types are mapped with
// GORM and are shared by the repository, service, and websocket layers.
//
// Monetary columns use shopspring/decimal throughout; float arithmetic is
// never applied to prices, profits, or balances.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order lifecycle states. An order transitions pending → completed exactly
// once; pending → cancelled is terminal.
const (
	OrderPending   = "pending"
	OrderCompleted = "completed"
	OrderCancelled = "cancelled"
)

// Payment lifecycle states, mirroring the external gateway.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

// User roles recognized by the wallet and profit endpoints.
const (
	RoleStudent = "student"
	RoleMentor  = "mentor"
	RoleAdmin   = "admin"
)

// MaxCommentLen bounds the body of a course comment (chat messages are
// practically unbounded and stored as TEXT).
const MaxCommentLen = 300

// User is the minimal identity record the realtime core needs: a stable id,
// a display name for broadcast enrichment, and a role for wallet access.
// Registration, OTP, and profile management live in a separate service.
type User struct {
	ID        uint      `json:"id"         gorm:"primaryKey"`
	FullName  string    `json:"full_name"  gorm:"type:varchar(128);not null"`
	Email     string    `json:"email"      gorm:"type:varchar(255);not null;uniqueIndex"`
	Role      string    `json:"role"       gorm:"type:varchar(16);not null;default:'student';check:role IN ('student','mentor','admin')"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Course carries the fields the settlement and comment paths depend on:
// the listed price and the owning mentor. Catalog metadata beyond that is
// out of scope here.
type Course struct {
	ID        uint            `json:"id"        gorm:"primaryKey"`
	Title     string          `json:"title"     gorm:"type:varchar(255);not null"`
	Price     decimal.Decimal `json:"price"     gorm:"type:decimal(10,2);not null"`
	MentorID  uint            `json:"mentor_id" gorm:"not null;index"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	Mentor User `json:"-" gorm:"foreignKey:MentorID;references:ID"`
}

// TableName returns the database table name for Course.
func (Course) TableName() string { return "courses" }

// Order is a purchase of one or more courses by a user. Its status column is
// the idempotency gate for settlement: the ledger only credits wallets on the
// single transition from pending to completed.
type Order struct {
	ID        uint      `json:"id"      gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	Status    string    `json:"status"  gorm:"type:varchar(16);not null;default:'pending';check:status IN ('pending','completed','cancelled')"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User  User        `json:"-"     gorm:"foreignKey:UserID;references:ID"`
	Items []OrderItem `json:"items" gorm:"foreignKey:OrderID"`
}

// TableName returns the database table name for Order.
func (Order) TableName() string { return "orders" }

// OrderItem is one (course, price-at-purchase) line within an order. Price is
// captured at checkout so later catalog edits cannot skew settlement.
type OrderItem struct {
	ID       uint            `json:"id"        gorm:"primaryKey"`
	OrderID  uint            `json:"order_id"  gorm:"not null;index"`
	CourseID uint            `json:"course_id" gorm:"not null;index"`
	Price    decimal.Decimal `json:"price"     gorm:"type:decimal(10,2);not null"`

	Order  Order  `json:"-" gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Course Course `json:"-" gorm:"foreignKey:CourseID;references:ID"`
}

// TableName returns the database table name for OrderItem.
func (OrderItem) TableName() string { return "order_items" }

// Payment records the external gateway transaction for an order. The success
// callback resolves the order through ProviderPaymentID rather than trusting
// anything else in the redirect.
type Payment struct {
	ID                uint            `json:"id"                  gorm:"primaryKey"`
	OrderID           uint            `json:"order_id"            gorm:"not null;uniqueIndex"`
	ProviderPaymentID string          `json:"provider_payment_id" gorm:"type:varchar(128);not null;uniqueIndex"`
	Amount            decimal.Decimal `json:"amount"              gorm:"type:decimal(10,2);not null;default:0"`
	Status            string          `json:"status"              gorm:"type:varchar(16);not null;default:'pending';check:status IN ('pending','completed','failed')"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	Order Order `json:"-" gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Payment.
func (Payment) TableName() string { return "payments" }

// ChatMessage is one persisted direct message between two users. Timestamp is
// assigned at persistence time; delivery to live sockets is best-effort and
// independent of durability.
type ChatMessage struct {
	ID         uint      `json:"id"          gorm:"primaryKey"`
	SenderID   uint      `json:"sender_id"   gorm:"not null;index:idx_chat_pair,priority:1"`
	ReceiverID uint      `json:"receiver_id" gorm:"not null;index:idx_chat_pair,priority:2"`
	Body       string    `json:"message"     gorm:"type:text;not null"`
	IsRead     bool      `json:"is_read"     gorm:"not null;default:false"`
	Timestamp  time.Time `json:"timestamp"   gorm:"autoCreateTime;index"`

	Sender   User `json:"-" gorm:"foreignKey:SenderID;references:ID"`
	Receiver User `json:"-" gorm:"foreignKey:ReceiverID;references:ID"`
}

// TableName returns the database table name for ChatMessage.
func (ChatMessage) TableName() string { return "chat_messages" }

// Comment is a per-course comment with optional threading. ParentID is a
// self-referential adjacency link; reply trees are materialized on demand by
// a bounded breadth-first walk, never by recursion over rows.
type Comment struct {
	ID        uint      `json:"id"         gorm:"primaryKey"`
	UserID    uint      `json:"user_id"    gorm:"not null;index"`
	CourseID  uint      `json:"course_id"  gorm:"not null;index"`
	Body      string    `json:"comment"    gorm:"type:varchar(300);not null"`
	ParentID  *uint     `json:"parent_comment_id,omitempty" gorm:"index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User   User     `json:"-" gorm:"foreignKey:UserID;references:ID"`
	Course Course   `json:"-" gorm:"foreignKey:CourseID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Parent *Comment `json:"-" gorm:"foreignKey:ParentID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Comment.
func (Comment) TableName() string { return "comments" }

// IsReply reports whether the comment is threaded under a parent.
func (c *Comment) IsReply() bool { return c.ParentID != nil }

// CourseProfit accumulates per-course settlement totals. For every completed
// order line the purchase counter advances by one and the admin/mentor shares
// grow by the 10%/90% split of the captured price.
type CourseProfit struct {
	ID                uint            `json:"id"                  gorm:"primaryKey"`
	CourseID          uint            `json:"course_id"           gorm:"not null;uniqueIndex"`
	NumberOfPurchases int64           `json:"number_of_purchases" gorm:"not null;default:0"`
	AdminProfit       decimal.Decimal `json:"admin_profit"        gorm:"type:decimal(12,2);not null;default:0"`
	MentorProfit      decimal.Decimal `json:"mentor_profit"       gorm:"type:decimal(12,2);not null;default:0"`
	UpdatedAt         time.Time       `json:"updated_at"`

	Course Course `json:"-" gorm:"foreignKey:CourseID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for CourseProfit.
func (CourseProfit) TableName() string { return "course_profits" }

// MentorWallet holds a mentor's accumulated earnings. Balances are mutated
// only inside a settlement transaction.
type MentorWallet struct {
	ID        uint            `json:"id"        gorm:"primaryKey"`
	MentorID  uint            `json:"mentor_id" gorm:"not null;uniqueIndex"`
	Balance   decimal.Decimal `json:"balance"   gorm:"type:decimal(12,2);not null;default:0"`
	UpdatedAt time.Time       `json:"updated_at"`

	Mentor User `json:"-" gorm:"foreignKey:MentorID;references:ID"`
}

// TableName returns the database table name for MentorWallet.
func (MentorWallet) TableName() string { return "mentor_wallets" }

// AdminWalletID is the fixed primary key of the single platform wallet row.
// The row is created lazily under the same transaction discipline as mentor
// wallets.
const AdminWalletID uint = 1

// AdminWallet is the platform's singleton wallet.
type AdminWallet struct {
	ID        uint            `json:"id"      gorm:"primaryKey"`
	Balance   decimal.Decimal `json:"balance" gorm:"type:decimal(12,2);not null;default:0"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName returns the database table name for AdminWallet.
func (AdminWallet) TableName() string { return "admin_wallet" }

// Enrollment grants a user access to a course. Created once per settled
// order line, after the settlement transaction commits.
type Enrollment struct {
	ID        uint      `json:"id"        gorm:"primaryKey"`
	UserID    uint      `json:"user_id"   gorm:"not null;uniqueIndex:ux_enroll_user_course,priority:1"`
	CourseID  uint      `json:"course_id" gorm:"not null;uniqueIndex:ux_enroll_user_course,priority:2"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Enrollment.
func (Enrollment) TableName() string { return "enrollments" }

// CartItem is a pending course in a user's cart, removed after the order
// containing it settles.
type CartItem struct {
	ID        uint      `json:"id"        gorm:"primaryKey"`
	UserID    uint      `json:"user_id"   gorm:"not null;uniqueIndex:ux_cart_user_course,priority:1"`
	CourseID  uint      `json:"course_id" gorm:"not null;uniqueIndex:ux_cart_user_course,priority:2"`
	IsActive  bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for CartItem.
func (CartItem) TableName() string { return "cart_items" }
