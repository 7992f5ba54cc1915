package models

import (
	"time"

	"genieq-api/internal/core/domain"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Member represents members table
type Member struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:20;not null;default:'ROLE_USER'" json:"role"`
	IsDeleted    bool      `gorm:"default:false" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Member) TableName() string {
	return "members"
}

// MemberResponse DTO
type MemberResponse struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (m *Member) ToResponse() *MemberResponse {
	return &MemberResponse{
		ID:        m.ID,
		Email:     m.Email,
		Name:      m.Name,
		Role:      m.Role,
		CreatedAt: m.CreatedAt,
	}
}

// Ticket is a purchasable bundle of generation units
type Ticket struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Code      string          `gorm:"size:20;uniqueIndex;not null" json:"code"`
	Name      string          `gorm:"size:100;not null" json:"name"`
	Units     int             `gorm:"not null" json:"units"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	IsActive  bool            `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (Ticket) TableName() string {
	return "tickets"
}

// Payment is a captured card payment for one ticket
type Payment struct {
	ID              uint                 `gorm:"primaryKey" json:"id"`
	OrderID         string               `gorm:"size:64;uniqueIndex;not null" json:"order_id"`
	MemberID        uint                 `gorm:"index;not null" json:"member_id"`
	TicketID        uint                 `gorm:"index;not null" json:"ticket_id"`
	Units           int                  `gorm:"not null" json:"units"`
	Amount          decimal.Decimal      `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status          domain.PaymentStatus `gorm:"size:20;not null;index" json:"status"`
	PaymentKey      string               `gorm:"size:200;index" json:"payment_key"`
	Method          string               `gorm:"size:50" json:"method"`
	TotalAmount     decimal.Decimal      `gorm:"type:decimal(12,2)" json:"total_amount"`
	RequestedAt     *time.Time           `json:"requested_at,omitempty"`
	ApprovedAt      *time.Time           `json:"approved_at,omitempty"`
	GatewayResponse datatypes.JSON       `json:"-"`
	CreatedAt       time.Time            `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time            `gorm:"autoUpdateTime" json:"updated_at"`

	Ticket *Ticket `gorm:"foreignKey:TicketID" json:"ticket,omitempty"`
}

func (Payment) TableName() string {
	return "payments"
}

// LedgerEntry is one append-only balance change. Rows are never updated.
type LedgerEntry struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	MemberID         uint      `gorm:"index;not null" json:"member_id"`
	Delta            int       `gorm:"not null" json:"delta"`
	ResultingBalance int       `gorm:"not null;check:chk_ledger_balance_non_negative,resulting_balance >= 0" json:"resulting_balance"`
	Reason           string    `gorm:"size:100;not null" json:"reason"`
	CreatedAt        time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// BalanceSummary is the member-facing view of the ledger
type BalanceSummary struct {
	Balance          int `json:"balance"`
	LifetimeCredited int `json:"lifetimeCredited"`
}

// AutoMigrate runs auto migration for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Member{},
		&Ticket{},
		&Payment{},
		&LedgerEntry{},
	)
}
