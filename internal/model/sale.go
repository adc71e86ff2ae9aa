package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale is the record the checkout orchestrator creates once validation and
// availability checks pass. It is created in the same transaction as the
// "out" ledger entries for its items, so a sale without stock movement (or
// the reverse) cannot exist.
type Sale struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TicketNumber   int       `gorm:"uniqueIndex;not null"`
	UserID         uuid.UUID `gorm:"type:uuid;not null"`
	BranchID       *uuid.UUID `gorm:"type:uuid;index"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DiscountTotal  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Total          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Status         string          `gorm:"not null;default:'completed'"`
	ReservationID  *uuid.UUID      `gorm:"type:uuid"`
	IdempotencyKey string          `gorm:"size:128;not null"`
	CreatedAt      time.Time

	Items    []SaleItem    `gorm:"foreignKey:SaleID"`
	Payments []SalePayment `gorm:"foreignKey:SaleID"`
}

func (Sale) TableName() string { return "sales" }

type SaleItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SaleID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Discount  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	Product *Product `gorm:"foreignKey:ProductID"`
}

func (SaleItem) TableName() string { return "sale_items" }

type SalePayment struct {
	ID     uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SaleID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Method string          `gorm:"not null"` // cash | debit | credit | transfer
	Amount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

func (SalePayment) TableName() string { return "sale_payments" }
