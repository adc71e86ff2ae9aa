package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog item. StockCached is a denormalized copy of the
// ledger-derived balance, refreshed opportunistically on every ledger append.
// The engine never trusts it for availability decisions — the ledger is the
// source of truth and reconciliation exists to correct drift.
type Product struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SKU         string    `gorm:"uniqueIndex;not null"`
	Name        string    `gorm:"index;not null"`
	Description *string
	Category    string          `gorm:"not null"`
	UnitCost    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	StockCached int             `gorm:"not null;default:0"`
	StockMin    int             `gorm:"not null;default:1"`
	Active      bool            `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
