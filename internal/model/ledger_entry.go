package model

import (
	"time"

	"github.com/google/uuid"
)

// Entry types. Quantity sign convention: in / transfer_in / reservation_release
// are positive, out / transfer_out are negative, adjustment carries whichever
// sign corrects the drift.
const (
	EntryIn                 = "in"
	EntryOut                = "out"
	EntryAdjustment         = "adjustment"
	EntryTransferOut        = "transfer_out"
	EntryTransferIn         = "transfer_in"
	EntryReservationRelease = "reservation_release"
)

// StockLedgerEntry records each stock-affecting event for a product.
// Entries are append-only: never updated, never deleted. The running balance
// of a product (optionally scoped to a branch) is the sum of signed quantities
// of all its entries.
type StockLedgerEntry struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_ledger_product_branch,priority:1"`
	BranchID       *uuid.UUID `gorm:"type:uuid;index:idx_ledger_product_branch,priority:2"`
	Type           string     `gorm:"not null"`
	Quantity       int        `gorm:"not null"` // signed
	Reason         string
	Reference      *string    // free-text or foreign correlation id (sale, transfer, cycle count)
	IdempotencyKey *string    `gorm:"index"`
	CreatedBy      uuid.UUID  `gorm:"type:uuid;not null"`
	CreatedAt      time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}

func (StockLedgerEntry) TableName() string { return "stock_ledger_entries" }

// ValidEntryType reports whether t is one of the known ledger entry types.
func ValidEntryType(t string) bool {
	switch t {
	case EntryIn, EntryOut, EntryAdjustment, EntryTransferOut, EntryTransferIn, EntryReservationRelease:
		return true
	}
	return false
}

// SignValid reports whether qty carries the sign the entry type demands.
func SignValid(t string, qty int) bool {
	switch t {
	case EntryIn, EntryTransferIn, EntryReservationRelease:
		return qty > 0
	case EntryOut, EntryTransferOut:
		return qty < 0
	case EntryAdjustment:
		return qty != 0
	}
	return false
}
