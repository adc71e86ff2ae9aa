package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	CycleCountPending    = "pending"
	CycleCountInProgress = "in_progress"
	CycleCountCompleted  = "completed"
	CycleCountCanceled   = "canceled"

	CycleCountTypeCyclic  = "cyclic"
	CycleCountTypeGeneral = "general"
)

// CycleCount is a physical audit of recorded stock. Items are preloaded once
// (snapshot semantics — expected quantities are frozen at preload time), then
// counted while in_progress. Completing only freezes the count for review;
// ledger adjustments are written exclusively by an explicit apply, at most
// once per count.
type CycleCount struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BranchID     *uuid.UUID `gorm:"type:uuid;index"` // nil = whole org
	Type         string     `gorm:"not null"`        // cyclic | general
	TolerancePct decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	Note         *string
	CreatedBy    uuid.UUID `gorm:"type:uuid;not null"`
	Status       string    `gorm:"not null;default:'pending';index"`
	PreloadedAt  *time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	CanceledAt   *time.Time
	// AppliedAt is set when adjustments are written to the ledger; a non-nil
	// value makes every further apply a replay of the stored result.
	AppliedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time

	Items []CycleCountItem `gorm:"foreignKey:CycleCountID"`
}

func (CycleCount) TableName() string { return "cycle_counts" }

type CycleCountItem struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CycleCountID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_count_product,priority:1"`
	ProductID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_count_product,priority:2"`
	ExpectedQty  int       `gorm:"not null"` // ledger balance snapshot at preload
	CountedQty   *int
	CountedBy    *uuid.UUID `gorm:"type:uuid"`
	Reason       *string
	VarianceQty  int `gorm:"not null;default:0"` // counted - expected
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}

func (CycleCountItem) TableName() string { return "cycle_count_items" }
