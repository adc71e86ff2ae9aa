package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	TransferRequested = "requested"
	TransferShipped   = "shipped"
	TransferReceived  = "received"
	TransferCanceled  = "canceled"
)

// StockTransfer moves quantity of a product between branches through a strict
// forward state machine: requested → shipped → received, with canceled
// reachable from requested only. The quantity leaves the source branch's
// ledger at ship (transfer_out) and enters the destination's at receive
// (transfer_in) — between those two events it is in transit and counted at
// neither branch. There is no deadline on the in-transit window.
type StockTransfer struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Quantity       int       `gorm:"not null"`
	FromBranchID   uuid.UUID `gorm:"type:uuid;not null;index"`
	ToBranchID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Reference      *string
	IdempotencyKey string    `gorm:"size:128;not null"`
	RequestedBy    uuid.UUID `gorm:"type:uuid;not null"`
	Status         string    `gorm:"not null;default:'requested';index"`
	RequestedAt    time.Time
	ShippedAt      *time.Time
	ShippedBy      *uuid.UUID `gorm:"type:uuid"`
	ReceivedAt     *time.Time
	ReceivedBy     *uuid.UUID `gorm:"type:uuid"`
	CanceledAt     *time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}

func (StockTransfer) TableName() string { return "stock_transfers" }
