package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ReservationActive   = "active"
	ReservationConsumed = "consumed"
	ReservationReleased = "released"
	ReservationExpired  = "expired"
)

// StockReservation is a time-boxed soft hold on quantity taken during an
// in-progress checkout. It writes no ledger entry — it only reduces computed
// availability until it is consumed, released, or expires. Expiry is lazy:
// availability reads treat a past expires_at as absent; the maintenance cron
// flips stale rows to "expired" purely for reporting.
type StockReservation struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"` // caller-supplied reservation id
	Status      string    `gorm:"not null;default:'active';index"`
	RequestedBy uuid.UUID `gorm:"type:uuid;not null"`
	ExpiresAt   time.Time `gorm:"not null;index"`
	ConsumedAt  *time.Time
	ReleasedAt  *time.Time
	CreatedAt   time.Time

	Items []StockReservationItem `gorm:"foreignKey:ReservationID"`
}

func (StockReservation) TableName() string { return "stock_reservations" }

// ActiveAt reports whether the reservation still holds quantity at t.
func (r *StockReservation) ActiveAt(t time.Time) bool {
	return r.Status == ReservationActive && t.Before(r.ExpiresAt)
}

type StockReservationItem struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ReservationID uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Quantity      int       `gorm:"not null"`
}

func (StockReservationItem) TableName() string { return "stock_reservation_items" }
