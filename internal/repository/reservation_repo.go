package repository

import (
	"context"
	"time"

	"aurumpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReservationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.StockReservation, error)
	CreateTx(tx *gorm.DB, r *model.StockReservation) error
	// UpdateStatusTx transitions a reservation and stamps the matching
	// timestamp column.
	UpdateStatusTx(tx *gorm.DB, id uuid.UUID, status string, at time.Time) error

	// ActiveReservedQty sums quantity held by reservations that are active
	// and unexpired at `now` for the given product. Rows whose expires_at has
	// passed are excluded even when the sweep has not yet flagged them —
	// expiry happens lazily at read time. excludeID removes one reservation from the
	// sum (a checkout must not count its own hold against itself).
	ActiveReservedQty(ctx context.Context, productID uuid.UUID, now time.Time, excludeID *uuid.UUID) (int, error)
	ActiveReservedQtyTx(tx *gorm.DB, productID uuid.UUID, now time.Time, excludeID *uuid.UUID) (int, error)

	// MarkExpired flips stale active rows to expired, for reporting only.
	MarkExpired(ctx context.Context, now time.Time) (int64, error)

	DB() *gorm.DB
}

type reservationRepo struct{ db *gorm.DB }

func NewReservationRepository(db *gorm.DB) ReservationRepository {
	return &reservationRepo{db: db}
}

func (r *reservationRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.StockReservation, error) {
	var res model.StockReservation
	err := r.db.WithContext(ctx).Preload("Items").First(&res, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *reservationRepo) CreateTx(tx *gorm.DB, res *model.StockReservation) error {
	return tx.Create(res).Error
}

func (r *reservationRepo) UpdateStatusTx(tx *gorm.DB, id uuid.UUID, status string, at time.Time) error {
	updates := map[string]interface{}{"status": status}
	switch status {
	case model.ReservationConsumed:
		updates["consumed_at"] = at
	case model.ReservationReleased:
		updates["released_at"] = at
	}
	return tx.Model(&model.StockReservation{}).Where("id = ?", id).Updates(updates).Error
}

func (r *reservationRepo) ActiveReservedQty(ctx context.Context, productID uuid.UUID, now time.Time, excludeID *uuid.UUID) (int, error) {
	return activeReservedQty(r.db.WithContext(ctx), productID, now, excludeID)
}

func (r *reservationRepo) ActiveReservedQtyTx(tx *gorm.DB, productID uuid.UUID, now time.Time, excludeID *uuid.UUID) (int, error) {
	return activeReservedQty(tx, productID, now, excludeID)
}

func activeReservedQty(db *gorm.DB, productID uuid.UUID, now time.Time, excludeID *uuid.UUID) (int, error) {
	var reserved int
	q := db.Model(&model.StockReservationItem{}).
		Select("COALESCE(SUM(stock_reservation_items.quantity), 0)").
		Joins("JOIN stock_reservations ON stock_reservations.id = stock_reservation_items.reservation_id").
		Where("stock_reservation_items.product_id = ?", productID).
		Where("stock_reservations.status = ?", model.ReservationActive).
		Where("stock_reservations.expires_at > ?", now)
	if excludeID != nil {
		q = q.Where("stock_reservations.id <> ?", *excludeID)
	}
	err := q.Scan(&reserved).Error
	return reserved, err
}

func (r *reservationRepo) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.StockReservation{}).
		Where("status = ? AND expires_at <= ?", model.ReservationActive, now).
		Update("status", model.ReservationExpired)
	return res.RowsAffected, res.Error
}

func (r *reservationRepo) DB() *gorm.DB { return r.db }
