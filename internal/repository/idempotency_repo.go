package repository

import (
	"context"
	"time"

	"aurumpos/internal/model"

	"gorm.io/gorm"
)

type IdempotencyRepository interface {
	Find(ctx context.Context, key, operationType string) (*model.IdempotencyRecord, error)
	// CreateTx must run in the same transaction as the effect the record
	// guards. The composite primary key makes a duplicate insert fail with
	// gorm.ErrDuplicatedKey, which the guard treats as "another retry won".
	CreateTx(tx *gorm.DB, rec *model.IdempotencyRecord) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	DB() *gorm.DB
}

type idempotencyRepo struct{ db *gorm.DB }

func NewIdempotencyRepository(db *gorm.DB) IdempotencyRepository {
	return &idempotencyRepo{db: db}
}

func (r *idempotencyRepo) Find(ctx context.Context, key, operationType string) (*model.IdempotencyRecord, error) {
	var rec model.IdempotencyRecord
	err := r.db.WithContext(ctx).
		Where("key = ? AND operation_type = ?", key, operationType).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *idempotencyRepo) CreateTx(tx *gorm.DB, rec *model.IdempotencyRecord) error {
	return tx.Create(rec).Error
}

func (r *idempotencyRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&model.IdempotencyRecord{})
	return res.RowsAffected, res.Error
}

func (r *idempotencyRepo) DB() *gorm.DB { return r.db }
