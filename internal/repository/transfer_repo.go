package repository

import (
	"context"

	"aurumpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TransferRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.StockTransfer, error)
	CreateTx(tx *gorm.DB, t *model.StockTransfer) error
	// LockByIDTx locks the transfer row so concurrent transition attempts
	// serialize on the state check.
	LockByIDTx(tx *gorm.DB, id uuid.UUID) (*model.StockTransfer, error)
	SaveTx(tx *gorm.DB, t *model.StockTransfer) error
	DB() *gorm.DB
}

type transferRepo struct{ db *gorm.DB }

func NewTransferRepository(db *gorm.DB) TransferRepository { return &transferRepo{db: db} }

func (r *transferRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.StockTransfer, error) {
	var t model.StockTransfer
	err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *transferRepo) CreateTx(tx *gorm.DB, t *model.StockTransfer) error {
	return tx.Create(t).Error
}

func (r *transferRepo) LockByIDTx(tx *gorm.DB, id uuid.UUID) (*model.StockTransfer, error) {
	var t model.StockTransfer
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&t, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *transferRepo) SaveTx(tx *gorm.DB, t *model.StockTransfer) error {
	return tx.Save(t).Error
}

func (r *transferRepo) DB() *gorm.DB { return r.db }
