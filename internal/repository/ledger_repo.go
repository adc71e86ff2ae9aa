package repository

import (
	"context"

	"aurumpos/internal/dto"
	"aurumpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LedgerRepository is the data access contract for the append-only stock
// ledger. There is deliberately no Update or Delete: entries are immutable,
// and balances are always derived by summation.
type LedgerRepository interface {
	CreateTx(tx *gorm.DB, e *model.StockLedgerEntry) error
	Balance(ctx context.Context, productID uuid.UUID, branchID *uuid.UUID) (int, error)
	BalanceTx(tx *gorm.DB, productID uuid.UUID, branchID *uuid.UUID) (int, error)
	List(ctx context.Context, filter dto.LedgerFilter) ([]model.StockLedgerEntry, int64, error)
	DB() *gorm.DB
}

type ledgerRepo struct{ db *gorm.DB }

func NewLedgerRepository(db *gorm.DB) LedgerRepository { return &ledgerRepo{db: db} }

func (r *ledgerRepo) CreateTx(tx *gorm.DB, e *model.StockLedgerEntry) error {
	return tx.Create(e).Error
}

func (r *ledgerRepo) Balance(ctx context.Context, productID uuid.UUID, branchID *uuid.UUID) (int, error) {
	return sumQuantities(r.db.WithContext(ctx), productID, branchID)
}

func (r *ledgerRepo) BalanceTx(tx *gorm.DB, productID uuid.UUID, branchID *uuid.UUID) (int, error) {
	return sumQuantities(tx, productID, branchID)
}

// sumQuantities computes the signed-quantity sum. branchID nil means
// org-wide: all entries for the product regardless of branch.
func sumQuantities(db *gorm.DB, productID uuid.UUID, branchID *uuid.UUID) (int, error) {
	var balance int
	q := db.Model(&model.StockLedgerEntry{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("product_id = ?", productID)
	if branchID != nil {
		q = q.Where("branch_id = ?", *branchID)
	}
	err := q.Scan(&balance).Error
	return balance, err
}

func (r *ledgerRepo) List(ctx context.Context, filter dto.LedgerFilter) ([]model.StockLedgerEntry, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.StockLedgerEntry{})
	if filter.ProductID != "" {
		q = q.Where("product_id = ?", filter.ProductID)
	}
	if filter.BranchID != "" {
		q = q.Where("branch_id = ?", filter.BranchID)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	limit := filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := (page - 1) * limit

	var entries []model.StockLedgerEntry
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&entries).Error
	return entries, total, err
}

func (r *ledgerRepo) DB() *gorm.DB { return r.db }
