package repository

import (
	"context"

	"aurumpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRepository defines the data access contract for catalog products.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via stubs.
type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	ListActive(ctx context.Context) ([]model.Product, error)

	// Used inside transactions — callers must pass the tx instance
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Product, error)
	// LockByIDTx takes a row-level lock (SELECT ... FOR UPDATE) on the product
	// so a concurrent check-then-write window cannot double-spend stock.
	LockByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Product, error)
	// SetStockCachedTx refreshes the denormalized stock field. Best effort:
	// the ledger stays authoritative regardless.
	SetStockCachedTx(tx *gorm.DB, id uuid.UUID, balance int) error

	SetStockCached(ctx context.Context, id uuid.UUID, balance int) error

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	return &p, err
}

func (r *productRepo) ListActive(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Where("active = true").Order("name ASC").Find(&products).Error
	return products, err
}

func (r *productRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := tx.First(&p, "id = ?", id).Error
	return &p, err
}

func (r *productRepo) LockByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, "id = ?", id).Error
	return &p, err
}

func (r *productRepo) SetStockCachedTx(tx *gorm.DB, id uuid.UUID, balance int) error {
	return tx.Model(&model.Product{}).Where("id = ?", id).
		Update("stock_cached", balance).Error
}

func (r *productRepo) SetStockCached(ctx context.Context, id uuid.UUID, balance int) error {
	return r.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", id).
		Update("stock_cached", balance).Error
}

func (r *productRepo) DB() *gorm.DB { return r.db }
