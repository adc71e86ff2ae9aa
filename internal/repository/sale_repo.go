package repository

import (
	"context"

	"aurumpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SaleRepository persists the sale record the checkout orchestrator creates.
// Sale creation only ever happens inside the checkout transaction, together
// with the ledger entries for its items.
type SaleRepository interface {
	CreateTx(tx *gorm.DB, s *model.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	// NextTicketNumberTx pulls the next value from the sale ticket sequence.
	NextTicketNumberTx(ctx context.Context, tx *gorm.DB) (int, error)
	DB() *gorm.DB
}

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func (r *saleRepo) CreateTx(tx *gorm.DB, s *model.Sale) error {
	return tx.Create(s).Error
}

func (r *saleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product").
		Preload("Payments").
		First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *saleRepo) NextTicketNumberTx(ctx context.Context, tx *gorm.DB) (int, error) {
	var n int
	err := tx.WithContext(ctx).Raw("SELECT nextval('sale_ticket_seq')").Scan(&n).Error
	return n, err
}

func (r *saleRepo) DB() *gorm.DB { return r.db }
