package repository

import (
	"context"

	"aurumpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CycleCountRepository interface {
	Create(ctx context.Context, c *model.CycleCount) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CycleCount, error)
	LockByIDTx(tx *gorm.DB, id uuid.UUID) (*model.CycleCount, error)
	SaveTx(tx *gorm.DB, c *model.CycleCount) error
	Save(ctx context.Context, c *model.CycleCount) error

	CreateItemsTx(tx *gorm.DB, items []model.CycleCountItem) error
	ItemsTx(tx *gorm.DB, countID uuid.UUID) ([]model.CycleCountItem, error)
	FindItem(ctx context.Context, countID, itemID uuid.UUID) (*model.CycleCountItem, error)
	SaveItem(ctx context.Context, item *model.CycleCountItem) error
	// UncountedItems returns how many items still lack a counted quantity.
	UncountedItems(ctx context.Context, countID uuid.UUID) (int64, error)

	DB() *gorm.DB
}

type cycleCountRepo struct{ db *gorm.DB }

func NewCycleCountRepository(db *gorm.DB) CycleCountRepository {
	return &cycleCountRepo{db: db}
}

func (r *cycleCountRepo) Create(ctx context.Context, c *model.CycleCount) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *cycleCountRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.CycleCount, error) {
	var c model.CycleCount
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Items.Product").
		First(&c, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *cycleCountRepo) LockByIDTx(tx *gorm.DB, id uuid.UUID) (*model.CycleCount, error) {
	var c model.CycleCount
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&c, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *cycleCountRepo) SaveTx(tx *gorm.DB, c *model.CycleCount) error {
	return tx.Omit("Items").Save(c).Error
}

func (r *cycleCountRepo) Save(ctx context.Context, c *model.CycleCount) error {
	return r.db.WithContext(ctx).Omit("Items").Save(c).Error
}

func (r *cycleCountRepo) CreateItemsTx(tx *gorm.DB, items []model.CycleCountItem) error {
	return tx.Create(&items).Error
}

func (r *cycleCountRepo) ItemsTx(tx *gorm.DB, countID uuid.UUID) ([]model.CycleCountItem, error) {
	var items []model.CycleCountItem
	err := tx.Where("cycle_count_id = ?", countID).Order("created_at ASC").Find(&items).Error
	return items, err
}

func (r *cycleCountRepo) FindItem(ctx context.Context, countID, itemID uuid.UUID) (*model.CycleCountItem, error) {
	var item model.CycleCountItem
	err := r.db.WithContext(ctx).
		Where("id = ? AND cycle_count_id = ?", itemID, countID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *cycleCountRepo) SaveItem(ctx context.Context, item *model.CycleCountItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *cycleCountRepo) UncountedItems(ctx context.Context, countID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.CycleCountItem{}).
		Where("cycle_count_id = ? AND counted_qty IS NULL", countID).
		Count(&n).Error
	return n, err
}

func (r *cycleCountRepo) DB() *gorm.DB { return r.db }
