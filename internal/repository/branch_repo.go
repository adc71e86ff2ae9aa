package repository

import (
	"context"

	"aurumpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BranchRepository interface {
	Create(ctx context.Context, b *model.Branch) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Branch, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	ListActive(ctx context.Context) ([]model.Branch, error)
	DB() *gorm.DB
}

type branchRepo struct{ db *gorm.DB }

func NewBranchRepository(db *gorm.DB) BranchRepository { return &branchRepo{db: db} }

func (r *branchRepo) Create(ctx context.Context, b *model.Branch) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *branchRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Branch, error) {
	var b model.Branch
	err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *branchRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Branch{}).
		Where("id = ? AND active = true", id).
		Count(&n).Error
	return n > 0, err
}

func (r *branchRepo) ListActive(ctx context.Context) ([]model.Branch, error) {
	var branches []model.Branch
	err := r.db.WithContext(ctx).Where("active = true").Order("name ASC").Find(&branches).Error
	return branches, err
}

func (r *branchRepo) DB() *gorm.DB { return r.db }
