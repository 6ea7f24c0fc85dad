package repository

import (
	"context"

	"github.com/tea-tech/simple-inventory/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SupplierPatternRepository interface {
	Create(ctx context.Context, p *model.SupplierPattern) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.SupplierPattern, error)
	List(ctx context.Context) ([]model.SupplierPattern, error)
	ListEnabled(ctx context.Context) ([]model.SupplierPattern, error)
	Update(ctx context.Context, p *model.SupplierPattern) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type supplierPatternRepo struct{ db *gorm.DB }

func NewSupplierPatternRepository(db *gorm.DB) SupplierPatternRepository {
	return &supplierPatternRepo{db: db}
}

func (r *supplierPatternRepo) Create(ctx context.Context, p *model.SupplierPattern) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *supplierPatternRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.SupplierPattern, error) {
	var p model.SupplierPattern
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *supplierPatternRepo) List(ctx context.Context) ([]model.SupplierPattern, error) {
	var list []model.SupplierPattern
	err := r.db.WithContext(ctx).Order("name ASC").Find(&list).Error
	return list, err
}

func (r *supplierPatternRepo) ListEnabled(ctx context.Context) ([]model.SupplierPattern, error) {
	var list []model.SupplierPattern
	err := r.db.WithContext(ctx).Where("enabled = true").Order("name ASC").Find(&list).Error
	return list, err
}

func (r *supplierPatternRepo) Update(ctx context.Context, p *model.SupplierPattern) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *supplierPatternRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.SupplierPattern{}, "id = ?", id).Error
}
