package repository

import (
	"context"

	"github.com/tea-tech/simple-inventory/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WarehouseRepository interface {
	Create(ctx context.Context, w *model.Warehouse) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Warehouse, error)
	List(ctx context.Context) ([]model.Warehouse, error)
	Update(ctx context.Context, w *model.Warehouse) error
	Delete(ctx context.Context, id uuid.UUID) error
	// CountEntities returns how many entities sit directly in the warehouse.
	CountEntities(ctx context.Context, id uuid.UUID) (int64, error)
}

type warehouseRepo struct{ db *gorm.DB }

func NewWarehouseRepository(db *gorm.DB) WarehouseRepository { return &warehouseRepo{db: db} }

func (r *warehouseRepo) Create(ctx context.Context, w *model.Warehouse) error {
	return r.db.WithContext(ctx).Create(w).Error
}

func (r *warehouseRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Warehouse, error) {
	var w model.Warehouse
	err := r.db.WithContext(ctx).First(&w, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *warehouseRepo) List(ctx context.Context) ([]model.Warehouse, error) {
	var list []model.Warehouse
	err := r.db.WithContext(ctx).Order("name ASC").Find(&list).Error
	return list, err
}

func (r *warehouseRepo) Update(ctx context.Context, w *model.Warehouse) error {
	return r.db.WithContext(ctx).Save(w).Error
}

func (r *warehouseRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Warehouse{}, "id = ?", id).Error
}

func (r *warehouseRepo) CountEntities(ctx context.Context, id uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Entity{}).Where("warehouse_id = ?", id).Count(&n).Error
	return n, err
}
