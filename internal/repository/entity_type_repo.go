package repository

import (
	"context"
	"errors"

	"github.com/tea-tech/simple-inventory/internal/model"

	"gorm.io/gorm"
)

// EntityTypeRepository is the data access contract for the type registry.
type EntityTypeRepository interface {
	Create(ctx context.Context, t *model.EntityType) error
	FindByCode(ctx context.Context, code string) (*model.EntityType, error)
	List(ctx context.Context) ([]model.EntityType, error)
	Update(ctx context.Context, t *model.EntityType) error
	DeleteByCode(ctx context.Context, code string) error
	// EnsureDefaults creates any missing built-in types.
	EnsureDefaults(ctx context.Context) error
}

type entityTypeRepo struct{ db *gorm.DB }

func NewEntityTypeRepository(db *gorm.DB) EntityTypeRepository { return &entityTypeRepo{db: db} }

func (r *entityTypeRepo) Create(ctx context.Context, t *model.EntityType) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *entityTypeRepo) FindByCode(ctx context.Context, code string) (*model.EntityType, error) {
	var t model.EntityType
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *entityTypeRepo) List(ctx context.Context) ([]model.EntityType, error) {
	var types []model.EntityType
	err := r.db.WithContext(ctx).Order("sort_order ASC").Find(&types).Error
	return types, err
}

func (r *entityTypeRepo) Update(ctx context.Context, t *model.EntityType) error {
	return r.db.WithContext(ctx).Save(t).Error
}

func (r *entityTypeRepo) DeleteByCode(ctx context.Context, code string) error {
	return r.db.WithContext(ctx).Delete(&model.EntityType{}, "code = ?", code).Error
}

func (r *entityTypeRepo) EnsureDefaults(ctx context.Context) error {
	for _, def := range model.DefaultEntityTypes {
		_, err := r.FindByCode(ctx, def.Code)
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		t := def
		t.IsActive = true
		t.IsBuiltin = true
		if err := r.Create(ctx, &t); err != nil {
			return err
		}
	}
	return nil
}
