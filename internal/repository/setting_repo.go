package repository

import (
	"context"
	"errors"

	"github.com/tea-tech/simple-inventory/internal/model"

	"gorm.io/gorm"
)

type SettingRepository interface {
	FindByKey(ctx context.Context, key string) (*model.Setting, error)
	List(ctx context.Context) ([]model.Setting, error)
	Upsert(ctx context.Context, key, value string) (*model.Setting, error)
	// EnsureDefaults seeds the known setting keys that are missing.
	EnsureDefaults(ctx context.Context) error
}

type settingRepo struct{ db *gorm.DB }

func NewSettingRepository(db *gorm.DB) SettingRepository { return &settingRepo{db: db} }

func (r *settingRepo) FindByKey(ctx context.Context, key string) (*model.Setting, error) {
	var s model.Setting
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *settingRepo) List(ctx context.Context) ([]model.Setting, error) {
	var list []model.Setting
	err := r.db.WithContext(ctx).Order("key ASC").Find(&list).Error
	return list, err
}

func (r *settingRepo) Upsert(ctx context.Context, key, value string) (*model.Setting, error) {
	s, err := r.FindByKey(ctx, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s = &model.Setting{Key: key, Value: value}
		if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	s.Value = value
	if err := r.db.WithContext(ctx).Save(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

func (r *settingRepo) EnsureDefaults(ctx context.Context) error {
	for key, def := range model.DefaultSettings {
		_, err := r.FindByKey(ctx, key)
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		descr := def.Description
		s := &model.Setting{Key: key, Value: def.Value, Description: &descr}
		if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
			return err
		}
	}
	return nil
}
