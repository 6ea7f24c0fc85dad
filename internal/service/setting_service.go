package service

import (
	"context"
	"errors"

	"github.com/tea-tech/simple-inventory/internal/dto"
	"github.com/tea-tech/simple-inventory/internal/model"
	"github.com/tea-tech/simple-inventory/internal/repository"

	"gorm.io/gorm"
)

type SettingService interface {
	List(ctx context.Context) ([]dto.SettingResponse, error)
	Get(ctx context.Context, key string) (*dto.SettingResponse, error)
	Update(ctx context.Context, key, value string) (*dto.SettingResponse, error)
	EnsureDefaults(ctx context.Context) error
}

type settingService struct {
	settings repository.SettingRepository
}

func NewSettingService(settings repository.SettingRepository) SettingService {
	return &settingService{settings: settings}
}

func (s *settingService) List(ctx context.Context) ([]dto.SettingResponse, error) {
	list, err := s.settings.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.SettingResponse, 0, len(list))
	for i := range list {
		out = append(out, toSettingResponse(&list[i]))
	}
	return out, nil
}

func (s *settingService) Get(ctx context.Context, key string) (*dto.SettingResponse, error) {
	setting, err := s.settings.FindByKey(ctx, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound("setting %q not found", key)
	}
	if err != nil {
		return nil, err
	}
	resp := toSettingResponse(setting)
	return &resp, nil
}

// Update only accepts known setting keys so typos cannot create orphans.
func (s *settingService) Update(ctx context.Context, key, value string) (*dto.SettingResponse, error) {
	if _, known := model.DefaultSettings[key]; !known {
		return nil, ErrValidation("unknown setting %q", key)
	}
	setting, err := s.settings.Upsert(ctx, key, value)
	if err != nil {
		return nil, err
	}
	resp := toSettingResponse(setting)
	return &resp, nil
}

func (s *settingService) EnsureDefaults(ctx context.Context) error {
	return s.settings.EnsureDefaults(ctx)
}

func toSettingResponse(s *model.Setting) dto.SettingResponse {
	return dto.SettingResponse{Key: s.Key, Value: s.Value, Description: s.Description}
}
