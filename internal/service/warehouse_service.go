package service

import (
	"context"
	"errors"

	"github.com/tea-tech/simple-inventory/internal/dto"
	"github.com/tea-tech/simple-inventory/internal/model"
	"github.com/tea-tech/simple-inventory/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WarehouseService interface {
	Create(ctx context.Context, req dto.CreateWarehouseRequest) (*dto.WarehouseResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.WarehouseResponse, error)
	List(ctx context.Context) ([]dto.WarehouseResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateWarehouseRequest) (*dto.WarehouseResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type warehouseService struct {
	warehouses repository.WarehouseRepository
}

func NewWarehouseService(warehouses repository.WarehouseRepository) WarehouseService {
	return &warehouseService{warehouses: warehouses}
}

func (s *warehouseService) Create(ctx context.Context, req dto.CreateWarehouseRequest) (*dto.WarehouseResponse, error) {
	w := &model.Warehouse{
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
	}
	if err := s.warehouses.Create(ctx, w); err != nil {
		return nil, err
	}
	resp := toWarehouseResponse(w)
	return &resp, nil
}

func (s *warehouseService) Get(ctx context.Context, id uuid.UUID) (*dto.WarehouseResponse, error) {
	w, err := s.warehouses.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound("warehouse not found")
	}
	if err != nil {
		return nil, err
	}
	resp := toWarehouseResponse(w)
	return &resp, nil
}

func (s *warehouseService) List(ctx context.Context) ([]dto.WarehouseResponse, error) {
	list, err := s.warehouses.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.WarehouseResponse, 0, len(list))
	for i := range list {
		out = append(out, toWarehouseResponse(&list[i]))
	}
	return out, nil
}

func (s *warehouseService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateWarehouseRequest) (*dto.WarehouseResponse, error) {
	w, err := s.warehouses.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound("warehouse not found")
	}
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		w.Name = *req.Name
	}
	if req.Description != nil {
		w.Description = req.Description
	}
	if req.Location != nil {
		w.Location = req.Location
	}
	if err := s.warehouses.Update(ctx, w); err != nil {
		return nil, err
	}
	resp := toWarehouseResponse(w)
	return &resp, nil
}

// Delete refuses to remove a warehouse that still holds entities.
func (s *warehouseService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.warehouses.FindByID(ctx, id); errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound("warehouse not found")
	} else if err != nil {
		return err
	}
	n, err := s.warehouses.CountEntities(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict("warehouse still holds %d entities", n)
	}
	return s.warehouses.Delete(ctx, id)
}

func toWarehouseResponse(w *model.Warehouse) dto.WarehouseResponse {
	return dto.WarehouseResponse{
		ID:          w.ID.String(),
		Name:        w.Name,
		Description: w.Description,
		Location:    w.Location,
	}
}
