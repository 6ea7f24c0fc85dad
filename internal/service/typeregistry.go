package service

import (
	"context"
	"errors"

	"github.com/tea-tech/simple-inventory/internal/dto"
	"github.com/tea-tech/simple-inventory/internal/model"
	"github.com/tea-tech/simple-inventory/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// TypeRegistry resolves entity type codes to their capability tables and owns
// type CRUD. The engine consults it for every nesting, conversion, and status
// decision, so behavior differences between types never leak into the engine
// as type switches.
type TypeRegistry interface {
	// Resolve returns the capability table for a type code, active or not.
	// Existing entities of a deactivated type keep working.
	Resolve(ctx context.Context, code string) (*model.EntityType, error)
	// ResolveActive additionally requires the type to be active. Creation
	// paths use it so no new entities appear under a deactivated type.
	ResolveActive(ctx context.Context, code string) (*model.EntityType, error)
	CanNest(ctx context.Context, parentCode, childCode string) error
	ValidateStatus(ctx context.Context, code string, status *string) error

	List(ctx context.Context) ([]dto.EntityTypeResponse, error)
	Get(ctx context.Context, code string) (*dto.EntityTypeResponse, error)
	Create(ctx context.Context, req dto.CreateEntityTypeRequest) (*dto.EntityTypeResponse, error)
	Update(ctx context.Context, code string, req dto.UpdateEntityTypeRequest) (*dto.EntityTypeResponse, error)
	Delete(ctx context.Context, code string) error

	// EnsureDefaults seeds the built-in item/container/package types.
	EnsureDefaults(ctx context.Context) error
}

type typeRegistry struct {
	types    repository.EntityTypeRepository
	entities repository.EntityRepository
}

func NewTypeRegistry(types repository.EntityTypeRepository, entities repository.EntityRepository) TypeRegistry {
	return &typeRegistry{types: types, entities: entities}
}

func (s *typeRegistry) Resolve(ctx context.Context, code string) (*model.EntityType, error) {
	t, err := s.types.FindByCode(ctx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrValidation("unknown entity type %q", code)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *typeRegistry) ResolveActive(ctx context.Context, code string) (*model.EntityType, error) {
	t, err := s.Resolve(ctx, code)
	if err != nil {
		return nil, err
	}
	if !t.IsActive {
		return nil, ErrValidation("entity type %q is disabled", code)
	}
	return t, nil
}

// CanNest checks both sides of the capability table: the parent must accept
// children of the child's type, and the child must accept parents of the
// parent's type.
func (s *typeRegistry) CanNest(ctx context.Context, parentCode, childCode string) error {
	parent, err := s.Resolve(ctx, parentCode)
	if err != nil {
		return err
	}
	child, err := s.Resolve(ctx, childCode)
	if err != nil {
		return err
	}
	if !parent.CanContainChildren {
		return ErrInvalidTarget("type %q cannot contain children", parentCode)
	}
	if !parent.AllowsChild(childCode) {
		return ErrInvalidTarget("type %q does not accept children of type %q", parentCode, childCode)
	}
	if !child.CanBeChild {
		return ErrInvalidTarget("type %q cannot be nested", childCode)
	}
	if !child.AllowsParent(parentCode) {
		return ErrInvalidTarget("type %q cannot sit under a parent of type %q", childCode, parentCode)
	}
	return nil
}

func (s *typeRegistry) ValidateStatus(ctx context.Context, code string, status *string) error {
	t, err := s.Resolve(ctx, code)
	if err != nil {
		return err
	}
	if !t.HasStatus(status) {
		return ErrValidation("status %q is not valid for type %q", *status, code)
	}
	return nil
}

func (s *typeRegistry) List(ctx context.Context) ([]dto.EntityTypeResponse, error) {
	types, err := s.types.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.EntityTypeResponse, 0, len(types))
	for i := range types {
		out = append(out, toEntityTypeResponse(&types[i]))
	}
	return out, nil
}

func (s *typeRegistry) Get(ctx context.Context, code string) (*dto.EntityTypeResponse, error) {
	t, err := s.types.FindByCode(ctx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound("entity type %q not found", code)
	}
	if err != nil {
		return nil, err
	}
	resp := toEntityTypeResponse(t)
	return &resp, nil
}

func (s *typeRegistry) Create(ctx context.Context, req dto.CreateEntityTypeRequest) (*dto.EntityTypeResponse, error) {
	if _, err := s.types.FindByCode(ctx, req.Code); err == nil {
		return nil, ErrConflict("entity type %q already exists", req.Code)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	t := &model.EntityType{
		Code:               req.Code,
		Name:               req.Name,
		Description:        req.Description,
		Icon:               req.Icon,
		Color:              req.Color,
		CanContainChildren: req.CanContainChildren,
		CanBeChild:         req.CanBeChild,
		AllowedParentTypes: orEmpty(req.AllowedParentTypes),
		AllowedChildTypes:  orEmpty(req.AllowedChildTypes),
		AvailableStatuses:  orEmpty(req.AvailableStatuses),
		DefaultStatus:      req.DefaultStatus,
		SortOrder:          req.SortOrder,
		IsActive:           true,
	}
	if t.DefaultStatus != nil && !t.HasStatus(t.DefaultStatus) {
		return nil, ErrValidation("default status %q is not in available statuses", *t.DefaultStatus)
	}
	if err := s.types.Create(ctx, t); err != nil {
		return nil, err
	}
	log.Info().Str("code", t.Code).Msg("entity type created")
	resp := toEntityTypeResponse(t)
	return &resp, nil
}

func (s *typeRegistry) Update(ctx context.Context, code string, req dto.UpdateEntityTypeRequest) (*dto.EntityTypeResponse, error) {
	t, err := s.types.FindByCode(ctx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound("entity type %q not found", code)
	}
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		t.Name = *req.Name
	}
	if req.Description != nil {
		t.Description = req.Description
	}
	if req.Icon != nil {
		t.Icon = req.Icon
	}
	if req.Color != nil {
		t.Color = req.Color
	}
	if req.CanContainChildren != nil {
		t.CanContainChildren = *req.CanContainChildren
	}
	if req.CanBeChild != nil {
		t.CanBeChild = *req.CanBeChild
	}
	if req.AllowedParentTypes != nil {
		t.AllowedParentTypes = orEmpty(*req.AllowedParentTypes)
	}
	if req.AllowedChildTypes != nil {
		t.AllowedChildTypes = orEmpty(*req.AllowedChildTypes)
	}
	if req.AvailableStatuses != nil {
		t.AvailableStatuses = orEmpty(*req.AvailableStatuses)
	}
	if req.DefaultStatus != nil {
		t.DefaultStatus = req.DefaultStatus
	}
	if req.SortOrder != nil {
		t.SortOrder = *req.SortOrder
	}
	if req.IsActive != nil {
		if t.IsBuiltin && !*req.IsActive {
			return nil, ErrConflict("built-in type %q cannot be disabled", code)
		}
		t.IsActive = *req.IsActive
	}
	if t.DefaultStatus != nil && *t.DefaultStatus != "" && !t.HasStatus(t.DefaultStatus) {
		return nil, ErrValidation("default status %q is not in available statuses", *t.DefaultStatus)
	}

	if err := s.types.Update(ctx, t); err != nil {
		return nil, err
	}
	resp := toEntityTypeResponse(t)
	return &resp, nil
}

func (s *typeRegistry) Delete(ctx context.Context, code string) error {
	t, err := s.types.FindByCode(ctx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound("entity type %q not found", code)
	}
	if err != nil {
		return err
	}
	if t.IsBuiltin {
		return ErrConflict("built-in type %q cannot be deleted", code)
	}

	inUse, err := s.entities.CountByType(ctx, code)
	if err != nil {
		return err
	}
	if inUse > 0 {
		return ErrConflict("entity type %q is in use by %d entities", code, inUse)
	}

	if err := s.types.DeleteByCode(ctx, code); err != nil {
		return err
	}
	log.Info().Str("code", code).Msg("entity type deleted")
	return nil
}

func (s *typeRegistry) EnsureDefaults(ctx context.Context) error {
	return s.types.EnsureDefaults(ctx)
}

func orEmpty(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func toEntityTypeResponse(t *model.EntityType) dto.EntityTypeResponse {
	return dto.EntityTypeResponse{
		Code:               t.Code,
		Name:               t.Name,
		Description:        t.Description,
		Icon:               t.Icon,
		Color:              t.Color,
		CanContainChildren: t.CanContainChildren,
		CanBeChild:         t.CanBeChild,
		AllowedParentTypes: t.AllowedParentTypes,
		AllowedChildTypes:  t.AllowedChildTypes,
		AvailableStatuses:  t.AvailableStatuses,
		DefaultStatus:      t.DefaultStatus,
		SortOrder:          t.SortOrder,
		IsActive:           t.IsActive,
		IsBuiltin:          t.IsBuiltin,
	}
}
