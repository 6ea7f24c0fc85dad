package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tea-tech/simple-inventory/internal/dto"
	"github.com/tea-tech/simple-inventory/internal/model"
	"github.com/tea-tech/simple-inventory/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// maxNestingDepth bounds the parent chain walk so a corrupted tree can never
// hang an operation.
const maxNestingDepth = 64

// EntityService is the operations engine. Every mutation runs in a single
// transaction that also appends the matching history rows, so an operation is
// either fully applied and fully recorded or not applied at all.
type EntityService interface {
	Create(ctx context.Context, req dto.CreateEntityRequest, userID *uuid.UUID) (*dto.EntityResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.EntityResponse, error)
	GetByBarcode(ctx context.Context, barcode string) (*dto.EntityResponse, error)
	List(ctx context.Context, filter dto.EntityFilter) (*dto.EntityListResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateEntityRequest, userID *uuid.UUID) (*dto.EntityResponse, error)
	Delete(ctx context.Context, id uuid.UUID, force bool, userID *uuid.UUID) error

	Move(ctx context.Context, id uuid.UUID, req dto.MoveEntityRequest, userID *uuid.UUID) (*dto.EntityResponse, error)
	Convert(ctx context.Context, id uuid.UUID, req dto.ConvertEntityRequest, userID *uuid.UUID) (*dto.EntityResponse, error)
	Split(ctx context.Context, id uuid.UUID, req dto.SplitEntityRequest, userID *uuid.UUID) (*dto.EntityResponse, error)
	Merge(ctx context.Context, targetID uuid.UUID, req dto.MergeEntitiesRequest, userID *uuid.UUID) (*dto.EntityResponse, error)
	AdjustQuantity(ctx context.Context, id uuid.UUID, req dto.AdjustQuantityRequest, userID *uuid.UUID) (*dto.EntityResponse, error)

	AddChild(ctx context.Context, parentID uuid.UUID, req dto.AddChildRequest, userID *uuid.UUID) (*dto.RelationResponse, error)
	RemoveChild(ctx context.Context, parentID, childID uuid.UUID, returnQuantity bool, userID *uuid.UUID) error
	UpdateRelation(ctx context.Context, relationID uuid.UUID, req dto.UpdateRelationRequest, userID *uuid.UUID) (*dto.RelationResponse, error)
	ListChildren(ctx context.Context, parentID uuid.UUID) ([]dto.EntityResponse, error)
	ListRelations(ctx context.Context, parentID uuid.UUID) ([]dto.RelationResponse, error)

	ListHistory(ctx context.Context, entityID uuid.UUID, page, limit int) (*dto.HistoryListResponse, error)
}

type entityService struct {
	entities   repository.EntityRepository
	warehouses repository.WarehouseRepository
	registry   TypeRegistry
}

func NewEntityService(entities repository.EntityRepository, warehouses repository.WarehouseRepository, registry TypeRegistry) EntityService {
	return &entityService{entities: entities, warehouses: warehouses, registry: registry}
}

func (s *entityService) runTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.entities.Transact(ctx, fn)
}

// ── CRUD ─────────────────────────────────────────────────────────────────────

func (s *entityService) Create(ctx context.Context, req dto.CreateEntityRequest, userID *uuid.UUID) (*dto.EntityResponse, error) {
	etype, err := s.registry.ResolveActive(ctx, req.EntityType)
	if err != nil {
		return nil, err
	}

	if _, err := s.entities.FindByBarcode(ctx, req.Barcode); err == nil {
		return nil, ErrConflict("barcode %q is already in use", req.Barcode)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	warehouseID, parentID, err := s.resolveLocation(ctx, req.WarehouseID, req.ParentID)
	if err != nil {
		return nil, err
	}
	if parentID != nil {
		parent, err := s.mustFind(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if err := s.registry.CanNest(ctx, parent.EntityType, req.EntityType); err != nil {
			return nil, err
		}
	}

	status := req.Status
	if status == nil {
		status = etype.DefaultStatus
	}
	if err := s.registry.ValidateStatus(ctx, req.EntityType, status); err != nil {
		return nil, err
	}

	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}

	e := &model.Entity{
		Barcode:       req.Barcode,
		OriginBarcode: req.OriginBarcode,
		Name:          req.Name,
		Description:   req.Description,
		EntityType:    req.EntityType,
		Quantity:      quantity,
		Price:         req.Price,
		WarehouseID:   warehouseID,
		ParentID:      parentID,
		Status:        status,
		CustomFields:  req.CustomFields,
	}

	err = s.runTx(ctx, func(tx *gorm.DB) error {
		if err := s.entities.CreateTx(tx, e); err != nil {
			return err
		}
		return s.entities.AppendHistoryTx(tx, &model.EntityHistory{
			EntityID:  e.ID,
			Operation: model.OpCreate,
			Details:   map[string]interface{}{"barcode": e.Barcode, "entity_type": e.EntityType, "quantity": e.Quantity},
			UserID:    userID,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("entity_id", e.ID.String()).Str("barcode", e.Barcode).Msg("entity created")
	return s.respond(ctx, e)
}

func (s *entityService) Get(ctx context.Context, id uuid.UUID) (*dto.EntityResponse, error) {
	e, err := s.mustFind(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, e)
}

func (s *entityService) GetByBarcode(ctx context.Context, barcode string) (*dto.EntityResponse, error) {
	e, err := s.entities.FindByBarcode(ctx, barcode)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound("no entity with barcode %q", barcode)
	}
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, e)
}

func (s *entityService) List(ctx context.Context, filter dto.EntityFilter) (*dto.EntityListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 200 {
		filter.Limit = 50
	}
	entities, total, err := s.entities.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.EntityResponse, 0, len(entities))
	for i := range entities {
		resp, err := s.respond(ctx, &entities[i])
		if err != nil {
			return nil, err
		}
		data = append(data, *resp)
	}
	return &dto.EntityListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *entityService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateEntityRequest, userID *uuid.UUID) (*dto.EntityResponse, error) {
	e, err := s.mustFind(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]interface{}{}

	if req.Barcode != nil && *req.Barcode != e.Barcode {
		if other, err := s.entities.FindByBarcode(ctx, *req.Barcode); err == nil && other.ID != e.ID {
			return nil, ErrConflict("barcode %q is already in use", *req.Barcode)
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		changes["barcode"] = map[string]interface{}{"from": e.Barcode, "to": *req.Barcode}
		e.Barcode = *req.Barcode
	}
	if req.OriginBarcode != nil {
		e.OriginBarcode = req.OriginBarcode
		changes["origin_barcode"] = *req.OriginBarcode
	}
	if req.Name != nil && *req.Name != e.Name {
		changes["name"] = map[string]interface{}{"from": e.Name, "to": *req.Name}
		e.Name = *req.Name
	}
	if req.Description != nil {
		e.Description = req.Description
		changes["description"] = *req.Description
	}
	if req.Price != nil {
		e.Price = req.Price
		changes["price"] = req.Price.String()
	}
	if req.Status != nil {
		if err := s.registry.ValidateStatus(ctx, e.EntityType, req.Status); err != nil {
			return nil, err
		}
		changes["status"] = map[string]interface{}{"from": strOrNil(e.Status), "to": *req.Status}
		e.Status = req.Status
	}
	if req.CustomFields != nil {
		e.CustomFields = req.CustomFields
		changes["custom_fields"] = "updated"
	}

	var quantityDelta *int
	if req.Quantity != nil && *req.Quantity != e.Quantity {
		d := *req.Quantity - e.Quantity
		quantityDelta = &d
		changes["quantity"] = map[string]interface{}{"from": e.Quantity, "to": *req.Quantity}
		e.Quantity = *req.Quantity
	}

	if len(changes) == 0 {
		return s.respond(ctx, e)
	}

	err = s.runTx(ctx, func(tx *gorm.DB) error {
		if err := s.entities.SaveTx(tx, e); err != nil {
			return err
		}
		op := model.OpUpdate
		if quantityDelta != nil && len(changes) == 1 {
			op = model.OpQuantityChange
		}
		return s.entities.AppendHistoryTx(tx, &model.EntityHistory{
			EntityID:  e.ID,
			Operation: op,
			Details:   changes,
			UserID:    userID,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, e)
}

// Delete removes an entity. An entity holding physical children or active
// relation claims (on either side) is only deleted with force: the claims are
// voided, and physical children are released to the deleted entity's own
// location.
func (s *entityService) Delete(ctx context.Context, id uuid.UUID, force bool, userID *uuid.UUID) error {
	e, err := s.mustFind(ctx, id)
	if err != nil {
		return err
	}

	children, err := s.entities.ListChildren(ctx, id)
	if err != nil {
		return err
	}
	asParent, err := s.entities.ListRelationsByParent(ctx, id)
	if err != nil {
		return err
	}
	asChild, err := s.entities.ListRelationsByChild(ctx, id)
	if err != nil {
		return err
	}

	if !force {
		if len(children) > 0 {
			return ErrConflict("entity %q still holds %d children, use force or remove them first", e.Barcode, len(children))
		}
		if len(asParent)+len(asChild) > 0 {
			return ErrConflict("entity %q has %d active relations, use force or remove them first", e.Barcode, len(asParent)+len(asChild))
		}
	}

	return s.runTx(ctx, func(tx *gorm.DB) error {
		for i := range children {
			child := children[i]
			child.WarehouseID = e.WarehouseID
			child.ParentID = e.ParentID
			if err := s.entities.SaveTx(tx, &child); err != nil {
				return err
			}
		}
		for _, rel := range asParent {
			if err := s.entities.DeleteRelationTx(tx, rel.ID); err != nil {
				return err
			}
		}
		for _, rel := range asChild {
			if err := s.entities.DeleteRelationTx(tx, rel.ID); err != nil {
				return err
			}
		}
		if err := s.entities.AppendHistoryTx(tx, &model.EntityHistory{
			EntityID:  e.ID,
			Operation: model.OpDelete,
			Details: map[string]interface{}{
				"barcode": e.Barcode, "name": e.Name, "force": force,
				"children_released": len(children), "relations_voided": len(asParent) + len(asChild),
			},
			UserID: userID,
		}); err != nil {
			return err
		}
		return s.entities.DeleteTx(tx, id)
	})
}

// ── Operations ───────────────────────────────────────────────────────────────

// Move relocates an entity into a warehouse or under a parent. A partial
// quantity turns the move into an implicit split: the moved portion becomes a
// new entity at the target and the source keeps the remainder. A partial
// quantity with no target splits in place.
func (s *entityService) Move(ctx context.Context, id uuid.UUID, req dto.MoveEntityRequest, userID *uuid.UUID) (*dto.EntityResponse, error) {
	e, err := s.mustFind(ctx, id)
	if err != nil {
		return nil, err
	}

	warehouseID, parentID, err := s.resolveLocation(ctx, req.TargetWarehouseID, req.TargetParentID)
	if err != nil {
		return nil, err
	}
	if warehouseID == nil && parentID == nil && req.Quantity == nil {
		return nil, ErrValidation("move requires a target warehouse or parent")
	}
	if parentID != nil {
		if err := s.checkNestTarget(ctx, e, *parentID); err != nil {
			return nil, err
		}
	}

	if req.Quantity != nil && *req.Quantity < e.Quantity {
		return s.splitTo(ctx, e, *req.Quantity, splitBarcode(e.Barcode), warehouseID, parentID, userID)
	}
	if req.Quantity != nil && *req.Quantity > e.Quantity {
		return nil, ErrInsufficientQuantity("cannot move %d of %d units", *req.Quantity, e.Quantity)
	}
	if warehouseID == nil && parentID == nil {
		return nil, ErrValidation("move requires a target warehouse or parent")
	}

	from := locationLabel(e.WarehouseID, e.ParentID)
	e.WarehouseID = warehouseID
	e.ParentID = parentID

	err = s.runTx(ctx, func(tx *gorm.DB) error {
		if err := s.entities.SaveTx(tx, e); err != nil {
			return err
		}
		return s.entities.AppendHistoryTx(tx, &model.EntityHistory{
			EntityID:        e.ID,
			Operation:       model.OpMove,
			RelatedEntityID: parentID,
			Details:         map[string]interface{}{"from": from, "to": locationLabel(warehouseID, parentID)},
			UserID:          userID,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, e)
}

// Convert changes an entity's type. The new type must tolerate the entity's
// current surroundings: its physical children and its current parent.
func (s *entityService) Convert(ctx context.Context, id uuid.UUID, req dto.ConvertEntityRequest, userID *uuid.UUID) (*dto.EntityResponse, error) {
	e, err := s.mustFind(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.EntityType == req.NewType {
		return nil, ErrValidation("entity is already of type %q", req.NewType)
	}
	newType, err := s.registry.ResolveActive(ctx, req.NewType)
	if err != nil {
		return nil, err
	}

	children, err := s.entities.ListChildren(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(children) > 0 {
		if !newType.CanContainChildren {
			return nil, ErrIncompatibleConversion("type %q cannot hold the entity's %d children", req.NewType, len(children))
		}
		for i := range children {
			if !newType.AllowsChild(children[i].EntityType) {
				return nil, ErrIncompatibleConversion("type %q does not accept children of type %q", req.NewType, children[i].EntityType)
			}
		}
	}
	rels, err := s.entities.ListRelationsByParent(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(rels) > 0 && !newType.CanContainChildren {
		return nil, ErrIncompatibleConversion("type %q cannot hold the entity's %d content claims", req.NewType, len(rels))
	}
	if e.ParentID != nil {
		parent, err := s.mustFind(ctx, *e.ParentID)
		if err != nil {
			return nil, err
		}
		if err := s.registry.CanNest(ctx, parent.EntityType, req.NewType); err != nil {
			return nil, ErrIncompatibleConversion("type %q cannot stay under parent of type %q", req.NewType, parent.EntityType)
		}
	}

	status := req.NewStatus
	if status == nil {
		status = newType.DefaultStatus
	}
	if !newType.HasStatus(status) {
		return nil, ErrValidation("status %q is not valid for type %q", *status, req.NewType)
	}

	oldType, oldStatus := e.EntityType, e.Status
	e.EntityType = req.NewType
	e.Status = status

	err = s.runTx(ctx, func(tx *gorm.DB) error {
		if err := s.entities.SaveTx(tx, e); err != nil {
			return err
		}
		return s.entities.AppendHistoryTx(tx, &model.EntityHistory{
			EntityID:  e.ID,
			Operation: model.OpConvert,
			Details: map[string]interface{}{
				"from_type": oldType, "to_type": req.NewType,
				"from_status": strOrNil(oldStatus), "to_status": strOrNil(status),
			},
			UserID: userID,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, e)
}

func (s *entityService) Split(ctx context.Context, id uuid.UUID, req dto.SplitEntityRequest, userID *uuid.UUID) (*dto.EntityResponse, error) {
	e, err := s.mustFind(ctx, id)
	if err != nil {
		return nil, err
	}
	warehouseID, parentID, err := s.resolveLocation(ctx, req.TargetWarehouseID, req.TargetParentID)
	if err != nil {
		return nil, err
	}
	if parentID != nil {
		if err := s.checkNestTarget(ctx, e, *parentID); err != nil {
			return nil, err
		}
	}
	return s.splitTo(ctx, e, req.Quantity, req.NewBarcode, warehouseID, parentID, userID)
}

// splitTo carves quantity units off e into a new entity at the given location
// (source location when none is given). Quantity is conserved: source plus
// split always equals the original total.
func (s *entityService) splitTo(ctx context.Context, e *model.Entity, quantity int, newBarcode string, warehouseID, parentID *uuid.UUID, userID *uuid.UUID) (*dto.EntityResponse, error) {
	if quantity <= 0 {
		return nil, ErrValidation("split quantity must be positive")
	}
	if quantity >= e.Quantity {
		return nil, ErrInsufficientQuantity("cannot split %d of %d units", quantity, e.Quantity)
	}
	if _, err := s.entities.FindByBarcode(ctx, newBarcode); err == nil {
		return nil, ErrConflict("barcode %q is already in use", newBarcode)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if warehouseID == nil && parentID == nil {
		warehouseID, parentID = e.WarehouseID, e.ParentID
	}

	split := &model.Entity{
		Barcode:       newBarcode,
		OriginBarcode: e.OriginBarcode,
		Name:          e.Name,
		Description:   e.Description,
		EntityType:    e.EntityType,
		Quantity:      quantity,
		Price:         e.Price,
		WarehouseID:   warehouseID,
		ParentID:      parentID,
		Status:        e.Status,
		CustomFields:  e.CustomFields,
	}
	e.Quantity -= quantity

	err := s.runTx(ctx, func(tx *gorm.DB) error {
		if err := s.entities.CreateTx(tx, split); err != nil {
			return err
		}
		if err := s.entities.SaveTx(tx, e); err != nil {
			return err
		}
		if err := s.entities.AppendHistoryTx(tx, &model.EntityHistory{
			EntityID:        e.ID,
			Operation:       model.OpSplit,
			RelatedEntityID: &split.ID,
			Details:         map[string]interface{}{"role": "source", "quantity": quantity, "remaining": e.Quantity},
			UserID:          userID,
		}); err != nil {
			return err
		}
		return s.entities.AppendHistoryTx(tx, &model.EntityHistory{
			EntityID:        split.ID,
			Operation:       model.OpSplit,
			RelatedEntityID: &e.ID,
			Details:         map[string]interface{}{"role": "result", "quantity": quantity, "source_barcode": e.Barcode},
			UserID:          userID,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("source", e.Barcode).Str("split", split.Barcode).Int("quantity", quantity).Msg("entity split")
	return s.respond(ctx, split)
}

// Merge absorbs the source entities into the target: quantities are summed,
// physical children and content claims are reparented, and the sources are
// deleted. Incompatible sources reject the whole merge before anything moves.
func (s *entityService) Merge(ctx context.Context, targetID uuid.UUID, req dto.MergeEntitiesRequest, userID *uuid.UUID) (*dto.EntityResponse, error) {
	target, err := s.mustFind(ctx, targetID)
	if err != nil {
		return nil, err
	}

	sources := make([]*model.Entity, 0, len(req.SourceEntityIDs))
	var incompatible []string
	for _, raw := range req.SourceEntityIDs {
		sid, err := uuid.Parse(raw)
		if err != nil {
			return nil, ErrValidation("invalid source entity id %q", raw)
		}
		if sid == targetID {
			return nil, ErrValidation("entity cannot be merged into itself")
		}
		src, err := s.mustFind(ctx, sid)
		if err != nil {
			return nil, err
		}
		if src.EntityType != target.EntityType {
			incompatible = append(incompatible, fmt.Sprintf("%s (type %s)", src.Barcode, src.EntityType))
			continue
		}
		sources = append(sources, src)
	}
	if len(incompatible) > 0 {
		return nil, ErrPartialMerge("sources incompatible with target type %q: %s",
			target.EntityType, strings.Join(incompatible, ", "))
	}

	mergedIDs := make([]string, 0, len(sources))
	err = s.runTx(ctx, func(tx *gorm.DB) error {
		for _, src := range sources {
			target.Quantity += src.Quantity

			// Physical children follow the merge.
			if err := s.entities.ReparentChildrenTx(tx, src.ID, target.ID); err != nil {
				return err
			}

			// Content claims held by the source move to the target; claims
			// on the source now point at the target. Duplicate claims are
			// folded by summing quantities. Reads go through the transaction
			// so relations re-pointed for an earlier source are visible here.
			srcRels, err := s.entities.ListRelationsByParentTx(tx, src.ID)
			if err != nil {
				return err
			}
			for i := range srcRels {
				rel := srcRels[i]
				existing, err := s.entities.FindRelationTx(tx, target.ID, rel.ChildID)
				if err == nil {
					existing.Quantity += rel.Quantity
					if err := s.entities.SaveRelationTx(tx, existing); err != nil {
						return err
					}
					if err := s.entities.DeleteRelationTx(tx, rel.ID); err != nil {
						return err
					}
					continue
				}
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return err
				}
				rel.ParentID = target.ID
				rel.Child = nil
				if err := s.entities.SaveRelationTx(tx, &rel); err != nil {
					return err
				}
			}
			if err := s.entities.ReassignRelationChildTx(tx, src.ID, target.ID); err != nil {
				return err
			}

			if err := s.entities.AppendHistoryTx(tx, &model.EntityHistory{
				EntityID:        target.ID,
				Operation:       model.OpMerge,
				RelatedEntityID: &src.ID,
				Details:         map[string]interface{}{"source_barcode": src.Barcode, "quantity_absorbed": src.Quantity},
				UserID:          userID,
			}); err != nil {
				return err
			}
			if err := s.entities.DeleteTx(tx, src.ID); err != nil {
				return err
			}
			mergedIDs = append(mergedIDs, src.ID.String())
		}
		return s.entities.SaveTx(tx, target)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("target", target.Barcode).Strs("sources", mergedIDs).Msg("entities merged")
	return s.respond(ctx, target)
}

func (s *entityService) AdjustQuantity(ctx context.Context, id uuid.UUID, req dto.AdjustQuantityRequest, userID *uuid.UUID) (*dto.EntityResponse, error) {
	e, err := s.mustFind(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Delta == 0 {
		return nil, ErrValidation("delta must be non-zero")
	}
	next := e.Quantity + req.Delta
	if next < 0 {
		return nil, ErrInsufficientQuantity("cannot remove %d of %d units", -req.Delta, e.Quantity)
	}
	before := e.Quantity
	e.Quantity = next

	err = s.runTx(ctx, func(tx *gorm.DB) error {
		if err := s.entities.SaveTx(tx, e); err != nil {
			return err
		}
		return s.entities.AppendHistoryTx(tx, &model.EntityHistory{
			EntityID:  e.ID,
			Operation: model.OpQuantityChange,
			Details:   map[string]interface{}{"delta": req.Delta, "from": before, "to": next},
			UserID:    userID,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, e)
}

// ── Relation claims ──────────────────────────────────────────────────────────

// AddChild records a content claim on the parent. With RemoveFromSource the
// claimed units are taken off the child's stock; the child survives at zero
// quantity so its identity and history remain addressable.
func (s *entityService) AddChild(ctx context.Context, parentID uuid.UUID, req dto.AddChildRequest, userID *uuid.UUID) (*dto.RelationResponse, error) {
	parent, err := s.mustFind(ctx, parentID)
	if err != nil {
		return nil, err
	}
	ptype, err := s.registry.Resolve(ctx, parent.EntityType)
	if err != nil {
		return nil, err
	}
	if !ptype.CanContainChildren {
		return nil, ErrInvalidTarget("type %q cannot contain children", parent.EntityType)
	}

	var child *model.Entity
	switch {
	case req.ChildBarcode != "":
		child, err = s.entities.FindByBarcode(ctx, req.ChildBarcode)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound("no entity with barcode %q", req.ChildBarcode)
		}
	case req.ChildID != nil:
		cid, perr := uuid.Parse(*req.ChildID)
		if perr != nil {
			return nil, ErrValidation("invalid child id %q", *req.ChildID)
		}
		child, err = s.mustFind(ctx, cid)
	default:
		return nil, ErrValidation("child_barcode or child_id is required")
	}
	if err != nil {
		return nil, err
	}
	if child.ID == parent.ID {
		return nil, ErrInvalidTarget("entity cannot contain itself")
	}
	if !ptype.AllowsChild(child.EntityType) {
		return nil, ErrInvalidTarget("type %q does not accept children of type %q", parent.EntityType, child.EntityType)
	}
	if req.RemoveFromSource && child.Quantity < req.Quantity {
		return nil, ErrInsufficientQuantity("child has %d units, %d requested", child.Quantity, req.Quantity)
	}

	snapshot := req.PriceSnapshot
	if snapshot == nil {
		snapshot = child.Price
	}

	var rel *model.EntityRelation
	existing, err := s.entities.FindRelation(ctx, parent.ID, child.ID)
	switch {
	case err == nil:
		rel = existing
		rel.Quantity += req.Quantity
		if req.Notes != nil {
			rel.Notes = req.Notes
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		rel = &model.EntityRelation{
			ParentID:      parent.ID,
			ChildID:       child.ID,
			Quantity:      req.Quantity,
			PriceSnapshot: snapshot,
			Notes:         req.Notes,
		}
	default:
		return nil, err
	}

	err = s.runTx(ctx, func(tx *gorm.DB) error {
		if rel.ID == uuid.Nil {
			if err := s.entities.CreateRelationTx(tx, rel); err != nil {
				return err
			}
		} else {
			if err := s.entities.SaveRelationTx(tx, rel); err != nil {
				return err
			}
		}
		if req.RemoveFromSource {
			child.Quantity -= req.Quantity
			if err := s.entities.SaveTx(tx, child); err != nil {
				return err
			}
		}
		// A fresh claims holder starts filling up: new advances to sourcing.
		if parent.Status != nil && *parent.Status == "new" && ptype.HasStatus(strPtrOf("sourcing")) {
			sourcing := "sourcing"
			parent.Status = &sourcing
			if err := s.entities.SaveTx(tx, parent); err != nil {
				return err
			}
		}
		return s.entities.AppendHistoryTx(tx, &model.EntityHistory{
			EntityID:        parent.ID,
			Operation:       model.OpAddChild,
			RelatedEntityID: &child.ID,
			Details: map[string]interface{}{
				"child_barcode": child.Barcode, "quantity": req.Quantity,
				"remove_from_source": req.RemoveFromSource,
			},
			UserID: userID,
		})
	})
	if err != nil {
		return nil, err
	}

	rel.Child = child
	resp := toRelationResponse(rel)
	return &resp, nil
}

// RemoveChild deletes a content claim. With returnQuantity the claimed units
// flow back onto the child's stock.
func (s *entityService) RemoveChild(ctx context.Context, parentID, childID uuid.UUID, returnQuantity bool, userID *uuid.UUID) error {
	rel, err := s.entities.FindRelation(ctx, parentID, childID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound("no such child relation")
	}
	if err != nil {
		return err
	}
	child, err := s.mustFind(ctx, childID)
	if err != nil {
		return err
	}

	return s.runTx(ctx, func(tx *gorm.DB) error {
		if err := s.entities.DeleteRelationTx(tx, rel.ID); err != nil {
			return err
		}
		if returnQuantity {
			child.Quantity += rel.Quantity
			if err := s.entities.SaveTx(tx, child); err != nil {
				return err
			}
		}
		return s.entities.AppendHistoryTx(tx, &model.EntityHistory{
			EntityID:        parentID,
			Operation:       model.OpRemoveChild,
			RelatedEntityID: &childID,
			Details: map[string]interface{}{
				"child_barcode": child.Barcode, "quantity": rel.Quantity,
				"return_quantity": returnQuantity,
			},
			UserID: userID,
		})
	})
}

func (s *entityService) UpdateRelation(ctx context.Context, relationID uuid.UUID, req dto.UpdateRelationRequest, userID *uuid.UUID) (*dto.RelationResponse, error) {
	rel, err := s.entities.FindRelationByID(ctx, relationID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound("relation not found")
	}
	if err != nil {
		return nil, err
	}

	details := map[string]interface{}{}
	if req.Quantity != nil && *req.Quantity != rel.Quantity {
		details["quantity"] = map[string]interface{}{"from": rel.Quantity, "to": *req.Quantity}
		rel.Quantity = *req.Quantity
	}
	if req.Notes != nil {
		rel.Notes = req.Notes
		details["notes"] = *req.Notes
	}
	if len(details) == 0 {
		child, err := s.mustFind(ctx, rel.ChildID)
		if err != nil {
			return nil, err
		}
		rel.Child = child
		resp := toRelationResponse(rel)
		return &resp, nil
	}

	err = s.runTx(ctx, func(tx *gorm.DB) error {
		if err := s.entities.SaveRelationTx(tx, rel); err != nil {
			return err
		}
		return s.entities.AppendHistoryTx(tx, &model.EntityHistory{
			EntityID:        rel.ParentID,
			Operation:       model.OpUpdate,
			RelatedEntityID: &rel.ChildID,
			Details:         details,
			UserID:          userID,
		})
	})
	if err != nil {
		return nil, err
	}

	child, err := s.mustFind(ctx, rel.ChildID)
	if err != nil {
		return nil, err
	}
	rel.Child = child
	resp := toRelationResponse(rel)
	return &resp, nil
}

func (s *entityService) ListChildren(ctx context.Context, parentID uuid.UUID) ([]dto.EntityResponse, error) {
	if _, err := s.mustFind(ctx, parentID); err != nil {
		return nil, err
	}
	children, err := s.entities.ListChildren(ctx, parentID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.EntityResponse, 0, len(children))
	for i := range children {
		resp, err := s.respond(ctx, &children[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *resp)
	}
	return out, nil
}

func (s *entityService) ListRelations(ctx context.Context, parentID uuid.UUID) ([]dto.RelationResponse, error) {
	if _, err := s.mustFind(ctx, parentID); err != nil {
		return nil, err
	}
	rels, err := s.entities.ListRelationsByParent(ctx, parentID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.RelationResponse, 0, len(rels))
	for i := range rels {
		out = append(out, toRelationResponse(&rels[i]))
	}
	return out, nil
}

func (s *entityService) ListHistory(ctx context.Context, entityID uuid.UUID, page, limit int) (*dto.HistoryListResponse, error) {
	if _, err := s.mustFind(ctx, entityID); err != nil {
		return nil, err
	}
	rows, total, err := s.entities.ListHistory(ctx, entityID, page, limit)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 50
	}
	data := make([]dto.HistoryResponse, 0, len(rows))
	for i := range rows {
		h := &rows[i]
		var related *string
		if h.RelatedEntityID != nil {
			v := h.RelatedEntityID.String()
			related = &v
		}
		var user *string
		if h.UserID != nil {
			v := h.UserID.String()
			user = &v
		}
		data = append(data, dto.HistoryResponse{
			ID:              h.ID.String(),
			EntityID:        h.EntityID.String(),
			Operation:       h.Operation,
			RelatedEntityID: related,
			Details:         h.Details,
			UserID:          user,
			CreatedAt:       h.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return &dto.HistoryListResponse{Data: data, Total: total, Page: page, Limit: limit}, nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func (s *entityService) mustFind(ctx context.Context, id uuid.UUID) (*model.Entity, error) {
	e, err := s.entities.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound("entity %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// resolveLocation enforces the location invariant: at most one of warehouse
// and parent, and both must exist.
func (s *entityService) resolveLocation(ctx context.Context, warehouseID, parentID *string) (*uuid.UUID, *uuid.UUID, error) {
	if warehouseID != nil && *warehouseID != "" && parentID != nil && *parentID != "" {
		return nil, nil, ErrValidation("warehouse and parent are mutually exclusive")
	}
	if warehouseID != nil && *warehouseID != "" {
		wid, err := uuid.Parse(*warehouseID)
		if err != nil {
			return nil, nil, ErrValidation("invalid warehouse id %q", *warehouseID)
		}
		if _, err := s.warehouses.FindByID(ctx, wid); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, ErrInvalidTarget("warehouse %s not found", wid)
			}
			return nil, nil, err
		}
		return &wid, nil, nil
	}
	if parentID != nil && *parentID != "" {
		pid, err := uuid.Parse(*parentID)
		if err != nil {
			return nil, nil, ErrValidation("invalid parent id %q", *parentID)
		}
		return nil, &pid, nil
	}
	return nil, nil, nil
}

// checkNestTarget validates that e may be physically nested under the target
// parent: the parent exists, types allow the nesting, and the move would not
// create a containment cycle.
func (s *entityService) checkNestTarget(ctx context.Context, e *model.Entity, parentID uuid.UUID) error {
	if parentID == e.ID {
		return ErrInvalidTarget("entity cannot contain itself")
	}
	parent, err := s.entities.FindByID(ctx, parentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInvalidTarget("parent %s not found", parentID)
	}
	if err != nil {
		return err
	}
	if err := s.registry.CanNest(ctx, parent.EntityType, e.EntityType); err != nil {
		return err
	}

	// Walk the target's ancestor chain; finding e means the move closes a cycle.
	cursor := parent
	for depth := 0; cursor.ParentID != nil; depth++ {
		if depth >= maxNestingDepth {
			return ErrInvalidTarget("nesting too deep")
		}
		if *cursor.ParentID == e.ID {
			return ErrInvalidTarget("move would create a containment cycle")
		}
		cursor, err = s.entities.FindByID(ctx, *cursor.ParentID)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *entityService) respond(ctx context.Context, e *model.Entity) (*dto.EntityResponse, error) {
	physical, claims, err := s.entities.CountChildren(ctx, e.ID)
	if err != nil {
		return nil, err
	}

	var warehouseID, parentID, status *string
	if e.WarehouseID != nil {
		v := e.WarehouseID.String()
		warehouseID = &v
	}
	if e.ParentID != nil {
		v := e.ParentID.String()
		parentID = &v
	}
	if e.Status != nil {
		status = e.Status
	}
	return &dto.EntityResponse{
		ID:            e.ID.String(),
		Barcode:       e.Barcode,
		OriginBarcode: e.OriginBarcode,
		Name:          e.Name,
		Description:   e.Description,
		EntityType:    e.EntityType,
		Quantity:      e.Quantity,
		Price:         e.Price,
		WarehouseID:   warehouseID,
		ParentID:      parentID,
		Status:        status,
		CustomFields:  e.CustomFields,
		ChildrenCount: int(physical + claims),
		CreatedAt:     e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}, nil
}

func toRelationResponse(rel *model.EntityRelation) dto.RelationResponse {
	resp := dto.RelationResponse{
		ID:            rel.ID.String(),
		ParentID:      rel.ParentID.String(),
		ChildID:       rel.ChildID.String(),
		Quantity:      rel.Quantity,
		PriceSnapshot: rel.PriceSnapshot,
		Notes:         rel.Notes,
		CreatedAt:     rel.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if rel.Child != nil {
		resp.ChildBarcode = rel.Child.Barcode
		resp.ChildName = rel.Child.Name
	}
	return resp
}

func locationLabel(warehouseID, parentID *uuid.UUID) string {
	switch {
	case warehouseID != nil:
		return "warehouse:" + warehouseID.String()
	case parentID != nil:
		return "parent:" + parentID.String()
	}
	return "unplaced"
}

func splitBarcode(base string) string {
	return fmt.Sprintf("%s-split-%s", base, uuid.NewString()[:8])
}

func strPtrOf(s string) *string { return &s }

func strOrNil(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
