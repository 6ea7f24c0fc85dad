package service

import (
	"context"
	"strings"
	"time"

	"github.com/tea-tech/simple-inventory/internal/dto"
	"github.com/tea-tech/simple-inventory/internal/model"
	"github.com/tea-tech/simple-inventory/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ── In-memory entity repository ──────────────────────────────────────────────

type stubEntityRepo struct {
	entities  map[uuid.UUID]*model.Entity
	relations map[uuid.UUID]*model.EntityRelation
	history   []model.EntityHistory
	inTx      bool
}

var _ repository.EntityRepository = (*stubEntityRepo)(nil)

func newStubEntityRepo() *stubEntityRepo {
	return &stubEntityRepo{
		entities:  make(map[uuid.UUID]*model.Entity),
		relations: make(map[uuid.UUID]*model.EntityRelation),
	}
}

func copyEntity(e *model.Entity) *model.Entity {
	c := *e
	return &c
}

// guardTx enforces the repository contract: inside a transaction every read
// must go through a Tx variant, or it would miss the transaction's own writes
// on a real database.
func (r *stubEntityRepo) guardTx() {
	if r.inTx {
		panic("non-transactional read inside a transaction, use the Tx variant")
	}
}

func (r *stubEntityRepo) put(e *model.Entity) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	r.entities[e.ID] = copyEntity(e)
}

func (r *stubEntityRepo) Create(ctx context.Context, e *model.Entity) error {
	r.put(e)
	return nil
}

func (r *stubEntityRepo) CreateTx(tx *gorm.DB, e *model.Entity) error {
	r.put(e)
	return nil
}

func (r *stubEntityRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Entity, error) {
	r.guardTx()
	return r.findByID(id)
}

func (r *stubEntityRepo) findByID(id uuid.UUID) (*model.Entity, error) {
	e, ok := r.entities[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copyEntity(e), nil
}

func (r *stubEntityRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Entity, error) {
	return r.findByID(id)
}

func (r *stubEntityRepo) FindByBarcode(ctx context.Context, barcode string) (*model.Entity, error) {
	r.guardTx()
	for _, e := range r.entities {
		if e.Barcode == barcode {
			return copyEntity(e), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubEntityRepo) List(ctx context.Context, filter dto.EntityFilter) ([]model.Entity, int64, error) {
	r.guardTx()
	var out []model.Entity
	for _, e := range r.entities {
		if filter.EntityType != "" && e.EntityType != filter.EntityType {
			continue
		}
		if filter.RootOnly && e.ParentID != nil {
			continue
		}
		if filter.Search != "" && !strings.Contains(e.Name, filter.Search) &&
			!strings.Contains(e.Barcode, filter.Search) {
			continue
		}
		out = append(out, *copyEntity(e))
	}
	return out, int64(len(out)), nil
}

func (r *stubEntityRepo) SaveTx(tx *gorm.DB, e *model.Entity) error {
	r.entities[e.ID] = copyEntity(e)
	return nil
}

func (r *stubEntityRepo) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	delete(r.entities, id)
	return nil
}

func (r *stubEntityRepo) ListChildren(ctx context.Context, parentID uuid.UUID) ([]model.Entity, error) {
	r.guardTx()
	var out []model.Entity
	for _, e := range r.entities {
		if e.ParentID != nil && *e.ParentID == parentID {
			out = append(out, *copyEntity(e))
		}
	}
	return out, nil
}

func (r *stubEntityRepo) ListAll(ctx context.Context, entityType string) ([]model.Entity, error) {
	var out []model.Entity
	for _, e := range r.entities {
		if entityType != "" && e.EntityType != entityType {
			continue
		}
		out = append(out, *copyEntity(e))
	}
	return out, nil
}

func (r *stubEntityRepo) CountChildren(ctx context.Context, parentID uuid.UUID) (int64, int64, error) {
	var physical, claims int64
	for _, e := range r.entities {
		if e.ParentID != nil && *e.ParentID == parentID {
			physical++
		}
	}
	for _, rel := range r.relations {
		if rel.ParentID == parentID {
			claims++
		}
	}
	return physical, claims, nil
}

func (r *stubEntityRepo) CountByType(ctx context.Context, code string) (int64, error) {
	var n int64
	for _, e := range r.entities {
		if e.EntityType == code {
			n++
		}
	}
	return n, nil
}

func (r *stubEntityRepo) ReparentChildrenTx(tx *gorm.DB, from, to uuid.UUID) error {
	for _, e := range r.entities {
		if e.ParentID != nil && *e.ParentID == from {
			pid := to
			e.ParentID = &pid
		}
	}
	return nil
}

func (r *stubEntityRepo) ReassignRelationChildTx(tx *gorm.DB, from, to uuid.UUID) error {
	for _, rel := range r.relations {
		if rel.ChildID == from {
			rel.ChildID = to
		}
	}
	return nil
}

func copyRelation(rel *model.EntityRelation) *model.EntityRelation {
	c := *rel
	c.Child = nil
	return &c
}

func (r *stubEntityRepo) CreateRelationTx(tx *gorm.DB, rel *model.EntityRelation) error {
	if rel.ID == uuid.Nil {
		rel.ID = uuid.New()
	}
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = time.Now()
	}
	r.relations[rel.ID] = copyRelation(rel)
	return nil
}

func (r *stubEntityRepo) SaveRelationTx(tx *gorm.DB, rel *model.EntityRelation) error {
	r.relations[rel.ID] = copyRelation(rel)
	return nil
}

func (r *stubEntityRepo) DeleteRelationTx(tx *gorm.DB, id uuid.UUID) error {
	delete(r.relations, id)
	return nil
}

func (r *stubEntityRepo) FindRelationByID(ctx context.Context, id uuid.UUID) (*model.EntityRelation, error) {
	r.guardTx()
	rel, ok := r.relations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copyRelation(rel), nil
}

func (r *stubEntityRepo) FindRelation(ctx context.Context, parentID, childID uuid.UUID) (*model.EntityRelation, error) {
	r.guardTx()
	return r.findRelation(parentID, childID)
}

func (r *stubEntityRepo) FindRelationTx(tx *gorm.DB, parentID, childID uuid.UUID) (*model.EntityRelation, error) {
	return r.findRelation(parentID, childID)
}

func (r *stubEntityRepo) findRelation(parentID, childID uuid.UUID) (*model.EntityRelation, error) {
	for _, rel := range r.relations {
		if rel.ParentID == parentID && rel.ChildID == childID {
			return copyRelation(rel), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubEntityRepo) ListRelationsByParent(ctx context.Context, parentID uuid.UUID) ([]model.EntityRelation, error) {
	r.guardTx()
	var out []model.EntityRelation
	for _, rel := range r.relations {
		if rel.ParentID == parentID {
			c := *copyRelation(rel)
			if child, ok := r.entities[rel.ChildID]; ok {
				c.Child = copyEntity(child)
			}
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *stubEntityRepo) ListRelationsByParentTx(tx *gorm.DB, parentID uuid.UUID) ([]model.EntityRelation, error) {
	var out []model.EntityRelation
	for _, rel := range r.relations {
		if rel.ParentID == parentID {
			out = append(out, *copyRelation(rel))
		}
	}
	return out, nil
}

func (r *stubEntityRepo) ListRelationsByChild(ctx context.Context, childID uuid.UUID) ([]model.EntityRelation, error) {
	r.guardTx()
	var out []model.EntityRelation
	for _, rel := range r.relations {
		if rel.ChildID == childID {
			out = append(out, *copyRelation(rel))
		}
	}
	return out, nil
}

func (r *stubEntityRepo) AppendHistoryTx(tx *gorm.DB, h *model.EntityHistory) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	h.CreatedAt = time.Now()
	r.history = append(r.history, *h)
	return nil
}

func (r *stubEntityRepo) ListHistory(ctx context.Context, entityID uuid.UUID, page, limit int) ([]model.EntityHistory, int64, error) {
	var out []model.EntityHistory
	for i := len(r.history) - 1; i >= 0; i-- {
		if r.history[i].EntityID == entityID {
			out = append(out, r.history[i])
		}
	}
	return out, int64(len(out)), nil
}

func (r *stubEntityRepo) Transact(ctx context.Context, fn func(tx *gorm.DB) error) error {
	r.inTx = true
	defer func() { r.inTx = false }()
	return fn(nil)
}

// historyOps returns the operations recorded for one entity, oldest first.
func (r *stubEntityRepo) historyOps(id uuid.UUID) []string {
	var ops []string
	for _, h := range r.history {
		if h.EntityID == id {
			ops = append(ops, h.Operation)
		}
	}
	return ops
}

// ── In-memory type repository ────────────────────────────────────────────────

type stubTypeRepo struct {
	types map[string]*model.EntityType
}

var _ repository.EntityTypeRepository = (*stubTypeRepo)(nil)

func newStubTypeRepo() *stubTypeRepo {
	r := &stubTypeRepo{types: make(map[string]*model.EntityType)}
	for _, def := range model.DefaultEntityTypes {
		t := def
		t.ID = uuid.New()
		t.IsActive = true
		t.IsBuiltin = true
		r.types[t.Code] = &t
	}
	return r
}

func (r *stubTypeRepo) Create(ctx context.Context, t *model.EntityType) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	c := *t
	r.types[t.Code] = &c
	return nil
}

func (r *stubTypeRepo) FindByCode(ctx context.Context, code string) (*model.EntityType, error) {
	t, ok := r.types[code]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *t
	return &c, nil
}

func (r *stubTypeRepo) List(ctx context.Context) ([]model.EntityType, error) {
	var out []model.EntityType
	for _, t := range r.types {
		out = append(out, *t)
	}
	return out, nil
}

func (r *stubTypeRepo) Update(ctx context.Context, t *model.EntityType) error {
	c := *t
	r.types[t.Code] = &c
	return nil
}

func (r *stubTypeRepo) DeleteByCode(ctx context.Context, code string) error {
	delete(r.types, code)
	return nil
}

func (r *stubTypeRepo) EnsureDefaults(ctx context.Context) error { return nil }

// ── In-memory warehouse repository ───────────────────────────────────────────

type stubWarehouseRepo struct {
	warehouses map[uuid.UUID]*model.Warehouse
	entities   *stubEntityRepo
}

var _ repository.WarehouseRepository = (*stubWarehouseRepo)(nil)

func newStubWarehouseRepo(entities *stubEntityRepo) *stubWarehouseRepo {
	return &stubWarehouseRepo{warehouses: make(map[uuid.UUID]*model.Warehouse), entities: entities}
}

func (r *stubWarehouseRepo) Create(ctx context.Context, w *model.Warehouse) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	c := *w
	r.warehouses[w.ID] = &c
	return nil
}

func (r *stubWarehouseRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Warehouse, error) {
	w, ok := r.warehouses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *w
	return &c, nil
}

func (r *stubWarehouseRepo) List(ctx context.Context) ([]model.Warehouse, error) {
	var out []model.Warehouse
	for _, w := range r.warehouses {
		out = append(out, *w)
	}
	return out, nil
}

func (r *stubWarehouseRepo) Update(ctx context.Context, w *model.Warehouse) error {
	c := *w
	r.warehouses[w.ID] = &c
	return nil
}

func (r *stubWarehouseRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.warehouses, id)
	return nil
}

func (r *stubWarehouseRepo) CountEntities(ctx context.Context, id uuid.UUID) (int64, error) {
	var n int64
	for _, e := range r.entities.entities {
		if e.WarehouseID != nil && *e.WarehouseID == id {
			n++
		}
	}
	return n, nil
}

// ── Fixture ──────────────────────────────────────────────────────────────────

type fixture struct {
	entities   *stubEntityRepo
	types      *stubTypeRepo
	warehouses *stubWarehouseRepo
	registry   TypeRegistry
	svc        EntityService
	warehouse  uuid.UUID
}

func newFixture() *fixture {
	entities := newStubEntityRepo()
	types := newStubTypeRepo()
	warehouses := newStubWarehouseRepo(entities)
	registry := NewTypeRegistry(types, entities)
	svc := NewEntityService(entities, warehouses, registry)

	wh := &model.Warehouse{Name: "Main"}
	_ = warehouses.Create(context.Background(), wh)

	return &fixture{
		entities:   entities,
		types:      types,
		warehouses: warehouses,
		registry:   registry,
		svc:        svc,
		warehouse:  wh.ID,
	}
}

func (f *fixture) createEntity(barcode, name, entityType string, quantity int) *dto.EntityResponse {
	wid := f.warehouse.String()
	req := dto.CreateEntityRequest{
		Barcode:    barcode,
		Name:       name,
		EntityType: entityType,
		Quantity:   quantity,
	}
	if entityType != model.TypePackage {
		req.WarehouseID = &wid
	}
	resp, err := f.svc.Create(context.Background(), req, nil)
	if err != nil {
		panic(err)
	}
	return resp
}

func mustUUID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}
