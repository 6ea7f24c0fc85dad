package repository

import (
	"context"

	"github.com/tea-tech/simple-inventory/internal/dto"
	"github.com/tea-tech/simple-inventory/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EntityRepository defines the data access contract for entities, their
// relation claims, and the history log. Services depend on this interface,
// not on the concrete GORM implementation, enabling clean unit testing via
// in-memory stubs.
//
// Methods with a Tx suffix run against a caller-supplied transaction; the
// operations engine opens one transaction per operation and threads it
// through every row touched, including the history append.
type EntityRepository interface {
	Create(ctx context.Context, e *model.Entity) error
	CreateTx(tx *gorm.DB, e *model.Entity) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Entity, error)
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Entity, error)
	FindByBarcode(ctx context.Context, barcode string) (*model.Entity, error)
	List(ctx context.Context, filter dto.EntityFilter) ([]model.Entity, int64, error)
	SaveTx(tx *gorm.DB, e *model.Entity) error
	DeleteTx(tx *gorm.DB, id uuid.UUID) error
	ListChildren(ctx context.Context, parentID uuid.UUID) ([]model.Entity, error)
	ListAll(ctx context.Context, entityType string) ([]model.Entity, error)
	// CountChildren returns the number of physical children and relation
	// claims held by the entity.
	CountChildren(ctx context.Context, parentID uuid.UUID) (int64, int64, error)
	CountByType(ctx context.Context, code string) (int64, error)
	// ReparentChildrenTx points every physical child of from at to.
	ReparentChildrenTx(tx *gorm.DB, from, to uuid.UUID) error
	// ReassignRelationChildTx redirects relation claims on from to to.
	ReassignRelationChildTx(tx *gorm.DB, from, to uuid.UUID) error

	// Relation claims
	CreateRelationTx(tx *gorm.DB, r *model.EntityRelation) error
	SaveRelationTx(tx *gorm.DB, r *model.EntityRelation) error
	DeleteRelationTx(tx *gorm.DB, id uuid.UUID) error
	FindRelationByID(ctx context.Context, id uuid.UUID) (*model.EntityRelation, error)
	FindRelation(ctx context.Context, parentID, childID uuid.UUID) (*model.EntityRelation, error)
	FindRelationTx(tx *gorm.DB, parentID, childID uuid.UUID) (*model.EntityRelation, error)
	ListRelationsByParent(ctx context.Context, parentID uuid.UUID) ([]model.EntityRelation, error)
	ListRelationsByParentTx(tx *gorm.DB, parentID uuid.UUID) ([]model.EntityRelation, error)
	ListRelationsByChild(ctx context.Context, childID uuid.UUID) ([]model.EntityRelation, error)

	// History
	AppendHistoryTx(tx *gorm.DB, h *model.EntityHistory) error
	ListHistory(ctx context.Context, entityID uuid.UUID, page, limit int) ([]model.EntityHistory, int64, error)

	// Transact runs fn inside one database transaction.
	Transact(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type entityRepo struct{ db *gorm.DB }

func NewEntityRepository(db *gorm.DB) EntityRepository { return &entityRepo{db: db} }

func (r *entityRepo) Create(ctx context.Context, e *model.Entity) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *entityRepo) CreateTx(tx *gorm.DB, e *model.Entity) error {
	return tx.Create(e).Error
}

func (r *entityRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Entity, error) {
	var e model.Entity
	err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *entityRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Entity, error) {
	var e model.Entity
	err := tx.First(&e, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *entityRepo) FindByBarcode(ctx context.Context, barcode string) (*model.Entity, error) {
	var e model.Entity
	err := r.db.WithContext(ctx).Where("barcode = ?", barcode).First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *entityRepo) List(ctx context.Context, filter dto.EntityFilter) ([]model.Entity, int64, error) {
	var entities []model.Entity
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Entity{})

	if filter.EntityType != "" {
		q = q.Where("entity_type = ?", filter.EntityType)
	}
	if filter.WarehouseID != "" {
		q = q.Where("warehouse_id = ?", filter.WarehouseID)
	}
	if filter.ParentID != "" {
		q = q.Where("parent_id = ?", filter.ParentID)
	} else if filter.RootOnly {
		q = q.Where("parent_id IS NULL")
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		term := "%" + filter.Search + "%"
		q = q.Where("name ILIKE ? OR description ILIKE ? OR barcode ILIKE ?", term, term, term)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Order("created_at DESC").Limit(filter.Limit).Offset(offset).Find(&entities).Error
	return entities, total, err
}

func (r *entityRepo) SaveTx(tx *gorm.DB, e *model.Entity) error {
	return tx.Save(e).Error
}

func (r *entityRepo) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	return tx.Delete(&model.Entity{}, "id = ?", id).Error
}

func (r *entityRepo) ListChildren(ctx context.Context, parentID uuid.UUID) ([]model.Entity, error) {
	var children []model.Entity
	err := r.db.WithContext(ctx).Where("parent_id = ?", parentID).Find(&children).Error
	return children, err
}

func (r *entityRepo) ListAll(ctx context.Context, entityType string) ([]model.Entity, error) {
	q := r.db.WithContext(ctx).Order("barcode ASC")
	if entityType != "" {
		q = q.Where("entity_type = ?", entityType)
	}
	var entities []model.Entity
	err := q.Find(&entities).Error
	return entities, err
}

func (r *entityRepo) CountChildren(ctx context.Context, parentID uuid.UUID) (int64, int64, error) {
	var physical, claims int64
	if err := r.db.WithContext(ctx).Model(&model.Entity{}).
		Where("parent_id = ?", parentID).Count(&physical).Error; err != nil {
		return 0, 0, err
	}
	if err := r.db.WithContext(ctx).Model(&model.EntityRelation{}).
		Where("parent_id = ?", parentID).Count(&claims).Error; err != nil {
		return 0, 0, err
	}
	return physical, claims, nil
}

func (r *entityRepo) CountByType(ctx context.Context, code string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Entity{}).
		Where("entity_type = ?", code).Count(&n).Error
	return n, err
}

func (r *entityRepo) ReparentChildrenTx(tx *gorm.DB, from, to uuid.UUID) error {
	return tx.Model(&model.Entity{}).Where("parent_id = ?", from).
		Update("parent_id", to).Error
}

func (r *entityRepo) ReassignRelationChildTx(tx *gorm.DB, from, to uuid.UUID) error {
	return tx.Model(&model.EntityRelation{}).Where("child_id = ?", from).
		Update("child_id", to).Error
}

func (r *entityRepo) CreateRelationTx(tx *gorm.DB, rel *model.EntityRelation) error {
	return tx.Create(rel).Error
}

func (r *entityRepo) SaveRelationTx(tx *gorm.DB, rel *model.EntityRelation) error {
	return tx.Save(rel).Error
}

func (r *entityRepo) DeleteRelationTx(tx *gorm.DB, id uuid.UUID) error {
	return tx.Delete(&model.EntityRelation{}, "id = ?", id).Error
}

func (r *entityRepo) FindRelationByID(ctx context.Context, id uuid.UUID) (*model.EntityRelation, error) {
	var rel model.EntityRelation
	err := r.db.WithContext(ctx).First(&rel, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

func (r *entityRepo) FindRelation(ctx context.Context, parentID, childID uuid.UUID) (*model.EntityRelation, error) {
	var rel model.EntityRelation
	err := r.db.WithContext(ctx).
		Where("parent_id = ? AND child_id = ?", parentID, childID).
		First(&rel).Error
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

func (r *entityRepo) FindRelationTx(tx *gorm.DB, parentID, childID uuid.UUID) (*model.EntityRelation, error) {
	var rel model.EntityRelation
	err := tx.Where("parent_id = ? AND child_id = ?", parentID, childID).First(&rel).Error
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

func (r *entityRepo) ListRelationsByParentTx(tx *gorm.DB, parentID uuid.UUID) ([]model.EntityRelation, error) {
	var rels []model.EntityRelation
	err := tx.Where("parent_id = ?", parentID).Find(&rels).Error
	return rels, err
}

func (r *entityRepo) ListRelationsByParent(ctx context.Context, parentID uuid.UUID) ([]model.EntityRelation, error) {
	var rels []model.EntityRelation
	err := r.db.WithContext(ctx).Preload("Child").
		Where("parent_id = ?", parentID).Find(&rels).Error
	return rels, err
}

func (r *entityRepo) ListRelationsByChild(ctx context.Context, childID uuid.UUID) ([]model.EntityRelation, error) {
	var rels []model.EntityRelation
	err := r.db.WithContext(ctx).Where("child_id = ?", childID).Find(&rels).Error
	return rels, err
}

func (r *entityRepo) AppendHistoryTx(tx *gorm.DB, h *model.EntityHistory) error {
	return tx.Create(h).Error
}

func (r *entityRepo) ListHistory(ctx context.Context, entityID uuid.UUID, page, limit int) ([]model.EntityHistory, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.EntityHistory{}).Where("entity_id = ?", entityID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 50
	}

	var rows []model.EntityHistory
	err := q.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&rows).Error
	return rows, total, err
}

func (r *entityRepo) Transact(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}
