package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Entity operation names recorded in entity_history.
const (
	OpCreate         = "create"
	OpUpdate         = "update"
	OpDelete         = "delete"
	OpMove           = "move"
	OpConvert        = "convert"
	OpAddChild       = "add_child"
	OpRemoveChild    = "remove_child"
	OpSplit          = "split"
	OpMerge          = "merge"
	OpQuantityChange = "quantity_change"
)

// Entity is the unified record for items, containers, packages, and any other
// inventory entity. Behavior per type (nesting rules, statuses) lives in
// EntityType, never in per-instance flags.
//
// Location invariant: at most one of WarehouseID / ParentID is set. An entity
// with neither is unplaced (typical for packages, which locate their contents
// through EntityRelation claims instead of physical nesting).
type Entity struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Barcode       string    `gorm:"uniqueIndex;not null"`
	OriginBarcode *string   `gorm:"index"` // manufacturer EAN/UPC/ISBN, not unique
	Name          string    `gorm:"index;not null"`
	Description   *string
	EntityType    string `gorm:"not null;index"` // references entity_types.code
	Quantity      int    `gorm:"not null;default:1"`
	Price         *decimal.Decimal `gorm:"type:decimal(10,2)"`
	WarehouseID   *uuid.UUID       `gorm:"type:uuid;index"`
	ParentID      *uuid.UUID       `gorm:"type:uuid;index"`
	Status        *string
	CustomFields  map[string]interface{} `gorm:"serializer:json"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Warehouse *Warehouse `gorm:"foreignKey:WarehouseID"`
	Parent    *Entity    `gorm:"foreignKey:ParentID"`
}

// EntityRelation records "parent contains Quantity units of child" without
// moving the child physically. PriceSnapshot is captured when the relation is
// created and never updated afterwards.
type EntityRelation struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ParentID      uuid.UUID `gorm:"type:uuid;not null;index"`
	ChildID       uuid.UUID `gorm:"type:uuid;not null;index"`
	Quantity      int       `gorm:"not null;default:1"`
	PriceSnapshot *decimal.Decimal `gorm:"type:decimal(10,2)"`
	Notes         *string
	CreatedAt     time.Time

	Child *Entity `gorm:"foreignKey:ChildID"`
}

// EntityHistory is the append-only audit log. Rows are written inside the same
// transaction as the mutation they describe and are never updated or deleted
// by the engine.
type EntityHistory struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	EntityID        uuid.UUID `gorm:"type:uuid;not null;index"`
	Operation       string    `gorm:"not null"`
	RelatedEntityID *uuid.UUID `gorm:"type:uuid"`
	Details         map[string]interface{} `gorm:"serializer:json"`
	UserID          *uuid.UUID             `gorm:"type:uuid"`
	CreatedAt       time.Time
}

// TableName overrides GORM's default pluralization (entity_histories → entity_history).
func (EntityHistory) TableName() string { return "entity_history" }
