package dto

import "github.com/shopspring/decimal"

// ── Requests ─────────────────────────────────────────────────────────────────

type CreateEntityRequest struct {
	Barcode       string                 `json:"barcode" validate:"required"`
	OriginBarcode *string                `json:"origin_barcode"`
	Name          string                 `json:"name" validate:"required"`
	Description   *string                `json:"description"`
	EntityType    string                 `json:"entity_type" validate:"required"`
	Quantity      int                    `json:"quantity" validate:"min=0"`
	Price         *decimal.Decimal       `json:"price"`
	WarehouseID   *string                `json:"warehouse_id"`
	ParentID      *string                `json:"parent_id"`
	Status        *string                `json:"status"`
	CustomFields  map[string]interface{} `json:"custom_fields"`
}

type UpdateEntityRequest struct {
	Barcode       *string                `json:"barcode"`
	OriginBarcode *string                `json:"origin_barcode"`
	Name          *string                `json:"name"`
	Description   *string                `json:"description"`
	Quantity      *int                   `json:"quantity" validate:"omitempty,min=0"`
	Price         *decimal.Decimal       `json:"price"`
	Status        *string                `json:"status"`
	CustomFields  map[string]interface{} `json:"custom_fields"`
}

// MoveEntityRequest relocates an entity. Exactly one of TargetWarehouseID /
// TargetParentID should be set; a Quantity lower than the entity's total turns
// the move into an implicit split.
type MoveEntityRequest struct {
	TargetWarehouseID *string `json:"target_warehouse_id"`
	TargetParentID    *string `json:"target_parent_id"`
	Quantity          *int    `json:"quantity" validate:"omitempty,gt=0"`
}

type ConvertEntityRequest struct {
	NewType   string  `json:"new_type" validate:"required"`
	NewStatus *string `json:"new_status"`
}

type SplitEntityRequest struct {
	Quantity          int     `json:"quantity" validate:"required,gt=0"`
	NewBarcode        string  `json:"new_barcode" validate:"required"`
	TargetWarehouseID *string `json:"target_warehouse_id"`
	TargetParentID    *string `json:"target_parent_id"`
}

type MergeEntitiesRequest struct {
	SourceEntityIDs []string `json:"source_entity_ids" validate:"required,min=1"`
}

type AdjustQuantityRequest struct {
	Delta int `json:"delta" validate:"required"`
}

// AddChildRequest creates or increments a relation claim on a child entity.
// The child is located by barcode or id (barcode wins if both are given).
type AddChildRequest struct {
	ChildBarcode     string           `json:"child_barcode"`
	ChildID          *string          `json:"child_id"`
	Quantity         int              `json:"quantity" validate:"required,gt=0"`
	RemoveFromSource bool             `json:"remove_from_source"`
	PriceSnapshot    *decimal.Decimal `json:"price_snapshot"`
	Notes            *string          `json:"notes"`
}

type UpdateRelationRequest struct {
	Quantity *int    `json:"quantity" validate:"omitempty,gt=0"`
	Notes    *string `json:"notes"`
}

// EntityFilter drives list queries.
type EntityFilter struct {
	EntityType  string
	WarehouseID string
	ParentID    string
	RootOnly    bool
	Search      string
	Status      string
	Page        int
	Limit       int
}

// ── Responses ────────────────────────────────────────────────────────────────

type EntityResponse struct {
	ID            string                 `json:"id"`
	Barcode       string                 `json:"barcode"`
	OriginBarcode *string                `json:"origin_barcode"`
	Name          string                 `json:"name"`
	Description   *string                `json:"description"`
	EntityType    string                 `json:"entity_type"`
	Quantity      int                    `json:"quantity"`
	Price         *decimal.Decimal       `json:"price"`
	WarehouseID   *string                `json:"warehouse_id"`
	ParentID      *string                `json:"parent_id"`
	Status        *string                `json:"status"`
	CustomFields  map[string]interface{} `json:"custom_fields"`
	ChildrenCount int                    `json:"children_count"`
	CreatedAt     string                 `json:"created_at"`
}

type EntityListResponse struct {
	Data  []EntityResponse `json:"data"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

type RelationResponse struct {
	ID            string           `json:"id"`
	ParentID      string           `json:"parent_id"`
	ChildID       string           `json:"child_id"`
	ChildBarcode  string           `json:"child_barcode"`
	ChildName     string           `json:"child_name"`
	Quantity      int              `json:"quantity"`
	PriceSnapshot *decimal.Decimal `json:"price_snapshot"`
	Notes         *string          `json:"notes"`
	CreatedAt     string           `json:"created_at"`
}

type HistoryResponse struct {
	ID              string                 `json:"id"`
	EntityID        string                 `json:"entity_id"`
	Operation       string                 `json:"operation"`
	RelatedEntityID *string                `json:"related_entity_id"`
	Details         map[string]interface{} `json:"details"`
	UserID          *string                `json:"user_id"`
	CreatedAt       string                 `json:"created_at"`
}

type HistoryListResponse struct {
	Data  []HistoryResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

// CSVImportResponse summarizes an entity CSV import run.
type CSVImportResponse struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Errors  []string `json:"errors"`
}
