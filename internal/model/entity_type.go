package model

import (
	"time"

	"github.com/google/uuid"
)

// Built-in type codes. Additional types can be defined at runtime.
const (
	TypeItem      = "item"
	TypeContainer = "container"
	TypePackage   = "package"
)

// EntityType is the capability table for one entity type code: whether it can
// nest, be nested, which types it accepts on either side, and which workflow
// statuses are valid. It is configuration, not a per-instance object.
type EntityType struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Code        string    `gorm:"uniqueIndex;not null"`
	Name        string    `gorm:"not null"`
	Description *string
	Icon        *string
	Color       *string

	CanContainChildren bool `gorm:"not null;default:false"`
	CanBeChild         bool `gorm:"not null;default:true"`

	// Empty list means "any type" on that side.
	AllowedParentTypes []string `gorm:"serializer:json"`
	AllowedChildTypes  []string `gorm:"serializer:json"`

	AvailableStatuses []string `gorm:"serializer:json"`
	DefaultStatus     *string

	SortOrder int  `gorm:"not null;default:0"`
	IsActive  bool `gorm:"not null;default:true"`
	// Built-in types are seeded at startup and cannot be deleted.
	IsBuiltin bool `gorm:"not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func strPtr(s string) *string { return &s }

// DefaultEntityTypes are seeded on first run (and re-created if missing).
var DefaultEntityTypes = []EntityType{
	{
		Code:               TypeItem,
		Name:               "Item",
		Description:        strPtr("Basic inventory item (leaf node)"),
		Icon:               strPtr("📦"),
		Color:              strPtr("#4CAF50"),
		CanContainChildren: false,
		CanBeChild:         true,
		AllowedParentTypes: []string{TypeContainer, TypePackage},
		AllowedChildTypes:  []string{},
		AvailableStatuses:  []string{},
		SortOrder:          1,
	},
	{
		Code:               TypeContainer,
		Name:               "Container",
		Description:        strPtr("Container for items (box, bin, shelf, rack, etc.)"),
		Icon:               strPtr("📥"),
		Color:              strPtr("#2196F3"),
		CanContainChildren: true,
		CanBeChild:         true,
		AllowedParentTypes: []string{TypeContainer},
		AllowedChildTypes:  []string{TypeItem, TypeContainer},
		AvailableStatuses:  []string{},
		SortOrder:          2,
	},
	{
		Code:               TypePackage,
		Name:               "Package",
		Description:        strPtr("Collection of items for orders or production"),
		Icon:               strPtr("📋"),
		Color:              strPtr("#FF9800"),
		CanContainChildren: true,
		CanBeChild:         false,
		AllowedParentTypes: []string{},
		AllowedChildTypes:  []string{TypeItem},
		AvailableStatuses:  []string{"new", "sourcing", "packed", "done", "cancelled"},
		DefaultStatus:      strPtr("new"),
		SortOrder:          3,
	},
}

// AllowsChild reports whether this type accepts children of the given code.
// An empty allow-list means any type is accepted.
func (t *EntityType) AllowsChild(code string) bool {
	if !t.CanContainChildren {
		return false
	}
	if len(t.AllowedChildTypes) == 0 {
		return true
	}
	for _, c := range t.AllowedChildTypes {
		if c == code {
			return true
		}
	}
	return false
}

// AllowsParent reports whether this type may sit under a parent of the given code.
func (t *EntityType) AllowsParent(code string) bool {
	if !t.CanBeChild {
		return false
	}
	if len(t.AllowedParentTypes) == 0 {
		return true
	}
	for _, c := range t.AllowedParentTypes {
		if c == code {
			return true
		}
	}
	return false
}

// HasStatus reports whether status is valid for this type. A nil status is
// always valid; a non-nil status requires membership in AvailableStatuses.
func (t *EntityType) HasStatus(status *string) bool {
	if status == nil || *status == "" {
		return true
	}
	for _, s := range t.AvailableStatuses {
		if s == *status {
			return true
		}
	}
	return false
}
