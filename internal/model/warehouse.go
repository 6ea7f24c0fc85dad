package model

import (
	"time"

	"github.com/google/uuid"
)

// Warehouse is a physical location holding root-level entities.
type Warehouse struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name        string    `gorm:"not null"`
	Description *string
	Location    *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
