package model

import (
	"time"

	"github.com/google/uuid"
)

// SupplierPattern maps barcode patterns to supplier search URLs.
// Pattern syntax: '#' matches a digit, '*' matches any run of characters.
// Example: pattern "LA######*" with search URL
// "https://example.com/search?q={barcode}" lets a scan of "LA150177M" link
// straight to the supplier's product search.
type SupplierPattern struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name        string    `gorm:"not null"`
	Pattern     string    `gorm:"not null"`
	SearchURL   string    `gorm:"not null"` // contains a {barcode} placeholder
	Description *string
	Enabled     bool `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
