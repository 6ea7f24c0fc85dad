package model

import (
	"time"

	"github.com/google/uuid"
)

// Setting is a key/value application setting stored in the database.
type Setting struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Key         string    `gorm:"uniqueIndex;not null"`
	Value       string
	Description *string
	UpdatedAt   time.Time
}

// Known setting keys with their defaults, seeded on startup.
var DefaultSettings = map[string]struct {
	Value       string
	Description string
}{
	"barcode_pattern": {
		Value:       "",
		Description: "Barcode pattern for inventory items. Use # for digits 0-9, * for any characters. Example: INV-##### for INV-00000 to INV-99999",
	},
	"auto_lookup_external": {
		Value:       "true",
		Description: "Automatically look up EAN/UPC/ISBN in online catalogs when a scanned barcode is unknown",
	},
}
