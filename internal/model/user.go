package model

import (
	"time"

	"github.com/google/uuid"
)

// User roles, ordered from least to most privileged.
const (
	RoleViewer        = "viewer"
	RoleManager       = "manager"
	RoleAdministrator = "administrator"
)

// User stores system users with role-based access.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Username     string    `gorm:"uniqueIndex;not null"`
	Email        *string   `gorm:"uniqueIndex"`
	FullName     string    `gorm:"not null"`
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"type:varchar(20);not null"`
	Active       bool      `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
