package infra

import (
	"time"

	"github.com/tea-tech/simple-inventory/internal/config"
	"github.com/tea-tech/simple-inventory/internal/model"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the Postgres connection and migrates the schema.
func NewDatabase(cfg *config.Config) (*gorm.DB, error) {
	logLevel := logger.Warn
	if cfg.Env == "development" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(
		&model.Warehouse{},
		&model.EntityType{},
		&model.Entity{},
		&model.EntityRelation{},
		&model.EntityHistory{},
		&model.User{},
		&model.SupplierPattern{},
		&model.Setting{},
	); err != nil {
		return nil, err
	}

	log.Info().Msg("database connected and migrated")
	return db, nil
}
