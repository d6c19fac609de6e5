package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/edurotich/smartplanner/internal/infrastructure/repositories"
)

// Open creates a new database connection with production-ready settings.
// TranslateError is required: the payment repository distinguishes
// duplicate receipts via gorm.ErrDuplicatedKey.
func Open(dsn string) (*gorm.DB, error) {
	config := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	}

	return gorm.Open(postgres.Open(dsn), config)
}

// AutoMigrate performs database migration for all required tables
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&repositories.DBUser{},
		&repositories.DBTokenBalance{},
		&repositories.DBPayment{},
	); err != nil {
		return fmt.Errorf("failed to migrate tables: %w", err)
	}
	return nil
}
