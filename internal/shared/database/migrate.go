package database

import (
	"fmt"

	"gorm.io/gorm"

	"seatchart/internal/layout"
)

// Migrate creates the layout tables and their constraints.
func Migrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return fmt.Errorf("enable uuid-ossp: %w", err)
	}
	if err := layout.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate layout tables: %w", err)
	}
	return MigrateConstraints(db)
}
