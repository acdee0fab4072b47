package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds the uniqueness and lookup indexes the layout tree relies on
func MigrateConstraints(db *gorm.DB) error {
	// One seat number per row
	err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uniq_chart_seats_row_number
		ON chart_seats (row_id, number);
	`).Error
	if err != nil {
		return err
	}

	// One layout per event and name
	err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uniq_chart_layouts_event_name
		ON chart_layouts (event_id, name);
	`).Error
	if err != nil {
		return err
	}

	// Seat status lookups when replaying holds and bookings
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_chart_seats_status
		ON chart_seats (status);
	`).Error
	if err != nil {
		return err
	}

	return nil
}
