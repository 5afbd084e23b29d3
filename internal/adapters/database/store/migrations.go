package store

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/vinylhub/eventsync/internal/domain/entity"
)

// Migrations is a list of all gorm migrations for the database.
// AutoMigrate only creates missing tables, columns and indexes, so upgrades stay additive.
var Migrations = []interface{}{
	&entity.Event{},
	&entity.Subscription{},
}

// Migrate brings the schema up to date.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Migrations...); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}
