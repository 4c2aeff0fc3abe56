package database

import (
	"errors"

	"gorm.io/gorm"

	"github.com/hadbitapp/hadbit-server/internal/models"
)

// AutoMigrate creates or updates the database schema for all models. The
// legacy tables are included so the migration engine can read them through
// the same connection; in production they already exist and AutoMigrate
// leaves matching tables alone.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}

	return db.AutoMigrate(
		&models.HabitItem{},
		&models.HabitTreeEdge{},
		&models.HabitLog{},
		&models.LegacyIdentity{},
		&models.LegacyItem{},
		&models.LegacyTreeEdge{},
		&models.LegacyLog{},
	)
}
