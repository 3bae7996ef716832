package database

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/patternforge/diamondgrid/internal/logging"
)

// RunMigrations runs any pending database migrations using gormigrate
func RunMigrations() error {
	logging.InfoWithComponent(logging.ComponentDatabase, "running database migrations")

	m := gormigrate.New(DB, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "202608010000_create_jobs",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&Job{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("jobs")
			},
		},
	})

	if err := m.Migrate(); err != nil {
		return err
	}

	// Auto-migrate picks up column additions on existing installs.
	for _, model := range GetAllModels() {
		if err := DB.AutoMigrate(model); err != nil {
			return err
		}
	}

	logging.InfoWithComponent(logging.ComponentDatabase, "database migrations completed")
	return nil
}
