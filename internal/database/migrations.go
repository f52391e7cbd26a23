package database

import (
	"medwatch/internal/logger"
	"medwatch/internal/models"
)

// MigrateModels runs GORM AutoMigrate for all models
func (db *DB) MigrateModels() error {
	log := logger.New("database").Function("MigrateModels")
	log.Info("Starting database migration")

	modelsToMigrate := []interface{}{
		&models.User{},
		&models.Counter{},
		&models.Inspection{},
		&models.Impoundment{},
		&models.Release{},
		&models.Notification{},
		&models.Evidence{},
	}

	for _, model := range modelsToMigrate {
		if err := db.SQL.AutoMigrate(model); err != nil {
			log.Error("Failed to migrate model", "model", model, "error", err)
			return err
		}
	}

	log.Info("Database migration completed successfully")
	return nil
}

// CreateIndexes creates additional indexes that GORM doesn't create automatically
func (db *DB) CreateIndexes() error {
	log := logger.New("database").Function("CreateIndexes")
	log.Info("Creating additional database indexes")

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_inspections_created_at ON inspections(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_inspections_district_created_at ON inspections(district, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_impoundments_status_reminder ON impoundments(box_status, reminder_sent_at)",
		"CREATE INDEX IF NOT EXISTS idx_notifications_status_created_at ON notifications(status, created_at)",
	}

	for _, indexSQL := range indexes {
		if err := db.SQL.Exec(indexSQL).Error; err != nil {
			log.Warn("Failed to create index", "sql", indexSQL, "error", err)
			// Continue with other indexes even if one fails
		}
	}

	log.Info("Additional database indexes created")
	return nil
}
