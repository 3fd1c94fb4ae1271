package db

import (
	"github.com/otiuna/sigpat/internal/models"
	"gorm.io/gorm"
)

// Migrate runs AutoMigrate for all models.
// Call this at application startup or as part of a migration step.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// Auth & Authorization
		&models.User{},
		&models.Profile{},
		&models.Permission{},
		// Organization
		&models.Dependency{},
		// Document transit
		&models.DocumentType{},
		&models.Document{},
		&models.DocumentDestination{},
		&models.DocumentHistoryEntry{},
		// Patrimony & inventory
		&models.Asset{},
		&models.InventorySession{},
		&models.VerificationEntry{},
	)
}

// Seed initializes the database with required seed data.
// Should be called after Migrate.
func Seed(db *gorm.DB) error {
	if err := SeedPermissions(db); err != nil {
		return err
	}
	if err := SeedProfiles(db); err != nil {
		return err
	}
	return SeedDocumentTypes(db)
}
