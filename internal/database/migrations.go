package database

import (
	"gorm.io/gorm"

	"github.com/renewhub/renewhub/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Service{},
		&models.NotificationLog{},
		&models.AppSettings{},
	)
}

// SeedData inserts the singleton settings row when it does not exist yet.
func SeedData(db *gorm.DB) error {
	defaults := models.DefaultAppSettings()
	return db.Where(models.AppSettings{ID: models.AppSettingsID}).
		Attrs(defaults).
		FirstOrCreate(&models.AppSettings{}).Error
}
