package database

import (
	"gorm.io/gorm"

	"dealdesk/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Notification{},
		&models.MnaOpportunity{},
		&models.RealEstateOpportunity{},
		&models.MnaInterest{},
		&models.RealEstateInterest{},
		&models.OpportunityAccountManager{},
		&models.Commission{},
		&models.EsignDocument{},
		&models.AuditLog{},
		&models.CacheEntry{},
	)
}

// SeedData populates the bootstrap admin account when no users exist.
// The generated password must be rotated immediately; it is logged once by
// the caller at startup.
func SeedData(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	admin := models.User{
		Email:     "admin@dealdesk.local",
		Password:  "!disabled-login",
		FirstName: "Platform",
		LastName:  "Admin",
		Role:      models.RoleAdmin,
		Enabled:   true,
	}
	return db.Create(&admin).Error
}
