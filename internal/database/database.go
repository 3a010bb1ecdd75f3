package database

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"book-production-tracker/internal/auth"
	"book-production-tracker/internal/logger"
	"book-production-tracker/internal/models"
)

var DB *gorm.DB

// InitDB opens the SQLite database, runs migrations and seeds the initial
// admin account on a fresh database.
// Using glebarez/sqlite which is a pure Go implementation (no CGO required).
func InitDB(path string) error {
	var err error
	DB, err = gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	if err := DB.AutoMigrate(&models.User{}, &models.Record{}); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	if err := seedAdmin(DB); err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}

	logger.Info("database connected and migrated")
	return nil
}

// seedAdmin creates the bootstrap admin account when the users table is
// empty, so a fresh install can log in and create real accounts.
func seedAdmin(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword("admin")
	if err != nil {
		return err
	}
	admin := models.User{
		ID:       "user-admin",
		Username: "admin",
		Password: hash,
		Role:     models.RoleAdmin,
	}
	return db.Create(&admin).Error
}

// GetDB returns the database connection
func GetDB() *gorm.DB {
	return DB
}
