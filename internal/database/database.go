package database

import (
	"errors"
	"log"

	"junyue/config"
	"junyue/internal/domain"
	"junyue/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error), // Only log errors, not every SQL query
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// AutoMigrate runs Gorm auto-migration for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.TechnicianProfile{},
		&models.Order{},
		&models.Payment{},
		&models.Commission{},
	)
}

// SeedAdmin creates the initial admin account when none exists.
func SeedAdmin(db *gorm.DB, cfg *config.Config) {
	var admin models.User
	err := db.Where("role = ?", domain.RoleAdmin).First(&admin).Error
	if err == nil {
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("[seed] admin lookup failed: %v", err)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), cfg.Auth.BcryptCost)
	if err != nil {
		log.Printf("[seed] hash admin password: %v", err)
		return
	}
	admin = models.User{
		Phone:        "13800000000",
		Nickname:     "admin",
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		InviteCode:   "admin000",
	}
	if err := db.Create(&admin).Error; err != nil {
		log.Printf("[seed] create admin: %v", err)
		return
	}
	log.Printf("[seed] admin account created (change the default password)")
}
