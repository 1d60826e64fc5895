package db

import (
	"fmt"
	"log"

	"go-quest/internal/config"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Open connects to the relational store named by the storage driver
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported relational driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate quest documents
	if err := db.AutoMigrate(&QuestRecord{}); err != nil {
		return nil, err
	}
	return db, nil
}

// Init opens the configured database and stores it in DB
func Init(cfg *config.Config) error {
	db, err := Open(cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		return err
	}
	DB = db
	log.Printf("Database connected and migrated (%s)", cfg.Storage.Driver)
	return nil
}
