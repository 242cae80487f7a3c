package database

import (
	"fmt"
	"time"

	"scale-station/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the local SQLite store and syncs the schema.
// The scale station owns its database file; there is no remote DB server,
// so the retry loop only covers a locked file from a previous crash.
func Connect(dbPath string) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	for i := 0; i < 5; i++ {
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
			// Surface unique-index violations as gorm.ErrDuplicatedKey,
			// the folio allocator retries on that.
			TranslateError: true,
		})
		if err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s after 5 attempts: %w", dbPath, err)
	}

	// SQLite allows a single writer; keep the pool small and let
	// busy_timeout absorb short overlaps between the HTTP handlers
	// and the sync worker.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.Exec("PRAGMA busy_timeout = 5000").Error; err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Customer{},
		&models.Vehicle{},
		&models.Trailer{},
		&models.Driver{},
		&models.Material{},
		&models.WeighingRecord{},
		&models.FolioHistory{},
		&models.SyncTask{},
	)
	if err != nil {
		return nil, fmt.Errorf("schema sync failed: %w", err)
	}

	return db, nil
}
