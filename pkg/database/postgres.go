package database

import (
	"fmt"

	"github.com/coachhub/scheduler/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Center{},
		&models.Group{},
		&models.Class{},
		&models.Booking{},
		&models.Holiday{},
	); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	// Partial unique index: at most one seat-holding booking per student per
	// class, the database-level backstop behind the row-lock admission path.
	db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_booking_active
		ON bookings (class_id, student_id)
		WHERE status IN ('pending', 'confirmed')
	`)

	return db, nil
}
