// Package database provides storage for the sector view core: the
// universe registry (sectors, stocks, time-bounded universe
// membership), the append-only market data snapshot store, and
// persisted outlier detections.
//
// The snapshot store is written to concurrently by refresh workers
// while aggregation and detection queries read from it. Every snapshot
// is inserted in a single statement, so readers only ever observe
// fully committed rows; writers never block on readers.
package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database holds the GORM connection shared by all repositories.
type Database struct {
	db *gorm.DB
}

// DB returns the underlying GORM instance for repository use.
func (d *Database) DB() *gorm.DB {
	return d.db
}

// Connect establishes the database connection using GORM
func Connect(host, port, dbname, user, password string) (*Database, error) {
	dsn := fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s sslmode=disable",
		host, port, dbname, user, password)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Silent logging for production
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Pool sizing: refresh workers write concurrently with API reads
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	log.Println("✅ Database connection established")

	return &Database{db: db}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
