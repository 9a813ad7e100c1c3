package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/matlukowski/readTube-sub000/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const slowQueryThreshold = 500 * time.Millisecond

// DB wraps the gorm handle shared by the repositories
type DB struct {
	*gorm.DB
}

// Initialize opens the sqlite database at dbPath. An empty path or
// ":memory:" opens a private in-memory database.
func Initialize(dbPath string, verbose bool) (*DB, error) {
	inMemory := dbPath == "" || dbPath == ":memory:"
	if !inMemory {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn(dbPath, inMemory)), &gorm.Config{
		Logger:  newGormLogger(verbose),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL database: %w", err)
	}
	if inMemory {
		// every connection to :memory: is a separate database
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	} else {
		sqlDB.SetMaxOpenConns(16)
		sqlDB.SetMaxIdleConns(4)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return &DB{DB: db}, nil
}

func dsn(path string, inMemory bool) string {
	if inMemory {
		return ":memory:"
	}
	// WAL lets API readers proceed while a worker writes
	return path + "?_journal_mode=WAL&_busy_timeout=5000"
}

// newGormLogger routes gorm output through the standard logrus logger
func newGormLogger(verbose bool) logger.Interface {
	level := logger.Warn
	if verbose {
		level = logger.Info
	}
	return logger.New(logrus.StandardLogger().WithField("component", "gorm"), logger.Config{
		SlowThreshold:             slowQueryThreshold,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying SQL database: %w", err)
	}
	return sqlDB.Close()
}

// HealthCheck pings the database with a short deadline
func (db *DB) HealthCheck() error {
	if db == nil || db.DB == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying SQL database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Migrate creates or updates every table the service owns
func (db *DB) Migrate() error {
	tables := models.All()
	if err := db.DB.AutoMigrate(tables...); err != nil {
		return fmt.Errorf("auto migration failed: %w", err)
	}
	logrus.WithField("tables", len(tables)).Debug("Database migrated")
	return nil
}
