// Package database owns the local relational store: the per-target upload
// ledgers, target settings, operator accounts and persisted log entries.
// SQLite is the default for a single-seat depot install; MySQL/PostgreSQL are
// supported for sites that centralize their ledgers.
package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"axle-upload/internal/config"
	"axle-upload/internal/models"
	"axle-upload/internal/targets"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect opens the configured database and runs migrations.
func Connect(cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite":
		dbDir := filepath.Dir(cfg.SQLitePath)
		if dbDir != "." && dbDir != "/" {
			if err := os.MkdirAll(dbDir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory %s: %w", dbDir, err)
			}
		}
		dialector = sqlite.Open(cfg.SQLitePath + "?_journal_mode=WAL&_busy_timeout=5000")
	case "mysql":
		dialector = mysql.Open(cfg.DBDSN)
	case "postgres":
		dialector = postgres.Open(cfg.DBDSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", cfg.DBDriver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetimeMinutes) * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	logger.Info("database connected and migrated",
		zap.String("driver", cfg.DBDriver))
	return db, nil
}

// Migrate creates/updates all tables, including one upload ledger per target.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.TargetSetting{},
		&models.Operator{},
		&models.LogEntry{},
	); err != nil {
		return fmt.Errorf("migrating shared tables: %w", err)
	}
	for _, name := range targets.Names {
		if err := db.Table(targets.LedgerTable(name)).AutoMigrate(&models.UploadRecord{}); err != nil {
			return fmt.Errorf("migrating ledger for %s: %w", name, err)
		}
	}
	return nil
}
