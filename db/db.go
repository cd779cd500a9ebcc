package db

import (
	"fmt"
	"log/slog"
	"time"

	"tkj_lending_tool/config"
	"tkj_lending_tool/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the configured backend. SQLite is meant for local runs; it gets a
// single connection so its transactions serialise.
func Open(cfg config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		dialector = postgres.Open(cfg.PostgresDSN())
	}

	conn, err := gorm.Open(dialector, Settings())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBDriver, err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if cfg.DBDriver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetMaxIdleConns(25)
		sqlDB.SetConnMaxLifetime(15 * time.Minute)
	}
	return conn, nil
}

// Settings is shared by Open and the test helpers. TranslateError is required: the
// code-collision retry depends on gorm.ErrDuplicatedKey.
func Settings() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	}
}

func ConnectDB(cfg config.Config, log *slog.Logger) (*gorm.DB, error) {
	conn, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(conn); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info("database connected", "driver", cfg.DBDriver)
	return conn, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Admin{}, &models.Item{}, &models.Borrowing{}, &models.AuditLog{}); err != nil {
		return err
	}

	// active borrowings per item: deletion guard and conservation checks
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_active_by_item
	  ON %s (item_id)
	  WHERE status = 'Borrowed';
	`, models.BorrowingTable, models.BorrowingTable)).Error; err != nil {
		return err
	}

	// listing newest first, optionally by status
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_status_created_desc
	  ON %s (status, created_at DESC);
	`, models.BorrowingTable, models.BorrowingTable)).Error; err != nil {
		return err
	}

	return nil
}
