package db

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open opens (creating if needed) the sqlite database at path and migrates
// the schema. ":memory:" is accepted for tests.
func Open(path string) (*gorm.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		PrepareStmt: true,
		Logger:      gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serializes writers.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Transfer{}); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return db, nil
}

// DefaultPath is the history database under the user config directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "peer-drop.sqlite3"
	}
	return filepath.Join(dir, "peer-drop", "history.sqlite3")
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
