package common

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Init opens the sqlite database at path
func Init(path string) (*gorm.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, eris.Wrapf(err, "create database directory for %s", path)
		}
	}

	conn, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, eris.Wrapf(err, "open database %s", path)
	}

	// One writer at a time keeps sqlite from returning SQLITE_BUSY under the metrics goroutines
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, eris.Wrap(err, "get sql.DB")
	}
	sqlDB.SetMaxOpenConns(1)

	return conn, nil
}
