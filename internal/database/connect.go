package database

import (
	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"custodian/internal/types"
)

func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open catalog DB: "+path)
	}

	if err := db.AutoMigrate(
		&types.BackupRecord{},
		&types.Artifact{}); err != nil {
		return nil, err
	}

	return db, nil
}
