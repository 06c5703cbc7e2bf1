// Package database owns the postgres connection, user accounts and the
// submission ledger.
package database

import (
	"github.com/cockroachdb/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"scrape-portal/internal/config"
	"scrape-portal/internal/models"
)

// InitDB connects to postgres.
func InitDB(cfg config.DBConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "connect to postgres at %s:%s", cfg.Host, cfg.Port)
	}
	return db, nil
}

// MigrateDB creates or updates the tables.
func MigrateDB(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Submission{}); err != nil {
		return errors.Wrap(err, "auto-migrate")
	}
	return nil
}
