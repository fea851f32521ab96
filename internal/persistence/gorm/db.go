// Package gorm implements the storage ports (SniperRepository,
// PositionRepository, WalletRepository, MigrationRepository) over GORM,
// grounded on the teacher's internal/adapter/persistence/gorm package:
// one BaseRepository with shared GetDB-from-context plumbing, one entity struct per
// domain type, and explicit toEntity/toDomain mapping functions rather
// than tagging domain structs directly with gorm tags.
package gorm

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BrowningVC/Migratorrr-sub000/internal/config"
)

// NewDBConnection opens the configured database driver, grounded on the
// teacher's NewDBConnection (internal/adapter/persistence/gorm/db.go),
// generalized to the two drivers this module actually ships
// (gorm.io/driver/sqlite for local/single-node deployments,
// gorm.io/driver/postgres for a shared production database) instead of
// the teacher's sqlite-only connection.
func NewDBConnection(cfg *config.Config, logger zerolog.Logger) (*gorm.DB, error) {
	logLevel := gormlogger.Error
	if cfg.Env == "development" {
		logLevel = gormlogger.Info
	}
	gormCfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	}

	var db *gorm.DB
	var err error
	switch cfg.Database.Driver {
	case "sqlite", "":
		db, err = gorm.Open(sqlite.Open(cfg.Database.DSN), gormCfg)
	case "postgres":
		db, err = gorm.Open(postgres.Open(cfg.Database.DSN), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Database.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	logger.Info().Str("driver", cfg.Database.Driver).Msg("database connection established")
	return db, nil
}

// AutoMigrate runs GORM's automatic schema migration for every entity this
// package persists. cmd/migrate invokes this directly; the daemon itself
// never auto-migrates at boot (spec's ambient-stack convention of keeping
// schema changes an explicit, reviewable operation).
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&SniperConfigEntity{},
		&PositionEntity{},
		&WalletEntity{},
		&MigrationEntity{},
	)
}
