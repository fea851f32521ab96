// Command migrate applies GORM auto-migration for the sniper pipeline's
// schema. Grounded on the teacher's cmd/migrate/main.go: load config,
// open a database connection, run migrations, exit. Kept deliberately
// separate from cmd/sniperd so a schema change is always an explicit,
// reviewable operation rather than something the daemon does on every
// boot.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/BrowningVC/Migratorrr-sub000/internal/config"
	gormrepo "github.com/BrowningVC/Migratorrr-sub000/internal/persistence/gorm"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Str("component", "migrate").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := gormrepo.NewDBConnection(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	logger.Info().Str("driver", cfg.Database.Driver).Msg("starting database migrations")
	if err := gormrepo.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	fmt.Println("migrations completed successfully")
}
