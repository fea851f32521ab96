// Package ledger is the append-only fee ledger: every buy and sell
// submitted by internal/worker or internal/position is recorded here for
// fee accounting and post-mortems (spec §7 "fee ledger").
//
// Grounded on the teacher's report repository
// (backend/internal/repository/report/report_repository.go): an
// Initialize method that creates its table with CREATE TABLE IF NOT
// EXISTS, and hand-written SQL executed through a thin database handle
// rather than an ORM, since this table is pure insert/scan with no
// relational joins.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/port"
)

// Repository implements port.LedgerRepository over a sqlx-wrapped
// *sql.DB, sharing the same underlying connection pool the GORM layer
// opens (both sqlite and postgres drivers are registered under
// database/sql regardless of which ORM talks to them).
type Repository struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

func New(db *sql.DB, driverName string, logger zerolog.Logger) *Repository {
	return &Repository{
		db:     sqlx.NewDb(db, driverName),
		logger: logger.With().Str("component", "ledger").Logger(),
	}
}

// EnsureSchema creates the ledger table if it does not already exist.
// Called once at startup alongside persistence/gorm.AutoMigrate.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS fee_ledger (
			id TEXT PRIMARY KEY,
			position_id TEXT NOT NULL,
			signature TEXT NOT NULL,
			kind TEXT NOT NULL,
			sol_amount REAL NOT NULL,
			platform_fee REAL NOT NULL,
			tip_lamports INTEGER NOT NULL,
			network_fee REAL NOT NULL,
			success INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create fee_ledger table: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_fee_ledger_position_id ON fee_ledger(position_id)
	`)
	if err != nil {
		return fmt.Errorf("create fee_ledger index: %w", err)
	}
	return nil
}

// Append inserts one ExecutionRecord. Never updated or deleted: the
// ledger is the immutable record of every fee a position ever paid.
func (r *Repository) Append(ctx context.Context, rec *port.ExecutionRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO fee_ledger (
			id, position_id, signature, kind, sol_amount, platform_fee,
			tip_lamports, network_fee, success, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID, rec.PositionID, rec.Signature, rec.Kind, rec.SolAmount,
		rec.PlatformFee, rec.TipLamports, rec.NetworkFee, rec.Success, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert fee ledger entry: %w", err)
	}
	return nil
}

// TotalFeesForPosition sums the platform fee paid across every ledger
// entry for a position, used by reporting/admin surfaces outside this
// package's scope.
func (r *Repository) TotalFeesForPosition(ctx context.Context, positionID string) (float64, error) {
	var total sql.NullFloat64
	err := r.db.QueryRowxContext(ctx, `
		SELECT SUM(platform_fee) FROM fee_ledger WHERE position_id = ?
	`, positionID).Scan(&total)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("sum fee ledger entries: %w", err)
	}
	return total.Float64, nil
}

var _ port.LedgerRepository = (*Repository)(nil)
