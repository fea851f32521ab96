package port

import (
	"context"
	"time"

	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/model"
)

// SniperRepository persists sniper configurations.
type SniperRepository interface {
	GetActive(ctx context.Context) ([]model.SniperConfig, error)
	GetByID(ctx context.Context, id string) (*model.SniperConfig, error)
	IncrementTokensFiltered(ctx context.Context, id string) error
	Update(ctx context.Context, cfg *model.SniperConfig) error
}

// PositionRepository persists open/closed positions (component C10/C11).
type PositionRepository interface {
	Create(ctx context.Context, p *model.Position) error
	GetByID(ctx context.Context, id string) (*model.Position, error)
	GetOpenByMint(ctx context.Context, user, mint string) (*model.Position, error)
	ListOpen(ctx context.Context) ([]model.Position, error)
	Update(ctx context.Context, p *model.Position) error
	// ResetStuckSelling reverts any position left in PositionSelling back to
	// PositionOpen — used at startup recovery when a prior process crashed
	// mid-sell (spec §9 "Recovery on startup").
	ResetStuckSelling(ctx context.Context) (int64, error)
}

// WalletRecord is the persisted, still-encrypted form of a trading wallet.
type WalletRecord struct {
	ID               string
	User             string
	PublicKey        string
	EncryptedPrivKey []byte
	KeyVersion       int
}

// WalletRepository resolves a sniper's wallet id to its encrypted key
// material.
type WalletRepository interface {
	GetByID(ctx context.Context, id string) (*WalletRecord, error)
}

// MigrationRepository persists migration events for audit/replay, distinct
// from the in-memory freshness gate the detector applies live.
type MigrationRepository interface {
	Create(ctx context.Context, m *model.Migration) error
	// ListSince returns every migration stored at or after since, used by
	// the detector's post-reconnect catch-up scan (spec §4.1).
	ListSince(ctx context.Context, since time.Time) ([]model.Migration, error)
}

// ExecutionRecord is one submitted transaction's ledger entry, covering
// both buys and sells, kept for fee accounting and post-mortems.
type ExecutionRecord struct {
	ID          string
	PositionID  string
	Signature   string
	Kind        string // "buy" | "sell"
	SolAmount   float64
	PlatformFee float64
	TipLamports uint64
	NetworkFee  float64
	Success     bool
	CreatedAt   time.Time
}

// LedgerRepository appends execution fee records (component: fee ledger).
type LedgerRepository interface {
	Append(ctx context.Context, rec *ExecutionRecord) error
}
