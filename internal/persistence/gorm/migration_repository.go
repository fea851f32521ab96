package gorm

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/model"
	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/port"
)

// onConflictDoNothing lets Create silently skip a migration whose mint is
// already stored — the detector's dedup window already guarantees
// at-most-once delivery per signature, but a mint can legitimately appear
// twice across process restarts during the post-reconnect catch-up scan.
func onConflictDoNothing() clause.OnConflict {
	return clause.OnConflict{DoNothing: true}
}

// MigrationEntity persists every detected Migration for audit and the
// detector's post-reconnect catch-up scan (spec §4.1), distinct from the
// in-memory signature-dedup window the detector keeps live.
type MigrationEntity struct {
	Mint             string `gorm:"primaryKey"`
	Pool             string
	CoinCreator      string
	Name             string
	Symbol           string
	InitialLiquidity float64
	InitialMcap      float64
	TokenProgram     string
	SourceTimestamp  time.Time `gorm:"index"`
	DetectedAt       time.Time
	DetectionLatency time.Duration
}

func (MigrationEntity) TableName() string { return "migrations" }

// MigrationRepository implements port.MigrationRepository over GORM.
type MigrationRepository struct {
	base BaseRepository
}

func NewMigrationRepository(db *gorm.DB, logger *zerolog.Logger) *MigrationRepository {
	l := logger.With().Str("component", "migration_repository").Logger()
	return &MigrationRepository{base: NewBaseRepository(db, &l)}
}

func (r *MigrationRepository) Create(ctx context.Context, m *model.Migration) error {
	entity := MigrationEntity{
		Mint:             m.Mint,
		Pool:             m.Pool,
		CoinCreator:      m.CoinCreator,
		Name:             m.Name,
		Symbol:           m.Symbol,
		InitialLiquidity: m.InitialLiquidity,
		InitialMcap:      m.InitialMcap,
		TokenProgram:     string(m.TokenProgram),
		SourceTimestamp:  m.SourceTimestamp,
		DetectedAt:       m.DetectedAt,
		DetectionLatency: m.DetectionLatency,
	}
	return r.base.GetDB(ctx).Clauses(onConflictDoNothing()).Create(&entity).Error
}

func (r *MigrationRepository) ListSince(ctx context.Context, since time.Time) ([]model.Migration, error) {
	var entities []MigrationEntity
	if err := r.base.GetDB(ctx).Where("detected_at >= ?", since).Order("detected_at asc").Find(&entities).Error; err != nil {
		return nil, err
	}
	migrations := make([]model.Migration, 0, len(entities))
	for _, e := range entities {
		migrations = append(migrations, model.Migration{
			Mint:             e.Mint,
			Pool:             e.Pool,
			CoinCreator:      e.CoinCreator,
			Name:             e.Name,
			Symbol:           e.Symbol,
			InitialLiquidity: e.InitialLiquidity,
			InitialMcap:      e.InitialMcap,
			TokenProgram:     model.TokenProgram(e.TokenProgram),
			SourceTimestamp:  e.SourceTimestamp,
			DetectedAt:       e.DetectedAt,
			DetectionLatency: e.DetectionLatency,
		})
	}
	return migrations, nil
}

var _ port.MigrationRepository = (*MigrationRepository)(nil)
