package gorm

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/model"
	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/port"
)

// PositionEntity is the table backing port.PositionRepository, grounded on
// the teacher's PositionEntity
// (internal/adapter/repository/gorm/position_repository.go) but reshaped
// to this pipeline's Position fields instead of the teacher's
// order-book-derived ones.
type PositionEntity struct {
	ID            string `gorm:"primaryKey"`
	User          string `gorm:"index"`
	Wallet        string `gorm:"index"`
	SniperID      string `gorm:"index"`
	Mint          string `gorm:"index"`
	Status        string `gorm:"index"`
	EntrySol      float64
	EntryTokens   float64
	EntryPrice    float64
	EntryMcap     float64
	CurrentTokens float64
	ExitSol       *float64
	ExitPrice     *float64
	OpenedAt      time.Time
	ClosedAt      *time.Time
}

func (PositionEntity) TableName() string { return "positions" }

// PositionRepository implements port.PositionRepository over GORM.
type PositionRepository struct {
	base BaseRepository
}

func NewPositionRepository(db *gorm.DB, logger *zerolog.Logger) *PositionRepository {
	l := logger.With().Str("component", "position_repository").Logger()
	return &PositionRepository{base: NewBaseRepository(db, &l)}
}

func (r *PositionRepository) Create(ctx context.Context, p *model.Position) error {
	entity := toPositionEntity(p)
	return r.base.GetDB(ctx).Create(&entity).Error
}

func (r *PositionRepository) GetByID(ctx context.Context, id string) (*model.Position, error) {
	var entity PositionEntity
	result := r.base.GetDB(ctx).Where("id = ?", id).First(&entity)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return toPositionDomain(&entity), nil
}

func (r *PositionRepository) GetOpenByMint(ctx context.Context, user, mint string) (*model.Position, error) {
	var entity PositionEntity
	result := r.base.GetDB(ctx).
		Where("user = ? AND mint = ? AND status = ?", user, mint, string(model.PositionStatusOpen)).
		First(&entity)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return toPositionDomain(&entity), nil
}

func (r *PositionRepository) ListOpen(ctx context.Context) ([]model.Position, error) {
	var entities []PositionEntity
	if err := r.base.GetDB(ctx).Where("status = ?", string(model.PositionStatusOpen)).Find(&entities).Error; err != nil {
		return nil, err
	}
	positions := make([]model.Position, 0, len(entities))
	for i := range entities {
		positions = append(positions, *toPositionDomain(&entities[i]))
	}
	return positions, nil
}

func (r *PositionRepository) Update(ctx context.Context, p *model.Position) error {
	entity := toPositionEntity(p)
	return r.base.GetDB(ctx).Save(&entity).Error
}

// ResetStuckSelling reverts any position left in PositionStatusSelling
// back to PositionStatusOpen, implementing the startup recovery rule in
// spec §9: a prior process that crashed mid-sell must not leave the
// position permanently stuck in a state no future trigger re-evaluates.
func (r *PositionRepository) ResetStuckSelling(ctx context.Context) (int64, error) {
	result := r.base.GetDB(ctx).
		Model(&PositionEntity{}).
		Where("status = ?", string(model.PositionStatusSelling)).
		Update("status", string(model.PositionStatusOpen))
	return result.RowsAffected, result.Error
}

func toPositionEntity(p *model.Position) PositionEntity {
	return PositionEntity{
		ID:            p.ID,
		User:          p.User,
		Wallet:        p.Wallet,
		SniperID:      p.SniperID,
		Mint:          p.Mint,
		Status:        string(p.Status),
		EntrySol:      p.EntrySol,
		EntryTokens:   p.EntryTokens,
		EntryPrice:    p.EntryPrice,
		EntryMcap:     p.EntryMcap,
		CurrentTokens: p.CurrentTokens,
		ExitSol:       p.ExitSol,
		ExitPrice:     p.ExitPrice,
		OpenedAt:      p.OpenedAt,
		ClosedAt:      p.ClosedAt,
	}
}

func toPositionDomain(e *PositionEntity) *model.Position {
	return &model.Position{
		ID:            e.ID,
		User:          e.User,
		Wallet:        e.Wallet,
		SniperID:      e.SniperID,
		Mint:          e.Mint,
		Status:        model.PositionStatus(e.Status),
		EntrySol:      e.EntrySol,
		EntryTokens:   e.EntryTokens,
		EntryPrice:    e.EntryPrice,
		EntryMcap:     e.EntryMcap,
		CurrentTokens: e.CurrentTokens,
		ExitSol:       e.ExitSol,
		ExitPrice:     e.ExitPrice,
		OpenedAt:      e.OpenedAt,
		ClosedAt:      e.ClosedAt,
	}
}

var _ port.PositionRepository = (*PositionRepository)(nil)
