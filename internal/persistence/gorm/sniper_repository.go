package gorm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/model"
	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/port"
)

// SniperConfigEntity stores a SniperConfig, with its enumerated Filters
// struct flattened into one JSON column rather than one column per
// predicate — grounded on the teacher's EntryOrderIDs/ExitOrderIDs
// "stored as JSON array" fields in PositionEntity
// (internal/adapter/repository/gorm/position_repository.go), applied
// here to a nested struct instead of a string slice.
type SniperConfigEntity struct {
	ID                string `gorm:"primaryKey"`
	User              string `gorm:"index"`
	WalletID          string `gorm:"index"`
	Name              string
	Active            bool `gorm:"index"`
	SnipeAmountSOL    float64
	SlippageBps       int
	PriorityFeeSOL    float64
	TakeProfitPct     *float64
	StopLossPct       *float64
	TrailingStopPct   *float64
	CoverInitials     bool
	MEVProtected      bool
	FiltersJSON       string
	TokensFilteredCnt int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (SniperConfigEntity) TableName() string { return "sniper_configs" }

// SniperRepository implements port.SniperRepository over GORM.
type SniperRepository struct {
	base BaseRepository
}

func NewSniperRepository(db *gorm.DB, logger *zerolog.Logger) *SniperRepository {
	l := logger.With().Str("component", "sniper_repository").Logger()
	return &SniperRepository{base: NewBaseRepository(db, &l)}
}

func (r *SniperRepository) GetActive(ctx context.Context) ([]model.SniperConfig, error) {
	var entities []SniperConfigEntity
	if err := r.base.GetDB(ctx).Where("active = ?", true).Find(&entities).Error; err != nil {
		return nil, err
	}
	configs := make([]model.SniperConfig, 0, len(entities))
	for i := range entities {
		cfg, err := toSniperDomain(&entities[i])
		if err != nil {
			return nil, err
		}
		configs = append(configs, *cfg)
	}
	return configs, nil
}

func (r *SniperRepository) GetByID(ctx context.Context, id string) (*model.SniperConfig, error) {
	var entity SniperConfigEntity
	result := r.base.GetDB(ctx).Where("id = ?", id).First(&entity)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return toSniperDomain(&entity)
}

func (r *SniperRepository) IncrementTokensFiltered(ctx context.Context, id string) error {
	return r.base.GetDB(ctx).
		Model(&SniperConfigEntity{}).
		Where("id = ?", id).
		Update("tokens_filtered_cnt", gorm.Expr("tokens_filtered_cnt + 1")).Error
}

func (r *SniperRepository) Update(ctx context.Context, cfg *model.SniperConfig) error {
	entity, err := toSniperEntity(cfg)
	if err != nil {
		return err
	}
	return r.base.GetDB(ctx).Save(&entity).Error
}

func toSniperEntity(cfg *model.SniperConfig) (SniperConfigEntity, error) {
	filtersJSON, err := json.Marshal(cfg.Filters)
	if err != nil {
		return SniperConfigEntity{}, fmt.Errorf("marshal sniper filters: %w", err)
	}
	return SniperConfigEntity{
		ID:                cfg.ID,
		User:              cfg.User,
		WalletID:          cfg.WalletID,
		Name:              cfg.Name,
		Active:            cfg.Active,
		SnipeAmountSOL:    cfg.SnipeAmountSOL,
		SlippageBps:       cfg.SlippageBps,
		PriorityFeeSOL:    cfg.PriorityFeeSOL,
		TakeProfitPct:     cfg.TakeProfitPct,
		StopLossPct:       cfg.StopLossPct,
		TrailingStopPct:   cfg.TrailingStopPct,
		CoverInitials:     cfg.CoverInitials,
		MEVProtected:      cfg.MEVProtected,
		FiltersJSON:       string(filtersJSON),
		TokensFilteredCnt: cfg.TokensFilteredCnt,
		CreatedAt:         cfg.CreatedAt,
		UpdatedAt:         cfg.UpdatedAt,
	}, nil
}

func toSniperDomain(e *SniperConfigEntity) (*model.SniperConfig, error) {
	var filters model.SniperFilters
	if e.FiltersJSON != "" {
		if err := json.Unmarshal([]byte(e.FiltersJSON), &filters); err != nil {
			return nil, fmt.Errorf("unmarshal sniper filters: %w", err)
		}
	}
	return &model.SniperConfig{
		ID:                e.ID,
		User:              e.User,
		WalletID:          e.WalletID,
		Name:              e.Name,
		Active:            e.Active,
		SnipeAmountSOL:    e.SnipeAmountSOL,
		SlippageBps:       e.SlippageBps,
		PriorityFeeSOL:    e.PriorityFeeSOL,
		TakeProfitPct:     e.TakeProfitPct,
		StopLossPct:       e.StopLossPct,
		TrailingStopPct:   e.TrailingStopPct,
		CoverInitials:     e.CoverInitials,
		MEVProtected:      e.MEVProtected,
		Filters:           filters,
		TokensFilteredCnt: e.TokensFilteredCnt,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}, nil
}

var _ port.SniperRepository = (*SniperRepository)(nil)
