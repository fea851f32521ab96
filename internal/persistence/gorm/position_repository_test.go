package gorm

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/model"
)

func newTestDB(t *testing.T, entities ...interface{}) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(entities...))
	return db
}

func TestPositionRepository_CreateGetByIDRoundTrips(t *testing.T) {
	db := newTestDB(t, &PositionEntity{})
	logger := zerolog.Nop()
	repo := NewPositionRepository(db, &logger)
	ctx := context.Background()

	pos := &model.Position{
		ID:            "pos-1",
		User:          "user-1",
		Wallet:        "wallet-1",
		SniperID:      "sniper-1",
		Mint:          "mintA",
		Status:        model.PositionStatusOpen,
		EntrySol:      0.1,
		EntryTokens:   1000,
		EntryPrice:    0.0001,
		EntryMcap:     12000,
		CurrentTokens: 1000,
		OpenedAt:      time.Now().Truncate(time.Second),
	}
	require.NoError(t, repo.Create(ctx, pos))

	got, err := repo.GetByID(ctx, "pos-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, pos.Mint, got.Mint)
	assert.Equal(t, model.PositionStatusOpen, got.Status)
	assert.Equal(t, pos.EntryTokens, got.EntryTokens)
}

func TestPositionRepository_GetByIDReturnsNilWhenMissing(t *testing.T) {
	db := newTestDB(t, &PositionEntity{})
	logger := zerolog.Nop()
	repo := NewPositionRepository(db, &logger)

	got, err := repo.GetByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPositionRepository_ListOpenOnlyReturnsOpenPositions(t *testing.T) {
	db := newTestDB(t, &PositionEntity{})
	logger := zerolog.Nop()
	repo := NewPositionRepository(db, &logger)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.Position{ID: "open-1", Status: model.PositionStatusOpen, Mint: "mintA", OpenedAt: time.Now()}))
	require.NoError(t, repo.Create(ctx, &model.Position{ID: "closed-1", Status: model.PositionStatusClosed, Mint: "mintB", OpenedAt: time.Now()}))

	open, err := repo.ListOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "open-1", open[0].ID)
}

func TestPositionRepository_ResetStuckSellingRevertsToOpen(t *testing.T) {
	db := newTestDB(t, &PositionEntity{})
	logger := zerolog.Nop()
	repo := NewPositionRepository(db, &logger)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.Position{ID: "stuck-1", Status: model.PositionStatusSelling, Mint: "mintA", OpenedAt: time.Now()}))
	require.NoError(t, repo.Create(ctx, &model.Position{ID: "open-1", Status: model.PositionStatusOpen, Mint: "mintB", OpenedAt: time.Now()}))

	n, err := repo.ResetStuckSelling(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.GetByID(ctx, "stuck-1")
	require.NoError(t, err)
	assert.Equal(t, model.PositionStatusOpen, got.Status)
}

func TestPositionRepository_UpdatePersistsExitFields(t *testing.T) {
	db := newTestDB(t, &PositionEntity{})
	logger := zerolog.Nop()
	repo := NewPositionRepository(db, &logger)
	ctx := context.Background()

	pos := &model.Position{ID: "pos-1", Status: model.PositionStatusOpen, Mint: "mintA", OpenedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, pos))

	exitSol := 0.15
	exitPrice := 0.00012
	now := time.Now().Truncate(time.Second)
	pos.Status = model.PositionStatusClosed
	pos.ExitSol = &exitSol
	pos.ExitPrice = &exitPrice
	pos.ClosedAt = &now
	require.NoError(t, repo.Update(ctx, pos))

	got, err := repo.GetByID(ctx, "pos-1")
	require.NoError(t, err)
	require.NotNil(t, got.ExitSol)
	assert.Equal(t, exitSol, *got.ExitSol)
	assert.Equal(t, model.PositionStatusClosed, got.Status)
}
