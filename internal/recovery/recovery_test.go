package recovery

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/model"
)

type fakePositionRepo struct {
	resetCount int64
	resetErr   error
}

func (f *fakePositionRepo) Create(ctx context.Context, p *model.Position) error { return nil }
func (f *fakePositionRepo) GetByID(ctx context.Context, id string) (*model.Position, error) {
	return nil, nil
}
func (f *fakePositionRepo) GetOpenByMint(ctx context.Context, user, mint string) (*model.Position, error) {
	return nil, nil
}
func (f *fakePositionRepo) ListOpen(ctx context.Context) ([]model.Position, error) { return nil, nil }
func (f *fakePositionRepo) Update(ctx context.Context, p *model.Position) error    { return nil }
func (f *fakePositionRepo) ResetStuckSelling(ctx context.Context) (int64, error) {
	return f.resetCount, f.resetErr
}

func TestRunRevertsStuckSellingPositions(t *testing.T) {
	repo := &fakePositionRepo{resetCount: 3}
	r := &Runner{Positions: repo, Logger: zerolog.Nop()}

	require.NoError(t, r.Run(context.Background()))
}

func TestRunSucceedsWhenNothingToRevert(t *testing.T) {
	repo := &fakePositionRepo{resetCount: 0}
	r := &Runner{Positions: repo, Logger: zerolog.Nop()}

	require.NoError(t, r.Run(context.Background()))
}

func TestRunPropagatesRepositoryError(t *testing.T) {
	repo := &fakePositionRepo{resetErr: errors.New("db unavailable")}
	r := &Runner{Positions: repo, Logger: zerolog.Nop()}

	err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db unavailable")
}
