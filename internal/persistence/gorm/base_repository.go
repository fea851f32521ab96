package gorm

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// txContextKey is how a caller-managed transaction is threaded through
// context, mirrored from the teacher's BaseRepository.GetDB pattern
// (internal/adapter/repository/gorm/base_repository.go).
type txContextKey struct{}

// WithTx returns a context carrying tx, so a subsequent repository call
// made with that context runs inside it instead of opening its own.
func WithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// BaseRepository provides the shared GetDB-from-context plumbing every
// entity-specific repository in this package embeds.
type BaseRepository struct {
	db     *gorm.DB
	logger *zerolog.Logger
}

// NewBaseRepository wraps an existing *gorm.DB connection.
func NewBaseRepository(db *gorm.DB, logger *zerolog.Logger) BaseRepository {
	return BaseRepository{db: db, logger: logger}
}

// GetDB returns the transaction bound to ctx via WithTx, or the
// repository's own connection if none was bound.
func (r *BaseRepository) GetDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return tx
	}
	return r.db.WithContext(ctx)
}
