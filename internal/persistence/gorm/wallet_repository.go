package gorm

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/BrowningVC/Migratorrr-sub000/internal/apperror"
	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/port"
)

// WalletEntity is the encrypted-at-rest wallet record. Wallet creation and
// key encryption are explicitly out of scope for this pipeline (spec §1:
// "wallet key encryption-at-rest (we consume a decrypt operation)") — this
// repository only ever reads rows an external service has already
// written.
type WalletEntity struct {
	ID               string `gorm:"primaryKey"`
	User             string `gorm:"index"`
	PublicKey        string
	EncryptedPrivKey []byte
	KeyVersion       int
}

func (WalletEntity) TableName() string { return "wallets" }

// WalletRepository implements port.WalletRepository over GORM.
type WalletRepository struct {
	base BaseRepository
}

func NewWalletRepository(db *gorm.DB, logger *zerolog.Logger) *WalletRepository {
	l := logger.With().Str("component", "wallet_repository").Logger()
	return &WalletRepository{base: NewBaseRepository(db, &l)}
}

func (r *WalletRepository) GetByID(ctx context.Context, id string) (*port.WalletRecord, error) {
	var entity WalletEntity
	result := r.base.GetDB(ctx).Where("id = ?", id).First(&entity)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrWalletNotFound
		}
		return nil, result.Error
	}
	return &port.WalletRecord{
		ID:               entity.ID,
		User:             entity.User,
		PublicKey:        entity.PublicKey,
		EncryptedPrivKey: entity.EncryptedPrivKey,
		KeyVersion:       entity.KeyVersion,
	}, nil
}

var _ port.WalletRepository = (*WalletRepository)(nil)
