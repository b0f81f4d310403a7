package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dishpatch/merchant-backend/pkg/db/models"
)

// Repository manages persistence for merchant wallets and their entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetOrCreateForUpdate(ctx context.Context, storeID uuid.UUID) (*models.MerchantWallet, error)
	FindByStoreID(ctx context.Context, storeID uuid.UUID) (*models.MerchantWallet, error)
	UpdateBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal) error
	CreateEntry(ctx context.Context, entry *models.WalletEntry) error
	FindEntryByIdempotencyKey(ctx context.Context, key string) (*models.WalletEntry, error)
	ListEntries(ctx context.Context, walletID uuid.UUID, limit int, before *time.Time) ([]models.WalletEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// GetOrCreateForUpdate loads the store's wallet under a row lock, creating it first if absent.
func (r *repository) GetOrCreateForUpdate(ctx context.Context, storeID uuid.UUID) (*models.MerchantWallet, error) {
	var wallet models.MerchantWallet
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("store_id = ?", storeID).
		First(&wallet).Error
	if err == nil {
		return &wallet, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	wallet = models.MerchantWallet{ID: uuid.New(), StoreID: storeID}
	if createErr := r.db.WithContext(ctx).Create(&wallet).Error; createErr != nil {
		return nil, createErr
	}

	// Re-read under the lock so concurrent creators serialize on the row.
	err = r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("store_id = ?", storeID).
		First(&wallet).Error
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) FindByStoreID(ctx context.Context, storeID uuid.UUID) (*models.MerchantWallet, error) {
	var wallet models.MerchantWallet
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		First(&wallet).Error
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) UpdateBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.MerchantWallet{}).
		Where("id = ?", walletID).
		Update("balance", balance).Error
}

func (r *repository) CreateEntry(ctx context.Context, entry *models.WalletEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindEntryByIdempotencyKey(ctx context.Context, key string) (*models.WalletEntry, error) {
	var entry models.WalletEntry
	err := r.db.WithContext(ctx).
		Where("idempotency_key = ?", key).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListEntries(ctx context.Context, walletID uuid.UUID, limit int, before *time.Time) ([]models.WalletEntry, error) {
	q := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC")
	if before != nil {
		q = q.Where("created_at < ?", *before)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var entries []models.WalletEntry
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
