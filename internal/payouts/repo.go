package payouts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dishpatch/merchant-backend/pkg/db/models"
	"github.com/dishpatch/merchant-backend/pkg/enums"
)

// Repository handles payout account and request persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateAccount(ctx context.Context, account *models.PayoutAccount) error
	FindAccountByID(ctx context.Context, id uuid.UUID) (*models.PayoutAccount, error)
	ListAccountsByStore(ctx context.Context, storeID uuid.UUID) ([]models.PayoutAccount, error)
	UpdateAccount(ctx context.Context, id uuid.UUID, updates map[string]any) error
	DeleteAccount(ctx context.Context, id uuid.UUID) error

	CreateRequest(ctx context.Context, request *models.PayoutRequest) error
	FindRequestByID(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error)
	ListRequestsByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]models.PayoutRequest, error)
	CountOpenRequests(ctx context.Context, storeID uuid.UUID) (int64, error)
	UpdateRequest(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to payout operations.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateAccount(ctx context.Context, account *models.PayoutAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *repository) FindAccountByID(ctx context.Context, id uuid.UUID) (*models.PayoutAccount, error) {
	var account models.PayoutAccount
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) ListAccountsByStore(ctx context.Context, storeID uuid.UUID) ([]models.PayoutAccount, error) {
	var out []models.PayoutAccount
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) UpdateAccount(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.PayoutAccount{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.PayoutAccount{}).Error
}

func (r *repository) CreateRequest(ctx context.Context, request *models.PayoutRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repository) FindRequestByID(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error) {
	var request models.PayoutRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) ListRequestsByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]models.PayoutRequest, error) {
	var out []models.PayoutRequest
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) CountOpenRequests(ctx context.Context, storeID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PayoutRequest{}).
		Where("store_id = ? AND status IN ?", storeID, []enums.PayoutStatus{
			enums.PayoutStatusRequested,
			enums.PayoutStatusApproved,
			enums.PayoutStatusProcessing,
		}).
		Count(&count).Error
	return count, err
}

func (r *repository) UpdateRequest(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.PayoutRequest{}).
		Where("id = ?", id).
		Updates(updates).Error
}
