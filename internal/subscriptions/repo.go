package subscriptions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dishpatch/merchant-backend/pkg/db/models"
	"github.com/dishpatch/merchant-backend/pkg/enums"
)

// Repository handles plan, subscription, and charge persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindPlan(ctx context.Context, id string) (*models.BillingPlan, error)
	ListPlans(ctx context.Context) ([]models.BillingPlan, error)

	CreateSubscription(ctx context.Context, sub *models.Subscription) error
	FindSubscriptionByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	FindCurrentByStore(ctx context.Context, storeID uuid.UUID) (*models.Subscription, error)
	UpdateSubscription(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListPastDueEndedBefore(ctx context.Context, cutoff time.Time) ([]models.Subscription, error)

	CreateCharge(ctx context.Context, charge *models.Charge) error
	FindChargeByRazorpayOrderID(ctx context.Context, orderID string) (*models.Charge, error)
	UpdateCharge(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListChargesByStore(ctx context.Context, storeID uuid.UUID) ([]models.Charge, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to subscription operations.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindPlan(ctx context.Context, id string) (*models.BillingPlan, error) {
	var plan models.BillingPlan
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *repository) ListPlans(ctx context.Context) ([]models.BillingPlan, error) {
	var out []models.BillingPlan
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("price_amount ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *repository) FindSubscriptionByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindCurrentByStore returns the store's live subscription, meaning one
// that has not been cancelled or expired.
func (r *repository) FindCurrentByStore(ctx context.Context, storeID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND status IN ?", storeID, []enums.SubscriptionStatus{
			enums.SubscriptionStatusActive,
			enums.SubscriptionStatusPastDue,
		}).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) UpdateSubscription(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) ListPastDueEndedBefore(ctx context.Context, cutoff time.Time) ([]models.Subscription, error) {
	var out []models.Subscription
	err := r.db.WithContext(ctx).
		Where("status = ? AND current_period_end < ?", enums.SubscriptionStatusPastDue, cutoff).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) CreateCharge(ctx context.Context, charge *models.Charge) error {
	return r.db.WithContext(ctx).Create(charge).Error
}

func (r *repository) FindChargeByRazorpayOrderID(ctx context.Context, orderID string) (*models.Charge, error) {
	var charge models.Charge
	if err := r.db.WithContext(ctx).Where("razorpay_order_id = ?", orderID).First(&charge).Error; err != nil {
		return nil, err
	}
	return &charge, nil
}

func (r *repository) UpdateCharge(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Charge{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) ListChargesByStore(ctx context.Context, storeID uuid.UUID) ([]models.Charge, error) {
	var out []models.Charge
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
