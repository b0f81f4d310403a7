package otp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dishpatch/merchant-backend/pkg/db/models"
)

// Repository manages persistence for order OTP rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, row *models.OrderOTP) error
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.OrderOTP, error)
	FindByOrderIDForUpdate(ctx context.Context, orderID uuid.UUID) (*models.OrderOTP, error)
	MarkVerified(ctx context.Context, id uuid.UUID, verifiedAt time.Time) error
	RecordFailure(ctx context.Context, id uuid.UUID, attempts int, lockedUntil *time.Time) error
	Reset(ctx context.Context, id uuid.UUID, codeHash string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an OTP repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, row *models.OrderOTP) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.OrderOTP, error) {
	var row models.OrderOTP
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindByOrderIDForUpdate(ctx context.Context, orderID uuid.UUID) (*models.OrderOTP, error) {
	var row models.OrderOTP
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", orderID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) MarkVerified(ctx context.Context, id uuid.UUID, verifiedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderOTP{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"verified_at":   verifiedAt,
			"attempt_count": 0,
			"locked_until":  nil,
		}).Error
}

func (r *repository) RecordFailure(ctx context.Context, id uuid.UUID, attempts int, lockedUntil *time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderOTP{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"attempt_count": attempts,
			"locked_until":  lockedUntil,
		}).Error
}

func (r *repository) Reset(ctx context.Context, id uuid.UUID, codeHash string) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderOTP{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"code_hash":     codeHash,
			"attempt_count": 0,
			"locked_until":  nil,
			"verified_at":   nil,
		}).Error
}
