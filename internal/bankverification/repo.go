package bankverification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dishpatch/merchant-backend/pkg/db/models"
)

// Repository manages the verification attempt log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, attempt *models.VerificationAttempt) error
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	CountInWindow(ctx context.Context, storeID uuid.UUID, from, to time.Time) (int64, error)
	ListByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]models.VerificationAttempt, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a verification repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, attempt *models.VerificationAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.VerificationAttempt{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) CountInWindow(ctx context.Context, storeID uuid.UUID, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.VerificationAttempt{}).
		Where("store_id = ? AND attempted_at >= ? AND attempted_at < ?", storeID, from, to).
		Count(&count).Error
	return count, err
}

func (r *repository) ListByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]models.VerificationAttempt, error) {
	q := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("attempted_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var out []models.VerificationAttempt
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("attempted_at < ?", cutoff).
		Delete(&models.VerificationAttempt{})
	return res.RowsAffected, res.Error
}
