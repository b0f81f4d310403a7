package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dishpatch/merchant-backend/pkg/db/models"
	"github.com/dishpatch/merchant-backend/pkg/enums"
	"github.com/dishpatch/merchant-backend/pkg/pagination"
)

// ListFilters narrows merchant order listings.
type ListFilters struct {
	Status *enums.FoodOrderStatus
	From   *time.Time
	To     *time.Time
}

// OrderList is one page of orders plus the cursor for the next page.
type OrderList struct {
	Orders     []models.FoodOrder
	NextCursor string
}

// Repository manages persistence for food orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.FoodOrder) error
	CreateItems(ctx context.Context, items []models.OrderItem) error
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.FoodOrder, error)
	FindByExternalRef(ctx context.Context, externalRef string) (*models.FoodOrder, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	ListByStore(ctx context.Context, storeID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.FoodOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.FoodOrder, error) {
	var order models.FoodOrder
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByExternalRef(ctx context.Context, externalRef string) (*models.FoodOrder, error) {
	var order models.FoodOrder
	err := r.db.WithContext(ctx).
		Where("external_ref = ?", externalRef).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) UpdateStatus(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.FoodOrder{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

func (r *repository) ListByStore(ctx context.Context, storeID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error) {
	q := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("placed_at DESC, id DESC")

	if filters.Status != nil {
		q = q.Where("status = ?", *filters.Status)
	}
	if filters.From != nil {
		q = q.Where("placed_at >= ?", *filters.From)
	}
	if filters.To != nil {
		q = q.Where("placed_at < ?", *filters.To)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		q = q.Where("placed_at < ? OR (placed_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	limit := pagination.NormalizeLimit(params.Limit)
	q = q.Limit(pagination.LimitWithBuffer(params.Limit))

	var rows []models.FoodOrder
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	list := &OrderList{}
	if len(rows) > limit {
		last := rows[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.PlacedAt, ID: last.ID})
		rows = rows[:limit]
	}
	list.Orders = rows
	return list, nil
}
