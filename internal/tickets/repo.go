package tickets

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dishpatch/merchant-backend/pkg/db/models"
	"github.com/dishpatch/merchant-backend/pkg/enums"
)

// Repository handles support ticket persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, ticket *models.Ticket) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	FindByIDWithMessages(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	ListByStore(ctx context.Context, storeID uuid.UUID, status *enums.TicketStatus) ([]models.Ticket, error)
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error
	CreateMessage(ctx context.Context, message *models.TicketMessage) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to ticket operations.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, ticket *models.Ticket) error {
	return r.db.WithContext(ctx).Create(ticket).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&ticket).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *repository) FindByIDWithMessages(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).
		First(&ticket).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *repository) ListByStore(ctx context.Context, storeID uuid.UUID, status *enums.TicketStatus) ([]models.Ticket, error) {
	query := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("last_message_at DESC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var out []models.Ticket
	if err := query.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) CreateMessage(ctx context.Context, message *models.TicketMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}
