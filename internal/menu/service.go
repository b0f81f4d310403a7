package menu

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dishpatch/merchant-backend/pkg/db/models"
	pkgerrors "github.com/dishpatch/merchant-backend/pkg/errors"
)

// CreateItemInput holds the fields required for a new menu item.
type CreateItemInput struct {
	Name           string
	Description    *string
	Category       string
	Price          decimal.Decimal
	IsVeg          bool
	ImageObjectKey *string
	SortOrder      int
}

// UpdateItemInput captures a partial menu item mutation.
type UpdateItemInput struct {
	Name           *string
	Description    *string
	Category       *string
	Price          *decimal.Decimal
	IsVeg          *bool
	ImageObjectKey *string
	SortOrder      *int
}

// Service exposes menu management for a store.
type Service interface {
	Create(ctx context.Context, storeID uuid.UUID, input CreateItemInput) (*models.MenuItem, error)
	Get(ctx context.Context, storeID, itemID uuid.UUID) (*models.MenuItem, error)
	List(ctx context.Context, storeID uuid.UUID, onlyAvailable bool) ([]models.MenuItem, error)
	Update(ctx context.Context, storeID, itemID uuid.UUID, input UpdateItemInput) (*models.MenuItem, error)
	SetAvailability(ctx context.Context, storeID, itemID uuid.UUID, available bool) (*models.MenuItem, error)
	Delete(ctx context.Context, storeID, itemID uuid.UUID) error
}

type service struct {
	repo Repository
}

// NewService builds a menu service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("menu repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, storeID uuid.UUID, input CreateItemInput) (*models.MenuItem, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name required")
	}
	if strings.TrimSpace(input.Category) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item category required")
	}
	if !input.Price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item price must be positive")
	}

	item := &models.MenuItem{
		StoreID:        storeID,
		Name:           strings.TrimSpace(input.Name),
		Description:    input.Description,
		Category:       strings.TrimSpace(input.Category),
		Price:          input.Price,
		IsVeg:          input.IsVeg,
		IsAvailable:    true,
		ImageObjectKey: input.ImageObjectKey,
		SortOrder:      input.SortOrder,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create menu item")
	}
	return item, nil
}

func (s *service) Get(ctx context.Context, storeID, itemID uuid.UUID) (*models.MenuItem, error) {
	return s.load(ctx, storeID, itemID)
}

func (s *service) List(ctx context.Context, storeID uuid.UUID, onlyAvailable bool) ([]models.MenuItem, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	items, err := s.repo.ListByStore(ctx, storeID, onlyAvailable)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list menu items")
	}
	return items, nil
}

func (s *service) Update(ctx context.Context, storeID, itemID uuid.UUID, input UpdateItemInput) (*models.MenuItem, error) {
	item, err := s.load(ctx, storeID, itemID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name required")
		}
		item.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		item.Description = input.Description
	}
	if input.Category != nil {
		if strings.TrimSpace(*input.Category) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item category required")
		}
		item.Category = strings.TrimSpace(*input.Category)
	}
	if input.Price != nil {
		if !input.Price.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item price must be positive")
		}
		item.Price = *input.Price
	}
	if input.IsVeg != nil {
		item.IsVeg = *input.IsVeg
	}
	if input.ImageObjectKey != nil {
		item.ImageObjectKey = input.ImageObjectKey
	}
	if input.SortOrder != nil {
		item.SortOrder = *input.SortOrder
	}

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update menu item")
	}
	return item, nil
}

func (s *service) SetAvailability(ctx context.Context, storeID, itemID uuid.UUID, available bool) (*models.MenuItem, error) {
	item, err := s.load(ctx, storeID, itemID)
	if err != nil {
		return nil, err
	}
	if item.IsAvailable == available {
		return item, nil
	}
	if err := s.repo.UpdateFields(ctx, item.ID, map[string]any{"is_available": available}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update item availability")
	}
	item.IsAvailable = available
	return item, nil
}

func (s *service) Delete(ctx context.Context, storeID, itemID uuid.UUID) error {
	item, err := s.load(ctx, storeID, itemID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, item.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete menu item")
	}
	return nil
}

// load fetches the item and enforces store ownership. A foreign item is
// reported as not found so item IDs are not enumerable across tenants.
func (s *service) load(ctx context.Context, storeID, itemID uuid.UUID) (*models.MenuItem, error) {
	if storeID == uuid.Nil || itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id and item id required")
	}
	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load menu item")
	}
	if item.StoreID != storeID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found")
	}
	return item, nil
}
