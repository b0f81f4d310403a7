package menu

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dishpatch/merchant-backend/pkg/db/models"
	pkgerrors "github.com/dishpatch/merchant-backend/pkg/errors"
)

type stubMenuRepo struct {
	items   map[uuid.UUID]*models.MenuItem
	deleted []uuid.UUID
}

func newStubMenuRepo() *stubMenuRepo {
	return &stubMenuRepo{items: make(map[uuid.UUID]*models.MenuItem)}
}

func (s *stubMenuRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubMenuRepo) Create(ctx context.Context, item *models.MenuItem) error {
	item.ID = uuid.New()
	copied := *item
	s.items[item.ID] = &copied
	return nil
}

func (s *stubMenuRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.MenuItem, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *item
	return &copied, nil
}

func (s *stubMenuRepo) ListByStore(ctx context.Context, storeID uuid.UUID, onlyAvailable bool) ([]models.MenuItem, error) {
	var out []models.MenuItem
	for _, item := range s.items {
		if item.StoreID != storeID {
			continue
		}
		if onlyAvailable && !item.IsAvailable {
			continue
		}
		out = append(out, *item)
	}
	return out, nil
}

func (s *stubMenuRepo) Update(ctx context.Context, item *models.MenuItem) error {
	copied := *item
	s.items[item.ID] = &copied
	return nil
}

func (s *stubMenuRepo) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	item, ok := s.items[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if available, found := updates["is_available"]; found {
		item.IsAvailable = available.(bool)
	}
	return nil
}

func (s *stubMenuRepo) Delete(ctx context.Context, id uuid.UUID) error {
	s.deleted = append(s.deleted, id)
	delete(s.items, id)
	return nil
}

func newMenuService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func seedItem(repo *stubMenuRepo, storeID uuid.UUID, name string, available bool) uuid.UUID {
	item := &models.MenuItem{
		ID:          uuid.New(),
		StoreID:     storeID,
		Name:        name,
		Category:    "Mains",
		Price:       decimal.NewFromInt(250),
		IsAvailable: available,
	}
	repo.items[item.ID] = item
	return item.ID
}

func TestCreateMenuItemDefaultsAvailable(t *testing.T) {
	repo := newStubMenuRepo()
	svc := newMenuService(t, repo)
	storeID := uuid.New()

	item, err := svc.Create(context.Background(), storeID, CreateItemInput{
		Name:     "Paneer Butter Masala",
		Category: "Mains",
		Price:    decimal.NewFromFloat(289.00),
		IsVeg:    true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !item.IsAvailable {
		t.Fatal("expected new items to start available")
	}
	if item.StoreID != storeID {
		t.Fatalf("expected store %s, got %s", storeID, item.StoreID)
	}
	if !item.Price.Equal(decimal.NewFromFloat(289.00)) {
		t.Fatalf("unexpected price %s", item.Price)
	}
}

func TestCreateMenuItemRejectsNonPositivePrice(t *testing.T) {
	repo := newStubMenuRepo()
	svc := newMenuService(t, repo)

	_, err := svc.Create(context.Background(), uuid.New(), CreateItemInput{
		Name:     "Free Sample",
		Category: "Mains",
		Price:    decimal.Zero,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(repo.items) != 0 {
		t.Fatalf("expected no item persisted, got %d", len(repo.items))
	}
}

func TestUpdateMenuItemPartial(t *testing.T) {
	repo := newStubMenuRepo()
	svc := newMenuService(t, repo)
	storeID := uuid.New()
	itemID := seedItem(repo, storeID, "Dal Tadka", true)

	price := decimal.NewFromFloat(199.50)
	item, err := svc.Update(context.Background(), storeID, itemID, UpdateItemInput{Price: &price})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !item.Price.Equal(price) {
		t.Fatalf("expected price %s, got %s", price, item.Price)
	}
	if item.Name != "Dal Tadka" {
		t.Fatalf("expected name untouched, got %q", item.Name)
	}
}

func TestMenuItemForeignStoreIsNotFound(t *testing.T) {
	repo := newStubMenuRepo()
	svc := newMenuService(t, repo)
	itemID := seedItem(repo, uuid.New(), "Dal Tadka", true)

	_, err := svc.Get(context.Background(), uuid.New(), itemID)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSetAvailabilityTogglesItem(t *testing.T) {
	repo := newStubMenuRepo()
	svc := newMenuService(t, repo)
	storeID := uuid.New()
	itemID := seedItem(repo, storeID, "Biryani", true)

	item, err := svc.SetAvailability(context.Background(), storeID, itemID, false)
	if err != nil {
		t.Fatalf("SetAvailability: %v", err)
	}
	if item.IsAvailable {
		t.Fatal("expected item to be unavailable")
	}
	if repo.items[itemID].IsAvailable {
		t.Fatal("expected persisted row to be unavailable")
	}
}

func TestListFiltersUnavailable(t *testing.T) {
	repo := newStubMenuRepo()
	svc := newMenuService(t, repo)
	storeID := uuid.New()
	seedItem(repo, storeID, "Biryani", true)
	seedItem(repo, storeID, "Kheer", false)
	seedItem(repo, uuid.New(), "Other Store Dish", true)

	all, err := svc.List(context.Background(), storeID, false)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 items, got %d", len(all))
	}

	available, err := svc.List(context.Background(), storeID, true)
	if err != nil {
		t.Fatalf("List available: %v", err)
	}
	if len(available) != 1 || available[0].Name != "Biryani" {
		t.Fatalf("expected only Biryani, got %+v", available)
	}
}

func TestDeleteMenuItem(t *testing.T) {
	repo := newStubMenuRepo()
	svc := newMenuService(t, repo)
	storeID := uuid.New()
	itemID := seedItem(repo, storeID, "Biryani", true)

	if err := svc.Delete(context.Background(), storeID, itemID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != itemID {
		t.Fatalf("expected item deleted, got %v", repo.deleted)
	}

	err := svc.Delete(context.Background(), storeID, itemID)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}
