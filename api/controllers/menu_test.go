package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dishpatch/merchant-backend/internal/menu"
	"github.com/dishpatch/merchant-backend/pkg/db/models"
)

type stubMenuService struct {
	createStoreID uuid.UUID
	createInput   menu.CreateItemInput
	listOnly      bool
	availability  *bool
	err           error
}

func (s *stubMenuService) Create(_ context.Context, storeID uuid.UUID, input menu.CreateItemInput) (*models.MenuItem, error) {
	s.createStoreID = storeID
	s.createInput = input
	if s.err != nil {
		return nil, s.err
	}
	return &models.MenuItem{StoreID: storeID, Name: input.Name, Price: input.Price}, nil
}

func (s *stubMenuService) Get(_ context.Context, _ uuid.UUID, _ uuid.UUID) (*models.MenuItem, error) {
	return nil, s.err
}

func (s *stubMenuService) List(_ context.Context, _ uuid.UUID, onlyAvailable bool) ([]models.MenuItem, error) {
	s.listOnly = onlyAvailable
	return []models.MenuItem{}, s.err
}

func (s *stubMenuService) Update(_ context.Context, _ uuid.UUID, _ uuid.UUID, _ menu.UpdateItemInput) (*models.MenuItem, error) {
	return nil, s.err
}

func (s *stubMenuService) SetAvailability(_ context.Context, _ uuid.UUID, itemID uuid.UUID, available bool) (*models.MenuItem, error) {
	s.availability = &available
	return &models.MenuItem{ID: itemID, IsAvailable: available}, s.err
}

func (s *stubMenuService) Delete(_ context.Context, _ uuid.UUID, _ uuid.UUID) error {
	return s.err
}

func TestMenuCreateParsesPrice(t *testing.T) {
	storeID := uuid.New()
	svc := &stubMenuService{}

	r := storeRequest(t, http.MethodPost, "/api/v1/menu",
		`{"name":"Paneer Tikka","category":"starters","price":"249.50","is_veg":true}`, storeID, uuid.New())
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	MenuCreate(svc, nil)(w, r)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, storeID, svc.createStoreID)
	require.Equal(t, "Paneer Tikka", svc.createInput.Name)
	require.True(t, svc.createInput.IsVeg)
	require.True(t, svc.createInput.Price.Equal(decimal.RequireFromString("249.50")))
}

func TestMenuCreateRejectsNegativePrice(t *testing.T) {
	svc := &stubMenuService{}

	r := storeRequest(t, http.MethodPost, "/api/v1/menu",
		`{"name":"Paneer Tikka","category":"starters","price":"-5"}`, uuid.New(), uuid.New())
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	MenuCreate(svc, nil)(w, r)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMenuListAvailableFilter(t *testing.T) {
	svc := &stubMenuService{}

	r := storeRequest(t, http.MethodGet, "/api/v1/menu?available=true", "", uuid.New(), uuid.New())
	w := httptest.NewRecorder()

	MenuList(svc, nil)(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, svc.listOnly)
}

func TestMenuSetAvailability(t *testing.T) {
	itemID := uuid.New()
	svc := &stubMenuService{}

	r := storeRequest(t, http.MethodPost, "/api/v1/menu/"+itemID.String()+"/availability",
		`{"available":false}`, uuid.New(), uuid.New())
	r.Header.Set("Content-Type", "application/json")
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("itemId", itemID.String())
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, routeCtx))
	w := httptest.NewRecorder()

	MenuSetAvailability(svc, nil)(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.availability)
	require.False(t, *svc.availability)
}
