package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dishpatch/merchant-backend/api/middleware"
	"github.com/dishpatch/merchant-backend/internal/orders"
	"github.com/dishpatch/merchant-backend/pkg/db/models"
	"github.com/dishpatch/merchant-backend/pkg/enums"
	"github.com/dishpatch/merchant-backend/pkg/pagination"
)

type stubOrderService struct {
	listStoreID  uuid.UUID
	listParams   pagination.Params
	listFilters  orders.ListFilters
	listResult   *orders.OrderList
	updateInput  orders.StatusUpdateInput
	updateResult *models.FoodOrder
	ingestInput  orders.IngestOrderInput
	ingestCalls  int
	ingestResult *models.FoodOrder
	err          error
}

func (s *stubOrderService) Ingest(_ context.Context, input orders.IngestOrderInput) (*models.FoodOrder, error) {
	s.ingestCalls++
	s.ingestInput = input
	return s.ingestResult, s.err
}

func (s *stubOrderService) UpdateStatus(_ context.Context, input orders.StatusUpdateInput) (*models.FoodOrder, error) {
	s.updateInput = input
	return s.updateResult, s.err
}

func (s *stubOrderService) Get(_ context.Context, _ uuid.UUID, _ uuid.UUID) (*models.FoodOrder, error) {
	return nil, s.err
}

func (s *stubOrderService) List(_ context.Context, storeID uuid.UUID, params pagination.Params, filters orders.ListFilters) (*orders.OrderList, error) {
	s.listStoreID = storeID
	s.listParams = params
	s.listFilters = filters
	return s.listResult, s.err
}

func storeRequest(t *testing.T, method, target, body string, storeID, userID uuid.UUID) *http.Request {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, target, reader)
	ctx := middleware.WithStoreID(r.Context(), storeID.String())
	ctx = middleware.WithUserID(ctx, userID.String())
	return r.WithContext(ctx)
}

func TestOrderListParsesFilters(t *testing.T) {
	storeID := uuid.New()
	svc := &stubOrderService{listResult: &orders.OrderList{NextCursor: "next"}}

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	target := "/api/v1/orders?limit=40&cursor=abc&status=preparing&from=" + from.Format(time.RFC3339)
	r := storeRequest(t, http.MethodGet, target, "", storeID, uuid.New())
	w := httptest.NewRecorder()

	OrderList(svc, nil)(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, storeID, svc.listStoreID)
	require.Equal(t, 40, svc.listParams.Limit)
	require.Equal(t, "abc", svc.listParams.Cursor)
	require.NotNil(t, svc.listFilters.Status)
	require.Equal(t, enums.FoodOrderStatusPreparing, *svc.listFilters.Status)
	require.NotNil(t, svc.listFilters.From)
	require.True(t, svc.listFilters.From.Equal(from))
	require.Nil(t, svc.listFilters.To)
}

func TestOrderListRejectsUnknownStatus(t *testing.T) {
	svc := &stubOrderService{}
	r := storeRequest(t, http.MethodGet, "/api/v1/orders?status=teleporting", "", uuid.New(), uuid.New())
	w := httptest.NewRecorder()

	OrderList(svc, nil)(w, r)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
}

func TestOrderListRequiresStoreContext(t *testing.T) {
	svc := &stubOrderService{}
	r := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	w := httptest.NewRecorder()

	OrderList(svc, nil)(w, r)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestOrderUpdateStatusForwardsActor(t *testing.T) {
	storeID := uuid.New()
	userID := uuid.New()
	orderID := uuid.New()
	svc := &stubOrderService{updateResult: &models.FoodOrder{ID: orderID}}

	r := storeRequest(t, http.MethodPatch, "/api/v1/orders/"+orderID.String()+"/status",
		`{"status":"cancelled","cancel_reason":"out of stock"}`, storeID, userID)
	r.Header.Set("Content-Type", "application/json")
	ctx := middleware.WithRole(r.Context(), "manager")

	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("orderId", orderID.String())
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	r = r.WithContext(ctx)

	w := httptest.NewRecorder()
	OrderUpdateStatus(svc, nil)(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, orderID, svc.updateInput.OrderID)
	require.Equal(t, storeID, svc.updateInput.StoreID)
	require.Equal(t, userID, svc.updateInput.ActorUserID)
	require.Equal(t, "cancelled", svc.updateInput.RawStatus)
	require.Equal(t, "manager", svc.updateInput.ActorRole)
	require.NotNil(t, svc.updateInput.CancelReason)
	require.Equal(t, "out of stock", *svc.updateInput.CancelReason)
}

func TestOrderUpdateStatusRejectsMissingBody(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrderService{}

	r := storeRequest(t, http.MethodPatch, "/api/v1/orders/"+orderID.String()+"/status", `{}`, uuid.New(), uuid.New())
	r.Header.Set("Content-Type", "application/json")
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("orderId", orderID.String())
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, routeCtx))

	w := httptest.NewRecorder()
	OrderUpdateStatus(svc, nil)(w, r)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminOrderIngestMapsItems(t *testing.T) {
	storeID := uuid.New()
	menuItemID := uuid.New()
	svc := &stubOrderService{ingestResult: &models.FoodOrder{ID: uuid.New()}}

	body := `{
		"store_id": "` + storeID.String() + `",
		"external_ref": "ZMT-88213",
		"customer_name": "Rohit S",
		"customer_phone": "+919812345678",
		"delivery_address": "14 Lake View Road",
		"item_total": "420.00",
		"delivery_fee": "30.00",
		"tax_amount": "22.50",
		"grand_total": "472.50",
		"merchant_earning": "352.80",
		"payment_mode": "prepaid",
		"items": [
			{"menu_item_id": "` + menuItemID.String() + `", "name": "Paneer Tikka", "quantity": 2, "unit_price": "180.00"},
			{"menu_item_id": null, "name": "Festive Combo", "quantity": 1, "unit_price": "60.00"}
		]
	}`
	r := httptest.NewRequest(http.MethodPost, "/api/admin/v1/orders/ingest", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	AdminOrderIngest(svc, nil)(w, r)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, 1, svc.ingestCalls)
	require.Equal(t, storeID, svc.ingestInput.StoreID)
	require.Equal(t, "ZMT-88213", svc.ingestInput.ExternalRef)
	require.True(t, svc.ingestInput.GrandTotal.Equal(decimal.RequireFromString("472.50")))
	require.Len(t, svc.ingestInput.Items, 2)
	require.NotNil(t, svc.ingestInput.Items[0].MenuItemID)
	require.Equal(t, menuItemID, *svc.ingestInput.Items[0].MenuItemID)
	require.Nil(t, svc.ingestInput.Items[1].MenuItemID)
	require.True(t, svc.ingestInput.Items[1].UnitPrice.Equal(decimal.RequireFromString("60.00")))
}

func TestAdminOrderIngestRequiresMenuItemField(t *testing.T) {
	svc := &stubOrderService{}

	body := `{
		"store_id": "` + uuid.New().String() + `",
		"external_ref": "ZMT-88214",
		"customer_name": "Rohit S",
		"delivery_address": "14 Lake View Road",
		"item_total": "60.00",
		"grand_total": "60.00",
		"merchant_earning": "45.00",
		"payment_mode": "cod",
		"items": [
			{"name": "Festive Combo", "quantity": 1, "unit_price": "60.00"}
		]
	}`
	r := httptest.NewRequest(http.MethodPost, "/api/admin/v1/orders/ingest", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	AdminOrderIngest(svc, nil)(w, r)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Zero(t, svc.ingestCalls)
}

func TestAdminOrderIngestRejectsNegativeAmount(t *testing.T) {
	svc := &stubOrderService{}

	body := `{
		"store_id": "` + uuid.New().String() + `",
		"external_ref": "ZMT-88215",
		"customer_name": "Rohit S",
		"delivery_address": "14 Lake View Road",
		"item_total": "60.00",
		"grand_total": "-60.00",
		"merchant_earning": "45.00",
		"payment_mode": "cod",
		"items": [
			{"menu_item_id": null, "name": "Festive Combo", "quantity": 1, "unit_price": "60.00"}
		]
	}`
	r := httptest.NewRequest(http.MethodPost, "/api/admin/v1/orders/ingest", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	AdminOrderIngest(svc, nil)(w, r)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Zero(t, svc.ingestCalls)
}
