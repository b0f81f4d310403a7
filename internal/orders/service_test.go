package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dishpatch/merchant-backend/internal/wallet"
	"github.com/dishpatch/merchant-backend/pkg/db/models"
	"github.com/dishpatch/merchant-backend/pkg/enums"
	pkgerrors "github.com/dishpatch/merchant-backend/pkg/errors"
	"github.com/dishpatch/merchant-backend/pkg/outbox"
	"github.com/dishpatch/merchant-backend/pkg/outbox/payloads"
	"github.com/dishpatch/merchant-backend/pkg/pagination"
)

type stubOrdersRepo struct {
	order         *models.FoodOrder
	byRef         map[string]*models.FoodOrder
	updates       map[string]any
	updateCalls   int
	createdOrders []*models.FoodOrder
	createdItems  []models.OrderItem
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubOrdersRepo) Create(ctx context.Context, order *models.FoodOrder) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	s.createdOrders = append(s.createdOrders, order)
	return nil
}

func (s *stubOrdersRepo) CreateItems(ctx context.Context, items []models.OrderItem) error {
	s.createdItems = append(s.createdItems, items...)
	return nil
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, orderID uuid.UUID) (*models.FoodOrder, error) {
	if s.order == nil || s.order.ID != orderID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.order
	return &copied, nil
}

func (s *stubOrdersRepo) FindByExternalRef(ctx context.Context, externalRef string) (*models.FoodOrder, error) {
	if existing, ok := s.byRef[externalRef]; ok {
		return existing, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrdersRepo) UpdateStatus(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	s.updateCalls++
	s.updates = updates
	if status, ok := updates["status"].(enums.FoodOrderStatus); ok && s.order != nil {
		s.order.Status = status
	}
	return nil
}

func (s *stubOrdersRepo) ListByStore(ctx context.Context, storeID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error) {
	return &OrderList{}, nil
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
	err    error
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

type creditCall struct {
	input wallet.MovementInput
}

type stubEarningsCreditor struct {
	calls []creditCall
	err   error
}

func (s *stubEarningsCreditor) Credit(ctx context.Context, input wallet.MovementInput) (*models.WalletEntry, error) {
	s.calls = append(s.calls, creditCall{input: input})
	if s.err != nil {
		return nil, s.err
	}
	return &models.WalletEntry{ID: uuid.New(), IdempotencyKey: input.IdempotencyKey}, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubCodeIssuer struct {
	orderIDs []uuid.UUID
	code     string
	err      error
}

func (s *stubCodeIssuer) Issue(ctx context.Context, orderID uuid.UUID) (string, error) {
	s.orderIDs = append(s.orderIDs, orderID)
	if s.err != nil {
		return "", s.err
	}
	if s.code == "" {
		return "482913", nil
	}
	return s.code, nil
}

func newOrder(storeID uuid.UUID, status enums.FoodOrderStatus) *models.FoodOrder {
	return &models.FoodOrder{
		ID:              uuid.New(),
		StoreID:         storeID,
		ExternalRef:     "ext-100",
		Status:          status,
		MerchantEarning: decimal.NewFromFloat(180.50),
		GrandTotal:      decimal.NewFromFloat(240.00),
		PlacedAt:        time.Now().UTC().Add(-time.Hour),
	}
}

func newTestService(t *testing.T, repo *stubOrdersRepo, pub *stubOutboxPublisher, creditor *stubEarningsCreditor) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, pub, creditor, &stubCodeIssuer{}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestUpdateStatusAcceptsAllowedTransition(t *testing.T) {
	storeID := uuid.New()
	repo := &stubOrdersRepo{order: newOrder(storeID, enums.FoodOrderStatusCreated)}
	pub := &stubOutboxPublisher{}
	creditor := &stubEarningsCreditor{}
	svc := newTestService(t, repo, pub, creditor)

	updated, err := svc.UpdateStatus(context.Background(), StatusUpdateInput{
		OrderID:     repo.order.ID,
		StoreID:     storeID,
		RawStatus:   "accepted",
		ActorUserID: uuid.New(),
		ActorRole:   "owner",
	})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != enums.FoodOrderStatusAccepted {
		t.Fatalf("expected accepted, got %s", updated.Status)
	}
	if updated.AcceptedAt == nil {
		t.Fatal("expected accepted_at to be set")
	}
	if len(pub.events) != 1 || pub.events[0].EventType != enums.EventOrderStatusChanged {
		t.Fatalf("expected one status-changed event, got %+v", pub.events)
	}
	if len(creditor.calls) != 0 {
		t.Fatal("no credit expected before delivery")
	}
}

func TestUpdateStatusRejectsInvalidTransition(t *testing.T) {
	storeID := uuid.New()
	repo := &stubOrdersRepo{order: newOrder(storeID, enums.FoodOrderStatusPreparing)}
	pub := &stubOutboxPublisher{}
	svc := newTestService(t, repo, pub, &stubEarningsCreditor{})

	_, err := svc.UpdateStatus(context.Background(), StatusUpdateInput{
		OrderID:   repo.order.ID,
		StoreID:   storeID,
		RawStatus: "delivered",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if appErr.Message() != "invalid transition from preparing to delivered" {
		t.Fatalf("unexpected message %q", appErr.Message())
	}
	if repo.updateCalls != 0 {
		t.Fatal("status must not be mutated on rejection")
	}
	if len(pub.events) != 0 {
		t.Fatal("no events expected on rejection")
	}
}

func TestUpdateStatusNormalizesLegacyAlias(t *testing.T) {
	storeID := uuid.New()
	repo := &stubOrdersRepo{order: newOrder(storeID, enums.FoodOrderStatusAccepted)}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, &stubEarningsCreditor{})

	_, err := svc.UpdateStatus(context.Background(), StatusUpdateInput{
		OrderID:   repo.order.ID,
		StoreID:   storeID,
		RawStatus: "new",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for alias target, got %v", err)
	}
}

func TestUpdateStatusDeliveredCreditsWalletOnce(t *testing.T) {
	storeID := uuid.New()
	repo := &stubOrdersRepo{order: newOrder(storeID, enums.FoodOrderStatusOutForDelivery)}
	pub := &stubOutboxPublisher{}
	creditor := &stubEarningsCreditor{}
	svc := newTestService(t, repo, pub, creditor)

	updated, err := svc.UpdateStatus(context.Background(), StatusUpdateInput{
		OrderID:     repo.order.ID,
		StoreID:     storeID,
		RawStatus:   "delivered",
		ActorUserID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.DeliveredAt == nil {
		t.Fatal("expected delivered_at to be set")
	}
	if len(creditor.calls) != 1 {
		t.Fatalf("expected exactly one credit, got %d", len(creditor.calls))
	}
	call := creditor.calls[0].input
	if call.IdempotencyKey != wallet.OrderEarningKey(repo.order.ID) {
		t.Fatalf("unexpected idempotency key %q", call.IdempotencyKey)
	}
	if !call.Amount.Equal(decimal.NewFromFloat(180.50)) {
		t.Fatalf("unexpected credit amount %s", call.Amount)
	}
	if call.Category != enums.WalletEntryCategoryOrderEarning {
		t.Fatalf("unexpected category %s", call.Category)
	}

	if len(pub.events) != 3 {
		t.Fatalf("expected status-changed, delivered and notification events, got %d", len(pub.events))
	}
	if pub.events[1].EventType != enums.EventOrderDelivered {
		t.Fatalf("expected delivered event, got %s", pub.events[1].EventType)
	}
	if pub.events[2].EventType != enums.EventNotificationRequested {
		t.Fatalf("expected notification request, got %s", pub.events[2].EventType)
	}
}

func TestUpdateStatusDeliveredCreditFailureDoesNotFailRequest(t *testing.T) {
	storeID := uuid.New()
	repo := &stubOrdersRepo{order: newOrder(storeID, enums.FoodOrderStatusOutForDelivery)}
	creditor := &stubEarningsCreditor{err: pkgerrors.New(pkgerrors.CodeDependency, "wallet unavailable")}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, creditor)

	updated, err := svc.UpdateStatus(context.Background(), StatusUpdateInput{
		OrderID:   repo.order.ID,
		StoreID:   storeID,
		RawStatus: "delivered",
	})
	if err != nil {
		t.Fatalf("delivery must stand despite credit failure: %v", err)
	}
	if updated.Status != enums.FoodOrderStatusDelivered {
		t.Fatalf("expected delivered, got %s", updated.Status)
	}
	if len(creditor.calls) != 1 {
		t.Fatalf("expected one credit attempt, got %d", len(creditor.calls))
	}
}

func TestUpdateStatusMismatchedStoreIsNotFound(t *testing.T) {
	repo := &stubOrdersRepo{order: newOrder(uuid.New(), enums.FoodOrderStatusCreated)}
	svc := newTestService(t, repo, &stubOutboxPublisher{}, &stubEarningsCreditor{})

	_, err := svc.UpdateStatus(context.Background(), StatusUpdateInput{
		OrderID:   repo.order.ID,
		StoreID:   uuid.New(),
		RawStatus: "accepted",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for foreign store, got %v", err)
	}
}

func TestIngestIsIdempotentOnExternalRef(t *testing.T) {
	storeID := uuid.New()
	existing := newOrder(storeID, enums.FoodOrderStatusAccepted)
	repo := &stubOrdersRepo{byRef: map[string]*models.FoodOrder{"ext-100": existing}}
	pub := &stubOutboxPublisher{}
	svc := newTestService(t, repo, pub, &stubEarningsCreditor{})

	order, err := svc.Ingest(context.Background(), IngestOrderInput{
		StoreID:     storeID,
		ExternalRef: "ext-100",
		GrandTotal:  decimal.NewFromInt(240),
		Items:       []IngestOrderItem{{Name: "Veg Thali", Quantity: 1, UnitPrice: decimal.NewFromInt(240)}},
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if order.ID != existing.ID {
		t.Fatal("expected existing order to be returned")
	}
	if len(repo.createdOrders) != 0 {
		t.Fatal("no new order should be created")
	}
	if len(pub.events) != 0 {
		t.Fatal("no events expected on replay")
	}
}

func TestIngestCreatesOrderWithItems(t *testing.T) {
	storeID := uuid.New()
	repo := &stubOrdersRepo{}
	pub := &stubOutboxPublisher{}
	svc := newTestService(t, repo, pub, &stubEarningsCreditor{})

	order, err := svc.Ingest(context.Background(), IngestOrderInput{
		StoreID:      storeID,
		ExternalRef:  "ext-7",
		CustomerName: "Asha",
		GrandTotal:   decimal.NewFromInt(500),
		Items: []IngestOrderItem{
			{Name: "Dal Makhani", Quantity: 2, UnitPrice: decimal.NewFromInt(150)},
			{Name: "Naan", Quantity: 4, UnitPrice: decimal.NewFromInt(50)},
		},
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if order.Status != enums.FoodOrderStatusCreated {
		t.Fatalf("expected created, got %s", order.Status)
	}
	if len(repo.createdItems) != 2 {
		t.Fatalf("expected 2 items, got %d", len(repo.createdItems))
	}
	if !repo.createdItems[0].LineTotal.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("unexpected line total %s", repo.createdItems[0].LineTotal)
	}
	if len(pub.events) != 2 || pub.events[0].EventType != enums.EventOrderCreated {
		t.Fatalf("expected order-created event, got %+v", pub.events)
	}
	notify, ok := pub.events[1].Data.(payloads.NotificationRequestedEvent)
	if !ok || pub.events[1].EventType != enums.EventNotificationRequested {
		t.Fatalf("expected notification request for the new order, got %+v", pub.events[1])
	}
	if pub.events[1].AggregateType != enums.AggregateNotification {
		t.Fatalf("expected notification aggregate, got %s", pub.events[1].AggregateType)
	}
	if notify.StoreID != storeID || notify.Type != enums.NotificationTypeOrderAlert {
		t.Fatalf("unexpected notification payload %+v", notify)
	}
}

func TestUpdateStatusOutForDeliveryIssuesOTP(t *testing.T) {
	storeID := uuid.New()
	repo := &stubOrdersRepo{order: newOrder(storeID, enums.FoodOrderStatusReadyForPickup)}
	pub := &stubOutboxPublisher{}
	issuer := &stubCodeIssuer{code: "907312"}
	svc, err := NewService(repo, stubTxRunner{}, pub, &stubEarningsCreditor{}, issuer, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	updated, err := svc.UpdateStatus(context.Background(), StatusUpdateInput{
		OrderID:   repo.order.ID,
		StoreID:   storeID,
		RawStatus: "out_for_delivery",
	})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.OutForDeliveryAt == nil {
		t.Fatal("expected out_for_delivery_at to be set")
	}
	if len(issuer.orderIDs) != 1 || issuer.orderIDs[0] != repo.order.ID {
		t.Fatalf("expected one code issued for the order, got %v", issuer.orderIDs)
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected one status-changed event, got %d", len(pub.events))
	}
	payload, ok := pub.events[0].Data.(payloads.OrderStatusChangedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", pub.events[0].Data)
	}
	if payload.DeliveryOTP != "907312" {
		t.Fatalf("expected delivery otp in payload, got %q", payload.DeliveryOTP)
	}
}

func TestUpdateStatusAcceptedDoesNotIssueOTP(t *testing.T) {
	storeID := uuid.New()
	repo := &stubOrdersRepo{order: newOrder(storeID, enums.FoodOrderStatusCreated)}
	issuer := &stubCodeIssuer{}
	svc, err := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{}, &stubEarningsCreditor{}, issuer, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if _, err := svc.UpdateStatus(context.Background(), StatusUpdateInput{
		OrderID:   repo.order.ID,
		StoreID:   storeID,
		RawStatus: "accepted",
	}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if len(issuer.orderIDs) != 0 {
		t.Fatal("no code expected outside out_for_delivery")
	}
}

func TestUpdateStatusOutForDeliveryFailsWithoutCode(t *testing.T) {
	storeID := uuid.New()
	repo := &stubOrdersRepo{order: newOrder(storeID, enums.FoodOrderStatusReadyForPickup)}
	issuer := &stubCodeIssuer{err: pkgerrors.New(pkgerrors.CodeDependency, "otp store unavailable")}
	svc, err := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{}, &stubEarningsCreditor{}, issuer, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.UpdateStatus(context.Background(), StatusUpdateInput{
		OrderID:   repo.order.ID,
		StoreID:   storeID,
		RawStatus: "out_for_delivery",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected issuance failure to surface, got %v", err)
	}
}
