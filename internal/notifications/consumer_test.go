package notifications

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dishpatch/merchant-backend/pkg/db/models"
	"github.com/dishpatch/merchant-backend/pkg/enums"
	"github.com/dishpatch/merchant-backend/pkg/outbox"
	"github.com/dishpatch/merchant-backend/pkg/outbox/idempotency"
	"github.com/dishpatch/merchant-backend/pkg/outbox/payloads"
)

type stubNotificationService struct {
	created []CreateInput
}

func (s *stubNotificationService) Create(_ context.Context, input CreateInput) (*models.Notification, error) {
	s.created = append(s.created, input)
	return &models.Notification{ID: uuid.New(), StoreID: input.StoreID}, nil
}

func (s *stubNotificationService) List(context.Context, uuid.UUID, bool, int) ([]models.Notification, error) {
	return nil, nil
}

func (s *stubNotificationService) UnreadCount(context.Context, uuid.UUID) (int64, error) {
	return 0, nil
}

func (s *stubNotificationService) MarkRead(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func (s *stubNotificationService) MarkAllRead(context.Context, uuid.UUID) (int64, error) {
	return 0, nil
}

type stubIdemStore struct {
	keys map[string]bool
}

func (s *stubIdemStore) Get(context.Context, string) (string, error) { return "", nil }

func (s *stubIdemStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if s.keys == nil {
		s.keys = make(map[string]bool)
	}
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *stubIdemStore) IdempotencyKey(scope, id string) string {
	return "dp:idempotency:" + scope + ":" + id
}

func (s *stubIdemStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.keys, key)
	}
	return nil
}

func envelopeBytes(t *testing.T, eventID uuid.UUID, payload interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID.String(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
	out, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return out
}

func attrs(eventType enums.OutboxEventType) map[string]string {
	return map[string]string{"event_type": string(eventType), "version": "1"}
}

func TestConsumerStoreActivatedCreatesAnnouncement(t *testing.T) {
	svc := &stubNotificationService{}
	consumer, err := NewConsumer(svc, nil, nil)
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}

	storeID := uuid.New()
	data := envelopeBytes(t, uuid.New(), payloads.StoreLifecycleEvent{
		StoreID:   storeID,
		Status:    enums.StoreStatusActive,
		ChangedAt: time.Now().UTC(),
	})

	if err := consumer.Process(context.Background(), attrs(enums.EventStoreActivated), data); err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(svc.created) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(svc.created))
	}
	got := svc.created[0]
	if got.StoreID != storeID {
		t.Fatalf("store id = %s, want %s", got.StoreID, storeID)
	}
	if got.Type != enums.NotificationTypeSystemAnnouncement {
		t.Fatalf("type = %s, want system_announcement", got.Type)
	}
	if got.Title != "Your store is live" {
		t.Fatalf("unexpected title %q", got.Title)
	}
}

func TestConsumerDocumentRejectedIncludesReason(t *testing.T) {
	svc := &stubNotificationService{}
	consumer, err := NewConsumer(svc, nil, nil)
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}

	data := envelopeBytes(t, uuid.New(), payloads.DocumentReviewedEvent{
		DocumentID: uuid.New(),
		StoreID:    uuid.New(),
		Kind:       enums.DocumentKindFSSAILicense,
		Status:     enums.DocumentStatusRejected,
		Reason:     "expired licence",
	})

	if err := consumer.Process(context.Background(), attrs(enums.EventDocumentReviewed), data); err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(svc.created) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(svc.created))
	}
	got := svc.created[0]
	if got.Type != enums.NotificationTypeDocumentReview {
		t.Fatalf("type = %s, want document_review", got.Type)
	}
	if got.Title != "Document rejected" {
		t.Fatalf("unexpected title %q", got.Title)
	}
	if got.Message == "" || !strings.Contains(got.Message, "expired licence") {
		t.Fatalf("message %q should carry the rejection reason", got.Message)
	}
}

func TestConsumerTicketOpenedAndUpdatedCopy(t *testing.T) {
	svc := &stubNotificationService{}
	consumer, err := NewConsumer(svc, nil, nil)
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}

	ticket := payloads.TicketEvent{
		TicketID: uuid.New(),
		StoreID:  uuid.New(),
		Status:   enums.TicketStatusOpen,
		Subject:  "Refund stuck",
	}
	if err := consumer.Process(context.Background(), attrs(enums.EventTicketOpened), envelopeBytes(t, uuid.New(), ticket)); err != nil {
		t.Fatalf("process opened: %v", err)
	}

	ticket.Status = enums.TicketStatusResolved
	if err := consumer.Process(context.Background(), attrs(enums.EventTicketUpdated), envelopeBytes(t, uuid.New(), ticket)); err != nil {
		t.Fatalf("process updated: %v", err)
	}

	if len(svc.created) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(svc.created))
	}
	if svc.created[0].Title != "Support ticket opened" {
		t.Fatalf("opened title = %q", svc.created[0].Title)
	}
	if svc.created[1].Title != "Support ticket updated" {
		t.Fatalf("updated title = %q", svc.created[1].Title)
	}
	if !strings.Contains(svc.created[1].Message, "resolved") {
		t.Fatalf("updated message %q should carry the new status", svc.created[1].Message)
	}
}

func TestConsumerNotificationRequestedPassesThrough(t *testing.T) {
	svc := &stubNotificationService{}
	consumer, err := NewConsumer(svc, nil, nil)
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}

	storeID := uuid.New()
	data := envelopeBytes(t, uuid.New(), payloads.NotificationRequestedEvent{
		StoreID: storeID,
		Type:    enums.NotificationTypePayoutUpdate,
		Title:   "Payout settled",
		Message: "Your payout of 250.00 reached your bank account.",
		Link:    "/payouts",
	})

	if err := consumer.Process(context.Background(), attrs(enums.EventNotificationRequested), data); err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(svc.created) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(svc.created))
	}
	got := svc.created[0]
	if got.Type != enums.NotificationTypePayoutUpdate {
		t.Fatalf("type = %s, want payout_update", got.Type)
	}
	if got.Link == nil || *got.Link != "/payouts" {
		t.Fatalf("link not carried through: %v", got.Link)
	}
}

func TestConsumerSkipsUnmappedEvents(t *testing.T) {
	svc := &stubNotificationService{}
	consumer, err := NewConsumer(svc, nil, nil)
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}

	data := envelopeBytes(t, uuid.New(), payloads.DocumentUploadedEvent{
		DocumentID: uuid.New(),
		StoreID:    uuid.New(),
	})

	if err := consumer.Process(context.Background(), attrs(enums.EventDocumentUploaded), data); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(svc.created) != 0 {
		t.Fatalf("expected no notifications, got %d", len(svc.created))
	}
}

func TestConsumerDeduplicatesRedelivery(t *testing.T) {
	svc := &stubNotificationService{}
	idem, err := idempotency.NewManager(&stubIdemStore{}, time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	consumer, err := NewConsumer(svc, idem, nil)
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}

	eventID := uuid.New()
	data := envelopeBytes(t, eventID, payloads.StoreLifecycleEvent{
		StoreID: uuid.New(),
		Status:  enums.StoreStatusSuspended,
	})

	for range 2 {
		if err := consumer.Process(context.Background(), attrs(enums.EventStoreSuspended), data); err != nil {
			t.Fatalf("process: %v", err)
		}
	}

	if len(svc.created) != 1 {
		t.Fatalf("redelivery should be deduplicated, got %d notifications", len(svc.created))
	}
}
