package tickets

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dishpatch/merchant-backend/pkg/db/models"
	"github.com/dishpatch/merchant-backend/pkg/enums"
	pkgerrors "github.com/dishpatch/merchant-backend/pkg/errors"
	"github.com/dishpatch/merchant-backend/pkg/outbox"
)

type stubTicketRepo struct {
	tickets  map[uuid.UUID]*models.Ticket
	messages []models.TicketMessage
}

func newStubTicketRepo() *stubTicketRepo {
	return &stubTicketRepo{tickets: make(map[uuid.UUID]*models.Ticket)}
}

func (s *stubTicketRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubTicketRepo) Create(ctx context.Context, ticket *models.Ticket) error {
	ticket.ID = uuid.New()
	copied := *ticket
	s.tickets[ticket.ID] = &copied
	return nil
}

func (s *stubTicketRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *ticket
	return &copied, nil
}

func (s *stubTicketRepo) FindByIDWithMessages(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	ticket, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, message := range s.messages {
		if message.TicketID == id {
			ticket.Messages = append(ticket.Messages, message)
		}
	}
	return ticket, nil
}

func (s *stubTicketRepo) ListByStore(ctx context.Context, storeID uuid.UUID, status *enums.TicketStatus) ([]models.Ticket, error) {
	var out []models.Ticket
	for _, ticket := range s.tickets {
		if ticket.StoreID != storeID {
			continue
		}
		if status != nil && ticket.Status != *status {
			continue
		}
		out = append(out, *ticket)
	}
	return out, nil
}

func (s *stubTicketRepo) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	ticket, ok := s.tickets[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if status, found := updates["status"]; found {
		ticket.Status = status.(enums.TicketStatus)
	}
	return nil
}

func (s *stubTicketRepo) CreateMessage(ctx context.Context, message *models.TicketMessage) error {
	message.ID = uuid.New()
	s.messages = append(s.messages, *message)
	return nil
}

type stubTicketTxRunner struct{}

func (stubTicketTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubTicketOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubTicketOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func newTicketService(t *testing.T, repo *stubTicketRepo, events *stubTicketOutbox) Service {
	t.Helper()
	svc, err := NewService(repo, stubTicketTxRunner{}, events)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestOpenCreatesTicketWithFirstMessage(t *testing.T) {
	repo := newStubTicketRepo()
	events := &stubTicketOutbox{}
	svc := newTicketService(t, repo, events)
	storeID := uuid.New()
	openedBy := uuid.New()

	ticket, err := svc.Open(context.Background(), storeID, OpenInput{
		Subject:  "Orders not syncing",
		Body:     "No new orders since this morning.",
		OpenedBy: openedBy,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if ticket.Status != enums.TicketStatusOpen {
		t.Fatalf("expected open, got %s", ticket.Status)
	}
	if ticket.Priority != enums.TicketPriorityMedium {
		t.Fatalf("expected default medium priority, got %s", ticket.Priority)
	}
	if len(repo.messages) != 1 || repo.messages[0].TicketID != ticket.ID {
		t.Fatalf("expected one message on ticket, got %+v", repo.messages)
	}
	if repo.messages[0].FromSupport {
		t.Fatal("expected first message to come from the merchant")
	}
	if len(events.events) != 1 || events.events[0].EventType != enums.EventTicketOpened {
		t.Fatalf("expected ticket opened event, got %+v", events.events)
	}
}

func TestOpenRequiresSubjectAndBody(t *testing.T) {
	repo := newStubTicketRepo()
	svc := newTicketService(t, repo, &stubTicketOutbox{})

	_, err := svc.Open(context.Background(), uuid.New(), OpenInput{
		Subject:  " ",
		Body:     "hello",
		OpenedBy: uuid.New(),
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSupportReplyMovesOpenToInProgress(t *testing.T) {
	repo := newStubTicketRepo()
	events := &stubTicketOutbox{}
	svc := newTicketService(t, repo, events)
	storeID := uuid.New()

	ticket, err := svc.Open(context.Background(), storeID, OpenInput{
		Subject:  "Payout delayed",
		Body:     "UTR not received.",
		OpenedBy: uuid.New(),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	events.events = nil

	message, err := svc.Reply(context.Background(), storeID, ticket.ID, ReplyInput{
		Body:        "Looking into this now.",
		FromSupport: true,
	})
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if !message.FromSupport {
		t.Fatal("expected support message")
	}
	if repo.tickets[ticket.ID].Status != enums.TicketStatusInProgress {
		t.Fatalf("expected in_progress, got %s", repo.tickets[ticket.ID].Status)
	}
	if len(events.events) != 1 || events.events[0].EventType != enums.EventTicketUpdated {
		t.Fatalf("expected ticket updated event, got %+v", events.events)
	}
}

func TestMerchantReplyReopensResolvedTicket(t *testing.T) {
	repo := newStubTicketRepo()
	svc := newTicketService(t, repo, &stubTicketOutbox{})
	storeID := uuid.New()

	ticket := &models.Ticket{
		ID:      uuid.New(),
		StoreID: storeID,
		Subject: "Menu photos not loading",
		Status:  enums.TicketStatusResolved,
	}
	repo.tickets[ticket.ID] = ticket

	author := uuid.New()
	if _, err := svc.Reply(context.Background(), storeID, ticket.ID, ReplyInput{
		Body:     "Still broken on my side.",
		AuthorID: &author,
	}); err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if repo.tickets[ticket.ID].Status != enums.TicketStatusOpen {
		t.Fatalf("expected reopened, got %s", repo.tickets[ticket.ID].Status)
	}
}

func TestReplyRejectedOnClosedTicket(t *testing.T) {
	repo := newStubTicketRepo()
	svc := newTicketService(t, repo, &stubTicketOutbox{})
	storeID := uuid.New()

	ticket := &models.Ticket{ID: uuid.New(), StoreID: storeID, Status: enums.TicketStatusClosed}
	repo.tickets[ticket.ID] = ticket

	_, err := svc.Reply(context.Background(), storeID, ticket.ID, ReplyInput{Body: "hello"})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if len(repo.messages) != 0 {
		t.Fatalf("expected no message saved, got %d", len(repo.messages))
	}
}

func TestSetStatusEnforcesMoves(t *testing.T) {
	repo := newStubTicketRepo()
	svc := newTicketService(t, repo, &stubTicketOutbox{})
	storeID := uuid.New()

	ticket := &models.Ticket{ID: uuid.New(), StoreID: storeID, Status: enums.TicketStatusClosed}
	repo.tickets[ticket.ID] = ticket

	_, err := svc.SetStatus(context.Background(), storeID, ticket.ID, enums.TicketStatusOpen)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	ticket.Status = enums.TicketStatusInProgress
	updated, err := svc.SetStatus(context.Background(), storeID, ticket.ID, enums.TicketStatusResolved)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if updated.Status != enums.TicketStatusResolved || updated.ResolvedAt == nil {
		t.Fatalf("expected resolved with timestamp, got %+v", updated)
	}
}

func TestTicketForeignStoreIsNotFound(t *testing.T) {
	repo := newStubTicketRepo()
	svc := newTicketService(t, repo, &stubTicketOutbox{})

	ticket := &models.Ticket{ID: uuid.New(), StoreID: uuid.New(), Status: enums.TicketStatusOpen}
	repo.tickets[ticket.ID] = ticket

	_, err := svc.Get(context.Background(), uuid.New(), ticket.ID)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
