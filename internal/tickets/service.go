package tickets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dishpatch/merchant-backend/pkg/db/models"
	"github.com/dishpatch/merchant-backend/pkg/enums"
	pkgerrors "github.com/dishpatch/merchant-backend/pkg/errors"
	"github.com/dishpatch/merchant-backend/pkg/outbox"
	"github.com/dishpatch/merchant-backend/pkg/outbox/payloads"
)

var allowedTicketMoves = map[enums.TicketStatus][]enums.TicketStatus{
	enums.TicketStatusOpen:       {enums.TicketStatusInProgress, enums.TicketStatusResolved, enums.TicketStatusClosed},
	enums.TicketStatusInProgress: {enums.TicketStatusResolved, enums.TicketStatusClosed},
	enums.TicketStatusResolved:   {enums.TicketStatusClosed, enums.TicketStatusOpen},
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// OpenInput creates a ticket with its first message.
type OpenInput struct {
	Subject  string
	Body     string
	Priority enums.TicketPriority
	OpenedBy uuid.UUID
}

// ReplyInput adds a message to an existing thread.
type ReplyInput struct {
	Body        string
	AuthorID    *uuid.UUID
	FromSupport bool
}

// Service exposes merchant support threads.
type Service interface {
	Open(ctx context.Context, storeID uuid.UUID, input OpenInput) (*models.Ticket, error)
	Get(ctx context.Context, storeID, ticketID uuid.UUID) (*models.Ticket, error)
	List(ctx context.Context, storeID uuid.UUID, status *enums.TicketStatus) ([]models.Ticket, error)
	Reply(ctx context.Context, storeID, ticketID uuid.UUID, input ReplyInput) (*models.TicketMessage, error)
	SetStatus(ctx context.Context, storeID, ticketID uuid.UUID, target enums.TicketStatus) (*models.Ticket, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// NewService builds a ticket service.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ticket repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxSvc}, nil
}

func (s *service) Open(ctx context.Context, storeID uuid.UUID, input OpenInput) (*models.Ticket, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	if input.OpenedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if strings.TrimSpace(input.Subject) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subject required")
	}
	if strings.TrimSpace(input.Body) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message body required")
	}
	priority := input.Priority
	if !priority.IsValid() {
		priority = enums.TicketPriorityMedium
	}

	now := time.Now().UTC()
	ticket := &models.Ticket{
		StoreID:       storeID,
		Subject:       strings.TrimSpace(input.Subject),
		Status:        enums.TicketStatusOpen,
		Priority:      priority,
		OpenedBy:      input.OpenedBy,
		LastMessageAt: now,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, ticket); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create ticket")
		}
		message := &models.TicketMessage{
			TicketID:     ticket.ID,
			AuthorUserID: &input.OpenedBy,
			Body:         strings.TrimSpace(input.Body),
		}
		if err := repo.CreateMessage(ctx, message); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create ticket message")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTicketOpened,
			AggregateType: enums.AggregateTicket,
			AggregateID:   ticket.ID,
			Version:       1,
			Data:          ticketPayload(ticket),
		})
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *service) Get(ctx context.Context, storeID, ticketID uuid.UUID) (*models.Ticket, error) {
	if storeID == uuid.Nil || ticketID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id and ticket id required")
	}
	ticket, err := s.repo.FindByIDWithMessages(ctx, ticketID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ticket")
	}
	if ticket.StoreID != storeID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
	}
	return ticket, nil
}

func (s *service) List(ctx context.Context, storeID uuid.UUID, status *enums.TicketStatus) ([]models.Ticket, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	tickets, err := s.repo.ListByStore(ctx, storeID, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tickets")
	}
	return tickets, nil
}

func (s *service) Reply(ctx context.Context, storeID, ticketID uuid.UUID, input ReplyInput) (*models.TicketMessage, error) {
	if strings.TrimSpace(input.Body) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message body required")
	}
	ticket, err := s.loadForStore(ctx, storeID, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status == enums.TicketStatusClosed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "ticket is closed")
	}

	now := time.Now().UTC()
	message := &models.TicketMessage{
		TicketID:     ticket.ID,
		AuthorUserID: input.AuthorID,
		FromSupport:  input.FromSupport,
		Body:         strings.TrimSpace(input.Body),
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateMessage(ctx, message); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create ticket message")
		}
		updates := map[string]any{"last_message_at": now}
		// a support reply moves a fresh ticket into progress, a merchant
		// reply reopens a resolved one
		if input.FromSupport && ticket.Status == enums.TicketStatusOpen {
			updates["status"] = enums.TicketStatusInProgress
			ticket.Status = enums.TicketStatusInProgress
		}
		if !input.FromSupport && ticket.Status == enums.TicketStatusResolved {
			updates["status"] = enums.TicketStatusOpen
			ticket.Status = enums.TicketStatusOpen
		}
		if err := repo.UpdateFields(ctx, ticket.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update ticket")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTicketUpdated,
			AggregateType: enums.AggregateTicket,
			AggregateID:   ticket.ID,
			Version:       1,
			Data:          ticketPayload(ticket),
		})
	})
	if err != nil {
		return nil, err
	}
	return message, nil
}

func (s *service) SetStatus(ctx context.Context, storeID, ticketID uuid.UUID, target enums.TicketStatus) (*models.Ticket, error) {
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown ticket status")
	}
	ticket, err := s.loadForStore(ctx, storeID, ticketID)
	if err != nil {
		return nil, err
	}
	if !ticketMoveAllowed(ticket.Status, target) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("ticket cannot move from %s to %s", ticket.Status, target))
	}

	updates := map[string]any{"status": target}
	if target == enums.TicketStatusResolved {
		now := time.Now().UTC()
		updates["resolved_at"] = now
		ticket.ResolvedAt = &now
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateFields(ctx, ticket.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update ticket")
		}
		ticket.Status = target
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTicketUpdated,
			AggregateType: enums.AggregateTicket,
			AggregateID:   ticket.ID,
			Version:       1,
			Data:          ticketPayload(ticket),
		})
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *service) loadForStore(ctx context.Context, storeID, ticketID uuid.UUID) (*models.Ticket, error) {
	if storeID == uuid.Nil || ticketID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id and ticket id required")
	}
	ticket, err := s.repo.FindByID(ctx, ticketID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ticket")
	}
	if ticket.StoreID != storeID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
	}
	return ticket, nil
}

func ticketMoveAllowed(from, to enums.TicketStatus) bool {
	for _, allowed := range allowedTicketMoves[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func ticketPayload(ticket *models.Ticket) payloads.TicketEvent {
	return payloads.TicketEvent{
		TicketID: ticket.ID,
		StoreID:  ticket.StoreID,
		Status:   ticket.Status,
	}
}
