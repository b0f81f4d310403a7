package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/dishpatch/merchant-backend/pkg/enums"
	"github.com/dishpatch/merchant-backend/pkg/logger"
	"github.com/dishpatch/merchant-backend/pkg/outbox"
	"github.com/dishpatch/merchant-backend/pkg/outbox/idempotency"
	"github.com/dishpatch/merchant-backend/pkg/outbox/payloads"
	"github.com/dishpatch/merchant-backend/pkg/outbox/registry"
)

const consumerName = "notification-writer"

// Consumer turns domain events from the notification topic into in-app
// notification rows.
type Consumer struct {
	notifications Service
	decoders      *registry.DecoderRegistry
	idem          *idempotency.Manager
	logg          *logger.Logger
}

// NewConsumer wires the consumer with its payload decoders. The
// idempotency manager is optional; without it redeliveries may create
// duplicate rows.
func NewConsumer(svc Service, idem *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if svc == nil {
		return nil, fmt.Errorf("notification service required")
	}

	decoders := registry.NewDecoderRegistry()
	for _, eventType := range []enums.OutboxEventType{
		enums.EventStoreSubmitted,
		enums.EventStoreActivated,
		enums.EventStoreSuspended,
	} {
		decoders.Register(eventType, 1, decodeInto(func() interface{} { return &payloads.StoreLifecycleEvent{} }))
	}
	decoders.Register(enums.EventDocumentReviewed, 1, decodeInto(func() interface{} { return &payloads.DocumentReviewedEvent{} }))
	decoders.Register(enums.EventTicketOpened, 1, decodeInto(func() interface{} { return &payloads.TicketEvent{} }))
	decoders.Register(enums.EventTicketUpdated, 1, decodeInto(func() interface{} { return &payloads.TicketEvent{} }))
	decoders.Register(enums.EventNotificationRequested, 1, decodeInto(func() interface{} { return &payloads.NotificationRequestedEvent{} }))

	return &Consumer{
		notifications: svc,
		decoders:      decoders,
		idem:          idem,
		logg:          logg,
	}, nil
}

func decodeInto(factory func() interface{}) func(json.RawMessage) (interface{}, error) {
	return func(payload json.RawMessage) (interface{}, error) {
		out := factory()
		if err := json.Unmarshal(payload, out); err != nil {
			return nil, err
		}
		return out, nil
	}
}

// Run blocks receiving messages until the context is cancelled.
func (c *Consumer) Run(ctx context.Context, sub *pubsub.Subscriber) error {
	if sub == nil {
		return fmt.Errorf("subscriber required")
	}
	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if err := c.Process(ctx, msg.Attributes, msg.Data); err != nil {
			if c.logg != nil {
				c.logg.Error(ctx, "process notification event", err)
			}
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// Process handles one published outbox envelope. Events that do not
// produce a merchant-facing notification are acknowledged silently.
func (c *Consumer) Process(ctx context.Context, attributes map[string]string, data []byte) error {
	eventType := enums.OutboxEventType(attributes["event_type"])
	version := 1
	if raw := attributes["version"]; raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &version); err != nil {
			return fmt.Errorf("parse version %q: %w", raw, err)
		}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}

	if c.idem != nil {
		eventID, err := uuid.Parse(envelope.EventID)
		if err != nil {
			return fmt.Errorf("parse event id %q: %w", envelope.EventID, err)
		}
		seen, err := c.idem.CheckAndMarkProcessed(ctx, consumerName, eventID)
		if err != nil {
			return err
		}
		if seen {
			return nil
		}
	}

	payload, err := c.decoders.Decode(eventType, version, envelope.Data)
	if err != nil {
		// unknown event types on this topic are not an error
		if c.logg != nil {
			c.logg.Debug(ctx, fmt.Sprintf("skipping event %s", eventType))
		}
		return nil
	}

	input, ok := c.buildNotification(eventType, payload)
	if !ok {
		return nil
	}
	_, err = c.notifications.Create(ctx, input)
	return err
}

func (c *Consumer) buildNotification(eventType enums.OutboxEventType, payload interface{}) (CreateInput, bool) {
	switch event := payload.(type) {
	case *payloads.StoreLifecycleEvent:
		title, message := storeLifecycleCopy(eventType)
		if title == "" {
			return CreateInput{}, false
		}
		return CreateInput{
			StoreID: event.StoreID,
			Type:    enums.NotificationTypeSystemAnnouncement,
			Title:   title,
			Message: message,
		}, true
	case *payloads.DocumentReviewedEvent:
		title := "Document approved"
		message := fmt.Sprintf("Your %s was approved.", event.Kind)
		if event.Status == enums.DocumentStatusRejected {
			title = "Document rejected"
			message = fmt.Sprintf("Your %s was rejected: %s", event.Kind, event.Reason)
		}
		return CreateInput{
			StoreID: event.StoreID,
			Type:    enums.NotificationTypeDocumentReview,
			Title:   title,
			Message: message,
		}, true
	case *payloads.TicketEvent:
		title := "Support ticket updated"
		message := fmt.Sprintf("%q is now %s.", event.Subject, event.Status)
		if eventType == enums.EventTicketOpened {
			title = "Support ticket opened"
			message = fmt.Sprintf("We received your ticket %q.", event.Subject)
		}
		return CreateInput{
			StoreID: event.StoreID,
			Type:    enums.NotificationTypeTicketUpdate,
			Title:   title,
			Message: message,
		}, true
	case *payloads.NotificationRequestedEvent:
		input := CreateInput{
			StoreID: event.StoreID,
			Type:    event.Type,
			Title:   event.Title,
			Message: event.Message,
		}
		if event.Link != "" {
			link := event.Link
			input.Link = &link
		}
		return input, true
	default:
		return CreateInput{}, false
	}
}

func storeLifecycleCopy(eventType enums.OutboxEventType) (string, string) {
	switch eventType {
	case enums.EventStoreSubmitted:
		return "Store submitted for review", "Our team will review your details and documents shortly."
	case enums.EventStoreActivated:
		return "Your store is live", "Customers can now place orders from your store."
	case enums.EventStoreSuspended:
		return "Store suspended", "Your store has been taken offline. Contact support for details."
	default:
		return "", ""
	}
}
