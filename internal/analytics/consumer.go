package analytics

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

const consumerName = "analytics-writer"

// Consumer projects order and wallet events into the warehouse.
type Consumer struct {
	writer   *Writer
	decoders *registry.DecoderRegistry
	idem     *idempotency.Manager
	logg     *logger.Logger
}

// NewConsumer wires the analytics projection for the orders topic.
func NewConsumer(writer *Writer, idem *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if writer == nil {
		return nil, fmt.Errorf("analytics writer required")
	}

	decoders := registry.NewDecoderRegistry()
	decoders.Register(enums.EventOrderCreated, 1, decodeInto(func() interface{} { return &payloads.OrderCreatedEvent{} }))
	decoders.Register(enums.EventOrderStatusChanged, 1, decodeInto(func() interface{} { return &payloads.OrderStatusChangedEvent{} }))
	decoders.Register(enums.EventOrderDelivered, 1, decodeInto(func() interface{} { return &payloads.OrderDeliveredEvent{} }))
	decoders.Register(enums.EventOrderCancelled, 1, decodeInto(func() interface{} { return &payloads.OrderCancelledEvent{} }))
	decoders.Register(enums.EventOrderReturned, 1, decodeInto(func() interface{} { return &payloads.OrderReturnedEvent{} }))
	decoders.Register(enums.EventWalletCredited, 1, decodeInto(func() interface{} { return &payloads.WalletMovementEvent{} }))
	decoders.Register(enums.EventWalletDebited, 1, decodeInto(func() interface{} { return &payloads.WalletMovementEvent{} }))

	return &Consumer{
		writer:   writer,
		decoders: decoders,
		idem:     idem,
		logg:     logg,
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
				c.logg.Error(ctx, "project analytics event", err)
			}
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// Process projects one published outbox envelope into warehouse rows.
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
		if c.logg != nil {
			c.logg.Debug(ctx, fmt.Sprintf("skipping event %s", eventType))
		}
		return nil
	}

	switch event := payload.(type) {
	case *payloads.OrderCreatedEvent:
		return c.writer.WriteOrderFacts(ctx, OrderFactRow{
			EventID:     envelope.EventID,
			EventType:   string(eventType),
			OrderID:     event.OrderID.String(),
			StoreID:     event.StoreID.String(),
			ExternalRef: event.ExternalRef,
			ToStatus:    string(enums.FoodOrderStatusCreated),
			GrandTotal:  event.GrandTotal.InexactFloat64(),
			OccurredAt:  event.PlacedAt,
		})
	case *payloads.OrderStatusChangedEvent:
		return c.writer.WriteOrderFacts(ctx, OrderFactRow{
			EventID:    envelope.EventID,
			EventType:  string(eventType),
			OrderID:    event.OrderID.String(),
			StoreID:    event.StoreID.String(),
			FromStatus: string(event.FromStatus),
			ToStatus:   string(event.ToStatus),
			OccurredAt: event.ChangedAt,
		})
	case *payloads.OrderDeliveredEvent:
		return c.writer.WriteOrderFacts(ctx, OrderFactRow{
			EventID:    envelope.EventID,
			EventType:  string(eventType),
			OrderID:    event.OrderID.String(),
			StoreID:    event.StoreID.String(),
			ToStatus:   string(enums.FoodOrderStatusDelivered),
			GrandTotal: event.MerchantEarning.InexactFloat64(),
			OccurredAt: event.DeliveredAt,
		})
	case *payloads.OrderCancelledEvent:
		return c.writer.WriteOrderFacts(ctx, OrderFactRow{
			EventID:    envelope.EventID,
			EventType:  string(eventType),
			OrderID:    event.OrderID.String(),
			StoreID:    event.StoreID.String(),
			ToStatus:   string(enums.FoodOrderStatusCancelled),
			OccurredAt: event.CancelledAt,
		})
	case *payloads.OrderReturnedEvent:
		return c.writer.WriteOrderFacts(ctx, OrderFactRow{
			EventID:    envelope.EventID,
			EventType:  string(eventType),
			OrderID:    event.OrderID.String(),
			StoreID:    event.StoreID.String(),
			ToStatus:   string(enums.FoodOrderStatusRTO),
			OccurredAt: event.ReturnedAt,
		})
	case *payloads.WalletMovementEvent:
		return c.writer.WriteRevenueRows(ctx, RevenueRow{
			EventID:      envelope.EventID,
			StoreID:      event.StoreID.String(),
			WalletID:     event.WalletID.String(),
			EntryID:      event.EntryID.String(),
			EntryType:    string(event.Type),
			Category:     string(event.Category),
			Amount:       event.Amount.InexactFloat64(),
			BalanceAfter: event.BalanceAfter.InexactFloat64(),
			OccurredAt:   envelope.OccurredAt,
		})
	default:
		return nil
	}
}
