package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateFoodOrder    OutboxAggregateType = "food_order"
	AggregateStore        OutboxAggregateType = "store"
	AggregateDocument     OutboxAggregateType = "document"
	AggregateWalletEntry  OutboxAggregateType = "wallet_entry"
	AggregateSubscription OutboxAggregateType = "subscription"
	AggregatePayout       OutboxAggregateType = "payout"
	AggregateTicket       OutboxAggregateType = "ticket"
	AggregateNotification OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateFoodOrder,
	AggregateStore,
	AggregateDocument,
	AggregateWalletEntry,
	AggregateSubscription,
	AggregatePayout,
	AggregateTicket,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated          OutboxEventType = "order_created"
	EventOrderStatusChanged    OutboxEventType = "order_status_changed"
	EventOrderDelivered        OutboxEventType = "order_delivered"
	EventOrderCancelled        OutboxEventType = "order_cancelled"
	EventOrderReturned         OutboxEventType = "order_returned"
	EventWalletCredited        OutboxEventType = "wallet_credited"
	EventWalletDebited         OutboxEventType = "wallet_debited"
	EventStoreSubmitted        OutboxEventType = "store_submitted"
	EventStoreActivated        OutboxEventType = "store_activated"
	EventStoreSuspended        OutboxEventType = "store_suspended"
	EventDocumentUploaded      OutboxEventType = "document_uploaded"
	EventDocumentReviewed      OutboxEventType = "document_reviewed"
	EventSubscriptionStarted   OutboxEventType = "subscription_started"
	EventSubscriptionChanged   OutboxEventType = "subscription_changed"
	EventSubscriptionPastDue   OutboxEventType = "subscription_past_due"
	EventSubscriptionCancelled OutboxEventType = "subscription_cancelled"
	EventChargePaid            OutboxEventType = "charge_paid"
	EventChargeFailed          OutboxEventType = "charge_failed"
	EventPayoutRequested       OutboxEventType = "payout_requested"
	EventPayoutSettled         OutboxEventType = "payout_settled"
	EventPayoutRejected        OutboxEventType = "payout_rejected"
	EventTicketOpened          OutboxEventType = "ticket_opened"
	EventTicketUpdated         OutboxEventType = "ticket_updated"
	EventNotificationRequested OutboxEventType = "notification_requested"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStatusChanged,
	EventOrderDelivered,
	EventOrderCancelled,
	EventOrderReturned,
	EventWalletCredited,
	EventWalletDebited,
	EventStoreSubmitted,
	EventStoreActivated,
	EventStoreSuspended,
	EventDocumentUploaded,
	EventDocumentReviewed,
	EventSubscriptionStarted,
	EventSubscriptionChanged,
	EventSubscriptionPastDue,
	EventSubscriptionCancelled,
	EventChargePaid,
	EventChargeFailed,
	EventPayoutRequested,
	EventPayoutSettled,
	EventPayoutRejected,
	EventTicketOpened,
	EventTicketUpdated,
	EventNotificationRequested,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
