package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dishpatch/merchant-backend/pkg/enums"
)

// OrderCreatedEvent signals a new order landed for a store.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	StoreID     uuid.UUID       `json:"store_id"`
	ExternalRef string          `json:"external_ref"`
	GrandTotal  decimal.Decimal `json:"grand_total"`
	PlacedAt    time.Time       `json:"placed_at"`
}

// OrderStatusChangedEvent is emitted on every accepted status transition.
// DeliveryOTP is set only on the move to out_for_delivery so the platform
// can forward the code to the customer.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID             `json:"order_id"`
	StoreID     uuid.UUID             `json:"store_id"`
	FromStatus  enums.FoodOrderStatus `json:"from_status"`
	ToStatus    enums.FoodOrderStatus `json:"to_status"`
	ChangedAt   time.Time             `json:"changed_at"`
	DeliveryOTP string                `json:"delivery_otp,omitempty"`
}

// OrderDeliveredEvent surfaces the completed delivery plus the earning credited.
type OrderDeliveredEvent struct {
	OrderID         uuid.UUID       `json:"order_id"`
	StoreID         uuid.UUID       `json:"store_id"`
	MerchantEarning decimal.Decimal `json:"merchant_earning"`
	DeliveredAt     time.Time       `json:"delivered_at"`
}

// OrderCancelledEvent is emitted when an order ends in cancellation.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	StoreID     uuid.UUID `json:"store_id"`
	Reason      string    `json:"reason,omitempty"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// OrderReturnedEvent is emitted when an order is returned to origin.
type OrderReturnedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	StoreID    uuid.UUID `json:"store_id"`
	ReturnedAt time.Time `json:"returned_at"`
}

// WalletMovementEvent describes a credit or debit applied to a wallet.
type WalletMovementEvent struct {
	WalletID       uuid.UUID                 `json:"wallet_id"`
	StoreID        uuid.UUID                 `json:"store_id"`
	EntryID        uuid.UUID                 `json:"entry_id"`
	Type           enums.WalletEntryType     `json:"type"`
	Category       enums.WalletEntryCategory `json:"category"`
	Amount         decimal.Decimal           `json:"amount"`
	BalanceAfter   decimal.Decimal           `json:"balance_after"`
	IdempotencyKey string                    `json:"idempotency_key"`
}

// StoreLifecycleEvent covers submission, activation, and suspension.
type StoreLifecycleEvent struct {
	StoreID   uuid.UUID         `json:"store_id"`
	Status    enums.StoreStatus `json:"status"`
	ChangedAt time.Time         `json:"changed_at"`
}

// DocumentUploadedEvent is emitted once an upload is confirmed.
type DocumentUploadedEvent struct {
	DocumentID uuid.UUID          `json:"document_id"`
	StoreID    uuid.UUID          `json:"store_id"`
	Kind       enums.DocumentKind `json:"kind"`
	ObjectKey  string             `json:"object_key"`
}

// DocumentReviewedEvent carries the review outcome.
type DocumentReviewedEvent struct {
	DocumentID uuid.UUID            `json:"document_id"`
	StoreID    uuid.UUID            `json:"store_id"`
	Kind       enums.DocumentKind   `json:"kind"`
	Status     enums.DocumentStatus `json:"status"`
	Reason     string               `json:"reason,omitempty"`
}

// SubscriptionEvent mirrors subscription lifecycle changes.
type SubscriptionEvent struct {
	SubscriptionID uuid.UUID                `json:"subscription_id"`
	StoreID        uuid.UUID                `json:"store_id"`
	PlanID         string                   `json:"plan_id"`
	Status         enums.SubscriptionStatus `json:"status"`
	PeriodEnd      time.Time                `json:"period_end"`
}

// ChargeEvent is emitted when a charge settles or fails.
type ChargeEvent struct {
	ChargeID        uuid.UUID          `json:"charge_id"`
	StoreID         uuid.UUID          `json:"store_id"`
	Amount          decimal.Decimal    `json:"amount"`
	Status          enums.ChargeStatus `json:"status"`
	RazorpayOrderID string             `json:"razorpay_order_id"`
}

// PayoutEvent tracks withdrawal requests through settlement.
type PayoutEvent struct {
	PayoutID uuid.UUID          `json:"payout_id"`
	StoreID  uuid.UUID          `json:"store_id"`
	Amount   decimal.Decimal    `json:"amount"`
	Status   enums.PayoutStatus `json:"status"`
	UTR      string             `json:"utr,omitempty"`
}

// TicketEvent reports support thread activity.
type TicketEvent struct {
	TicketID uuid.UUID          `json:"ticket_id"`
	StoreID  uuid.UUID          `json:"store_id"`
	Status   enums.TicketStatus `json:"status"`
	Subject  string             `json:"subject"`
}

// NotificationRequestedEvent tells downstream systems to alert a merchant.
type NotificationRequestedEvent struct {
	StoreID uuid.UUID              `json:"store_id"`
	Type    enums.NotificationType `json:"type"`
	Title   string                 `json:"title"`
	Message string                 `json:"message"`
	Link    string                 `json:"link,omitempty"`
}
