package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dishpatch/merchant-backend/pkg/enums"
)

// FoodOrder is the merchant-facing view of a customer order.
type FoodOrder struct {
	ID               uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID          uuid.UUID             `gorm:"column:store_id;type:uuid;not null;index"`
	ExternalRef      string                `gorm:"column:external_ref;not null;uniqueIndex"`
	Status           enums.FoodOrderStatus `gorm:"column:status;type:food_order_status;not null;default:'created'"`
	CustomerName     string                `gorm:"column:customer_name;not null"`
	CustomerPhone    string                `gorm:"column:customer_phone;not null"`
	DeliveryAddress  string                `gorm:"column:delivery_address;not null"`
	Instructions     *string               `gorm:"column:instructions"`
	ItemTotal        decimal.Decimal       `gorm:"column:item_total;type:numeric(12,2);not null"`
	DeliveryFee      decimal.Decimal       `gorm:"column:delivery_fee;type:numeric(12,2);not null;default:0"`
	TaxAmount        decimal.Decimal       `gorm:"column:tax_amount;type:numeric(12,2);not null;default:0"`
	GrandTotal       decimal.Decimal       `gorm:"column:grand_total;type:numeric(12,2);not null"`
	MerchantEarning  decimal.Decimal       `gorm:"column:merchant_earning;type:numeric(12,2);not null"`
	CurrencyCode     enums.Currency        `gorm:"column:currency_code;not null;default:'INR'"`
	PaymentMode      string                `gorm:"column:payment_mode;not null"`
	CancelReason     *string               `gorm:"column:cancel_reason"`
	PlacedAt         time.Time             `gorm:"column:placed_at;not null"`
	AcceptedAt       *time.Time            `gorm:"column:accepted_at"`
	PreparingAt      *time.Time            `gorm:"column:preparing_at"`
	ReadyAt          *time.Time            `gorm:"column:ready_at"`
	OutForDeliveryAt *time.Time            `gorm:"column:out_for_delivery_at"`
	DeliveredAt      *time.Time            `gorm:"column:delivered_at"`
	CancelledAt      *time.Time            `gorm:"column:cancelled_at"`
	ReturnedAt       *time.Time            `gorm:"column:returned_at"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time             `gorm:"column:updated_at;autoUpdateTime"`

	Items []OrderItem `gorm:"foreignKey:OrderID"`
}

// OrderItem is a single line on a food order.
type OrderItem struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	MenuItemID *uuid.UUID      `gorm:"column:menu_item_id;type:uuid"`
	Name       string          `gorm:"column:name;not null"`
	Quantity   int             `gorm:"column:quantity;not null"`
	UnitPrice  decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	LineTotal  decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}
