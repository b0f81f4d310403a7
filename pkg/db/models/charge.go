package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dishpatch/merchant-backend/pkg/enums"
)

// Charge records Razorpay charges per store.
type Charge struct {
	ID                uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID           uuid.UUID          `gorm:"column:store_id;type:uuid;not null;index"`
	Type              enums.ChargeType   `gorm:"column:type;type:charge_type;not null;default:'subscription'"`
	SubscriptionID    *uuid.UUID         `gorm:"column:subscription_id;type:uuid"`
	RazorpayOrderID   string             `gorm:"column:razorpay_order_id;not null;unique"`
	RazorpayPaymentID *string            `gorm:"column:razorpay_payment_id"`
	Amount            decimal.Decimal    `gorm:"column:amount;type:numeric(12,2);not null"`
	CurrencyCode      enums.Currency     `gorm:"column:currency_code;not null;default:'INR'"`
	Status            enums.ChargeStatus `gorm:"column:status;type:charge_status;not null;default:'pending'"`
	Description       *string            `gorm:"column:description"`
	PaidAt            *time.Time         `gorm:"column:paid_at"`
	Metadata          json.RawMessage    `gorm:"column:metadata;type:jsonb"`
	CreatedAt         time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
