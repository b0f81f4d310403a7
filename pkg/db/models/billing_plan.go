package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/dishpatch/merchant-backend/pkg/enums"
)

// BillingPlan captures the local metadata for a subscription plan.
type BillingPlan struct {
	ID             string                `gorm:"column:id;primaryKey"`
	Name           string                `gorm:"column:name;not null"`
	Interval       enums.BillingInterval `gorm:"column:interval;type:billing_interval;not null"`
	PriceAmount    decimal.Decimal       `gorm:"column:price_amount;type:numeric(12,2);not null"`
	CurrencyCode   enums.Currency        `gorm:"column:currency_code;not null;default:'INR'"`
	RazorpayPlanID *string               `gorm:"column:razorpay_plan_id;uniqueIndex"`
	IsDefault      bool                  `gorm:"column:is_default;not null;default:false"`
	IsActive       bool                  `gorm:"column:is_active;not null;default:true"`
	Features       pq.StringArray        `gorm:"column:features;type:text[];default:ARRAY[]::text[]"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
