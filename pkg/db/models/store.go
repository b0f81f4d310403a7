package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/dishpatch/merchant-backend/pkg/enums"
)

// Store represents the canonical merchant tenant model.
type Store struct {
	ID                 uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name               string            `gorm:"column:name;not null"`
	LegalName          *string           `gorm:"column:legal_name"`
	Description        *string           `gorm:"column:description"`
	Phone              string            `gorm:"column:phone;not null"`
	Email              *string           `gorm:"column:email"`
	Status             enums.StoreStatus `gorm:"column:status;type:store_status;not null;default:'draft'"`
	FSSAINumber        *string           `gorm:"column:fssai_number"`
	GSTNumber          *string           `gorm:"column:gst_number"`
	PANNumber          *string           `gorm:"column:pan_number"`
	AddressLine1       string            `gorm:"column:address_line1;not null"`
	AddressLine2       *string           `gorm:"column:address_line2"`
	City               string            `gorm:"column:city;not null"`
	State              string            `gorm:"column:state;not null"`
	Pincode            string            `gorm:"column:pincode;not null"`
	Lat                *float64          `gorm:"column:lat"`
	Lng                *float64          `gorm:"column:lng"`
	Cuisines           pq.StringArray    `gorm:"column:cuisines;type:text[];default:ARRAY[]::text[]"`
	RazorpayCustomerID *string           `gorm:"column:razorpay_customer_id"`
	SubscriptionActive bool              `gorm:"column:subscription_active;not null;default:false"`
	OwnerID            uuid.UUID         `gorm:"column:owner;type:uuid;not null"`
	SubmittedAt        *time.Time        `gorm:"column:submitted_at"`
	ActivatedAt        *time.Time        `gorm:"column:activated_at"`
	SuspendedAt        *time.Time        `gorm:"column:suspended_at"`
	CreatedAt          time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
