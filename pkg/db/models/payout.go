package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dishpatch/merchant-backend/pkg/enums"
)

// PayoutAccount is the verified destination money leaves the wallet to.
type PayoutAccount struct {
	ID              uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID         uuid.UUID                `gorm:"column:store_id;type:uuid;not null;index"`
	Method          enums.VerificationMethod `gorm:"column:method;type:verification_method;not null"`
	BeneficiaryName string                   `gorm:"column:beneficiary_name;not null"`
	AccountNumber   *string                  `gorm:"column:account_number"`
	IFSC            *string                  `gorm:"column:ifsc"`
	UPIVPA          *string                  `gorm:"column:upi_vpa"`
	IsVerified      bool                     `gorm:"column:is_verified;not null;default:false"`
	VerifiedAt      *time.Time               `gorm:"column:verified_at"`
	CreatedAt       time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

// PayoutRequest tracks a merchant withdrawal through settlement.
type PayoutRequest struct {
	ID              uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID         uuid.UUID          `gorm:"column:store_id;type:uuid;not null;index"`
	PayoutAccountID uuid.UUID          `gorm:"column:payout_account_id;type:uuid;not null"`
	Amount          decimal.Decimal    `gorm:"column:amount;type:numeric(14,2);not null"`
	Status          enums.PayoutStatus `gorm:"column:status;type:payout_status;not null;default:'requested'"`
	RequestedBy     uuid.UUID          `gorm:"column:requested_by;type:uuid;not null"`
	UTR             *string            `gorm:"column:utr"`
	FailureReason   *string            `gorm:"column:failure_reason"`
	ProcessedAt     *time.Time         `gorm:"column:processed_at"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
