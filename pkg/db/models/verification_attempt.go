package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dishpatch/merchant-backend/pkg/enums"
)

// VerificationAttempt logs each bank or UPI verification call per store.
// The daily limit is enforced by counting rows in a UTC day window.
type VerificationAttempt struct {
	ID            uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID       uuid.UUID                `gorm:"column:store_id;type:uuid;not null;index:idx_verification_attempts_store_day"`
	Method        enums.VerificationMethod `gorm:"column:method;type:verification_method;not null"`
	Status        enums.VerificationStatus `gorm:"column:status;type:verification_status;not null;default:'pending'"`
	Destination   string                   `gorm:"column:destination;not null"`
	ProviderRef   *string                  `gorm:"column:provider_ref"`
	FailureReason *string                  `gorm:"column:failure_reason"`
	AttemptedAt   time.Time                `gorm:"column:attempted_at;not null;index:idx_verification_attempts_store_day"`
	CreatedAt     time.Time                `gorm:"column:created_at;autoCreateTime"`
}
