package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderOTP holds the delivery confirmation code for a single order.
// Attempts and lockout state live here so validation is one row lookup.
type OrderOTP struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID  `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	CodeHash     string     `gorm:"column:code_hash;not null"`
	AttemptCount int        `gorm:"column:attempt_count;not null;default:0"`
	LockedUntil  *time.Time `gorm:"column:locked_until"`
	VerifiedAt   *time.Time `gorm:"column:verified_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
