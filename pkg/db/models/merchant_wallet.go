package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dishpatch/merchant-backend/pkg/enums"
)

// MerchantWallet tracks the running earnings balance for one store.
type MerchantWallet struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID      uuid.UUID       `gorm:"column:store_id;type:uuid;not null;uniqueIndex"`
	Balance      decimal.Decimal `gorm:"column:balance;type:numeric(14,2);not null;default:0"`
	CurrencyCode enums.Currency  `gorm:"column:currency_code;not null;default:'INR'"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// WalletEntry is an append-only movement against a merchant wallet.
// The idempotency key makes replays of the same business event no-ops.
type WalletEntry struct {
	ID             uuid.UUID                 `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	WalletID       uuid.UUID                 `gorm:"column:wallet_id;type:uuid;not null;index"`
	Type           enums.WalletEntryType     `gorm:"column:type;type:wallet_entry_type;not null"`
	Category       enums.WalletEntryCategory `gorm:"column:category;type:wallet_entry_category;not null"`
	Amount         decimal.Decimal           `gorm:"column:amount;type:numeric(14,2);not null"`
	BalanceAfter   decimal.Decimal           `gorm:"column:balance_after;type:numeric(14,2);not null"`
	IdempotencyKey string                    `gorm:"column:idempotency_key;not null;uniqueIndex"`
	ReferenceID    *uuid.UUID                `gorm:"column:reference_id;type:uuid"`
	Note           *string                   `gorm:"column:note"`
	CreatedAt      time.Time                 `gorm:"column:created_at;autoCreateTime"`
}
