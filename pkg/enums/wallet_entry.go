package enums

import "fmt"

// WalletEntryType maps to the wallet_entry_type enum in Postgres.
type WalletEntryType string

const (
	WalletEntryTypeCredit WalletEntryType = "credit"
	WalletEntryTypeDebit  WalletEntryType = "debit"
)

var validWalletEntryTypes = []WalletEntryType{
	WalletEntryTypeCredit,
	WalletEntryTypeDebit,
}

// IsValid reports whether the value matches the canonical wallet entry enum.
func (t WalletEntryType) IsValid() bool {
	for _, candidate := range validWalletEntryTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseWalletEntryType converts raw input into WalletEntryType.
func ParseWalletEntryType(value string) (WalletEntryType, error) {
	for _, candidate := range validWalletEntryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet entry type %q", value)
}

// WalletEntryCategory classifies what produced a wallet entry.
type WalletEntryCategory string

const (
	WalletEntryCategoryOrderEarning WalletEntryCategory = "order_earning"
	WalletEntryCategoryPayout       WalletEntryCategory = "payout"
	WalletEntryCategoryAdjustment   WalletEntryCategory = "adjustment"
	WalletEntryCategoryRefund       WalletEntryCategory = "refund"
)

var validWalletEntryCategories = []WalletEntryCategory{
	WalletEntryCategoryOrderEarning,
	WalletEntryCategoryPayout,
	WalletEntryCategoryAdjustment,
	WalletEntryCategoryRefund,
}

// IsValid reports whether the value matches the canonical category enum.
func (c WalletEntryCategory) IsValid() bool {
	for _, candidate := range validWalletEntryCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseWalletEntryCategory converts raw input into WalletEntryCategory.
func ParseWalletEntryCategory(value string) (WalletEntryCategory, error) {
	for _, candidate := range validWalletEntryCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet entry category %q", value)
}
