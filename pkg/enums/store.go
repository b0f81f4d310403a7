package enums

import "fmt"

// StoreStatus tracks a store through onboarding and operation.
type StoreStatus string

const (
	StoreStatusDraft       StoreStatus = "draft"
	StoreStatusUnderReview StoreStatus = "under_review"
	StoreStatusActive      StoreStatus = "active"
	StoreStatusSuspended   StoreStatus = "suspended"
)

var validStoreStatuses = []StoreStatus{
	StoreStatusDraft,
	StoreStatusUnderReview,
	StoreStatusActive,
	StoreStatusSuspended,
}

// String implements fmt.Stringer.
func (s StoreStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StoreStatus.
func (s StoreStatus) IsValid() bool {
	for _, candidate := range validStoreStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStoreStatus converts raw input into a StoreStatus.
func ParseStoreStatus(value string) (StoreStatus, error) {
	for _, candidate := range validStoreStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid store status %q", value)
}
