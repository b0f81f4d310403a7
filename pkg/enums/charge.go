package enums

import "fmt"

// ChargeStatus maps to the charge_status enum in Postgres.
type ChargeStatus string

const (
	ChargeStatusPending  ChargeStatus = "pending"
	ChargeStatusPaid     ChargeStatus = "paid"
	ChargeStatusFailed   ChargeStatus = "failed"
	ChargeStatusRefunded ChargeStatus = "refunded"
)

var validChargeStatuses = []ChargeStatus{
	ChargeStatusPending,
	ChargeStatusPaid,
	ChargeStatusFailed,
	ChargeStatusRefunded,
}

// IsValid reports whether the value is a known ChargeStatus.
func (s ChargeStatus) IsValid() bool {
	for _, candidate := range validChargeStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseChargeStatus converts raw input into a ChargeStatus.
func ParseChargeStatus(value string) (ChargeStatus, error) {
	for _, candidate := range validChargeStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid charge status %q", value)
}

// ChargeType distinguishes what a charge pays for.
type ChargeType string

const (
	ChargeTypeSubscription  ChargeType = "subscription"
	ChargeTypePlanChange    ChargeType = "plan_change"
	ChargeTypeOnboardingFee ChargeType = "onboarding_fee"
)

var validChargeTypes = []ChargeType{
	ChargeTypeSubscription,
	ChargeTypePlanChange,
	ChargeTypeOnboardingFee,
}

// IsValid reports whether the value is a known ChargeType.
func (t ChargeType) IsValid() bool {
	for _, candidate := range validChargeTypes {
		if candidate == t {
			return true
		}
	}
	return false
}
