package enums

import "fmt"

// VerificationMethod maps to the verification_method enum in Postgres.
type VerificationMethod string

const (
	VerificationMethodBankAccount VerificationMethod = "bank_account"
	VerificationMethodUPI         VerificationMethod = "upi"
)

var validVerificationMethods = []VerificationMethod{
	VerificationMethodBankAccount,
	VerificationMethodUPI,
}

// String implements fmt.Stringer.
func (m VerificationMethod) String() string {
	return string(m)
}

// IsValid reports whether the value is a known VerificationMethod.
func (m VerificationMethod) IsValid() bool {
	for _, candidate := range validVerificationMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseVerificationMethod converts raw input into a VerificationMethod.
func ParseVerificationMethod(value string) (VerificationMethod, error) {
	for _, candidate := range validVerificationMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid verification method %q", value)
}

// VerificationStatus records the outcome of a verification attempt.
type VerificationStatus string

const (
	VerificationStatusPending  VerificationStatus = "pending"
	VerificationStatusVerified VerificationStatus = "verified"
	VerificationStatusFailed   VerificationStatus = "failed"
)

var validVerificationStatuses = []VerificationStatus{
	VerificationStatusPending,
	VerificationStatusVerified,
	VerificationStatusFailed,
}

// IsValid reports whether the value is a known VerificationStatus.
func (s VerificationStatus) IsValid() bool {
	for _, candidate := range validVerificationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}
