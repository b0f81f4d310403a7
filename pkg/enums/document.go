package enums

import "fmt"

// DocumentKind maps to the document_kind enum in Postgres.
type DocumentKind string

const (
	DocumentKindFSSAILicense   DocumentKind = "fssai_license"
	DocumentKindGSTCertificate DocumentKind = "gst_certificate"
	DocumentKindPANCard        DocumentKind = "pan_card"
	DocumentKindBankProof      DocumentKind = "bank_proof"
	DocumentKindStorePhoto     DocumentKind = "store_photo"
	DocumentKindMenuCard       DocumentKind = "menu_card"
)

var validDocumentKinds = []DocumentKind{
	DocumentKindFSSAILicense,
	DocumentKindGSTCertificate,
	DocumentKindPANCard,
	DocumentKindBankProof,
	DocumentKindStorePhoto,
	DocumentKindMenuCard,
}

// IsValid reports whether the value is a known DocumentKind.
func (k DocumentKind) IsValid() bool {
	for _, candidate := range validDocumentKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseDocumentKind converts raw input into a DocumentKind.
func ParseDocumentKind(value string) (DocumentKind, error) {
	for _, candidate := range validDocumentKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid document kind %q", value)
}

// DocumentStatus maps to the document_status enum in Postgres.
type DocumentStatus string

const (
	DocumentStatusPendingUpload DocumentStatus = "pending_upload"
	DocumentStatusUnderReview   DocumentStatus = "under_review"
	DocumentStatusApproved      DocumentStatus = "approved"
	DocumentStatusRejected      DocumentStatus = "rejected"
)

var validDocumentStatuses = []DocumentStatus{
	DocumentStatusPendingUpload,
	DocumentStatusUnderReview,
	DocumentStatusApproved,
	DocumentStatusRejected,
}

// IsValid reports whether the value is a known DocumentStatus.
func (s DocumentStatus) IsValid() bool {
	for _, candidate := range validDocumentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseDocumentStatus converts raw input into a DocumentStatus.
func ParseDocumentStatus(value string) (DocumentStatus, error) {
	for _, candidate := range validDocumentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid document status %q", value)
}
