package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dishpatch/merchant-backend/pkg/enums"
)

// Document tracks an onboarding or compliance file stored in object storage.
type Document struct {
	ID              uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID         uuid.UUID            `gorm:"column:store_id;type:uuid;not null;index"`
	Kind            enums.DocumentKind   `gorm:"column:kind;type:document_kind;not null"`
	Status          enums.DocumentStatus `gorm:"column:status;type:document_status;not null;default:'pending_upload'"`
	ObjectKey       string               `gorm:"column:object_key;not null;uniqueIndex"`
	FileName        string               `gorm:"column:file_name;not null"`
	ContentType     string               `gorm:"column:content_type;not null"`
	SizeBytes       int64                `gorm:"column:size_bytes;not null;default:0"`
	RejectionReason *string              `gorm:"column:rejection_reason"`
	UploadedAt      *time.Time           `gorm:"column:uploaded_at"`
	ReviewedAt      *time.Time           `gorm:"column:reviewed_at"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
