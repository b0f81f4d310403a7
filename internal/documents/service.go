package documents

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dishpatch/merchant-backend/pkg/db/models"
	"github.com/dishpatch/merchant-backend/pkg/enums"
	pkgerrors "github.com/dishpatch/merchant-backend/pkg/errors"
	"github.com/dishpatch/merchant-backend/pkg/outbox"
	"github.com/dishpatch/merchant-backend/pkg/outbox/payloads"
	"github.com/dishpatch/merchant-backend/pkg/storage/r2"
)

const downloadExpiry = 15 * time.Minute

var allowedContentTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type objectStore interface {
	PresignUpload(ctx context.Context, key, contentType string) (*r2.PresignedUpload, error)
	PresignDownload(ctx context.Context, key string, expiry time.Duration) (string, error)
	HeadObject(ctx context.Context, key string) (int64, error)
	DeleteObject(ctx context.Context, key string) error
}

// InitiateUploadInput describes the file the client intends to upload.
type InitiateUploadInput struct {
	Kind        enums.DocumentKind
	FileName    string
	ContentType string
}

// PendingUpload pairs the created document with its signed upload target.
type PendingUpload struct {
	Document *models.Document
	Upload   *r2.PresignedUpload
}

// ReviewInput carries an admin review decision.
type ReviewInput struct {
	Approve bool
	Reason  *string
}

// Service exposes the document upload and review lifecycle.
type Service interface {
	InitiateUpload(ctx context.Context, storeID uuid.UUID, input InitiateUploadInput) (*PendingUpload, error)
	ConfirmUpload(ctx context.Context, storeID, documentID uuid.UUID) (*models.Document, error)
	Review(ctx context.Context, documentID uuid.UUID, input ReviewInput) (*models.Document, error)
	List(ctx context.Context, storeID uuid.UUID) ([]models.Document, error)
	DownloadURL(ctx context.Context, storeID, documentID uuid.UUID) (string, error)
}

type service struct {
	repo    Repository
	storage objectStore
	tx      txRunner
	outbox  outboxPublisher
}

// NewService builds a document service.
func NewService(repo Repository, storage objectStore, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("document repository required")
	}
	if storage == nil {
		return nil, fmt.Errorf("object storage required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, storage: storage, tx: tx, outbox: outboxSvc}, nil
}

func (s *service) InitiateUpload(ctx context.Context, storeID uuid.UUID, input InitiateUploadInput) (*PendingUpload, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown document kind")
	}
	ext, ok := allowedContentTypes[strings.ToLower(strings.TrimSpace(input.ContentType))]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported content type")
	}
	fileName := path.Base(strings.TrimSpace(input.FileName))
	if fileName == "" || fileName == "." || fileName == "/" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file name required")
	}

	doc := &models.Document{
		StoreID:     storeID,
		Kind:        input.Kind,
		Status:      enums.DocumentStatusPendingUpload,
		ObjectKey:   buildObjectKey(storeID, input.Kind, ext),
		FileName:    fileName,
		ContentType: strings.ToLower(strings.TrimSpace(input.ContentType)),
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create document")
	}

	upload, err := s.storage.PresignUpload(ctx, doc.ObjectKey, doc.ContentType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "presign upload")
	}
	return &PendingUpload{Document: doc, Upload: upload}, nil
}

// ConfirmUpload verifies the object landed in storage and moves the
// document into review.
func (s *service) ConfirmUpload(ctx context.Context, storeID, documentID uuid.UUID) (*models.Document, error) {
	doc, err := s.load(ctx, storeID, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != enums.DocumentStatusPendingUpload {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("document cannot be confirmed from status %s", doc.Status))
	}

	size, err := s.storage.HeadObject(ctx, doc.ObjectKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "object not found in storage")
	}
	if size <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "uploaded object is empty")
	}

	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateFields(ctx, doc.ID, map[string]any{
			"status":      enums.DocumentStatusUnderReview,
			"size_bytes":  size,
			"uploaded_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update document")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDocumentUploaded,
			AggregateType: enums.AggregateDocument,
			AggregateID:   doc.ID,
			Version:       1,
			Data: payloads.DocumentUploadedEvent{
				DocumentID: doc.ID,
				StoreID:    doc.StoreID,
				Kind:       doc.Kind,
				ObjectKey:  doc.ObjectKey,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	doc.Status = enums.DocumentStatusUnderReview
	doc.SizeBytes = size
	doc.UploadedAt = &now
	return doc, nil
}

func (s *service) Review(ctx context.Context, documentID uuid.UUID, input ReviewInput) (*models.Document, error) {
	if documentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "document id required")
	}
	doc, err := s.repo.FindByID(ctx, documentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "document not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load document")
	}
	if doc.Status != enums.DocumentStatusUnderReview {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("document cannot be reviewed from status %s", doc.Status))
	}

	target := enums.DocumentStatusApproved
	reason := ""
	if !input.Approve {
		target = enums.DocumentStatusRejected
		if input.Reason == nil || strings.TrimSpace(*input.Reason) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason required")
		}
		reason = strings.TrimSpace(*input.Reason)
	}

	now := time.Now().UTC()
	updates := map[string]any{
		"status":      target,
		"reviewed_at": now,
	}
	if reason != "" {
		updates["rejection_reason"] = reason
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateFields(ctx, doc.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update document")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDocumentReviewed,
			AggregateType: enums.AggregateDocument,
			AggregateID:   doc.ID,
			Version:       1,
			Data: payloads.DocumentReviewedEvent{
				DocumentID: doc.ID,
				StoreID:    doc.StoreID,
				Kind:       doc.Kind,
				Status:     target,
				Reason:     reason,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	doc.Status = target
	doc.ReviewedAt = &now
	if reason != "" {
		doc.RejectionReason = &reason
	}
	return doc, nil
}

func (s *service) List(ctx context.Context, storeID uuid.UUID) ([]models.Document, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	docs, err := s.repo.ListByStore(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list documents")
	}
	return docs, nil
}

func (s *service) DownloadURL(ctx context.Context, storeID, documentID uuid.UUID) (string, error) {
	doc, err := s.load(ctx, storeID, documentID)
	if err != nil {
		return "", err
	}
	if doc.Status == enums.DocumentStatusPendingUpload {
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, "document has not been uploaded")
	}
	url, err := s.storage.PresignDownload(ctx, doc.ObjectKey, downloadExpiry)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "presign download")
	}
	return url, nil
}

func (s *service) load(ctx context.Context, storeID, documentID uuid.UUID) (*models.Document, error) {
	if storeID == uuid.Nil || documentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id and document id required")
	}
	doc, err := s.repo.FindByID(ctx, documentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "document not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load document")
	}
	if doc.StoreID != storeID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "document not found")
	}
	return doc, nil
}

func buildObjectKey(storeID uuid.UUID, kind enums.DocumentKind, ext string) string {
	return fmt.Sprintf("stores/%s/documents/%s/%s%s", storeID, kind, uuid.NewString(), ext)
}
