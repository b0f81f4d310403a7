package otp

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dishpatch/merchant-backend/pkg/config"
	"github.com/dishpatch/merchant-backend/pkg/db/models"
	pkgerrors "github.com/dishpatch/merchant-backend/pkg/errors"
)

type stubOTPRepo struct {
	row     *models.OrderOTP
	created *models.OrderOTP
}

func (s *stubOTPRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubOTPRepo) Create(ctx context.Context, row *models.OrderOTP) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	s.created = row
	s.row = row
	return nil
}

func (s *stubOTPRepo) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.OrderOTP, error) {
	if s.row == nil || s.row.OrderID != orderID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.row
	return &copied, nil
}

func (s *stubOTPRepo) FindByOrderIDForUpdate(ctx context.Context, orderID uuid.UUID) (*models.OrderOTP, error) {
	return s.FindByOrderID(ctx, orderID)
}

func (s *stubOTPRepo) MarkVerified(ctx context.Context, id uuid.UUID, verifiedAt time.Time) error {
	s.row.VerifiedAt = &verifiedAt
	s.row.AttemptCount = 0
	s.row.LockedUntil = nil
	return nil
}

func (s *stubOTPRepo) RecordFailure(ctx context.Context, id uuid.UUID, attempts int, lockedUntil *time.Time) error {
	s.row.AttemptCount = attempts
	s.row.LockedUntil = lockedUntil
	return nil
}

func (s *stubOTPRepo) Reset(ctx context.Context, id uuid.UUID, codeHash string) error {
	s.row.CodeHash = codeHash
	s.row.AttemptCount = 0
	s.row.LockedUntil = nil
	s.row.VerifiedAt = nil
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

var testStoreID = uuid.New()

type stubOrderLoader struct {
	storeID uuid.UUID
	missing bool
}

func (s *stubOrderLoader) FindByID(ctx context.Context, orderID uuid.UUID) (*models.FoodOrder, error) {
	if s.missing {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.FoodOrder{ID: orderID, StoreID: s.storeID}, nil
}

func testConfig() config.OTPConfig {
	return config.OTPConfig{MaxAttempts: 5, LockDuration: 15 * time.Minute}
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, &stubOrderLoader{storeID: testStoreID}, stubTxRunner{}, testConfig())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func otpRow(orderID uuid.UUID, code string) *models.OrderOTP {
	return &models.OrderOTP{
		ID:       uuid.New(),
		OrderID:  orderID,
		CodeHash: HashCode(code),
	}
}

func TestValidateCorrectCodeMarksVerified(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOTPRepo{row: otpRow(orderID, "482913")}
	repo.row.AttemptCount = 3
	svc := newTestService(t, repo)

	if err := svc.Validate(context.Background(), ValidateInput{OrderID: orderID, StoreID: testStoreID, Code: "482913"}); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if repo.row.VerifiedAt == nil {
		t.Fatal("expected verified_at to be set")
	}
	if repo.row.AttemptCount != 0 {
		t.Fatal("expected attempt counter reset on success")
	}
}

func TestValidateWrongCodeIncrementsAttempts(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOTPRepo{row: otpRow(orderID, "482913")}
	svc := newTestService(t, repo)

	err := svc.Validate(context.Background(), ValidateInput{OrderID: orderID, StoreID: testStoreID, Code: "000000"})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if repo.row.AttemptCount != 1 {
		t.Fatalf("expected 1 attempt, got %d", repo.row.AttemptCount)
	}
	if repo.row.LockedUntil != nil {
		t.Fatal("no lock expected before the threshold")
	}
}

func TestValidateLocksAfterFiveFailures(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOTPRepo{row: otpRow(orderID, "482913")}
	svc := newTestService(t, repo)

	for i := 0; i < 4; i++ {
		_ = svc.Validate(context.Background(), ValidateInput{OrderID: orderID, StoreID: testStoreID, Code: "000000"})
	}
	err := svc.Validate(context.Background(), ValidateInput{OrderID: orderID, StoreID: testStoreID, Code: "000000"})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeRateLimit {
		t.Fatalf("expected rate limit on fifth failure, got %v", err)
	}
	if repo.row.LockedUntil == nil {
		t.Fatal("expected lock timestamp after fifth failure")
	}
	remaining := time.Until(*repo.row.LockedUntil)
	if remaining < 14*time.Minute || remaining > 15*time.Minute {
		t.Fatalf("expected ~15 minute lock, got %s", remaining)
	}
}

func TestValidateLockedRejectsEvenCorrectCode(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOTPRepo{row: otpRow(orderID, "482913")}
	until := time.Now().UTC().Add(10 * time.Minute)
	repo.row.AttemptCount = 5
	repo.row.LockedUntil = &until
	svc := newTestService(t, repo)

	err := svc.Validate(context.Background(), ValidateInput{OrderID: orderID, StoreID: testStoreID, Code: "482913"})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeRateLimit {
		t.Fatalf("expected rate limit while locked, got %v", err)
	}
	if repo.row.VerifiedAt != nil {
		t.Fatal("locked otp must not verify")
	}
}

func TestValidateExpiredLockAllowsRetry(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOTPRepo{row: otpRow(orderID, "482913")}
	until := time.Now().UTC().Add(-time.Minute)
	repo.row.AttemptCount = 5
	repo.row.LockedUntil = &until
	svc := newTestService(t, repo)

	if err := svc.Validate(context.Background(), ValidateInput{OrderID: orderID, StoreID: testStoreID, Code: "482913"}); err != nil {
		t.Fatalf("expected retry after lock expiry: %v", err)
	}
	if repo.row.VerifiedAt == nil {
		t.Fatal("expected verification after lock expiry")
	}
}

func TestValidateVerifiedNeverRevalidates(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOTPRepo{row: otpRow(orderID, "482913")}
	at := time.Now().UTC().Add(-time.Hour)
	repo.row.VerifiedAt = &at
	svc := newTestService(t, repo)

	err := svc.Validate(context.Background(), ValidateInput{OrderID: orderID, StoreID: testStoreID, Code: "482913"})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for verified otp, got %v", err)
	}
}

func TestValidateMissingRowIsNotFound(t *testing.T) {
	svc := newTestService(t, &stubOTPRepo{})

	err := svc.Validate(context.Background(), ValidateInput{OrderID: uuid.New(), StoreID: testStoreID, Code: "482913"})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestValidateForeignStoreOrderIsNotFound(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOTPRepo{row: otpRow(orderID, "482913")}
	loader := &stubOrderLoader{storeID: uuid.New()} // order belongs elsewhere
	svc, err := NewService(repo, loader, stubTxRunner{}, testConfig())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	err = svc.Validate(context.Background(), ValidateInput{OrderID: orderID, StoreID: testStoreID, Code: "482913"})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for another store's order, got %v", err)
	}
	if repo.row.VerifiedAt != nil {
		t.Fatal("another store's otp must not be consumed")
	}
}

func TestValidateRequiresStoreID(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOTPRepo{row: otpRow(orderID, "482913")}
	svc := newTestService(t, repo)

	err := svc.Validate(context.Background(), ValidateInput{OrderID: orderID, Code: "482913"})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden without store context, got %v", err)
	}
	if repo.row.VerifiedAt != nil {
		t.Fatal("otp must not verify without store context")
	}
}

func TestIssueReturnsSixDigitCode(t *testing.T) {
	repo := &stubOTPRepo{}
	svc := newTestService(t, repo)

	code, err := svc.Issue(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if len(code) != 6 || strings.TrimLeft(code, "0123456789") != "" {
		t.Fatalf("expected 6-digit code, got %q", code)
	}
	if repo.created == nil || repo.created.CodeHash != HashCode(code) {
		t.Fatal("expected stored hash to match issued code")
	}
}
