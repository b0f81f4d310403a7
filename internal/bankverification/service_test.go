package bankverification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dishpatch/merchant-backend/pkg/config"
	"github.com/dishpatch/merchant-backend/pkg/db/models"
	"github.com/dishpatch/merchant-backend/pkg/enums"
	pkgerrors "github.com/dishpatch/merchant-backend/pkg/errors"
)

type stubVerificationRepo struct {
	attempts []*models.VerificationAttempt
}

func (s *stubVerificationRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubVerificationRepo) Create(ctx context.Context, attempt *models.VerificationAttempt) error {
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	s.attempts = append(s.attempts, attempt)
	return nil
}

func (s *stubVerificationRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return nil
}

func (s *stubVerificationRepo) CountInWindow(ctx context.Context, storeID uuid.UUID, from, to time.Time) (int64, error) {
	var count int64
	for _, a := range s.attempts {
		if a.StoreID == storeID && !a.AttemptedAt.Before(from) && a.AttemptedAt.Before(to) {
			count++
		}
	}
	return count, nil
}

func (s *stubVerificationRepo) ListByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]models.VerificationAttempt, error) {
	out := []models.VerificationAttempt{}
	for _, a := range s.attempts {
		if a.StoreID == storeID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *stubVerificationRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type stubProvider struct {
	result *ProviderResult
	err    error
	calls  int
}

func (s *stubProvider) VerifyBankAccount(ctx context.Context, accountNumber, ifsc string) (*ProviderResult, error) {
	s.calls++
	return s.result, s.err
}

func (s *stubProvider) VerifyUPI(ctx context.Context, vpa string) (*ProviderResult, error) {
	s.calls++
	return s.result, s.err
}

func newVerifyService(t *testing.T, repo Repository, provider Provider) *service {
	t.Helper()
	svc, err := NewService(repo, provider, config.VerificationConfig{DailyAttemptLimit: 3}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc.(*service)
}

func bankInput(storeID uuid.UUID) VerifyInput {
	return VerifyInput{
		StoreID:       storeID,
		Method:        enums.VerificationMethodBankAccount,
		AccountNumber: "123456789012",
		IFSC:          "HDFC0001234",
	}
}

func TestVerifyAllowsUpToDailyLimit(t *testing.T) {
	storeID := uuid.New()
	repo := &stubVerificationRepo{}
	provider := &stubProvider{result: &ProviderResult{Verified: true, ProviderRef: "ref-1"}}
	svc := newVerifyService(t, repo, provider)

	for i := 0; i < 3; i++ {
		if _, err := svc.Verify(context.Background(), bankInput(storeID)); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}

	_, err := svc.Verify(context.Background(), bankInput(storeID))
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeRateLimit {
		t.Fatalf("expected rate limit on fourth attempt, got %v", err)
	}
	if provider.calls != 3 {
		t.Fatalf("provider must not be called past the limit, got %d calls", provider.calls)
	}
}

func TestVerifyLimitIsPerStore(t *testing.T) {
	repo := &stubVerificationRepo{}
	provider := &stubProvider{result: &ProviderResult{Verified: true}}
	svc := newVerifyService(t, repo, provider)

	first := uuid.New()
	for i := 0; i < 3; i++ {
		if _, err := svc.Verify(context.Background(), bankInput(first)); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}

	if _, err := svc.Verify(context.Background(), bankInput(uuid.New())); err != nil {
		t.Fatalf("other store must not share the budget: %v", err)
	}
}

func TestVerifyWindowResetsAtUTCMidnight(t *testing.T) {
	storeID := uuid.New()
	repo := &stubVerificationRepo{}
	provider := &stubProvider{result: &ProviderResult{Verified: true}}
	svc := newVerifyService(t, repo, provider)

	yesterday := time.Date(2026, 8, 30, 23, 50, 0, 0, time.UTC)
	svc.now = func() time.Time { return yesterday }
	for i := 0; i < 3; i++ {
		if _, err := svc.Verify(context.Background(), bankInput(storeID)); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}

	svc.now = func() time.Time { return time.Date(2026, 8, 31, 0, 10, 0, 0, time.UTC) }
	if _, err := svc.Verify(context.Background(), bankInput(storeID)); err != nil {
		t.Fatalf("budget should reset after UTC midnight: %v", err)
	}
}

func TestVerifyFailedProviderCallStillConsumesBudget(t *testing.T) {
	storeID := uuid.New()
	repo := &stubVerificationRepo{}
	provider := &stubProvider{err: pkgerrors.New(pkgerrors.CodeDependency, "timeout")}
	svc := newVerifyService(t, repo, provider)

	_, err := svc.Verify(context.Background(), bankInput(storeID))
	if err == nil {
		t.Fatal("expected provider error")
	}

	remaining, err := svc.RemainingAttempts(context.Background(), storeID, time.Now().UTC())
	if err != nil {
		t.Fatalf("RemainingAttempts: %v", err)
	}
	if remaining != 2 {
		t.Fatalf("expected 2 remaining after failed call, got %d", remaining)
	}
}

func TestVerifyMasksBankDestination(t *testing.T) {
	storeID := uuid.New()
	repo := &stubVerificationRepo{}
	provider := &stubProvider{result: &ProviderResult{Verified: true}}
	svc := newVerifyService(t, repo, provider)

	attempt, err := svc.Verify(context.Background(), bankInput(storeID))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if attempt.Destination != "********9012" {
		t.Fatalf("expected masked destination, got %q", attempt.Destination)
	}
}

func TestUTCDayWindow(t *testing.T) {
	at := time.Date(2026, 8, 31, 18, 45, 12, 0, time.UTC)
	from, to := utcDayWindow(at)
	if !from.Equal(time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected window start %s", from)
	}
	if !to.Equal(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected window end %s", to)
	}
}
