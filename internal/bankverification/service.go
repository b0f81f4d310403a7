package bankverification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dishpatch/merchant-backend/pkg/config"
	"github.com/dishpatch/merchant-backend/pkg/db/models"
	"github.com/dishpatch/merchant-backend/pkg/enums"
	pkgerrors "github.com/dishpatch/merchant-backend/pkg/errors"
	"github.com/dishpatch/merchant-backend/pkg/logger"
)

// Service verifies merchant bank accounts and UPI handles, bounded per UTC day.
type Service interface {
	Verify(ctx context.Context, input VerifyInput) (*models.VerificationAttempt, error)
	RemainingAttempts(ctx context.Context, storeID uuid.UUID, now time.Time) (int, error)
	History(ctx context.Context, storeID uuid.UUID, limit int) ([]models.VerificationAttempt, error)
}

// VerifyInput carries one verification request.
type VerifyInput struct {
	StoreID       uuid.UUID
	Method        enums.VerificationMethod
	AccountNumber string
	IFSC          string
	VPA           string
}

type service struct {
	repo     Repository
	provider Provider
	cfg      config.VerificationConfig
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires a verification service.
func NewService(repo Repository, provider Provider, cfg config.VerificationConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("verification repository required")
	}
	if provider == nil {
		return nil, fmt.Errorf("verification provider required")
	}
	return &service{
		repo:     repo,
		provider: provider,
		cfg:      cfg,
		logg:     logg,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// utcDayWindow returns the [start, end) bounds of the UTC calendar day containing t.
func utcDayWindow(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

func (s *service) dailyLimit() int {
	if s.cfg.DailyAttemptLimit > 0 {
		return s.cfg.DailyAttemptLimit
	}
	return 3
}

func (s *service) Verify(ctx context.Context, input VerifyInput) (*models.VerificationAttempt, error) {
	if input.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid verification method %q", input.Method))
	}

	var destination string
	switch input.Method {
	case enums.VerificationMethodBankAccount:
		if strings.TrimSpace(input.AccountNumber) == "" || strings.TrimSpace(input.IFSC) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "account number and ifsc required")
		}
		destination = maskAccount(input.AccountNumber)
	case enums.VerificationMethodUPI:
		if strings.TrimSpace(input.VPA) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "vpa required")
		}
		destination = input.VPA
	}

	now := s.now()
	from, to := utcDayWindow(now)
	used, err := s.repo.CountInWindow(ctx, input.StoreID, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count verification attempts")
	}
	if used >= int64(s.dailyLimit()) {
		return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "daily verification attempt limit reached")
	}

	// The attempt is logged before the provider call so failed and timed-out
	// calls still consume the day's budget.
	attempt := &models.VerificationAttempt{
		StoreID:     input.StoreID,
		Method:      input.Method,
		Status:      enums.VerificationStatusPending,
		Destination: destination,
		AttemptedAt: now,
	}
	if err := s.repo.Create(ctx, attempt); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "log verification attempt")
	}

	var result *ProviderResult
	switch input.Method {
	case enums.VerificationMethodBankAccount:
		result, err = s.provider.VerifyBankAccount(ctx, input.AccountNumber, input.IFSC)
	case enums.VerificationMethodUPI:
		result, err = s.provider.VerifyUPI(ctx, input.VPA)
	}
	if err != nil {
		reason := err.Error()
		attempt.Status = enums.VerificationStatusFailed
		attempt.FailureReason = &reason
		if updateErr := s.repo.Update(ctx, attempt.ID, map[string]any{
			"status":         enums.VerificationStatusFailed,
			"failure_reason": reason,
		}); updateErr != nil && s.logg != nil {
			s.logg.Error(ctx, "record verification failure", updateErr)
		}
		return attempt, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verification provider unavailable")
	}

	updates := map[string]any{}
	if result.Verified {
		attempt.Status = enums.VerificationStatusVerified
		updates["status"] = enums.VerificationStatusVerified
	} else {
		attempt.Status = enums.VerificationStatusFailed
		updates["status"] = enums.VerificationStatusFailed
		if result.Reason != "" {
			attempt.FailureReason = &result.Reason
			updates["failure_reason"] = result.Reason
		}
	}
	if result.ProviderRef != "" {
		attempt.ProviderRef = &result.ProviderRef
		updates["provider_ref"] = result.ProviderRef
	}
	if err := s.repo.Update(ctx, attempt.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record verification outcome")
	}
	return attempt, nil
}

func (s *service) RemainingAttempts(ctx context.Context, storeID uuid.UUID, now time.Time) (int, error) {
	if storeID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	from, to := utcDayWindow(now)
	used, err := s.repo.CountInWindow(ctx, storeID, from, to)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count verification attempts")
	}
	remaining := s.dailyLimit() - int(used)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (s *service) History(ctx context.Context, storeID uuid.UUID, limit int) ([]models.VerificationAttempt, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	return s.repo.ListByStore(ctx, storeID, limit)
}

func maskAccount(accountNumber string) string {
	trimmed := strings.TrimSpace(accountNumber)
	if len(trimmed) <= 4 {
		return trimmed
	}
	return strings.Repeat("*", len(trimmed)-4) + trimmed[len(trimmed)-4:]
}
