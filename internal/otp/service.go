package otp

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dishpatch/merchant-backend/pkg/config"
	"github.com/dishpatch/merchant-backend/pkg/db/models"
	pkgerrors "github.com/dishpatch/merchant-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderLoader interface {
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.FoodOrder, error)
}

// Service manages delivery confirmation codes.
type Service interface {
	Issue(ctx context.Context, orderID uuid.UUID) (string, error)
	Validate(ctx context.Context, input ValidateInput) error
}

// ValidateInput carries one OTP validation attempt. StoreID scopes the
// attempt to the caller's active store; an order owned by another store
// is treated as not found.
type ValidateInput struct {
	OrderID uuid.UUID
	StoreID uuid.UUID
	Code    string
}

type service struct {
	repo   Repository
	orders orderLoader
	tx     txRunner
	cfg    config.OTPConfig
}

// NewService builds the OTP service.
func NewService(repo Repository, orders orderLoader, tx txRunner, cfg config.OTPConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("otp repository required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order loader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, orders: orders, tx: tx, cfg: cfg}, nil
}

// Issue creates (or replaces) the confirmation code for an order and
// returns the plaintext exactly once.
func (s *service) Issue(ctx context.Context, orderID uuid.UUID) (string, error) {
	if orderID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	code, err := generateCode()
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate otp code")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, findErr := repo.FindByOrderID(ctx, orderID)
		if findErr != nil && findErr != gorm.ErrRecordNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load otp row")
		}
		if existing != nil {
			if existing.VerifiedAt != nil {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "otp already verified")
			}
			return repo.Reset(ctx, existing.ID, HashCode(code))
		}
		return repo.Create(ctx, &models.OrderOTP{
			OrderID:  orderID,
			CodeHash: HashCode(code),
		})
	})
	if err != nil {
		return "", err
	}
	return code, nil
}

func (s *service) Validate(ctx context.Context, input ValidateInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.StoreID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "store context missing")
	}
	if strings.TrimSpace(input.Code) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "otp code required")
	}

	order, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.StoreID != input.StoreID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	maxAttempts := s.cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	lockDuration := s.cfg.LockDuration
	if lockDuration <= 0 {
		lockDuration = 15 * time.Minute
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		row, err := repo.FindByOrderIDForUpdate(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "otp not found for order")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load otp row")
		}

		// A consumed code stays consumed, even when the caller knows it.
		if row.VerifiedAt != nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "otp already verified")
		}

		now := time.Now().UTC()
		if row.LockedUntil != nil && row.LockedUntil.After(now) {
			return pkgerrors.New(pkgerrors.CodeRateLimit, "otp validation locked, retry later")
		}

		if matches(row.CodeHash, input.Code) {
			return repo.MarkVerified(ctx, row.ID, now)
		}

		attempts := row.AttemptCount + 1
		var lockedUntil *time.Time
		if attempts >= maxAttempts {
			until := now.Add(lockDuration)
			lockedUntil = &until
		}
		if err := repo.RecordFailure(ctx, row.ID, attempts, lockedUntil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record otp failure")
		}
		if lockedUntil != nil {
			return pkgerrors.New(pkgerrors.CodeRateLimit, "otp validation locked, retry later")
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "incorrect otp code")
	})
}

// HashCode produces the stored digest for a plaintext code.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(code)))
	return hex.EncodeToString(sum[:])
}

func matches(storedHash, code string) bool {
	candidate := HashCode(code)
	return hmac.Equal([]byte(storedHash), []byte(candidate))
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
