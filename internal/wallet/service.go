package wallet

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/dishpatch/merchant-backend/pkg/db"
	"github.com/dishpatch/merchant-backend/pkg/db/models"
	"github.com/dishpatch/merchant-backend/pkg/enums"
	pkgerrors "github.com/dishpatch/merchant-backend/pkg/errors"
	"github.com/dishpatch/merchant-backend/pkg/outbox"
	"github.com/dishpatch/merchant-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines merchant wallet operations.
type Service interface {
	Credit(ctx context.Context, input MovementInput) (*models.WalletEntry, error)
	Debit(ctx context.Context, input MovementInput) (*models.WalletEntry, error)
	Balance(ctx context.Context, storeID uuid.UUID) (*models.MerchantWallet, error)
	Entries(ctx context.Context, storeID uuid.UUID, limit int) ([]models.WalletEntry, error)
}

// MovementInput captures one credit or debit against a store wallet.
type MovementInput struct {
	StoreID        uuid.UUID
	Amount         decimal.Decimal
	Category       enums.WalletEntryCategory
	IdempotencyKey string
	ReferenceID    *uuid.UUID
	Note           *string
	Actor          *outbox.ActorRef
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// NewService wires a wallet service with its dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxSvc}, nil
}

func (s *service) Credit(ctx context.Context, input MovementInput) (*models.WalletEntry, error) {
	return s.apply(ctx, enums.WalletEntryTypeCredit, input)
}

func (s *service) Debit(ctx context.Context, input MovementInput) (*models.WalletEntry, error) {
	return s.apply(ctx, enums.WalletEntryTypeDebit, input)
}

func (s *service) apply(ctx context.Context, entryType enums.WalletEntryType, input MovementInput) (*models.WalletEntry, error) {
	if input.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	if strings.TrimSpace(input.IdempotencyKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid wallet entry category %q", input.Category))
	}

	var entry *models.WalletEntry
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		// Replays of the same business event return the original entry.
		if existing, findErr := repo.FindEntryByIdempotencyKey(ctx, input.IdempotencyKey); findErr == nil {
			entry = existing
			return nil
		} else if findErr != gorm.ErrRecordNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "check wallet idempotency")
		}

		wallet, err := repo.GetOrCreateForUpdate(ctx, input.StoreID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load merchant wallet")
		}

		balance := wallet.Balance
		switch entryType {
		case enums.WalletEntryTypeCredit:
			balance = balance.Add(input.Amount)
		case enums.WalletEntryTypeDebit:
			balance = balance.Sub(input.Amount)
			if balance.IsNegative() {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient wallet balance")
			}
		}

		row := &models.WalletEntry{
			ID:             uuid.New(),
			WalletID:       wallet.ID,
			Type:           entryType,
			Category:       input.Category,
			Amount:         input.Amount,
			BalanceAfter:   balance,
			IdempotencyKey: input.IdempotencyKey,
			ReferenceID:    input.ReferenceID,
			Note:           input.Note,
		}
		if err := repo.CreateEntry(ctx, row); err != nil {
			// Lost a race on the same key; surface the winner's entry.
			if dbpkg.IsUniqueViolation(err, "ux_wallet_entries_idempotency_key") {
				existing, findErr := repo.FindEntryByIdempotencyKey(ctx, input.IdempotencyKey)
				if findErr != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load wallet entry after conflict")
				}
				entry = existing
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create wallet entry")
		}

		if err := repo.UpdateBalance(ctx, wallet.ID, balance); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update wallet balance")
		}

		entry = row

		eventType := enums.EventWalletCredited
		if entryType == enums.WalletEntryTypeDebit {
			eventType = enums.EventWalletDebited
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateWalletEntry,
			AggregateID:   row.ID,
			Version:       1,
			Actor:         input.Actor,
			Data: payloads.WalletMovementEvent{
				WalletID:       wallet.ID,
				StoreID:        input.StoreID,
				EntryID:        row.ID,
				Type:           entryType,
				Category:       input.Category,
				Amount:         input.Amount,
				BalanceAfter:   balance,
				IdempotencyKey: input.IdempotencyKey,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) Balance(ctx context.Context, storeID uuid.UUID) (*models.MerchantWallet, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	wallet, err := s.repo.FindByStoreID(ctx, storeID)
	if err == gorm.ErrRecordNotFound {
		// A store that has never earned simply has a zero wallet.
		return &models.MerchantWallet{StoreID: storeID, Balance: decimal.Zero, CurrencyCode: enums.CurrencyINR}, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load merchant wallet")
	}
	return wallet, nil
}

func (s *service) Entries(ctx context.Context, storeID uuid.UUID, limit int) ([]models.WalletEntry, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	wallet, err := s.repo.FindByStoreID(ctx, storeID)
	if err == gorm.ErrRecordNotFound {
		return []models.WalletEntry{}, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load merchant wallet")
	}
	return s.repo.ListEntries(ctx, wallet.ID, limit, nil)
}

// OrderEarningKey builds the deterministic idempotency key for crediting a delivered order.
func OrderEarningKey(orderID uuid.UUID) string {
	return fmt.Sprintf("order_earning_%s", orderID)
}

// PayoutKey builds the deterministic idempotency key for debiting a payout request.
func PayoutKey(requestID uuid.UUID) string {
	return fmt.Sprintf("payout_%s", requestID)
}
