package payouts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dishpatch/merchant-backend/internal/wallet"
	"github.com/dishpatch/merchant-backend/pkg/db/models"
	"github.com/dishpatch/merchant-backend/pkg/enums"
	pkgerrors "github.com/dishpatch/merchant-backend/pkg/errors"
	"github.com/dishpatch/merchant-backend/pkg/logger"
	"github.com/dishpatch/merchant-backend/pkg/outbox"
	"github.com/dishpatch/merchant-backend/pkg/outbox/payloads"
)

var minPayoutAmount = decimal.NewFromInt(100)

var allowedPayoutMoves = map[enums.PayoutStatus][]enums.PayoutStatus{
	enums.PayoutStatusRequested:  {enums.PayoutStatusApproved, enums.PayoutStatusRejected},
	enums.PayoutStatusApproved:   {enums.PayoutStatusProcessing, enums.PayoutStatusPaid, enums.PayoutStatusRejected},
	enums.PayoutStatusProcessing: {enums.PayoutStatusPaid, enums.PayoutStatusRejected},
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type walletMover interface {
	Credit(ctx context.Context, input wallet.MovementInput) (*models.WalletEntry, error)
	Debit(ctx context.Context, input wallet.MovementInput) (*models.WalletEntry, error)
}

// AccountInput describes a new payout destination.
type AccountInput struct {
	Method          enums.VerificationMethod
	BeneficiaryName string
	AccountNumber   *string
	IFSC            *string
	UPIVPA          *string
}

// RequestInput describes a withdrawal.
type RequestInput struct {
	AccountID   uuid.UUID
	Amount      decimal.Decimal
	RequestedBy uuid.UUID
}

// Service exposes payout accounts and withdrawal requests.
type Service interface {
	CreateAccount(ctx context.Context, storeID uuid.UUID, input AccountInput) (*models.PayoutAccount, error)
	ListAccounts(ctx context.Context, storeID uuid.UUID) ([]models.PayoutAccount, error)
	MarkAccountVerified(ctx context.Context, storeID, accountID uuid.UUID) (*models.PayoutAccount, error)
	DeleteAccount(ctx context.Context, storeID, accountID uuid.UUID) error

	Request(ctx context.Context, storeID uuid.UUID, input RequestInput) (*models.PayoutRequest, error)
	ListRequests(ctx context.Context, storeID uuid.UUID, limit int) ([]models.PayoutRequest, error)
	Approve(ctx context.Context, requestID uuid.UUID) (*models.PayoutRequest, error)
	Settle(ctx context.Context, requestID uuid.UUID, utr string) (*models.PayoutRequest, error)
	Reject(ctx context.Context, requestID uuid.UUID, reason string) (*models.PayoutRequest, error)
}

type service struct {
	repo   Repository
	wallet walletMover
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
}

// NewService builds a payout service.
func NewService(repo Repository, walletSvc walletMover, tx txRunner, outboxSvc outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payout repository required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, wallet: walletSvc, tx: tx, outbox: outboxSvc, logg: logg}, nil
}

func (s *service) CreateAccount(ctx context.Context, storeID uuid.UUID, input AccountInput) (*models.PayoutAccount, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	if strings.TrimSpace(input.BeneficiaryName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "beneficiary name required")
	}

	account := &models.PayoutAccount{
		StoreID:         storeID,
		Method:          input.Method,
		BeneficiaryName: strings.TrimSpace(input.BeneficiaryName),
	}
	switch input.Method {
	case enums.VerificationMethodBankAccount:
		if input.AccountNumber == nil || strings.TrimSpace(*input.AccountNumber) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "account number required")
		}
		if input.IFSC == nil || strings.TrimSpace(*input.IFSC) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "ifsc required")
		}
		account.AccountNumber = input.AccountNumber
		account.IFSC = input.IFSC
	case enums.VerificationMethodUPI:
		if input.UPIVPA == nil || !strings.Contains(*input.UPIVPA, "@") {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "valid upi vpa required")
		}
		account.UPIVPA = input.UPIVPA
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payout method")
	}

	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payout account")
	}
	return account, nil
}

func (s *service) ListAccounts(ctx context.Context, storeID uuid.UUID) ([]models.PayoutAccount, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	accounts, err := s.repo.ListAccountsByStore(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payout accounts")
	}
	return accounts, nil
}

func (s *service) MarkAccountVerified(ctx context.Context, storeID, accountID uuid.UUID) (*models.PayoutAccount, error) {
	account, err := s.loadAccount(ctx, storeID, accountID)
	if err != nil {
		return nil, err
	}
	if account.IsVerified {
		return account, nil
	}
	now := time.Now().UTC()
	if err := s.repo.UpdateAccount(ctx, account.ID, map[string]any{
		"is_verified": true,
		"verified_at": now,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payout account")
	}
	account.IsVerified = true
	account.VerifiedAt = &now
	return account, nil
}

func (s *service) DeleteAccount(ctx context.Context, storeID, accountID uuid.UUID) error {
	account, err := s.loadAccount(ctx, storeID, accountID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteAccount(ctx, account.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete payout account")
	}
	return nil
}

// Request debits the wallet up front so a withdrawal can never exceed
// the wallet balance, then records the request.
func (s *service) Request(ctx context.Context, storeID uuid.UUID, input RequestInput) (*models.PayoutRequest, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	if input.RequestedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Amount.LessThan(minPayoutAmount) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("minimum payout amount is %s", minPayoutAmount))
	}
	account, err := s.loadAccount(ctx, storeID, input.AccountID)
	if err != nil {
		return nil, err
	}
	if !account.IsVerified {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payout account is not verified")
	}

	open, err := s.repo.CountOpenRequests(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count open requests")
	}
	if open > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a payout request is already in flight")
	}

	requestID := uuid.New()
	if _, err := s.wallet.Debit(ctx, wallet.MovementInput{
		StoreID:        storeID,
		Amount:         input.Amount,
		Category:       enums.WalletEntryCategoryPayout,
		IdempotencyKey: wallet.PayoutKey(requestID),
		ReferenceID:    &requestID,
	}); err != nil {
		return nil, err
	}

	request := &models.PayoutRequest{
		ID:              requestID,
		StoreID:         storeID,
		PayoutAccountID: account.ID,
		Amount:          input.Amount,
		Status:          enums.PayoutStatusRequested,
		RequestedBy:     input.RequestedBy,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateRequest(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payout request")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutRequested,
			AggregateType: enums.AggregatePayout,
			AggregateID:   request.ID,
			Version:       1,
			Data:          payoutPayload(request),
		})
	})
	if err != nil {
		s.refund(ctx, request, "request creation failed")
		return nil, err
	}
	return request, nil
}

func (s *service) ListRequests(ctx context.Context, storeID uuid.UUID, limit int) ([]models.PayoutRequest, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	requests, err := s.repo.ListRequestsByStore(ctx, storeID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payout requests")
	}
	return requests, nil
}

func (s *service) Approve(ctx context.Context, requestID uuid.UUID) (*models.PayoutRequest, error) {
	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := validatePayoutMove(request.Status, enums.PayoutStatusApproved); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateRequest(ctx, request.ID, map[string]any{
		"status": enums.PayoutStatusApproved,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payout request")
	}
	request.Status = enums.PayoutStatusApproved
	return request, nil
}

func (s *service) Settle(ctx context.Context, requestID uuid.UUID, utr string) (*models.PayoutRequest, error) {
	if strings.TrimSpace(utr) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "utr required")
	}
	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := validatePayoutMove(request.Status, enums.PayoutStatusPaid); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	utr = strings.TrimSpace(utr)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateRequest(ctx, request.ID, map[string]any{
			"status":       enums.PayoutStatusPaid,
			"utr":          utr,
			"processed_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payout request")
		}
		request.Status = enums.PayoutStatusPaid
		request.UTR = &utr
		request.ProcessedAt = &now
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutSettled,
			AggregateType: enums.AggregatePayout,
			AggregateID:   request.ID,
			Version:       1,
			Data:          payoutPayload(request),
		})
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// Reject returns the debited amount to the wallet.
func (s *service) Reject(ctx context.Context, requestID uuid.UUID, reason string) (*models.PayoutRequest, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason required")
	}
	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := validatePayoutMove(request.Status, enums.PayoutStatusRejected); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	reason = strings.TrimSpace(reason)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateRequest(ctx, request.ID, map[string]any{
			"status":         enums.PayoutStatusRejected,
			"failure_reason": reason,
			"processed_at":   now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payout request")
		}
		request.Status = enums.PayoutStatusRejected
		request.FailureReason = &reason
		request.ProcessedAt = &now
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutRejected,
			AggregateType: enums.AggregatePayout,
			AggregateID:   request.ID,
			Version:       1,
			Data:          payoutPayload(request),
		})
	})
	if err != nil {
		return nil, err
	}

	s.refund(ctx, request, reason)
	return request, nil
}

// refund credits the debited amount back. The reversal key keeps a retry
// from crediting twice.
func (s *service) refund(ctx context.Context, request *models.PayoutRequest, note string) {
	_, err := s.wallet.Credit(ctx, wallet.MovementInput{
		StoreID:        request.StoreID,
		Amount:         request.Amount,
		Category:       enums.WalletEntryCategoryPayout,
		IdempotencyKey: fmt.Sprintf("payout_reversal_%s", request.ID),
		ReferenceID:    &request.ID,
		Note:           &note,
	})
	if err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithStoreID(ctx, request.StoreID.String()), fmt.Sprintf("payout %s refund failed", request.ID), err)
	}
}

func (s *service) loadAccount(ctx context.Context, storeID, accountID uuid.UUID) (*models.PayoutAccount, error) {
	if storeID == uuid.Nil || accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id and account id required")
	}
	account, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout account")
	}
	if account.StoreID != storeID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout account not found")
	}
	return account, nil
}

func (s *service) loadRequest(ctx context.Context, requestID uuid.UUID) (*models.PayoutRequest, error) {
	if requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	request, err := s.repo.FindRequestByID(ctx, requestID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout request")
	}
	return request, nil
}

func validatePayoutMove(from, to enums.PayoutStatus) error {
	for _, allowed := range allowedPayoutMoves[from] {
		if allowed == to {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("payout cannot move from %s to %s", from, to))
}

func payoutPayload(request *models.PayoutRequest) payloads.PayoutEvent {
	event := payloads.PayoutEvent{
		PayoutID: request.ID,
		StoreID:  request.StoreID,
		Amount:   request.Amount,
		Status:   request.Status,
	}
	if request.UTR != nil {
		event.UTR = *request.UTR
	}
	return event
}
