package payouts

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dishpatch/merchant-backend/internal/wallet"
	"github.com/dishpatch/merchant-backend/pkg/db/models"
	"github.com/dishpatch/merchant-backend/pkg/enums"
	pkgerrors "github.com/dishpatch/merchant-backend/pkg/errors"
	"github.com/dishpatch/merchant-backend/pkg/outbox"
)

type stubPayoutRepo struct {
	accounts map[uuid.UUID]*models.PayoutAccount
	requests map[uuid.UUID]*models.PayoutRequest
}

func newStubPayoutRepo() *stubPayoutRepo {
	return &stubPayoutRepo{
		accounts: make(map[uuid.UUID]*models.PayoutAccount),
		requests: make(map[uuid.UUID]*models.PayoutRequest),
	}
}

func (s *stubPayoutRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubPayoutRepo) CreateAccount(ctx context.Context, account *models.PayoutAccount) error {
	account.ID = uuid.New()
	copied := *account
	s.accounts[account.ID] = &copied
	return nil
}

func (s *stubPayoutRepo) FindAccountByID(ctx context.Context, id uuid.UUID) (*models.PayoutAccount, error) {
	account, ok := s.accounts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *account
	return &copied, nil
}

func (s *stubPayoutRepo) ListAccountsByStore(ctx context.Context, storeID uuid.UUID) ([]models.PayoutAccount, error) {
	var out []models.PayoutAccount
	for _, account := range s.accounts {
		if account.StoreID == storeID {
			out = append(out, *account)
		}
	}
	return out, nil
}

func (s *stubPayoutRepo) UpdateAccount(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	account, ok := s.accounts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if verified, found := updates["is_verified"]; found {
		account.IsVerified = verified.(bool)
	}
	return nil
}

func (s *stubPayoutRepo) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	delete(s.accounts, id)
	return nil
}

func (s *stubPayoutRepo) CreateRequest(ctx context.Context, request *models.PayoutRequest) error {
	copied := *request
	s.requests[request.ID] = &copied
	return nil
}

func (s *stubPayoutRepo) FindRequestByID(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error) {
	request, ok := s.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *request
	return &copied, nil
}

func (s *stubPayoutRepo) ListRequestsByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]models.PayoutRequest, error) {
	var out []models.PayoutRequest
	for _, request := range s.requests {
		if request.StoreID == storeID {
			out = append(out, *request)
		}
	}
	return out, nil
}

func (s *stubPayoutRepo) CountOpenRequests(ctx context.Context, storeID uuid.UUID) (int64, error) {
	var count int64
	for _, request := range s.requests {
		if request.StoreID == storeID && !request.Status.IsTerminal() {
			count++
		}
	}
	return count, nil
}

func (s *stubPayoutRepo) UpdateRequest(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	request, ok := s.requests[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if status, found := updates["status"]; found {
		request.Status = status.(enums.PayoutStatus)
	}
	if utr, found := updates["utr"]; found {
		v := utr.(string)
		request.UTR = &v
	}
	return nil
}

type walletCall struct {
	kind  string
	key   string
	input wallet.MovementInput
}

type stubWallet struct {
	calls    []walletCall
	debitErr error
}

func (s *stubWallet) Credit(ctx context.Context, input wallet.MovementInput) (*models.WalletEntry, error) {
	s.calls = append(s.calls, walletCall{kind: "credit", key: input.IdempotencyKey, input: input})
	return &models.WalletEntry{}, nil
}

func (s *stubWallet) Debit(ctx context.Context, input wallet.MovementInput) (*models.WalletEntry, error) {
	if s.debitErr != nil {
		return nil, s.debitErr
	}
	s.calls = append(s.calls, walletCall{kind: "debit", key: input.IdempotencyKey, input: input})
	return &models.WalletEntry{}, nil
}

type stubPayoutTxRunner struct{}

func (stubPayoutTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubPayoutOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubPayoutOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func newPayoutService(t *testing.T, repo *stubPayoutRepo, walletSvc *stubWallet, events *stubPayoutOutbox) Service {
	t.Helper()
	svc, err := NewService(repo, walletSvc, stubPayoutTxRunner{}, events, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func strPtr(v string) *string { return &v }

func seedVerifiedAccount(repo *stubPayoutRepo, storeID uuid.UUID) uuid.UUID {
	account := &models.PayoutAccount{
		ID:              uuid.New(),
		StoreID:         storeID,
		Method:          enums.VerificationMethodBankAccount,
		BeneficiaryName: "Spice Villa Foods",
		AccountNumber:   strPtr("123456789012"),
		IFSC:            strPtr("HDFC0000123"),
		IsVerified:      true,
	}
	repo.accounts[account.ID] = account
	return account.ID
}

func TestCreateAccountValidatesMethodFields(t *testing.T) {
	repo := newStubPayoutRepo()
	svc := newPayoutService(t, repo, &stubWallet{}, &stubPayoutOutbox{})
	storeID := uuid.New()

	_, err := svc.CreateAccount(context.Background(), storeID, AccountInput{
		Method:          enums.VerificationMethodBankAccount,
		BeneficiaryName: "Spice Villa Foods",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	account, err := svc.CreateAccount(context.Background(), storeID, AccountInput{
		Method:          enums.VerificationMethodUPI,
		BeneficiaryName: "Spice Villa Foods",
		UPIVPA:          strPtr("spicevilla@okhdfc"),
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if account.IsVerified {
		t.Fatal("expected new account to start unverified")
	}
}

func TestRequestDebitsWalletWithPayoutKey(t *testing.T) {
	repo := newStubPayoutRepo()
	walletSvc := &stubWallet{}
	events := &stubPayoutOutbox{}
	svc := newPayoutService(t, repo, walletSvc, events)
	storeID := uuid.New()
	accountID := seedVerifiedAccount(repo, storeID)

	request, err := svc.Request(context.Background(), storeID, RequestInput{
		AccountID:   accountID,
		Amount:      decimal.NewFromInt(2500),
		RequestedBy: uuid.New(),
	})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if len(walletSvc.calls) != 1 || walletSvc.calls[0].kind != "debit" {
		t.Fatalf("expected one debit, got %+v", walletSvc.calls)
	}
	wantKey := wallet.PayoutKey(request.ID)
	if walletSvc.calls[0].key != wantKey {
		t.Fatalf("expected key %q, got %q", wantKey, walletSvc.calls[0].key)
	}
	if walletSvc.calls[0].input.Category != enums.WalletEntryCategoryPayout {
		t.Fatalf("expected payout category, got %s", walletSvc.calls[0].input.Category)
	}
	if len(events.events) != 1 || events.events[0].EventType != enums.EventPayoutRequested {
		t.Fatalf("expected payout requested event, got %+v", events.events)
	}
}

func TestRequestInsufficientBalancePropagates(t *testing.T) {
	repo := newStubPayoutRepo()
	walletSvc := &stubWallet{debitErr: pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient wallet balance")}
	svc := newPayoutService(t, repo, walletSvc, &stubPayoutOutbox{})
	storeID := uuid.New()
	accountID := seedVerifiedAccount(repo, storeID)

	_, err := svc.Request(context.Background(), storeID, RequestInput{
		AccountID:   accountID,
		Amount:      decimal.NewFromInt(100_000),
		RequestedBy: uuid.New(),
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if len(repo.requests) != 0 {
		t.Fatalf("expected no request rows, got %d", len(repo.requests))
	}
}

func TestRequestRejectsUnverifiedAccount(t *testing.T) {
	repo := newStubPayoutRepo()
	walletSvc := &stubWallet{}
	svc := newPayoutService(t, repo, walletSvc, &stubPayoutOutbox{})
	storeID := uuid.New()
	accountID := seedVerifiedAccount(repo, storeID)
	repo.accounts[accountID].IsVerified = false

	_, err := svc.Request(context.Background(), storeID, RequestInput{
		AccountID:   accountID,
		Amount:      decimal.NewFromInt(500),
		RequestedBy: uuid.New(),
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if len(walletSvc.calls) != 0 {
		t.Fatalf("expected no wallet movement, got %+v", walletSvc.calls)
	}
}

func TestRequestRejectsSecondOpenRequest(t *testing.T) {
	repo := newStubPayoutRepo()
	walletSvc := &stubWallet{}
	svc := newPayoutService(t, repo, walletSvc, &stubPayoutOutbox{})
	storeID := uuid.New()
	accountID := seedVerifiedAccount(repo, storeID)

	if _, err := svc.Request(context.Background(), storeID, RequestInput{
		AccountID:   accountID,
		Amount:      decimal.NewFromInt(500),
		RequestedBy: uuid.New(),
	}); err != nil {
		t.Fatalf("first Request: %v", err)
	}

	_, err := svc.Request(context.Background(), storeID, RequestInput{
		AccountID:   accountID,
		Amount:      decimal.NewFromInt(500),
		RequestedBy: uuid.New(),
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRequestBelowMinimum(t *testing.T) {
	repo := newStubPayoutRepo()
	svc := newPayoutService(t, repo, &stubWallet{}, &stubPayoutOutbox{})
	storeID := uuid.New()
	accountID := seedVerifiedAccount(repo, storeID)

	_, err := svc.Request(context.Background(), storeID, RequestInput{
		AccountID:   accountID,
		Amount:      decimal.NewFromInt(50),
		RequestedBy: uuid.New(),
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSettleRecordsUTR(t *testing.T) {
	repo := newStubPayoutRepo()
	walletSvc := &stubWallet{}
	events := &stubPayoutOutbox{}
	svc := newPayoutService(t, repo, walletSvc, events)
	storeID := uuid.New()
	accountID := seedVerifiedAccount(repo, storeID)

	request, err := svc.Request(context.Background(), storeID, RequestInput{
		AccountID:   accountID,
		Amount:      decimal.NewFromInt(2500),
		RequestedBy: uuid.New(),
	})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	events.events = nil

	if _, err := svc.Approve(context.Background(), request.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	settled, err := svc.Settle(context.Background(), request.ID, "UTR123456")
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if settled.Status != enums.PayoutStatusPaid {
		t.Fatalf("expected paid, got %s", settled.Status)
	}
	if settled.UTR == nil || *settled.UTR != "UTR123456" {
		t.Fatalf("expected UTR recorded, got %v", settled.UTR)
	}
	if len(events.events) != 1 || events.events[0].EventType != enums.EventPayoutSettled {
		t.Fatalf("expected payout settled event, got %+v", events.events)
	}
	// settlement must not touch the wallet again
	if len(walletSvc.calls) != 1 {
		t.Fatalf("expected only the original debit, got %+v", walletSvc.calls)
	}
}

func TestRejectRefundsWallet(t *testing.T) {
	repo := newStubPayoutRepo()
	walletSvc := &stubWallet{}
	events := &stubPayoutOutbox{}
	svc := newPayoutService(t, repo, walletSvc, events)
	storeID := uuid.New()
	accountID := seedVerifiedAccount(repo, storeID)

	request, err := svc.Request(context.Background(), storeID, RequestInput{
		AccountID:   accountID,
		Amount:      decimal.NewFromInt(2500),
		RequestedBy: uuid.New(),
	})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	events.events = nil

	rejected, err := svc.Reject(context.Background(), request.ID, "account name mismatch")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rejected.Status != enums.PayoutStatusRejected {
		t.Fatalf("expected rejected, got %s", rejected.Status)
	}
	if len(walletSvc.calls) != 2 || walletSvc.calls[1].kind != "credit" {
		t.Fatalf("expected refund credit, got %+v", walletSvc.calls)
	}
	wantKey := fmt.Sprintf("payout_reversal_%s", request.ID)
	if walletSvc.calls[1].key != wantKey {
		t.Fatalf("expected refund key %q, got %q", wantKey, walletSvc.calls[1].key)
	}
	if len(events.events) != 1 || events.events[0].EventType != enums.EventPayoutRejected {
		t.Fatalf("expected payout rejected event, got %+v", events.events)
	}
}

func TestSettleRejectsTerminalRequest(t *testing.T) {
	repo := newStubPayoutRepo()
	svc := newPayoutService(t, repo, &stubWallet{}, &stubPayoutOutbox{})

	request := &models.PayoutRequest{
		ID:      uuid.New(),
		StoreID: uuid.New(),
		Amount:  decimal.NewFromInt(500),
		Status:  enums.PayoutStatusRejected,
	}
	repo.requests[request.ID] = request

	_, err := svc.Settle(context.Background(), request.ID, "UTR1")
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}
