package stores

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dishpatch/merchant-backend/internal/memberships"
	"github.com/dishpatch/merchant-backend/internal/users"
	"github.com/dishpatch/merchant-backend/pkg/config"
	"github.com/dishpatch/merchant-backend/pkg/db/models"
	"github.com/dishpatch/merchant-backend/pkg/enums"
	pkgerrors "github.com/dishpatch/merchant-backend/pkg/errors"
	"github.com/dishpatch/merchant-backend/pkg/outbox"
)

type stubStoreRepo struct {
	stores  map[uuid.UUID]*models.Store
	updates []map[string]any
	created []CreateStoreDTO
}

func newStubStoreRepo() *stubStoreRepo {
	return &stubStoreRepo{stores: make(map[uuid.UUID]*models.Store)}
}

func (s *stubStoreRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubStoreRepo) Create(ctx context.Context, dto CreateStoreDTO) (*models.Store, error) {
	s.created = append(s.created, dto)
	store := dto.ToModel()
	store.ID = uuid.New()
	s.stores[store.ID] = store
	return store, nil
}

func (s *stubStoreRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	store, ok := s.stores[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *store
	return &copied, nil
}

func (s *stubStoreRepo) FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Store, error) {
	var out []models.Store
	for _, store := range s.stores {
		if store.OwnerID == ownerID {
			out = append(out, *store)
		}
	}
	return out, nil
}

func (s *stubStoreRepo) Update(ctx context.Context, store *models.Store) error {
	copied := *store
	s.stores[store.ID] = &copied
	return nil
}

func (s *stubStoreRepo) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	s.updates = append(s.updates, updates)
	if store, ok := s.stores[id]; ok {
		if status, found := updates["status"]; found {
			store.Status = status.(enums.StoreStatus)
		}
	}
	return nil
}

type stubMembershipsRepo struct {
	rows       map[string]*models.StoreMembership
	storeUsers []memberships.StoreUserDTO
	ownerCount int64
	deleted    []uuid.UUID
}

func newStubMembershipsRepo() *stubMembershipsRepo {
	return &stubMembershipsRepo{rows: make(map[string]*models.StoreMembership), ownerCount: 1}
}

func membershipKey(userID, storeID uuid.UUID) string {
	return userID.String() + "|" + storeID.String()
}

func (s *stubMembershipsRepo) UserHasRole(ctx context.Context, userID, storeID uuid.UUID, roles ...enums.MemberRole) (bool, error) {
	row, ok := s.rows[membershipKey(userID, storeID)]
	if !ok {
		return false, nil
	}
	for _, role := range roles {
		if row.Role == role {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubMembershipsRepo) ListStoreUsers(ctx context.Context, storeID uuid.UUID) ([]memberships.StoreUserDTO, error) {
	return s.storeUsers, nil
}

func (s *stubMembershipsRepo) GetMembership(ctx context.Context, userID, storeID uuid.UUID) (*models.StoreMembership, error) {
	row, ok := s.rows[membershipKey(userID, storeID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *row
	return &copied, nil
}

func (s *stubMembershipsRepo) CreateMembership(ctx context.Context, storeID, userID uuid.UUID, role enums.MemberRole, invitedBy *uuid.UUID, status enums.MembershipStatus) (*models.StoreMembership, error) {
	row := &models.StoreMembership{
		ID:              uuid.New(),
		StoreID:         storeID,
		UserID:          userID,
		Role:            role,
		Status:          status,
		InvitedByUserID: invitedBy,
	}
	s.rows[membershipKey(userID, storeID)] = row
	return row, nil
}

func (s *stubMembershipsRepo) DeleteMembership(ctx context.Context, storeID, userID uuid.UUID) error {
	s.deleted = append(s.deleted, userID)
	delete(s.rows, membershipKey(userID, storeID))
	return nil
}

func (s *stubMembershipsRepo) CountMembersWithRoles(ctx context.Context, storeID uuid.UUID, roles ...enums.MemberRole) (int64, error) {
	return s.ownerCount, nil
}

type stubUsersRepo struct {
	byEmail map[string]*models.User
	created []users.CreateUserDTO
}

func newStubUsersRepo() *stubUsersRepo {
	return &stubUsersRepo{byEmail: make(map[string]*models.User)}
}

func (s *stubUsersRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := s.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *stubUsersRepo) Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error) {
	s.created = append(s.created, dto)
	user := &models.User{
		ID:        uuid.New(),
		Email:     dto.Email,
		FirstName: dto.FirstName,
		LastName:  dto.LastName,
	}
	s.byEmail[dto.Email] = user
	return user, nil
}

type stubStoreTxRunner struct{}

func (stubStoreTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubStoreOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubStoreOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func strPtr(v string) *string { return &v }

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    16 * 1024,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func newTestService(t *testing.T, repo *stubStoreRepo, members *stubMembershipsRepo, usersRepo *stubUsersRepo, events *stubStoreOutbox) Service {
	t.Helper()
	svc, err := NewService(repo, members, usersRepo, stubStoreTxRunner{}, events, testPasswordConfig())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func seedStore(repo *stubStoreRepo, members *stubMembershipsRepo, status enums.StoreStatus) (uuid.UUID, uuid.UUID) {
	ownerID := uuid.New()
	store := &models.Store{
		ID:           uuid.New(),
		Name:         "Spice Villa",
		Phone:        "+919876543210",
		Status:       status,
		FSSAINumber:  strPtr("10012031000123"),
		AddressLine1: "12 MG Road",
		City:         "Bengaluru",
		State:        "KA",
		Pincode:      "560001",
		OwnerID:      ownerID,
	}
	repo.stores[store.ID] = store
	members.rows[membershipKey(ownerID, store.ID)] = &models.StoreMembership{
		StoreID: store.ID,
		UserID:  ownerID,
		Role:    enums.MemberRoleOwner,
		Status:  enums.MembershipStatusActive,
	}
	return ownerID, store.ID
}

func TestCreateStoreAddsOwnerMembership(t *testing.T) {
	repo := newStubStoreRepo()
	members := newStubMembershipsRepo()
	events := &stubStoreOutbox{}
	svc := newTestService(t, repo, members, newStubUsersRepo(), events)

	ownerID := uuid.New()
	dto, err := svc.Create(context.Background(), ownerID, CreateStoreDTO{
		Name:         "Spice Villa",
		Phone:        "+919876543210",
		AddressLine1: "12 MG Road",
		City:         "Bengaluru",
		State:        "KA",
		Pincode:      "560001",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if dto.Status != enums.StoreStatusDraft {
		t.Fatalf("expected draft status, got %s", dto.Status)
	}
	if dto.OwnerID != ownerID {
		t.Fatalf("expected owner %s, got %s", ownerID, dto.OwnerID)
	}
	row, ok := members.rows[membershipKey(ownerID, dto.ID)]
	if !ok {
		t.Fatal("expected owner membership to be created")
	}
	if row.Role != enums.MemberRoleOwner {
		t.Fatalf("expected owner role, got %s", row.Role)
	}
}

func TestCreateStoreRequiresName(t *testing.T) {
	repo := newStubStoreRepo()
	svc := newTestService(t, repo, newStubMembershipsRepo(), newStubUsersRepo(), &stubStoreOutbox{})

	_, err := svc.Create(context.Background(), uuid.New(), CreateStoreDTO{Phone: "+91"})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(repo.created) != 0 {
		t.Fatalf("expected no store created, got %d", len(repo.created))
	}
}

func TestSubmitMovesDraftToReview(t *testing.T) {
	repo := newStubStoreRepo()
	members := newStubMembershipsRepo()
	events := &stubStoreOutbox{}
	svc := newTestService(t, repo, members, newStubUsersRepo(), events)
	ownerID, storeID := seedStore(repo, members, enums.StoreStatusDraft)

	dto, err := svc.Submit(context.Background(), ownerID, storeID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if dto.Status != enums.StoreStatusUnderReview {
		t.Fatalf("expected under_review, got %s", dto.Status)
	}
	if dto.SubmittedAt == nil {
		t.Fatal("expected submitted_at to be set")
	}
	if len(events.events) != 1 || events.events[0].EventType != enums.EventStoreSubmitted {
		t.Fatalf("expected store submitted event, got %+v", events.events)
	}
}

func TestSubmitRejectsMissingFSSAI(t *testing.T) {
	repo := newStubStoreRepo()
	members := newStubMembershipsRepo()
	svc := newTestService(t, repo, members, newStubUsersRepo(), &stubStoreOutbox{})
	ownerID, storeID := seedStore(repo, members, enums.StoreStatusDraft)
	repo.stores[storeID].FSSAINumber = nil

	_, err := svc.Submit(context.Background(), ownerID, storeID)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(appErr.Message(), "fssai") {
		t.Fatalf("unexpected message %q", appErr.Message())
	}
}

func TestSubmitRejectsNonDraft(t *testing.T) {
	repo := newStubStoreRepo()
	members := newStubMembershipsRepo()
	events := &stubStoreOutbox{}
	svc := newTestService(t, repo, members, newStubUsersRepo(), events)
	ownerID, storeID := seedStore(repo, members, enums.StoreStatusActive)

	_, err := svc.Submit(context.Background(), ownerID, storeID)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if len(events.events) != 0 {
		t.Fatalf("expected no events, got %d", len(events.events))
	}
}

func TestActivateFromReview(t *testing.T) {
	repo := newStubStoreRepo()
	members := newStubMembershipsRepo()
	events := &stubStoreOutbox{}
	svc := newTestService(t, repo, members, newStubUsersRepo(), events)
	_, storeID := seedStore(repo, members, enums.StoreStatusUnderReview)

	dto, err := svc.Activate(context.Background(), storeID)
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if dto.Status != enums.StoreStatusActive {
		t.Fatalf("expected active, got %s", dto.Status)
	}
	if len(events.events) != 1 || events.events[0].EventType != enums.EventStoreActivated {
		t.Fatalf("expected store activated event, got %+v", events.events)
	}
}

func TestSuspendActiveStore(t *testing.T) {
	repo := newStubStoreRepo()
	members := newStubMembershipsRepo()
	events := &stubStoreOutbox{}
	svc := newTestService(t, repo, members, newStubUsersRepo(), events)
	_, storeID := seedStore(repo, members, enums.StoreStatusActive)

	dto, err := svc.Suspend(context.Background(), storeID)
	if err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	if dto.Status != enums.StoreStatusSuspended {
		t.Fatalf("expected suspended, got %s", dto.Status)
	}

	if _, err := svc.Suspend(context.Background(), storeID); pkgerrors.As(err) == nil {
		t.Fatalf("expected error suspending twice, got %v", err)
	}
}

func TestUpdateRequiresManagementRole(t *testing.T) {
	repo := newStubStoreRepo()
	members := newStubMembershipsRepo()
	svc := newTestService(t, repo, members, newStubUsersRepo(), &stubStoreOutbox{})
	_, storeID := seedStore(repo, members, enums.StoreStatusActive)

	outsider := uuid.New()
	_, err := svc.Update(context.Background(), outsider, storeID, UpdateStoreInput{Name: strPtr("New Name")})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestUpdateAppliesPartialFields(t *testing.T) {
	repo := newStubStoreRepo()
	members := newStubMembershipsRepo()
	svc := newTestService(t, repo, members, newStubUsersRepo(), &stubStoreOutbox{})
	ownerID, storeID := seedStore(repo, members, enums.StoreStatusActive)

	dto, err := svc.Update(context.Background(), ownerID, storeID, UpdateStoreInput{
		Name:        strPtr("Spice Villa Deluxe"),
		Description: strPtr("North Indian thalis"),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if dto.Name != "Spice Villa Deluxe" {
		t.Fatalf("expected updated name, got %q", dto.Name)
	}
	if dto.Description == nil || *dto.Description != "North Indian thalis" {
		t.Fatalf("expected description set, got %v", dto.Description)
	}
	if dto.Phone != "+919876543210" {
		t.Fatalf("expected phone untouched, got %q", dto.Phone)
	}
}

func TestInviteUserCreatesAccountWithTempPassword(t *testing.T) {
	repo := newStubStoreRepo()
	members := newStubMembershipsRepo()
	usersRepo := newStubUsersRepo()
	svc := newTestService(t, repo, members, usersRepo, &stubStoreOutbox{})
	ownerID, storeID := seedStore(repo, members, enums.StoreStatusActive)

	dto, tempPassword, err := svc.InviteUser(context.Background(), ownerID, storeID, InviteUserInput{
		Email:     "Chef@Example.com",
		FirstName: "Asha",
		LastName:  "Rao",
		Role:      enums.MemberRoleStaff,
	})
	if err != nil {
		t.Fatalf("InviteUser: %v", err)
	}
	if tempPassword == "" {
		t.Fatal("expected a temp password for a new user")
	}
	if dto.Email != "chef@example.com" {
		t.Fatalf("expected normalized email, got %q", dto.Email)
	}
	if dto.Role != enums.MemberRoleStaff {
		t.Fatalf("expected staff role, got %s", dto.Role)
	}
	if len(usersRepo.created) != 1 {
		t.Fatalf("expected one user created, got %d", len(usersRepo.created))
	}
	if usersRepo.created[0].PasswordHash == "" {
		t.Fatal("expected password hash on created user")
	}
}

func TestInviteExistingUserSkipsPassword(t *testing.T) {
	repo := newStubStoreRepo()
	members := newStubMembershipsRepo()
	usersRepo := newStubUsersRepo()
	svc := newTestService(t, repo, members, usersRepo, &stubStoreOutbox{})
	ownerID, storeID := seedStore(repo, members, enums.StoreStatusActive)

	usersRepo.byEmail["chef@example.com"] = &models.User{ID: uuid.New(), Email: "chef@example.com"}

	dto, tempPassword, err := svc.InviteUser(context.Background(), ownerID, storeID, InviteUserInput{
		Email: "chef@example.com",
		Role:  enums.MemberRoleManager,
	})
	if err != nil {
		t.Fatalf("InviteUser: %v", err)
	}
	if tempPassword != "" {
		t.Fatal("expected no temp password for an existing account")
	}
	if len(usersRepo.created) != 0 {
		t.Fatalf("expected no user created, got %d", len(usersRepo.created))
	}
	if dto.Role != enums.MemberRoleManager {
		t.Fatalf("expected manager role, got %s", dto.Role)
	}
}

func TestInviteRejectsOwnerRole(t *testing.T) {
	repo := newStubStoreRepo()
	members := newStubMembershipsRepo()
	svc := newTestService(t, repo, members, newStubUsersRepo(), &stubStoreOutbox{})
	ownerID, storeID := seedStore(repo, members, enums.StoreStatusActive)

	_, _, err := svc.InviteUser(context.Background(), ownerID, storeID, InviteUserInput{
		Email: "chef@example.com",
		Role:  enums.MemberRoleOwner,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestInviteRejectsDuplicateMembership(t *testing.T) {
	repo := newStubStoreRepo()
	members := newStubMembershipsRepo()
	usersRepo := newStubUsersRepo()
	svc := newTestService(t, repo, members, usersRepo, &stubStoreOutbox{})
	ownerID, storeID := seedStore(repo, members, enums.StoreStatusActive)

	existing := &models.User{ID: uuid.New(), Email: "chef@example.com"}
	usersRepo.byEmail[existing.Email] = existing
	members.rows[membershipKey(existing.ID, storeID)] = &models.StoreMembership{
		StoreID: storeID,
		UserID:  existing.ID,
		Role:    enums.MemberRoleStaff,
		Status:  enums.MembershipStatusActive,
	}

	_, _, err := svc.InviteUser(context.Background(), ownerID, storeID, InviteUserInput{
		Email: "chef@example.com",
		Role:  enums.MemberRoleStaff,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRemoveUserProtectsLastOwner(t *testing.T) {
	repo := newStubStoreRepo()
	members := newStubMembershipsRepo()
	svc := newTestService(t, repo, members, newStubUsersRepo(), &stubStoreOutbox{})
	ownerID, storeID := seedStore(repo, members, enums.StoreStatusActive)

	secondOwner := uuid.New()
	members.rows[membershipKey(secondOwner, storeID)] = &models.StoreMembership{
		StoreID: storeID,
		UserID:  secondOwner,
		Role:    enums.MemberRoleOwner,
		Status:  enums.MembershipStatusActive,
	}
	members.ownerCount = 1

	err := svc.RemoveUser(context.Background(), ownerID, storeID, secondOwner)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	members.ownerCount = 2
	if err := svc.RemoveUser(context.Background(), ownerID, storeID, secondOwner); err != nil {
		t.Fatalf("RemoveUser: %v", err)
	}
	if len(members.deleted) != 1 || members.deleted[0] != secondOwner {
		t.Fatalf("expected second owner removed, got %v", members.deleted)
	}
}

func TestRemoveUserCannotRemoveSelf(t *testing.T) {
	repo := newStubStoreRepo()
	members := newStubMembershipsRepo()
	svc := newTestService(t, repo, members, newStubUsersRepo(), &stubStoreOutbox{})
	ownerID, storeID := seedStore(repo, members, enums.StoreStatusActive)

	err := svc.RemoveUser(context.Background(), ownerID, storeID, ownerID)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
