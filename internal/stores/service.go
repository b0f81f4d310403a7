package stores

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dishpatch/merchant-backend/internal/memberships"
	"github.com/dishpatch/merchant-backend/internal/users"
	"github.com/dishpatch/merchant-backend/pkg/config"
	"github.com/dishpatch/merchant-backend/pkg/db/models"
	"github.com/dishpatch/merchant-backend/pkg/enums"
	pkgerrors "github.com/dishpatch/merchant-backend/pkg/errors"
	"github.com/dishpatch/merchant-backend/pkg/outbox"
	"github.com/dishpatch/merchant-backend/pkg/outbox/payloads"
	"github.com/dishpatch/merchant-backend/pkg/security"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type membershipsRepository interface {
	UserHasRole(ctx context.Context, userID, storeID uuid.UUID, roles ...enums.MemberRole) (bool, error)
	ListStoreUsers(ctx context.Context, storeID uuid.UUID) ([]memberships.StoreUserDTO, error)
	GetMembership(ctx context.Context, userID, storeID uuid.UUID) (*models.StoreMembership, error)
	CreateMembership(ctx context.Context, storeID, userID uuid.UUID, role enums.MemberRole, invitedBy *uuid.UUID, status enums.MembershipStatus) (*models.StoreMembership, error)
	DeleteMembership(ctx context.Context, storeID, userID uuid.UUID) error
	CountMembersWithRoles(ctx context.Context, storeID uuid.UUID, roles ...enums.MemberRole) (int64, error)
}

type usersRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
}

// Service exposes store operations.
type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, input CreateStoreDTO) (*StoreDTO, error)
	GetByID(ctx context.Context, id uuid.UUID) (*StoreDTO, error)
	ListOwned(ctx context.Context, ownerID uuid.UUID) ([]StoreDTO, error)
	Update(ctx context.Context, userID, storeID uuid.UUID, input UpdateStoreInput) (*StoreDTO, error)
	Submit(ctx context.Context, userID, storeID uuid.UUID) (*StoreDTO, error)
	Activate(ctx context.Context, storeID uuid.UUID) (*StoreDTO, error)
	Suspend(ctx context.Context, storeID uuid.UUID) (*StoreDTO, error)
	ListUsers(ctx context.Context, userID, storeID uuid.UUID) ([]memberships.StoreUserDTO, error)
	InviteUser(ctx context.Context, inviterID, storeID uuid.UUID, input InviteUserInput) (*memberships.StoreUserDTO, string, error)
	RemoveUser(ctx context.Context, actorID, storeID, targetUserID uuid.UUID) error
}

type service struct {
	repo        Repository
	memberships membershipsRepository
	users       usersRepository
	tx          txRunner
	outbox      outboxPublisher
	passwordCfg config.PasswordConfig
}

// NewService builds a store service with the provided repositories.
func NewService(repo Repository, membershipsRepo membershipsRepository, usersRepo usersRepository, tx txRunner, outboxSvc outboxPublisher, passwordCfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("store repository required")
	}
	if membershipsRepo == nil {
		return nil, fmt.Errorf("memberships repository required")
	}
	if usersRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:        repo,
		memberships: membershipsRepo,
		users:       usersRepo,
		tx:          tx,
		outbox:      outboxSvc,
		passwordCfg: passwordCfg,
	}, nil
}

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, input CreateStoreDTO) (*StoreDTO, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store name required")
	}
	if strings.TrimSpace(input.Phone) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store phone required")
	}
	input.OwnerID = ownerID

	var created *models.Store
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		store, err := repo.Create(ctx, input)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create store")
		}
		if _, err := s.memberships.CreateMembership(ctx, store.ID, ownerID, enums.MemberRoleOwner, nil, enums.MembershipStatusActive); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create owner membership")
		}
		created = store
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(created), nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*StoreDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	store, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	return FromModel(store), nil
}

func (s *service) ListOwned(ctx context.Context, ownerID uuid.UUID) ([]StoreDTO, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, err := s.repo.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stores")
	}
	out := make([]StoreDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, userID, storeID uuid.UUID, input UpdateStoreInput) (*StoreDTO, error) {
	store, err := s.requireManagement(ctx, userID, storeID)
	if err != nil {
		return nil, err
	}

	applyString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	applyString(&store.Name, input.Name)
	applyString(&store.Phone, input.Phone)
	applyString(&store.AddressLine1, input.AddressLine1)
	applyString(&store.City, input.City)
	applyString(&store.State, input.State)
	applyString(&store.Pincode, input.Pincode)
	if input.LegalName != nil {
		store.LegalName = input.LegalName
	}
	if input.Description != nil {
		store.Description = input.Description
	}
	if input.Email != nil {
		store.Email = input.Email
	}
	if input.FSSAINumber != nil {
		store.FSSAINumber = input.FSSAINumber
	}
	if input.GSTNumber != nil {
		store.GSTNumber = input.GSTNumber
	}
	if input.AddressLine2 != nil {
		store.AddressLine2 = input.AddressLine2
	}
	if input.Lat != nil {
		store.Lat = input.Lat
	}
	if input.Lng != nil {
		store.Lng = input.Lng
	}
	if input.Cuisines != nil {
		store.Cuisines = *input.Cuisines
	}

	if err := s.repo.Update(ctx, store); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update store")
	}
	return FromModel(store), nil
}

// Submit moves a draft store into review once its KYC fields are present.
func (s *service) Submit(ctx context.Context, userID, storeID uuid.UUID) (*StoreDTO, error) {
	store, err := s.requireManagement(ctx, userID, storeID)
	if err != nil {
		return nil, err
	}
	if store.Status != enums.StoreStatusDraft {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("store cannot be submitted from status %s", store.Status))
	}
	if store.FSSAINumber == nil || strings.TrimSpace(*store.FSSAINumber) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fssai number required before submission")
	}

	return s.changeStatus(ctx, store, enums.StoreStatusUnderReview, enums.EventStoreSubmitted)
}

// Activate marks a reviewed store as live.
func (s *service) Activate(ctx context.Context, storeID uuid.UUID) (*StoreDTO, error) {
	store, err := s.load(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if store.Status != enums.StoreStatusUnderReview && store.Status != enums.StoreStatusSuspended {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("store cannot be activated from status %s", store.Status))
	}
	return s.changeStatus(ctx, store, enums.StoreStatusActive, enums.EventStoreActivated)
}

// Suspend takes a live store offline.
func (s *service) Suspend(ctx context.Context, storeID uuid.UUID) (*StoreDTO, error) {
	store, err := s.load(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if store.Status != enums.StoreStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("store cannot be suspended from status %s", store.Status))
	}
	return s.changeStatus(ctx, store, enums.StoreStatusSuspended, enums.EventStoreSuspended)
}

func (s *service) changeStatus(ctx context.Context, store *models.Store, target enums.StoreStatus, eventType enums.OutboxEventType) (*StoreDTO, error) {
	now := time.Now().UTC()
	updates := map[string]any{"status": target}
	switch target {
	case enums.StoreStatusUnderReview:
		updates["submitted_at"] = now
		store.SubmittedAt = &now
	case enums.StoreStatusActive:
		updates["activated_at"] = now
		store.ActivatedAt = &now
	case enums.StoreStatusSuspended:
		updates["suspended_at"] = now
		store.SuspendedAt = &now
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateFields(ctx, store.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update store status")
		}
		store.Status = target
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateStore,
			AggregateID:   store.ID,
			Version:       1,
			Data: payloads.StoreLifecycleEvent{
				StoreID:   store.ID,
				Status:    target,
				ChangedAt: now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return FromModel(store), nil
}

func (s *service) ListUsers(ctx context.Context, userID, storeID uuid.UUID) ([]memberships.StoreUserDTO, error) {
	if _, err := s.requireManagement(ctx, userID, storeID); err != nil {
		return nil, err
	}
	out, err := s.memberships.ListStoreUsers(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list store users")
	}
	return out, nil
}

func (s *service) InviteUser(ctx context.Context, inviterID, storeID uuid.UUID, input InviteUserInput) (*memberships.StoreUserDTO, string, error) {
	if _, err := s.requireManagement(ctx, inviterID, storeID); err != nil {
		return nil, "", err
	}
	if !input.Role.IsValid() || input.Role == enums.MemberRoleOwner {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "invited role must be manager or staff")
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if !strings.Contains(email, "@") {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid email")
	}

	var (
		member       *models.User
		tempPassword string
	)
	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		member = user
	case err == gorm.ErrRecordNotFound:
		tempPassword, err = security.GenerateTempPassword(16)
		if err != nil {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate temp password")
		}
		hash, hashErr := security.HashPassword(tempPassword, s.passwordCfg)
		if hashErr != nil {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, hashErr, "hash password")
		}
		member, err = s.users.Create(ctx, users.CreateUserDTO{
			Email:        email,
			FirstName:    input.FirstName,
			LastName:     input.LastName,
			PasswordHash: hash,
		})
		if err != nil {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
		}
	default:
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	if existing, err := s.memberships.GetMembership(ctx, member.ID, storeID); err == nil && existing != nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeConflict, "user already belongs to store")
	} else if err != nil && err != gorm.ErrRecordNotFound {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check membership")
	}

	membership, err := s.memberships.CreateMembership(ctx, storeID, member.ID, input.Role, &inviterID, enums.MembershipStatusActive)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create membership")
	}

	return &memberships.StoreUserDTO{
		UserID:    member.ID,
		Email:     member.Email,
		FirstName: member.FirstName,
		LastName:  member.LastName,
		Role:      membership.Role,
		Status:    membership.Status,
		JoinedAt:  membership.CreatedAt,
	}, tempPassword, nil
}

func (s *service) RemoveUser(ctx context.Context, actorID, storeID, targetUserID uuid.UUID) error {
	if _, err := s.requireManagement(ctx, actorID, storeID); err != nil {
		return err
	}
	if actorID == targetUserID {
		return pkgerrors.New(pkgerrors.CodeValidation, "cannot remove yourself")
	}

	membership, err := s.memberships.GetMembership(ctx, targetUserID, storeID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "membership not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load membership")
	}
	if membership.Role == enums.MemberRoleOwner {
		owners, countErr := s.memberships.CountMembersWithRoles(ctx, storeID, enums.MemberRoleOwner)
		if countErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, countErr, "count owners")
		}
		if owners <= 1 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "store must keep at least one owner")
		}
	}

	if err := s.memberships.DeleteMembership(ctx, storeID, targetUserID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete membership")
	}
	return nil
}

func (s *service) load(ctx context.Context, storeID uuid.UUID) (*models.Store, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	store, err := s.repo.FindByID(ctx, storeID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	return store, nil
}

func (s *service) requireManagement(ctx context.Context, userID, storeID uuid.UUID) (*models.Store, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	store, err := s.load(ctx, storeID)
	if err != nil {
		return nil, err
	}
	allowed, err := s.memberships.UserHasRole(ctx, userID, storeID, enums.MemberRoleOwner, enums.MemberRoleManager)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check membership role")
	}
	if !allowed {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "management role required")
	}
	return store, nil
}
