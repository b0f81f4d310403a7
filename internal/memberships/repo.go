package memberships

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dishpatch/merchant-backend/pkg/db/models"
	"github.com/dishpatch/merchant-backend/pkg/enums"
)

// Repository handles store membership persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to membership operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// CreateMembership links a user to a store with the given role.
func (r *Repository) CreateMembership(ctx context.Context, storeID, userID uuid.UUID, role enums.MemberRole, invitedBy *uuid.UUID, status enums.MembershipStatus) (*models.StoreMembership, error) {
	membership := &models.StoreMembership{
		StoreID:         storeID,
		UserID:          userID,
		Role:            role,
		Status:          status,
		InvitedByUserID: invitedBy,
	}
	if err := r.db.WithContext(ctx).Create(membership).Error; err != nil {
		return nil, err
	}
	return membership, nil
}

// GetMembership loads one user's membership for a store.
func (r *Repository) GetMembership(ctx context.Context, userID, storeID uuid.UUID) (*models.StoreMembership, error) {
	var membership models.StoreMembership
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND store_id = ?", userID, storeID).
		First(&membership).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

// UserHasRole reports whether the user holds any of the given roles with an active membership.
func (r *Repository) UserHasRole(ctx context.Context, userID, storeID uuid.UUID, roles ...enums.MemberRole) (bool, error) {
	if len(roles) == 0 {
		return false, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.StoreMembership{}).
		Where("user_id = ? AND store_id = ? AND status = ? AND role IN ?", userID, storeID, enums.MembershipStatusActive, roles).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListForUser returns all active memberships for a user.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.StoreMembership, error) {
	var memberships []models.StoreMembership
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, enums.MembershipStatusActive).
		Order("created_at ASC").
		Find(&memberships).Error
	if err != nil {
		return nil, err
	}
	return memberships, nil
}

// ListUserStores returns the user's active memberships joined with store
// name and status, ordered by membership age.
func (r *Repository) ListUserStores(ctx context.Context, userID uuid.UUID) ([]MembershipWithStore, error) {
	var out []MembershipWithStore
	err := r.db.WithContext(ctx).
		Table("store_memberships").
		Select("store_memberships.store_id, stores.name AS store_name, stores.status AS store_status, store_memberships.role, store_memberships.status").
		Joins("JOIN stores ON stores.id = store_memberships.store_id").
		Where("store_memberships.user_id = ? AND store_memberships.status = ?", userID, enums.MembershipStatusActive).
		Order("store_memberships.created_at ASC").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetMembershipWithStore loads one membership joined with its store.
func (r *Repository) GetMembershipWithStore(ctx context.Context, userID, storeID uuid.UUID) (*MembershipWithStore, error) {
	var out MembershipWithStore
	err := r.db.WithContext(ctx).
		Table("store_memberships").
		Select("store_memberships.store_id, stores.name AS store_name, stores.status AS store_status, store_memberships.role, store_memberships.status").
		Joins("JOIN stores ON stores.id = store_memberships.store_id").
		Where("store_memberships.user_id = ? AND store_memberships.store_id = ?", userID, storeID).
		Take(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListStoreUsers returns every member of a store joined with user identity fields.
func (r *Repository) ListStoreUsers(ctx context.Context, storeID uuid.UUID) ([]StoreUserDTO, error) {
	var out []StoreUserDTO
	err := r.db.WithContext(ctx).
		Table("store_memberships").
		Select("store_memberships.user_id, users.email, users.first_name, users.last_name, store_memberships.role, store_memberships.status, store_memberships.created_at AS joined_at").
		Joins("JOIN users ON users.id = store_memberships.user_id").
		Where("store_memberships.store_id = ?", storeID).
		Order("store_memberships.created_at ASC").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CountMembersWithRoles counts active members holding any of the given roles.
func (r *Repository) CountMembersWithRoles(ctx context.Context, storeID uuid.UUID, roles ...enums.MemberRole) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.StoreMembership{}).
		Where("store_id = ? AND status = ? AND role IN ?", storeID, enums.MembershipStatusActive, roles).
		Count(&count).Error
	return count, err
}

// DeleteMembership removes a user from a store.
func (r *Repository) DeleteMembership(ctx context.Context, storeID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("store_id = ? AND user_id = ?", storeID, userID).
		Delete(&models.StoreMembership{}).Error
}
