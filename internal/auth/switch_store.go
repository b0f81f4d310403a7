package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dishpatch/merchant-backend/internal/memberships"
	pkgAuth "github.com/dishpatch/merchant-backend/pkg/auth"
	"github.com/dishpatch/merchant-backend/pkg/auth/session"
	"github.com/dishpatch/merchant-backend/pkg/config"
	"github.com/dishpatch/merchant-backend/pkg/enums"
	pkgerrors "github.com/dishpatch/merchant-backend/pkg/errors"
)

// SwitchStoreInput captures the data required to switch stores.
type SwitchStoreInput struct {
	UserID        uuid.UUID
	StoreID       uuid.UUID
	AccessTokenID string
	RefreshToken  string
}

// SwitchStoreResult returns the tokens issued after switching stores.
type SwitchStoreResult struct {
	AccessToken  string
	RefreshToken string
	Store        StoreSummary
}

// SwitchStoreService re-mints the token pair for another membership.
type SwitchStoreService interface {
	Switch(ctx context.Context, input SwitchStoreInput) (*SwitchStoreResult, error)
}

type switchMembershipsRepository interface {
	GetMembershipWithStore(ctx context.Context, userID, storeID uuid.UUID) (*memberships.MembershipWithStore, error)
}

type sessionRotator interface {
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
}

type switchStoreService struct {
	memberships switchMembershipsRepository
	session     sessionRotator
	jwtCfg      config.JWTConfig
}

// SwitchStoreServiceParams bundles dependencies for the switch flow.
type SwitchStoreServiceParams struct {
	MembershipsRepo switchMembershipsRepository
	SessionManager  sessionRotator
	JWTConfig       config.JWTConfig
}

// NewSwitchStoreService constructs the service.
func NewSwitchStoreService(params SwitchStoreServiceParams) (SwitchStoreService, error) {
	if params.MembershipsRepo == nil {
		return nil, errors.New("memberships repository required")
	}
	if params.SessionManager == nil {
		return nil, errors.New("session manager required")
	}
	return &switchStoreService{
		memberships: params.MembershipsRepo,
		session:     params.SessionManager,
		jwtCfg:      params.JWTConfig,
	}, nil
}

func (s *switchStoreService) Switch(ctx context.Context, input SwitchStoreInput) (*SwitchStoreResult, error) {
	membership, err := s.memberships.GetMembershipWithStore(ctx, input.UserID, input.StoreID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "store membership required")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup membership")
	}
	if membership.Status != enums.MembershipStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "store membership inactive")
	}

	newAccessID, newRefreshToken, err := s.session.Rotate(ctx, input.AccessTokenID, input.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rotate session")
	}

	storeStatus := membership.StoreStatus
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, time.Now().UTC(), pkgAuth.AccessTokenPayload{
		UserID:        input.UserID,
		ActiveStoreID: &input.StoreID,
		Role:          membership.Role,
		StoreStatus:   &storeStatus,
		JTI:           newAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	return &SwitchStoreResult{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		Store: StoreSummary{
			ID:     membership.StoreID,
			Name:   membership.StoreName,
			Status: membership.StoreStatus,
		},
	}, nil
}
