package memberships

import (
	"time"

	"github.com/google/uuid"

	"github.com/dishpatch/merchant-backend/pkg/enums"
)

// MembershipWithStore flattens a membership row with the store it grants.
type MembershipWithStore struct {
	StoreID     uuid.UUID              `json:"store_id"`
	StoreName   string                 `json:"store_name"`
	StoreStatus enums.StoreStatus      `json:"store_status"`
	Role        enums.MemberRole       `json:"role"`
	Status      enums.MembershipStatus `json:"status"`
}

// StoreUserDTO flattens a membership row with the user it belongs to.
type StoreUserDTO struct {
	UserID    uuid.UUID              `json:"user_id"`
	Email     string                 `json:"email"`
	FirstName string                 `json:"first_name"`
	LastName  string                 `json:"last_name"`
	Role      enums.MemberRole       `json:"role"`
	Status    enums.MembershipStatus `json:"status"`
	JoinedAt  time.Time              `json:"joined_at"`
}
