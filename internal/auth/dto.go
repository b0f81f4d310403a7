package auth

import (
	"github.com/google/uuid"

	"github.com/dishpatch/merchant-backend/internal/users"
	"github.com/dishpatch/merchant-backend/pkg/enums"
)

// LoginRequest captures the credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// StoreSummary describes store metadata returned after login.
type StoreSummary struct {
	ID     uuid.UUID         `json:"id"`
	Name   string            `json:"name"`
	Status enums.StoreStatus `json:"status"`
}

// LoginResponse carries the token pair, the user, and which stores the
// user can act for.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	Stores       []StoreSummary `json:"stores"`
	User         *users.UserDTO `json:"user"`
}
