package stores

import (
	"time"

	"github.com/google/uuid"

	"github.com/dishpatch/merchant-backend/pkg/db/models"
	"github.com/dishpatch/merchant-backend/pkg/enums"
)

// StoreDTO exposes safe tenant data in API responses.
type StoreDTO struct {
	ID                 uuid.UUID         `json:"id"`
	Name               string            `json:"name"`
	LegalName          *string           `json:"legal_name,omitempty"`
	Description        *string           `json:"description,omitempty"`
	Phone              string            `json:"phone"`
	Email              *string           `json:"email,omitempty"`
	Status             enums.StoreStatus `json:"status"`
	FSSAINumber        *string           `json:"fssai_number,omitempty"`
	GSTNumber          *string           `json:"gst_number,omitempty"`
	AddressLine1       string            `json:"address_line1"`
	AddressLine2       *string           `json:"address_line2,omitempty"`
	City               string            `json:"city"`
	State              string            `json:"state"`
	Pincode            string            `json:"pincode"`
	Lat                *float64          `json:"lat,omitempty"`
	Lng                *float64          `json:"lng,omitempty"`
	Cuisines           []string          `json:"cuisines"`
	SubscriptionActive bool              `json:"subscription_active"`
	OwnerID            uuid.UUID         `json:"owner"`
	SubmittedAt        *time.Time        `json:"submitted_at,omitempty"`
	ActivatedAt        *time.Time        `json:"activated_at,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// CreateStoreDTO holds creation-time data for a new store.
type CreateStoreDTO struct {
	Name         string
	LegalName    *string
	Description  *string
	Phone        string
	Email        *string
	FSSAINumber  *string
	GSTNumber    *string
	PANNumber    *string
	AddressLine1 string
	AddressLine2 *string
	City         string
	State        string
	Pincode      string
	Lat          *float64
	Lng          *float64
	Cuisines     []string
	OwnerID      uuid.UUID
}

// ToModel maps creation input to the persisted store shape.
func (dto CreateStoreDTO) ToModel() *models.Store {
	return &models.Store{
		Name:         dto.Name,
		LegalName:    dto.LegalName,
		Description:  dto.Description,
		Phone:        dto.Phone,
		Email:        dto.Email,
		Status:       enums.StoreStatusDraft,
		FSSAINumber:  dto.FSSAINumber,
		GSTNumber:    dto.GSTNumber,
		PANNumber:    dto.PANNumber,
		AddressLine1: dto.AddressLine1,
		AddressLine2: dto.AddressLine2,
		City:         dto.City,
		State:        dto.State,
		Pincode:      dto.Pincode,
		Lat:          dto.Lat,
		Lng:          dto.Lng,
		Cuisines:     dto.Cuisines,
		OwnerID:      dto.OwnerID,
	}
}

// FromModel maps the persisted store into a DTO.
func FromModel(m *models.Store) *StoreDTO {
	if m == nil {
		return nil
	}
	return &StoreDTO{
		ID:                 m.ID,
		Name:               m.Name,
		LegalName:          m.LegalName,
		Description:        m.Description,
		Phone:              m.Phone,
		Email:              m.Email,
		Status:             m.Status,
		FSSAINumber:        m.FSSAINumber,
		GSTNumber:          m.GSTNumber,
		AddressLine1:       m.AddressLine1,
		AddressLine2:       m.AddressLine2,
		City:               m.City,
		State:              m.State,
		Pincode:            m.Pincode,
		Lat:                m.Lat,
		Lng:                m.Lng,
		Cuisines:           m.Cuisines,
		SubscriptionActive: m.SubscriptionActive,
		OwnerID:            m.OwnerID,
		SubmittedAt:        m.SubmittedAt,
		ActivatedAt:        m.ActivatedAt,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

// UpdateStoreInput captures the allowed store fields for mutation.
type UpdateStoreInput struct {
	Name         *string
	LegalName    *string
	Description  *string
	Phone        *string
	Email        *string
	FSSAINumber  *string
	GSTNumber    *string
	AddressLine1 *string
	AddressLine2 *string
	City         *string
	State        *string
	Pincode      *string
	Lat          *float64
	Lng          *float64
	Cuisines     *[]string
}

// InviteUserInput captures the data required to invite a store user.
type InviteUserInput struct {
	Email     string
	FirstName string
	LastName  string
	Role      enums.MemberRole
}
