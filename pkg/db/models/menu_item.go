package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MenuItem is a sellable dish on a store menu.
type MenuItem struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID        uuid.UUID       `gorm:"column:store_id;type:uuid;not null;index"`
	Name           string          `gorm:"column:name;not null"`
	Description    *string         `gorm:"column:description"`
	Category       string          `gorm:"column:category;not null"`
	Price          decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	IsVeg          bool            `gorm:"column:is_veg;not null;default:false"`
	IsAvailable    bool            `gorm:"column:is_available;not null;default:true"`
	ImageObjectKey *string         `gorm:"column:image_object_key"`
	SortOrder      int             `gorm:"column:sort_order;not null;default:0"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
