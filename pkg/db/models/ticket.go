package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dishpatch/merchant-backend/pkg/enums"
)

// Ticket is a merchant support thread.
type Ticket struct {
	ID            uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID       uuid.UUID            `gorm:"column:store_id;type:uuid;not null;index"`
	Subject       string               `gorm:"column:subject;not null"`
	Status        enums.TicketStatus   `gorm:"column:status;type:ticket_status;not null;default:'open'"`
	Priority      enums.TicketPriority `gorm:"column:priority;type:ticket_priority;not null;default:'medium'"`
	OpenedBy      uuid.UUID            `gorm:"column:opened_by;type:uuid;not null"`
	LastMessageAt time.Time            `gorm:"column:last_message_at;not null"`
	ResolvedAt    *time.Time           `gorm:"column:resolved_at"`
	CreatedAt     time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time            `gorm:"column:updated_at;autoUpdateTime"`

	Messages []TicketMessage `gorm:"foreignKey:TicketID"`
}

// TicketMessage is a single reply on a ticket thread.
type TicketMessage struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TicketID     uuid.UUID  `gorm:"column:ticket_id;type:uuid;not null;index"`
	AuthorUserID *uuid.UUID `gorm:"column:author_user_id;type:uuid"`
	FromSupport  bool       `gorm:"column:from_support;not null;default:false"`
	Body         string     `gorm:"column:body;not null"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
}
