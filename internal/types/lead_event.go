package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// LeadEvent is one behavioral event in a lead's backlog. EventID is the
// client-supplied idempotency key; OccurredAt is event time and may differ
// from arrival order. The engine is the sole writer of Consumed, and a
// consumed event is never touched again.
type LeadEvent struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	EventID    string         `gorm:"column:event_id;not null;uniqueIndex" json:"event_id"`
	LeadID     uuid.UUID      `gorm:"type:uuid;not null;index:idx_lead_event_backlog,priority:1" json:"lead_id"`
	Lead       *Lead          `gorm:"constraint:OnDelete:CASCADE;foreignKey:LeadID;references:ID" json:"lead,omitempty"`
	Type       string         `gorm:"column:type;not null;index" json:"type"`
	OccurredAt time.Time      `gorm:"column:occurred_at;not null;index" json:"occurred_at"`
	Metadata   datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata,omitempty"`
	Consumed   bool           `gorm:"column:consumed;not null;default:false;index:idx_lead_event_backlog,priority:2" json:"consumed"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (LeadEvent) TableName() string { return "lead_event" }
