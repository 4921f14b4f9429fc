package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ScoringRule maps an event type to a point delta. The full set is loaded
// into the in-memory rule cache; event types with no rule score 0.
type ScoringRule struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	EventType string         `gorm:"column:event_type;not null;uniqueIndex" json:"event_type"`
	Points    float64        `gorm:"column:points;not null" json:"points"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ScoringRule) TableName() string { return "scoring_rule" }
