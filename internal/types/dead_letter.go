package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DeadLetter captures a work item that exhausted its delivery retries.
// Scoring for that lead stalls at its last successful ledger entry until
// someone inspects and re-enqueues.
type DeadLetter struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	WorkItemID uuid.UUID      `gorm:"type:uuid;not null;index" json:"work_item_id"`
	LeadID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"lead_id"`
	Payload    datatypes.JSON `gorm:"type:jsonb;column:payload" json:"payload,omitempty"`
	Error      string         `gorm:"column:error;not null" json:"error"`
	Attempts   int            `gorm:"column:attempts;not null" json:"attempts"`
	FailedAt   time.Time      `gorm:"column:failed_at;not null;default:now()" json:"failed_at"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (DeadLetter) TableName() string { return "dead_letter" }
