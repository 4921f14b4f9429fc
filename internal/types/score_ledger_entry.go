package types

import (
	"time"

	"github.com/google/uuid"
)

// ScoreLedgerEntry is the append-only audit record of one scoring delta.
// The unique (lead_id, event_id) index is the engine's sole idempotency
// guard: storage rejects a duplicate application, application code never
// has to check first. Rows are created once and never mutated or deleted.
type ScoreLedgerEntry struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	LeadID      uuid.UUID `gorm:"type:uuid;not null;index:idx_score_ledger_lead_event,unique,priority:1" json:"lead_id"`
	Lead        *Lead     `gorm:"constraint:OnDelete:CASCADE;foreignKey:LeadID;references:ID" json:"lead,omitempty"`
	EventID     string    `gorm:"column:event_id;not null;index:idx_score_ledger_lead_event,unique,priority:2" json:"event_id"`
	ScoreBefore float64   `gorm:"column:score_before;not null" json:"score_before"`
	ScoreAfter  float64   `gorm:"column:score_after;not null" json:"score_after"`
	Delta       float64   `gorm:"column:delta;not null" json:"delta"`
	AppliedAt   time.Time `gorm:"column:applied_at;not null;index" json:"applied_at"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (ScoreLedgerEntry) TableName() string { return "score_ledger_entry" }
