package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	WorkItemQueued  = "queued"
	WorkItemRunning = "running"
	WorkItemDone    = "done"
	WorkItemFailed  = "failed"
	WorkItemDead    = "dead"
)

// WorkItem is one unit of queue work: "there may be unconsumed events for
// this lead". Delivery is at-least-once; duplicates for the same lead are
// legal and harmless because the engine itself is idempotent. RunAfter
// delays re-presentation (lease contention, retry backoff) without
// burning an attempt.
type WorkItem struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	LeadID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"lead_id"`
	Status      string     `gorm:"column:status;not null;default:queued;index" json:"status"`
	Attempts    int        `gorm:"column:attempts;not null;default:0" json:"attempts"`
	LastError   string     `gorm:"column:last_error" json:"last_error,omitempty"`
	LastErrorAt *time.Time `gorm:"column:last_error_at" json:"last_error_at,omitempty"`
	RunAfter    *time.Time `gorm:"column:run_after;index" json:"run_after,omitempty"`
	LockedAt    *time.Time `gorm:"column:locked_at" json:"locked_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (WorkItem) TableName() string { return "work_item" }
