package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StageCold      = "cold"
	StageWarm      = "warm"
	StageHot       = "hot"
	StageQualified = "qualified"
)

// Lead is the tracked entity accumulating a score. Score and stage are
// derived by the scoring engine; clients never write them directly. The
// lease fields implement per-lead mutual exclusion: LeaseHeld flips via
// conditional updates only, and UpdatedAt doubles as the lease last-write
// time that the recovery sweep checks for staleness.
type Lead struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name          string         `gorm:"column:name" json:"name,omitempty"`
	Email         string         `gorm:"column:email;index" json:"email,omitempty"`
	Score         float64        `gorm:"column:score;not null;default:0" json:"score"`
	Stage         string         `gorm:"column:stage;not null;default:cold;index" json:"stage"`
	EventsLast24h int            `gorm:"column:events_last_24h;not null;default:0" json:"events_last_24h"`
	LastEventAt   *time.Time     `gorm:"column:last_event_at;index" json:"last_event_at,omitempty"`
	LeaseHeld     bool           `gorm:"column:lease_held;not null;default:false;index" json:"lease_held"`
	CreatedAt     time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Lead) TableName() string { return "lead" }
