package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	AutomationStatusExecuted = "executed"
	AutomationStatusFailed   = "failed"
)

// AutomationRule fires an action when a lead lands in WhenStage with at
// least MinVelocity events-per-day momentum.
type AutomationRule struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name        string         `gorm:"column:name;not null;uniqueIndex" json:"name"`
	WhenStage   string         `gorm:"column:when_stage;not null;index" json:"when_stage"`
	MinVelocity int            `gorm:"column:min_velocity;not null;default:0" json:"min_velocity"`
	Action      string         `gorm:"column:action;not null" json:"action"`
	Enabled     bool           `gorm:"column:enabled;not null;default:true;index" json:"enabled"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (AutomationRule) TableName() string { return "automation_rule" }

// AutomationExecution records one firing of a rule for a lead. The unique
// (lead_id, rule_id, date_bucket) index caps a rule at one execution per
// lead per day; duplicate inserts are expected and absorbed. Notification
// dispatch consumes status=executed rows downstream.
type AutomationExecution struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	LeadID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_automation_execution_dedup,unique,priority:1" json:"lead_id"`
	Lead       *Lead           `gorm:"constraint:OnDelete:CASCADE;foreignKey:LeadID;references:ID" json:"lead,omitempty"`
	RuleID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_automation_execution_dedup,unique,priority:2" json:"rule_id"`
	Rule       *AutomationRule `gorm:"constraint:OnDelete:CASCADE;foreignKey:RuleID;references:ID" json:"rule,omitempty"`
	DateBucket string          `gorm:"column:date_bucket;not null;index:idx_automation_execution_dedup,unique,priority:3" json:"date_bucket"`
	Payload    datatypes.JSON  `gorm:"type:jsonb;column:payload" json:"payload,omitempty"`
	Status     string          `gorm:"column:status;not null;default:executed;index" json:"status"`
	CreatedAt  time.Time       `gorm:"not null;default:now()" json:"created_at"`
}

func (AutomationExecution) TableName() string { return "automation_execution" }
