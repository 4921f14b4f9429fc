package scoring

import (
	"github.com/yungbote/leadflow-backend/internal/repos"
	"github.com/yungbote/leadflow-backend/internal/types"
)

const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

const (
	ActionImmediateOutreach = "immediate_outreach"
	ActionScheduleDemo      = "schedule_demo"
	ActionNurture           = "nurture"
	ActionReEngagement      = "re_engagement"
	ActionMonitor           = "monitor"
)

// DeriverConfig holds the score-to-stage thresholds and related knobs.
// Defaults mirror the shipped playbook; deployments override via env.
type DeriverConfig struct {
	QualifiedMin        float64
	HotMin              float64
	WarmMin             float64
	VelocityMultiplier  int
	RiskMediumAfterDays int
	RiskHighAfterDays   int
}

func DefaultDeriverConfig() DeriverConfig {
	return DeriverConfig{
		QualifiedMin:        60,
		HotMin:              31,
		WarmMin:             11,
		VelocityMultiplier:  3,
		RiskMediumAfterDays: 7,
		RiskHighAfterDays:   14,
	}
}

// Deriver maps accumulated score and recent activity to stage, velocity,
// risk and a suggested next action. Pure lookups, no storage, no clock.
type Deriver struct {
	cfg DeriverConfig
}

func NewDeriver(cfg DeriverConfig) *Deriver {
	return &Deriver{cfg: cfg}
}

func (d *Deriver) Stage(score float64) string {
	switch {
	case score >= d.cfg.QualifiedMin:
		return types.StageQualified
	case score >= d.cfg.HotMin:
		return types.StageHot
	case score >= d.cfg.WarmMin:
		return types.StageWarm
	default:
		return types.StageCold
	}
}

func (d *Deriver) Velocity(eventsLast24h int) int {
	if eventsLast24h < 0 {
		return 0
	}
	return eventsLast24h * d.cfg.VelocityMultiplier
}

func (d *Deriver) Risk(daysSinceLastEvent int) string {
	switch {
	case daysSinceLastEvent > d.cfg.RiskHighAfterDays:
		return RiskHigh
	case daysSinceLastEvent > d.cfg.RiskMediumAfterDays:
		return RiskMedium
	default:
		return RiskLow
	}
}

func (d *Deriver) NextAction(stage string, velocity int, risk string) string {
	switch {
	case stage == types.StageQualified && velocity >= 3:
		return ActionImmediateOutreach
	case stage == types.StageHot && risk == RiskLow:
		return ActionScheduleDemo
	case stage == types.StageWarm:
		return ActionNurture
	case risk == RiskHigh:
		return ActionReEngagement
	default:
		return ActionMonitor
	}
}

// Thresholds exposes the stage cutoffs in the form the decay sweep's bulk
// SQL needs.
func (d *Deriver) Thresholds() repos.StageThresholds {
	return repos.StageThresholds{
		QualifiedMin: d.cfg.QualifiedMin,
		HotMin:       d.cfg.HotMin,
		WarmMin:      d.cfg.WarmMin,
	}
}
