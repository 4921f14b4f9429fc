package scoring

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/leadflow-backend/internal/logger"
	"github.com/yungbote/leadflow-backend/internal/repos"
	"github.com/yungbote/leadflow-backend/internal/types"
)

// AutomationEngine evaluates the cached automation rules against a lead's
// just-derived stage and velocity. Best-effort by contract: it runs after
// the lease is released, per-rule errors are logged and swallowed, and the
// (lead, rule, day) unique index caps each rule at one firing per day.
type AutomationEngine interface {
	Evaluate(ctx context.Context, lead *types.Lead, stage string, velocity int) int
}

type automationEngine struct {
	log   *logger.Logger
	cache *AutomationRuleCache
	execs repos.AutomationExecutionRepo
}

func NewAutomationEngine(baseLog *logger.Logger, cache *AutomationRuleCache, execs repos.AutomationExecutionRepo) AutomationEngine {
	return &automationEngine{
		log:   baseLog.With("component", "AutomationEngine"),
		cache: cache,
		execs: execs,
	}
}

func (e *automationEngine) Evaluate(ctx context.Context, lead *types.Lead, stage string, velocity int) int {
	if lead == nil {
		return 0
	}
	log := e.log.With("lead_id", lead.ID, "stage", stage, "velocity", velocity)
	bucket := time.Now().UTC().Format("2006-01-02")
	fired := 0
	for _, rule := range e.cache.Rules() {
		if rule.WhenStage != stage || velocity < rule.MinVelocity {
			continue
		}
		payload, _ := json.Marshal(map[string]interface{}{
			"action":   rule.Action,
			"stage":    stage,
			"velocity": velocity,
		})
		created, err := e.execs.Insert(ctx, nil, &types.AutomationExecution{
			LeadID:     lead.ID,
			RuleID:     rule.ID,
			DateBucket: bucket,
			Payload:    datatypes.JSON(payload),
			Status:     types.AutomationStatusExecuted,
		})
		if err != nil {
			// Never abort sibling rules or the scoring path over an
			// automation write.
			log.Error("Automation execution insert failed", "rule_id", rule.ID, "action", rule.Action, "error", err)
			continue
		}
		if !created {
			log.Debug("Automation rule already fired today", "rule_id", rule.ID, "date_bucket", bucket)
			continue
		}
		log.Info("Automation rule fired", "rule_id", rule.ID, "action", rule.Action, "date_bucket", bucket)
		fired++
	}
	return fired
}
