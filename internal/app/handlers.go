package app

import (
	"github.com/yungbote/leadflow-backend/internal/handlers"
	"github.com/yungbote/leadflow-backend/internal/logger"
	"github.com/yungbote/leadflow-backend/internal/observability"
	"github.com/yungbote/leadflow-backend/internal/server"
)

func wireHandlers(log *logger.Logger, reposet Repos, serviceset Services, metrics *observability.Metrics) server.RouterConfig {
	log.Info("Wiring handlers...")
	return server.RouterConfig{
		EventHandler:      handlers.NewEventHandler(serviceset.Ingest, metrics),
		LeadHandler:       handlers.NewLeadHandler(reposet.Lead, reposet.ScoreLedger, reposet.AutomationExecution),
		RuleHandler:       handlers.NewRuleHandler(reposet.ScoringRule, serviceset.RuleCache),
		AutomationHandler: handlers.NewAutomationHandler(reposet.AutomationRule, serviceset.AutomationCache),
		DeadLetterHandler: handlers.NewDeadLetterHandler(reposet.DeadLetter),
		Healthcheck:       handlers.NewHealthcheckHandler(),
		Metrics:           metrics,
	}
}
