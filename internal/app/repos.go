package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/leadflow-backend/internal/logger"
	"github.com/yungbote/leadflow-backend/internal/repos"
)

type Repos struct {
	Lead                repos.LeadRepo
	LeadEvent           repos.LeadEventRepo
	ScoreLedger         repos.ScoreLedgerRepo
	ScoringRule         repos.ScoringRuleRepo
	AutomationRule      repos.AutomationRuleRepo
	AutomationExecution repos.AutomationExecutionRepo
	WorkItem            repos.WorkItemRepo
	DeadLetter          repos.DeadLetterRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Lead:                repos.NewLeadRepo(db, log),
		LeadEvent:           repos.NewLeadEventRepo(db, log),
		ScoreLedger:         repos.NewScoreLedgerRepo(db, log),
		ScoringRule:         repos.NewScoringRuleRepo(db, log),
		AutomationRule:      repos.NewAutomationRuleRepo(db, log),
		AutomationExecution: repos.NewAutomationExecutionRepo(db, log),
		WorkItem:            repos.NewWorkItemRepo(db, log),
		DeadLetter:          repos.NewDeadLetterRepo(db, log),
	}
}
