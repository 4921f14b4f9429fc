package app

import (
	"context"
	"fmt"

	"github.com/yungbote/leadflow-backend/internal/jobs"
	"github.com/yungbote/leadflow-backend/internal/logger"
	"github.com/yungbote/leadflow-backend/internal/observability"
	"github.com/yungbote/leadflow-backend/internal/scoring"
)

type Services struct {
	RuleCache       *scoring.RuleCache
	AutomationCache *scoring.AutomationRuleCache
	Deriver         *scoring.Deriver
	Applier         scoring.Applier
	Automation      scoring.AutomationEngine
	Ingest          scoring.IngestService

	Worker       *jobs.Worker
	LeaseSweeper *jobs.LeaseSweeper
	DecaySweeper *jobs.DecaySweeper
}

func wireServices(log *logger.Logger, cfg Config, reposet Repos, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	ruleCache := scoring.NewRuleCache(reposet.ScoringRule, log)
	automationCache := scoring.NewAutomationRuleCache(reposet.AutomationRule, log)

	if cfg.RulesSeedPath != "" {
		if err := scoring.SeedRules(context.Background(), log, cfg.RulesSeedPath, reposet.ScoringRule, reposet.AutomationRule); err != nil {
			return Services{}, fmt.Errorf("seed rules: %w", err)
		}
	}
	if err := ruleCache.Refresh(context.Background()); err != nil {
		return Services{}, fmt.Errorf("prime scoring rule cache: %w", err)
	}
	if err := automationCache.Refresh(context.Background()); err != nil {
		return Services{}, fmt.Errorf("prime automation rule cache: %w", err)
	}

	deriver := scoring.NewDeriver(cfg.Deriver)
	applier := scoring.NewApplier(log, reposet.LeadEvent, reposet.ScoreLedger, ruleCache, deriver, cfg.ApplyBatchLimit)
	automation := scoring.NewAutomationEngine(log, automationCache, reposet.AutomationExecution)

	var ingestBus scoring.WorkBus
	if clients.WorkBus != nil {
		ingestBus = clients.WorkBus
	}
	ingest := scoring.NewIngestService(log, reposet.Lead, reposet.LeadEvent, reposet.WorkItem, ingestBus)

	worker := jobs.NewWorker(log, reposet.Lead, reposet.WorkItem, reposet.DeadLetter, applier, automation, metrics, jobs.WorkerConfig{
		Concurrency:     cfg.WorkerConcurrency,
		PollInterval:    cfg.WorkerPollInterval,
		MaxAttempts:     cfg.QueueMaxAttempts,
		RetryDelay:      cfg.QueueRetryDelay,
		StaleRunning:    cfg.QueueStaleRunning,
		LeaseRetryDelay: cfg.LeaseRetryDelay,
	})

	leaseSweeper := jobs.NewLeaseSweeper(log, reposet.Lead, metrics, cfg.LeaseTTL, cfg.LeaseSweepInterval)
	decaySweeper := jobs.NewDecaySweeper(log, reposet.Lead, deriver, metrics, cfg.DecayWindow, cfg.DecayFactor, cfg.DecaySweepInterval)

	return Services{
		RuleCache:       ruleCache,
		AutomationCache: automationCache,
		Deriver:         deriver,
		Applier:         applier,
		Automation:      automation,
		Ingest:          ingest,
		Worker:          worker,
		LeaseSweeper:    leaseSweeper,
		DecaySweeper:    decaySweeper,
	}, nil
}
