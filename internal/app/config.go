package app

import (
	"time"

	"github.com/yungbote/leadflow-backend/internal/logger"
	"github.com/yungbote/leadflow-backend/internal/scoring"
	"github.com/yungbote/leadflow-backend/internal/utils"
)

type Config struct {
	Port               string
	Deriver            scoring.DeriverConfig
	DecayFactor        float64
	DecayWindow        time.Duration
	DecaySweepInterval time.Duration
	LeaseTTL           time.Duration
	LeaseSweepInterval time.Duration
	WorkerConcurrency  int
	WorkerPollInterval time.Duration
	QueueMaxAttempts   int
	QueueRetryDelay    time.Duration
	QueueStaleRunning  time.Duration
	LeaseRetryDelay    time.Duration
	ApplyBatchLimit    int
	RulesSeedPath      string
	RuleRefreshEvery   time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	deriver := scoring.DefaultDeriverConfig()
	deriver.QualifiedMin = utils.GetEnvAsFloat("STAGE_QUALIFIED_MIN", deriver.QualifiedMin, log)
	deriver.HotMin = utils.GetEnvAsFloat("STAGE_HOT_MIN", deriver.HotMin, log)
	deriver.WarmMin = utils.GetEnvAsFloat("STAGE_WARM_MIN", deriver.WarmMin, log)
	deriver.VelocityMultiplier = utils.GetEnvAsInt("VELOCITY_MULTIPLIER", deriver.VelocityMultiplier, log)
	deriver.RiskMediumAfterDays = utils.GetEnvAsInt("RISK_MEDIUM_AFTER_DAYS", deriver.RiskMediumAfterDays, log)
	deriver.RiskHighAfterDays = utils.GetEnvAsInt("RISK_HIGH_AFTER_DAYS", deriver.RiskHighAfterDays, log)

	decayAfterDays := utils.GetEnvAsInt("DECAY_AFTER_DAYS", 30, log)

	return Config{
		Port:               utils.GetEnv("PORT", "8080", log),
		Deriver:            deriver,
		DecayFactor:        utils.GetEnvAsFloat("DECAY_FACTOR", 0.9, log),
		DecayWindow:        time.Duration(decayAfterDays) * 24 * time.Hour,
		DecaySweepInterval: utils.GetEnvAsDuration("DECAY_SWEEP_INTERVAL", 24*time.Hour, log),
		LeaseTTL:           utils.GetEnvAsDuration("LEASE_TTL", 5*time.Minute, log),
		LeaseSweepInterval: utils.GetEnvAsDuration("LEASE_SWEEP_INTERVAL", time.Minute, log),
		WorkerConcurrency:  utils.GetEnvAsInt("WORKER_CONCURRENCY", 4, log),
		WorkerPollInterval: utils.GetEnvAsDuration("WORKER_POLL_INTERVAL", time.Second, log),
		QueueMaxAttempts:   utils.GetEnvAsInt("QUEUE_MAX_ATTEMPTS", 5, log),
		QueueRetryDelay:    utils.GetEnvAsDuration("QUEUE_RETRY_DELAY", 30*time.Second, log),
		QueueStaleRunning:  utils.GetEnvAsDuration("QUEUE_STALE_RUNNING", 2*time.Minute, log),
		LeaseRetryDelay:    utils.GetEnvAsDuration("LEASE_RETRY_DELAY", 5*time.Second, log),
		ApplyBatchLimit:    utils.GetEnvAsInt("APPLY_BATCH_LIMIT", 500, log),
		RulesSeedPath:      utils.GetEnv("RULES_SEED_PATH", "", log),
		RuleRefreshEvery:   utils.GetEnvAsDuration("RULE_REFRESH_INTERVAL", 0, log),
	}
}
