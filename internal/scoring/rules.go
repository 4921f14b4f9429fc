package scoring

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/yungbote/leadflow-backend/internal/logger"
	"github.com/yungbote/leadflow-backend/internal/repos"
	"github.com/yungbote/leadflow-backend/internal/types"
)

// RuleCache holds the scoring rule set as an immutable snapshot behind an
// atomic pointer. Delta never touches storage; Refresh builds a fresh map
// and publishes it in one swap, so readers mid-refresh see either the old
// or the new set, never a partial one.
type RuleCache struct {
	log      *logger.Logger
	repo     repos.ScoringRuleRepo
	snapshot atomic.Pointer[map[string]float64]
}

func NewRuleCache(repo repos.ScoringRuleRepo, baseLog *logger.Logger) *RuleCache {
	c := &RuleCache{
		log:  baseLog.With("component", "RuleCache"),
		repo: repo,
	}
	empty := map[string]float64{}
	c.snapshot.Store(&empty)
	return c
}

func (c *RuleCache) Refresh(ctx context.Context) error {
	rules, err := c.repo.ListAll(ctx, nil)
	if err != nil {
		return err
	}
	next := make(map[string]float64, len(rules))
	for _, rule := range rules {
		next[rule.EventType] = rule.Points
	}
	c.snapshot.Store(&next)
	c.log.Debug("Scoring rule cache refreshed", "rule_count", len(next))
	return nil
}

// Delta returns the point delta for an event type. Unknown types score 0;
// they are still ledgered and consumed, just worthless.
func (c *RuleCache) Delta(eventType string) float64 {
	snap := c.snapshot.Load()
	if snap == nil {
		return 0
	}
	return (*snap)[eventType]
}

// StartRefresher re-pulls the rule set on a fixed interval. interval <= 0
// disables background refresh; explicit Refresh calls still work.
func (c *RuleCache) StartRefresher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.Refresh(ctx); err != nil {
					c.log.Warn("Scoring rule cache refresh failed", "error", err)
				}
			}
		}
	}()
}

// AutomationRuleCache is the same snapshot-swap pattern for the enabled
// automation rule set.
type AutomationRuleCache struct {
	log      *logger.Logger
	repo     repos.AutomationRuleRepo
	snapshot atomic.Pointer[[]*types.AutomationRule]
}

func NewAutomationRuleCache(repo repos.AutomationRuleRepo, baseLog *logger.Logger) *AutomationRuleCache {
	c := &AutomationRuleCache{
		log:  baseLog.With("component", "AutomationRuleCache"),
		repo: repo,
	}
	empty := []*types.AutomationRule{}
	c.snapshot.Store(&empty)
	return c
}

func (c *AutomationRuleCache) Refresh(ctx context.Context) error {
	rules, err := c.repo.ListEnabled(ctx, nil)
	if err != nil {
		return err
	}
	c.snapshot.Store(&rules)
	c.log.Debug("Automation rule cache refreshed", "rule_count", len(rules))
	return nil
}

func (c *AutomationRuleCache) Rules() []*types.AutomationRule {
	snap := c.snapshot.Load()
	if snap == nil {
		return nil
	}
	return *snap
}

func (c *AutomationRuleCache) StartRefresher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.Refresh(ctx); err != nil {
					c.log.Warn("Automation rule cache refresh failed", "error", err)
				}
			}
		}
	}()
}
