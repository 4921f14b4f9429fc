package scoring

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/leadflow-backend/internal/logger"
	"github.com/yungbote/leadflow-backend/internal/repos"
	"github.com/yungbote/leadflow-backend/internal/types"
)

type seedFile struct {
	Scoring []struct {
		EventType string  `yaml:"event_type"`
		Points    float64 `yaml:"points"`
	} `yaml:"scoring"`
	Automations []struct {
		Name        string `yaml:"name"`
		WhenStage   string `yaml:"when_stage"`
		MinVelocity int    `yaml:"min_velocity"`
		Action      string `yaml:"action"`
		Enabled     *bool  `yaml:"enabled"`
	} `yaml:"automations"`
}

// SeedRules upserts scoring and automation rules from a YAML file. An
// empty path is a no-op so deployments can manage rules purely over the
// API.
func SeedRules(ctx context.Context, baseLog *logger.Logger, path string, scoringRules repos.ScoringRuleRepo, automationRules repos.AutomationRuleRepo) error {
	if path == "" {
		return nil
	}
	log := baseLog.With("component", "RuleSeeder", "path", path)
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}
	for _, s := range seed.Scoring {
		if s.EventType == "" {
			continue
		}
		if err := scoringRules.Upsert(ctx, nil, &types.ScoringRule{
			EventType: s.EventType,
			Points:    s.Points,
		}); err != nil {
			return fmt.Errorf("upsert scoring rule %q: %w", s.EventType, err)
		}
	}
	for _, a := range seed.Automations {
		if a.Name == "" {
			continue
		}
		enabled := true
		if a.Enabled != nil {
			enabled = *a.Enabled
		}
		if err := automationRules.Upsert(ctx, nil, &types.AutomationRule{
			Name:        a.Name,
			WhenStage:   a.WhenStage,
			MinVelocity: a.MinVelocity,
			Action:      a.Action,
			Enabled:     enabled,
		}); err != nil {
			return fmt.Errorf("upsert automation rule %q: %w", a.Name, err)
		}
	}
	log.Info("Seeded rules", "scoring_rules", len(seed.Scoring), "automation_rules", len(seed.Automations))
	return nil
}
