package jobs

import (
	"context"
	"time"

	"github.com/yungbote/leadflow-backend/internal/logger"
	"github.com/yungbote/leadflow-backend/internal/observability"
	"github.com/yungbote/leadflow-backend/internal/repos"
	"github.com/yungbote/leadflow-backend/internal/scoring"
)

// DecaySweeper discounts the score of leads with no events inside the
// decay window and recomputes their stage in the same statement. It does
// not take the per-lead lease: the sweep is one bulk UPDATE, so each row
// stays internally consistent, and a concurrent applier run at worst
// overwrites the discounted score with a fresh ledger-derived one.
type DecaySweeper struct {
	log      *logger.Logger
	leads    repos.LeadRepo
	deriver  *scoring.Deriver
	metrics  *observability.Metrics
	window   time.Duration
	factor   float64
	interval time.Duration
}

func NewDecaySweeper(baseLog *logger.Logger, leads repos.LeadRepo, deriver *scoring.Deriver, metrics *observability.Metrics, window time.Duration, factor float64, interval time.Duration) *DecaySweeper {
	return &DecaySweeper{
		log:      baseLog.With("component", "DecaySweeper"),
		leads:    leads,
		deriver:  deriver,
		metrics:  metrics,
		window:   window,
		factor:   factor,
		interval: interval,
	}
}

func (s *DecaySweeper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

func (s *DecaySweeper) sweep(ctx context.Context) {
	decayed, err := s.leads.DecayInactive(ctx, nil, s.window, s.factor, s.deriver.Thresholds())
	if err != nil {
		s.log.Warn("Decay sweep failed", "error", err)
		return
	}
	if decayed > 0 {
		s.metrics.LeadsDecayed(decayed)
		s.log.Info("Decay sweep complete", "decayed", decayed, "factor", s.factor, "window", s.window)
	}
}
