package jobs

import (
	"context"
	"time"

	"github.com/yungbote/leadflow-backend/internal/logger"
	"github.com/yungbote/leadflow-backend/internal/observability"
	"github.com/yungbote/leadflow-backend/internal/repos"
)

// LeaseSweeper reclaims leases held past the crash-tolerance TTL. A worker
// that dies mid-apply leaves lease_held=true behind; nothing else clears
// it. The reclaim uses the same conditional update as acquisition, so a
// live worker whose lease is merely near the TTL cannot be raced into a
// double grant. The TTL is therefore the hard upper bound on one applier
// batch; the batch limit keeps real batches well under it.
type LeaseSweeper struct {
	log      *logger.Logger
	leads    repos.LeadRepo
	metrics  *observability.Metrics
	ttl      time.Duration
	interval time.Duration
}

func NewLeaseSweeper(baseLog *logger.Logger, leads repos.LeadRepo, metrics *observability.Metrics, ttl, interval time.Duration) *LeaseSweeper {
	return &LeaseSweeper{
		log:      baseLog.With("component", "LeaseSweeper"),
		leads:    leads,
		metrics:  metrics,
		ttl:      ttl,
		interval: interval,
	}
}

func (s *LeaseSweeper) Start(ctx context.Context) {
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

func (s *LeaseSweeper) sweep(ctx context.Context) {
	reclaimed, err := s.leads.ReclaimStaleLeases(ctx, nil, s.ttl)
	if err != nil {
		s.log.Warn("Stale lease reclaim failed", "error", err)
		return
	}
	if reclaimed > 0 {
		// Each reclaim means a worker crashed or overran the TTL.
		s.metrics.LeasesReclaimed(reclaimed)
		s.log.Warn("Reclaimed stale leases", "reclaimed", reclaimed, "ttl", s.ttl)
	}
}
