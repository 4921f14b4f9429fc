package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/leadflow-backend/internal/repos"
	"github.com/yungbote/leadflow-backend/internal/scoring"
	"github.com/yungbote/leadflow-backend/internal/types"
)

type stubSweepLeadRepo struct {
	reclaimTTL     time.Duration
	reclaimReturns int64
	decayWindow    time.Duration
	decayFactor    float64
	decayCutoffs   repos.StageThresholds
	decayReturns   int64
}

func (s *stubSweepLeadRepo) GetOrCreate(ctx context.Context, tx *gorm.DB, lead *types.Lead) (*types.Lead, error) {
	return lead, nil
}

func (s *stubSweepLeadRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Lead, error) {
	return nil, nil
}

func (s *stubSweepLeadRepo) AcquireLease(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Lead, error) {
	return nil, nil
}

func (s *stubSweepLeadRepo) ReleaseLease(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	return nil
}

func (s *stubSweepLeadRepo) ReclaimStaleLeases(ctx context.Context, tx *gorm.DB, ttl time.Duration) (int64, error) {
	s.reclaimTTL = ttl
	return s.reclaimReturns, nil
}

func (s *stubSweepLeadRepo) DecayInactive(ctx context.Context, tx *gorm.DB, window time.Duration, factor float64, thresholds repos.StageThresholds) (int64, error) {
	s.decayWindow = window
	s.decayFactor = factor
	s.decayCutoffs = thresholds
	return s.decayReturns, nil
}

func TestLeaseSweeperSweep(t *testing.T) {
	leads := &stubSweepLeadRepo{reclaimReturns: 2}
	sweeper := NewLeaseSweeper(newTestLogger(t), leads, nil, 5*time.Minute, time.Minute)

	sweeper.sweep(context.Background())

	if leads.reclaimTTL != 5*time.Minute {
		t.Fatalf("ttl: want=5m got=%v", leads.reclaimTTL)
	}
}

func TestDecaySweeperSweep(t *testing.T) {
	leads := &stubSweepLeadRepo{decayReturns: 3}
	deriver := scoring.NewDeriver(scoring.DefaultDeriverConfig())
	sweeper := NewDecaySweeper(newTestLogger(t), leads, deriver, nil, 30*24*time.Hour, 0.9, 24*time.Hour)

	sweeper.sweep(context.Background())

	if leads.decayWindow != 30*24*time.Hour {
		t.Fatalf("window: want=720h got=%v", leads.decayWindow)
	}
	if leads.decayFactor != 0.9 {
		t.Fatalf("factor: want=0.9 got=%v", leads.decayFactor)
	}
	if leads.decayCutoffs.QualifiedMin != 60 || leads.decayCutoffs.HotMin != 31 || leads.decayCutoffs.WarmMin != 11 {
		t.Fatalf("thresholds not passed through: %+v", leads.decayCutoffs)
	}
}
