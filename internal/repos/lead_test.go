package repos

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/leadflow-backend/internal/types"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func seedLead(t *testing.T, repo LeadRepo, lead *types.Lead) *types.Lead {
	t.Helper()
	created, err := repo.GetOrCreate(context.Background(), nil, lead)
	if err != nil {
		t.Fatalf("seed lead: %v", err)
	}
	return created
}

func TestLeadGetOrCreateIsIdempotent(t *testing.T) {
	repo := NewLeadRepo(newTestDB(t), newTestLogger(t))
	id := uuid.New()

	first := seedLead(t, repo, &types.Lead{ID: id, Name: "Ada"})
	second := seedLead(t, repo, &types.Lead{ID: id, Name: "Someone Else"})

	if first.ID != second.ID {
		t.Fatalf("ids differ: %v vs %v", first.ID, second.ID)
	}
	if second.Name != "Ada" {
		t.Fatalf("re-create overwrote the row: %q", second.Name)
	}
	if second.Stage != types.StageCold {
		t.Fatalf("default stage: want=%q got=%q", types.StageCold, second.Stage)
	}
}

func TestLeadLeaseAcquireContendRelease(t *testing.T) {
	repo := NewLeadRepo(newTestDB(t), newTestLogger(t))
	ctx := context.Background()
	lead := seedLead(t, repo, &types.Lead{ID: uuid.New()})

	held, err := repo.AcquireLease(ctx, nil, lead.ID)
	if err != nil {
		t.Fatalf("AcquireLease: %v", err)
	}
	if held == nil || !held.LeaseHeld {
		t.Fatalf("first acquisition should succeed: %+v", held)
	}

	contended, err := repo.AcquireLease(ctx, nil, lead.ID)
	if err != nil {
		t.Fatalf("second AcquireLease: %v", err)
	}
	if contended != nil {
		t.Fatalf("second acquisition should report contention, got %+v", contended)
	}

	if err := repo.ReleaseLease(ctx, nil, lead.ID, map[string]interface{}{
		"score": 45.0,
		"stage": types.StageHot,
	}); err != nil {
		t.Fatalf("ReleaseLease: %v", err)
	}

	reloaded, err := repo.GetByID(ctx, nil, lead.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reloaded.LeaseHeld {
		t.Fatalf("lease still held after release")
	}
	if reloaded.Score != 45 || reloaded.Stage != types.StageHot {
		t.Fatalf("release fields not applied: score=%v stage=%q", reloaded.Score, reloaded.Stage)
	}

	reacquired, err := repo.AcquireLease(ctx, nil, lead.ID)
	if err != nil {
		t.Fatalf("re-acquire: %v", err)
	}
	if reacquired == nil {
		t.Fatalf("lease not re-acquirable after release")
	}
}

func TestLeadAcquireLeaseUnknownLead(t *testing.T) {
	repo := NewLeadRepo(newTestDB(t), newTestLogger(t))
	held, err := repo.AcquireLease(context.Background(), nil, uuid.New())
	if err != nil {
		t.Fatalf("AcquireLease: %v", err)
	}
	if held != nil {
		t.Fatalf("acquired a lease on a missing lead: %+v", held)
	}
}

func TestLeadReclaimStaleLeases(t *testing.T) {
	db := newTestDB(t)
	repo := NewLeadRepo(db, newTestLogger(t))
	ctx := context.Background()

	stale := seedLead(t, repo, &types.Lead{ID: uuid.New()})
	fresh := seedLead(t, repo, &types.Lead{ID: uuid.New()})
	for _, l := range []*types.Lead{stale, fresh} {
		if held, err := repo.AcquireLease(ctx, nil, l.ID); err != nil || held == nil {
			t.Fatalf("acquire %v: held=%v err=%v", l.ID, held, err)
		}
	}

	// Age the first holder's last write past the TTL.
	if err := db.Model(&types.Lead{}).Where("id = ?", stale.ID).
		Update("updated_at", time.Now().Add(-time.Hour)).Error; err != nil {
		t.Fatalf("age lease: %v", err)
	}

	reclaimed, err := repo.ReclaimStaleLeases(ctx, nil, 5*time.Minute)
	if err != nil {
		t.Fatalf("ReclaimStaleLeases: %v", err)
	}
	if reclaimed != 1 {
		t.Fatalf("reclaimed: want=1 got=%d", reclaimed)
	}

	staleAfter, _ := repo.GetByID(ctx, nil, stale.ID)
	if staleAfter.LeaseHeld {
		t.Fatalf("stale lease not cleared")
	}
	freshAfter, _ := repo.GetByID(ctx, nil, fresh.ID)
	if !freshAfter.LeaseHeld {
		t.Fatalf("live lease was stolen")
	}
}

func TestLeadDecayInactive(t *testing.T) {
	db := newTestDB(t)
	repo := NewLeadRepo(db, newTestLogger(t))
	ctx := context.Background()
	thresholds := StageThresholds{QualifiedMin: 60, HotMin: 31, WarmMin: 11}

	old := time.Now().Add(-40 * 24 * time.Hour)
	recent := time.Now().Add(-time.Hour)

	idle := seedLead(t, repo, &types.Lead{ID: uuid.New(), Score: 40, Stage: types.StageHot, LastEventAt: &old})
	fading := seedLead(t, repo, &types.Lead{ID: uuid.New(), Score: 12, Stage: types.StageWarm, LastEventAt: &old})
	active := seedLead(t, repo, &types.Lead{ID: uuid.New(), Score: 40, Stage: types.StageHot, LastEventAt: &recent})
	untouched := seedLead(t, repo, &types.Lead{ID: uuid.New(), Score: 0, Stage: types.StageCold, LastEventAt: &old})

	decayed, err := repo.DecayInactive(ctx, nil, 30*24*time.Hour, 0.9, thresholds)
	if err != nil {
		t.Fatalf("DecayInactive: %v", err)
	}
	if decayed != 2 {
		t.Fatalf("decayed rows: want=2 got=%d", decayed)
	}

	idleAfter, _ := repo.GetByID(ctx, nil, idle.ID)
	if !almostEqual(idleAfter.Score, 36) || idleAfter.Stage != types.StageHot {
		t.Fatalf("idle lead: want 36/hot got %v/%s", idleAfter.Score, idleAfter.Stage)
	}

	fadingAfter, _ := repo.GetByID(ctx, nil, fading.ID)
	if !almostEqual(fadingAfter.Score, 10.8) || fadingAfter.Stage != types.StageCold {
		t.Fatalf("fading lead: want 10.8/cold got %v/%s", fadingAfter.Score, fadingAfter.Stage)
	}

	activeAfter, _ := repo.GetByID(ctx, nil, active.ID)
	if activeAfter.Score != 40 {
		t.Fatalf("active lead decayed: %v", activeAfter.Score)
	}

	untouchedAfter, _ := repo.GetByID(ctx, nil, untouched.ID)
	if untouchedAfter.Score != 0 || untouchedAfter.Stage != types.StageCold {
		t.Fatalf("zero-score lead changed: %+v", untouchedAfter)
	}
}

func TestLeadDecayDoesNotPostponeLeaseReclaim(t *testing.T) {
	db := newTestDB(t)
	repo := NewLeadRepo(db, newTestLogger(t))
	ctx := context.Background()
	old := time.Now().Add(-40 * 24 * time.Hour)

	// A crashed worker left the lease held; the lead is also idle enough
	// to decay.
	lead := seedLead(t, repo, &types.Lead{ID: uuid.New(), Score: 40, Stage: types.StageHot, LastEventAt: &old})
	if held, err := repo.AcquireLease(ctx, nil, lead.ID); err != nil || held == nil {
		t.Fatalf("acquire: held=%v err=%v", held, err)
	}
	if err := db.Model(&types.Lead{}).Where("id = ?", lead.ID).
		Update("updated_at", time.Now().Add(-time.Hour)).Error; err != nil {
		t.Fatalf("age lease: %v", err)
	}

	decayed, err := repo.DecayInactive(ctx, nil, 30*24*time.Hour, 0.9, StageThresholds{QualifiedMin: 60, HotMin: 31, WarmMin: 11})
	if err != nil {
		t.Fatalf("DecayInactive: %v", err)
	}
	if decayed != 1 {
		t.Fatalf("decayed rows: want=1 got=%d", decayed)
	}

	// Decay must not refresh the lease clock: the stale lease is still
	// reclaimable on the next sweep.
	reclaimed, err := repo.ReclaimStaleLeases(ctx, nil, 5*time.Minute)
	if err != nil {
		t.Fatalf("ReclaimStaleLeases: %v", err)
	}
	if reclaimed != 1 {
		t.Fatalf("reclaimed: want=1 got=%d", reclaimed)
	}
	after, _ := repo.GetByID(ctx, nil, lead.ID)
	if after.LeaseHeld {
		t.Fatalf("stale lease survived decay + sweep")
	}
	if !almostEqual(after.Score, 36) {
		t.Fatalf("score: want=36 got=%v", after.Score)
	}
}
