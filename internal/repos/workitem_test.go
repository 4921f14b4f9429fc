package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/leadflow-backend/internal/types"
)

func testPolicy() RunnablePolicy {
	return RunnablePolicy{
		MaxAttempts:  3,
		RetryDelay:   30 * time.Second,
		StaleRunning: 2 * time.Minute,
	}
}

func TestWorkItemClaimLifecycle(t *testing.T) {
	repo := NewWorkItemRepo(newTestDB(t), newTestLogger(t))
	ctx := context.Background()
	leadID := uuid.New()

	item, err := repo.Enqueue(ctx, nil, leadID)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	claimed, err := repo.ClaimNextRunnable(ctx, nil, testPolicy())
	if err != nil {
		t.Fatalf("ClaimNextRunnable: %v", err)
	}
	if claimed == nil || claimed.ID != item.ID {
		t.Fatalf("unexpected claim: %+v", claimed)
	}
	if claimed.Status != types.WorkItemRunning || claimed.Attempts != 1 {
		t.Fatalf("claim state: status=%q attempts=%d", claimed.Status, claimed.Attempts)
	}

	// The item is running and fresh; nothing else is claimable.
	again, err := repo.ClaimNextRunnable(ctx, nil, testPolicy())
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if again != nil {
		t.Fatalf("claimed a running item: %+v", again)
	}

	if err := repo.Complete(ctx, nil, item.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	counts, err := repo.CountByStatus(ctx, nil)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[types.WorkItemDone] != 1 {
		t.Fatalf("done count: want=1 got=%d", counts[types.WorkItemDone])
	}
}

func TestWorkItemFailedRetryAfterDelay(t *testing.T) {
	db := newTestDB(t)
	repo := NewWorkItemRepo(db, newTestLogger(t))
	ctx := context.Background()

	item, err := repo.Enqueue(ctx, nil, uuid.New())
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := repo.ClaimNextRunnable(ctx, nil, testPolicy()); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := repo.Fail(ctx, nil, item.ID, "boom"); err != nil {
		t.Fatalf("Fail: %v", err)
	}

	// Retry delay has not elapsed yet.
	claimed, err := repo.ClaimNextRunnable(ctx, nil, testPolicy())
	if err != nil {
		t.Fatalf("claim during backoff: %v", err)
	}
	if claimed != nil {
		t.Fatalf("claimed during backoff: %+v", claimed)
	}

	// Age the failure past the delay; the item becomes runnable again.
	if err := db.Model(&types.WorkItem{}).Where("id = ?", item.ID).
		Update("last_error_at", time.Now().Add(-time.Minute)).Error; err != nil {
		t.Fatalf("age failure: %v", err)
	}
	claimed, err = repo.ClaimNextRunnable(ctx, nil, testPolicy())
	if err != nil {
		t.Fatalf("claim after backoff: %v", err)
	}
	if claimed == nil || claimed.Attempts != 2 {
		t.Fatalf("retry claim: %+v", claimed)
	}
}

func TestWorkItemAttemptCapBlocksClaims(t *testing.T) {
	db := newTestDB(t)
	repo := NewWorkItemRepo(db, newTestLogger(t))
	ctx := context.Background()

	item, err := repo.Enqueue(ctx, nil, uuid.New())
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := db.Model(&types.WorkItem{}).Where("id = ?", item.ID).
		Updates(map[string]interface{}{
			"status":        types.WorkItemFailed,
			"attempts":      3,
			"last_error_at": time.Now().Add(-time.Hour),
		}).Error; err != nil {
		t.Fatalf("exhaust attempts: %v", err)
	}

	claimed, err := repo.ClaimNextRunnable(ctx, nil, testPolicy())
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed != nil {
		t.Fatalf("claimed an exhausted item: %+v", claimed)
	}
}

func TestWorkItemDeferRefundsAttempt(t *testing.T) {
	db := newTestDB(t)
	repo := NewWorkItemRepo(db, newTestLogger(t))
	ctx := context.Background()

	item, err := repo.Enqueue(ctx, nil, uuid.New())
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := repo.ClaimNextRunnable(ctx, nil, testPolicy()); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := repo.Defer(ctx, nil, item.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Defer: %v", err)
	}

	// run_after is in the future, so the item is parked.
	claimed, err := repo.ClaimNextRunnable(ctx, nil, testPolicy())
	if err != nil {
		t.Fatalf("claim while parked: %v", err)
	}
	if claimed != nil {
		t.Fatalf("claimed a parked item: %+v", claimed)
	}

	if err := db.Model(&types.WorkItem{}).Where("id = ?", item.ID).
		Update("run_after", time.Now().Add(-time.Second)).Error; err != nil {
		t.Fatalf("unpark: %v", err)
	}
	claimed, err = repo.ClaimNextRunnable(ctx, nil, testPolicy())
	if err != nil {
		t.Fatalf("claim after unpark: %v", err)
	}
	// Defer refunded the first attempt, so this claim charges it again.
	if claimed == nil || claimed.Attempts != 1 {
		t.Fatalf("deferred claim: %+v", claimed)
	}
}

func TestWorkItemStaleRunningIsReclaimed(t *testing.T) {
	db := newTestDB(t)
	repo := NewWorkItemRepo(db, newTestLogger(t))
	ctx := context.Background()

	item, err := repo.Enqueue(ctx, nil, uuid.New())
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := repo.ClaimNextRunnable(ctx, nil, testPolicy()); err != nil {
		t.Fatalf("claim: %v", err)
	}
	// Simulate a worker that died mid-claim.
	if err := db.Model(&types.WorkItem{}).Where("id = ?", item.ID).
		Update("locked_at", time.Now().Add(-10*time.Minute)).Error; err != nil {
		t.Fatalf("age claim: %v", err)
	}

	claimed, err := repo.ClaimNextRunnable(ctx, nil, testPolicy())
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if claimed == nil || claimed.ID != item.ID || claimed.Attempts != 2 {
		t.Fatalf("stale reclaim: %+v", claimed)
	}
}

func TestWorkItemMarkDeadIsTerminal(t *testing.T) {
	repo := NewWorkItemRepo(newTestDB(t), newTestLogger(t))
	ctx := context.Background()

	item, err := repo.Enqueue(ctx, nil, uuid.New())
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := repo.MarkDead(ctx, nil, item.ID, "exhausted"); err != nil {
		t.Fatalf("MarkDead: %v", err)
	}

	claimed, err := repo.ClaimNextRunnable(ctx, nil, testPolicy())
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed != nil {
		t.Fatalf("claimed a dead item: %+v", claimed)
	}
	counts, err := repo.CountByStatus(ctx, nil)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[types.WorkItemDead] != 1 {
		t.Fatalf("dead count: want=1 got=%d", counts[types.WorkItemDead])
	}
}
