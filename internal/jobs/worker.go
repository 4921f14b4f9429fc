package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/yungbote/leadflow-backend/internal/logger"
	"github.com/yungbote/leadflow-backend/internal/observability"
	pkgerrors "github.com/yungbote/leadflow-backend/internal/pkg/errors"
	"github.com/yungbote/leadflow-backend/internal/repos"
	"github.com/yungbote/leadflow-backend/internal/scoring"
	"github.com/yungbote/leadflow-backend/internal/types"
)

type WorkerConfig struct {
	Concurrency     int
	PollInterval    time.Duration
	MaxAttempts     int
	RetryDelay      time.Duration
	StaleRunning    time.Duration
	LeaseRetryDelay time.Duration
}

// Worker drains the work-item queue: claim an item, take the lead's lease,
// run the applier, release, then automation. Items for the same lead may be
// claimed concurrently by different consumers; the lease is what serializes
// them, not the queue.
type Worker struct {
	log         *logger.Logger
	leads       repos.LeadRepo
	queue       repos.WorkItemRepo
	deadLetters repos.DeadLetterRepo
	applier     scoring.Applier
	automation  scoring.AutomationEngine
	metrics     *observability.Metrics
	cfg         WorkerConfig
	wake        chan struct{}
}

func NewWorker(baseLog *logger.Logger, leads repos.LeadRepo, queue repos.WorkItemRepo, deadLetters repos.DeadLetterRepo, applier scoring.Applier, automation scoring.AutomationEngine, metrics *observability.Metrics, cfg WorkerConfig) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.LeaseRetryDelay <= 0 {
		cfg.LeaseRetryDelay = 5 * time.Second
	}
	return &Worker{
		log:         baseLog.With("component", "Worker"),
		leads:       leads,
		queue:       queue,
		deadLetters: deadLetters,
		applier:     applier,
		automation:  automation,
		metrics:     metrics,
		cfg:         cfg,
		wake:        make(chan struct{}, 1),
	}
}

// Wake nudges the consumers to poll immediately. Safe from any goroutine;
// the work bus forwarder calls it on every published lead id.
func (w *Worker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Worker) Start(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < w.cfg.Concurrency; i++ {
		consumer := i
		g.Go(func() error {
			w.consume(gctx, consumer)
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		w.log.Info("All queue consumers stopped")
	}()
}

func (w *Worker) consume(ctx context.Context, consumer int) {
	log := w.log.With("consumer", consumer)
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-w.wake:
		}
		w.drain(ctx, log)
	}
}

// drain claims until the queue has nothing runnable, so a burst is worked
// off without waiting out the poll interval between items.
func (w *Worker) drain(ctx context.Context, log *logger.Logger) {
	policy := repos.RunnablePolicy{
		MaxAttempts:  w.cfg.MaxAttempts,
		RetryDelay:   w.cfg.RetryDelay,
		StaleRunning: w.cfg.StaleRunning,
	}
	for {
		if ctx.Err() != nil {
			return
		}
		item, err := w.queue.ClaimNextRunnable(ctx, nil, policy)
		if err != nil {
			log.Warn("ClaimNextRunnable failed", "error", err)
			return
		}
		if item == nil {
			return
		}
		w.processItem(ctx, log, item)
	}
}

func (w *Worker) processItem(ctx context.Context, log *logger.Logger, item *types.WorkItem) {
	log = log.With("work_item_id", item.ID, "lead_id", item.LeadID, "attempt", item.Attempts)

	result, err := w.applyWithLease(ctx, log, item.LeadID)
	if errors.Is(err, pkgerrors.ErrLeaseHeld) {
		// Not a failure: another worker owns the lead right now. Hand the
		// item back with a delay instead of burning an attempt.
		w.metrics.LeaseContended()
		log.Debug("Lead lease contended, deferring work item")
		if dErr := w.queue.Defer(ctx, nil, item.ID, time.Now().Add(w.cfg.LeaseRetryDelay)); dErr != nil {
			log.Error("Defer failed", "error", dErr)
		}
		return
	}
	if err != nil {
		w.metrics.WorkItemFailed()
		log.Error("Work item attempt failed", "error", err)
		if item.Attempts >= w.cfg.MaxAttempts {
			w.deadLetter(ctx, log, item, err)
			return
		}
		if fErr := w.queue.Fail(ctx, nil, item.ID, err.Error()); fErr != nil {
			log.Error("Fail update failed", "error", fErr)
		}
		return
	}

	// Scoring is done and the lease is released; everything past here is
	// best-effort and must not fail the item.
	if result.Processed > 0 {
		w.metrics.EventsApplied(result.Processed)
		w.metrics.LedgerDuplicatesSkipped(result.DuplicatesSkipped)
		if w.automation != nil {
			lead := &types.Lead{ID: item.LeadID}
			fired := w.automation.Evaluate(ctx, lead, result.Stage, result.Velocity)
			if fired > 0 {
				log.Debug("Automation rules fired", "fired", fired)
			}
		}
	}
	if result.More {
		if _, eErr := w.queue.Enqueue(ctx, nil, item.LeadID); eErr != nil {
			log.Warn("Re-enqueue for remaining backlog failed", "error", eErr)
		}
	}
	if cErr := w.queue.Complete(ctx, nil, item.ID); cErr != nil {
		log.Error("Complete update failed", "error", cErr)
		return
	}
	w.metrics.WorkItemCompleted()
}

// applyWithLease is the scoped acquisition: the lease is released on every
// exit path, including panics, and final lead fields are written only when
// the applier finished cleanly.
func (w *Worker) applyWithLease(ctx context.Context, log *logger.Logger, leadID uuid.UUID) (result *scoring.ApplyResult, err error) {
	lead, err := w.leads.AcquireLease(ctx, nil, leadID)
	if err != nil {
		return nil, fmt.Errorf("acquire lease: %w", err)
	}
	if lead == nil {
		return nil, pkgerrors.ErrLeaseHeld
	}

	var releaseFields map[string]interface{}
	defer func() {
		if r := recover(); r != nil {
			releaseFields = nil
			err = fmt.Errorf("panic in applier: %v", r)
		}
		// Release must not die with a cancelled request context; a stuck
		// lease would wait out the recovery sweep for no reason.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if rErr := w.leads.ReleaseLease(releaseCtx, nil, leadID, releaseFields); rErr != nil {
			log.Error("Lease release failed", "error", rErr)
		}
	}()

	result, err = w.applier.Apply(ctx, lead)
	if err != nil {
		// Partial progress is already safe (ledger constraint + consumed
		// flag); release unmutated and let the queue retry the lead.
		return nil, fmt.Errorf("apply backlog: %w", err)
	}
	if result.Processed > 0 {
		releaseFields = map[string]interface{}{
			"score":           result.FinalScore,
			"stage":           result.Stage,
			"events_last_24h": result.EventsLast24h,
			"last_event_at":   time.Now(),
		}
	}
	return result, nil
}

func (w *Worker) deadLetter(ctx context.Context, log *logger.Logger, item *types.WorkItem, cause error) {
	w.metrics.WorkItemDeadLettered()
	log.Error("Work item exhausted retries, dead-lettering", "attempts", item.Attempts, "error", cause)
	if mErr := w.queue.MarkDead(ctx, nil, item.ID, cause.Error()); mErr != nil {
		log.Error("MarkDead failed", "error", mErr)
	}
	payload, _ := json.Marshal(map[string]interface{}{"lead_id": item.LeadID})
	if _, dErr := w.deadLetters.Create(ctx, nil, &types.DeadLetter{
		WorkItemID: item.ID,
		LeadID:     item.LeadID,
		Payload:    datatypes.JSON(payload),
		Error:      cause.Error(),
		Attempts:   item.Attempts,
		FailedAt:   time.Now(),
	}); dErr != nil {
		log.Error("Dead letter insert failed", "error", dErr)
	}
}
