package scoring

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/leadflow-backend/internal/logger"
	"github.com/yungbote/leadflow-backend/internal/repos"
	"github.com/yungbote/leadflow-backend/internal/types"
)

// ApplyResult is what one applier pass produced. Processed == 0 means the
// backlog was empty and the caller should release the lease with no field
// changes. More means the backlog was cut at the batch limit and the lead
// should be re-enqueued.
type ApplyResult struct {
	Processed         int
	InitialScore      float64
	FinalScore        float64
	Stage             string
	Velocity          int
	EventsLast24h     int
	DuplicatesSkipped int64
	More              bool
}

// Applier drains a lead's backlog in event-time order under a lease the
// caller holds. It owns steps load-sort-apply-ledger-consume; the caller
// owns lease release on every exit path.
type Applier interface {
	Apply(ctx context.Context, lead *types.Lead) (*ApplyResult, error)
}

type applier struct {
	log        *logger.Logger
	events     repos.LeadEventRepo
	ledger     repos.ScoreLedgerRepo
	rules      *RuleCache
	deriver    *Deriver
	batchLimit int
}

func NewApplier(baseLog *logger.Logger, events repos.LeadEventRepo, ledger repos.ScoreLedgerRepo, rules *RuleCache, deriver *Deriver, batchLimit int) Applier {
	return &applier{
		log:        baseLog.With("component", "Applier"),
		events:     events,
		ledger:     ledger,
		rules:      rules,
		deriver:    deriver,
		batchLimit: batchLimit,
	}
}

func (a *applier) Apply(ctx context.Context, lead *types.Lead) (*ApplyResult, error) {
	if lead == nil {
		return &ApplyResult{}, nil
	}
	log := a.log.With("lead_id", lead.ID)

	// The ledger is authoritative; the lead's score column is a cache of
	// its tail. A crash after ledger writes but before the lead update
	// heals here on the next pass.
	startScore := lead.Score
	if tail, err := a.ledger.GetLatest(ctx, nil, lead.ID); err != nil {
		return nil, err
	} else if tail != nil {
		startScore = tail.ScoreAfter
	}

	backlog, err := a.events.ListUnconsumed(ctx, nil, lead.ID, a.batchLimit)
	if err != nil {
		return nil, err
	}
	if len(backlog) == 0 {
		return &ApplyResult{InitialScore: startScore, FinalScore: startScore}, nil
	}

	// A crash between the ledger write and MarkConsumed leaves events that
	// are unconsumed but already applied. Their deltas live in the tail, so
	// they are excluded from the chain and only re-marked consumed.
	eventIDs := make([]string, 0, len(backlog))
	for _, event := range backlog {
		eventIDs = append(eventIDs, event.EventID)
	}
	applied, err := a.ledger.AppliedEventIDs(ctx, nil, lead.ID, eventIDs)
	if err != nil {
		return nil, err
	}

	// Ordered by occurred_at: a late-arriving event with an earlier
	// timestamp is applied before events that arrived sooner but occurred
	// later. applied_at steps by a microsecond per entry so the tail read
	// stays deterministic within one batch.
	now := time.Now()
	entries := make([]*types.ScoreLedgerEntry, 0, len(backlog))
	score := startScore
	var skipped int64
	for _, event := range backlog {
		if applied[event.EventID] {
			skipped++
			continue
		}
		delta := a.rules.Delta(event.Type)
		entries = append(entries, &types.ScoreLedgerEntry{
			LeadID:      lead.ID,
			EventID:     event.EventID,
			ScoreBefore: score,
			ScoreAfter:  score + delta,
			Delta:       delta,
			AppliedAt:   now.Add(time.Duration(len(entries)) * time.Microsecond),
		})
		score += delta
	}
	if skipped > 0 {
		// Replay of an interrupted pass; the tail already covers these.
		log.Debug("Backlog contained already-ledgered events", "skipped", skipped)
	}

	if len(entries) > 0 {
		inserted, err := a.ledger.CreateBatch(ctx, nil, entries)
		if err != nil {
			return nil, err
		}
		if constraintSkipped := int64(len(entries)) - inserted; constraintSkipped > 0 {
			// The unique constraint caught writes the pre-check missed.
			// Cannot happen while the lease holds; fall back to the tail
			// rather than trust the locally accumulated score.
			skipped += constraintSkipped
			log.Warn("Ledger batch lost rows to the unique constraint", "skipped", constraintSkipped, "inserted", inserted)
			if tail, err := a.ledger.GetLatest(ctx, nil, lead.ID); err != nil {
				return nil, err
			} else if tail != nil {
				score = tail.ScoreAfter
			}
		}
	}

	ids := make([]uuid.UUID, 0, len(backlog))
	for _, event := range backlog {
		ids = append(ids, event.ID)
	}
	if err := a.events.MarkConsumed(ctx, nil, ids); err != nil {
		return nil, err
	}

	count24h, err := a.events.CountConsumedSince(ctx, nil, lead.ID, now.Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}

	result := &ApplyResult{
		Processed:         len(backlog),
		InitialScore:      startScore,
		FinalScore:        score,
		Stage:             a.deriver.Stage(score),
		Velocity:          a.deriver.Velocity(int(count24h)),
		EventsLast24h:     int(count24h),
		DuplicatesSkipped: skipped,
		More:              a.batchLimit > 0 && len(backlog) == a.batchLimit,
	}
	log.Info("Applied event backlog",
		"processed", result.Processed,
		"score_before", result.InitialScore,
		"score_after", result.FinalScore,
		"stage", result.Stage,
		"more", result.More,
	)
	return result, nil
}
