package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/leadflow-backend/internal/logger"
	"github.com/yungbote/leadflow-backend/internal/types"
)

// RunnablePolicy decides which rows ClaimNextRunnable may pick up: fresh
// queued items, failed items under the attempt cap whose retry delay has
// passed, and running items whose claim looks abandoned.
type RunnablePolicy struct {
	MaxAttempts  int
	RetryDelay   time.Duration
	StaleRunning time.Duration
}

type WorkItemRepo interface {
	Enqueue(ctx context.Context, tx *gorm.DB, leadID uuid.UUID) (*types.WorkItem, error)
	// ClaimNextRunnable picks one runnable item and marks it running, using
	// SELECT ... FOR UPDATE SKIP LOCKED so concurrent consumers never fight
	// over the same row. Returns nil when nothing is runnable.
	ClaimNextRunnable(ctx context.Context, tx *gorm.DB, policy RunnablePolicy) (*types.WorkItem, error)
	Complete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	// Fail records the error and re-queues via the retry path (attempts was
	// already charged at claim time).
	Fail(ctx context.Context, tx *gorm.DB, id uuid.UUID, errMsg string) error
	// Defer re-queues without charging an attempt; used when the lead's
	// lease was held, which is contention rather than failure.
	Defer(ctx context.Context, tx *gorm.DB, id uuid.UUID, runAfter time.Time) error
	MarkDead(ctx context.Context, tx *gorm.DB, id uuid.UUID, errMsg string) error
	CountByStatus(ctx context.Context, tx *gorm.DB) (map[string]int64, error)
}

type workItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWorkItemRepo(db *gorm.DB, baseLog *logger.Logger) WorkItemRepo {
	return &workItemRepo{db: db, log: baseLog.With("repo", "WorkItemRepo")}
}

func (r *workItemRepo) Enqueue(ctx context.Context, tx *gorm.DB, leadID uuid.UUID) (*types.WorkItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if leadID == uuid.Nil {
		return nil, nil
	}
	item := &types.WorkItem{
		ID:     uuid.New(),
		LeadID: leadID,
		Status: types.WorkItemQueued,
	}
	if err := transaction.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func (r *workItemRepo) ClaimNextRunnable(ctx context.Context, tx *gorm.DB, policy RunnablePolicy) (*types.WorkItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	retryCutoff := now.Add(-policy.RetryDelay)
	staleCutoff := now.Add(-policy.StaleRunning)
	var claimed *types.WorkItem
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var item types.WorkItem
		q := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where(`
				(
					(
						status = ?
						AND (run_after IS NULL OR run_after <= ?)
					)
					OR (
						status = ?
						AND attempts < ?
						AND (last_error_at IS NULL OR last_error_at < ?)
					)
					OR (
						status = ?
						AND locked_at IS NOT NULL
						AND locked_at < ?
					)
				)
			`, types.WorkItemQueued, now,
				types.WorkItemFailed, policy.MaxAttempts, retryCutoff,
				types.WorkItemRunning, staleCutoff).
			Order("created_at ASC")
		qErr := q.First(&item).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		uErr := txx.Model(&types.WorkItem{}).
			Where("id = ?", item.ID).
			Updates(map[string]interface{}{
				"status":     types.WorkItemRunning,
				"attempts":   gorm.Expr("attempts + 1"),
				"locked_at":  now,
				"updated_at": now,
			}).Error
		if uErr != nil {
			return uErr
		}
		item.Status = types.WorkItemRunning
		item.Attempts++
		claimed = &item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *workItemRepo) Complete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return r.updateFields(ctx, tx, id, map[string]interface{}{
		"status": types.WorkItemDone,
	})
}

func (r *workItemRepo) Fail(ctx context.Context, tx *gorm.DB, id uuid.UUID, errMsg string) error {
	now := time.Now()
	return r.updateFields(ctx, tx, id, map[string]interface{}{
		"status":        types.WorkItemFailed,
		"last_error":    errMsg,
		"last_error_at": now,
	})
}

func (r *workItemRepo) Defer(ctx context.Context, tx *gorm.DB, id uuid.UUID, runAfter time.Time) error {
	return r.updateFields(ctx, tx, id, map[string]interface{}{
		"status":    types.WorkItemQueued,
		"attempts":  gorm.Expr("attempts - 1"),
		"run_after": runAfter,
	})
}

func (r *workItemRepo) MarkDead(ctx context.Context, tx *gorm.DB, id uuid.UUID, errMsg string) error {
	now := time.Now()
	return r.updateFields(ctx, tx, id, map[string]interface{}{
		"status":        types.WorkItemDead,
		"last_error":    errMsg,
		"last_error_at": now,
	})
}

func (r *workItemRepo) CountByStatus(ctx context.Context, tx *gorm.DB) (map[string]int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []struct {
		Status string
		Count  int64
	}
	if err := transaction.WithContext(ctx).
		Model(&types.WorkItem{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

func (r *workItemRepo) updateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(ctx).
		Model(&types.WorkItem{}).
		Where("id = ?", id).
		Updates(updates).Error
}
