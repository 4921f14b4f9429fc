package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/leadflow-backend/internal/logger"
	"github.com/yungbote/leadflow-backend/internal/types"
)

type LeadEventRepo interface {
	// Insert stores an event unless its event_id was already seen. Returns
	// false when the row was a duplicate submission.
	Insert(ctx context.Context, tx *gorm.DB, event *types.LeadEvent) (bool, error)
	// ListUnconsumed returns the lead's backlog ordered by event time
	// ascending, explicitly not by arrival order. limit <= 0 means no cap.
	ListUnconsumed(ctx context.Context, tx *gorm.DB, leadID uuid.UUID, limit int) ([]*types.LeadEvent, error)
	MarkConsumed(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
	CountConsumedSince(ctx context.Context, tx *gorm.DB, leadID uuid.UUID, since time.Time) (int64, error)
}

type leadEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLeadEventRepo(db *gorm.DB, baseLog *logger.Logger) LeadEventRepo {
	return &leadEventRepo{db: db, log: baseLog.With("repo", "LeadEventRepo")}
}

func (r *leadEventRepo) Insert(ctx context.Context, tx *gorm.DB, event *types.LeadEvent) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if event == nil {
		return false, nil
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).
		Create(event)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *leadEventRepo) ListUnconsumed(ctx context.Context, tx *gorm.DB, leadID uuid.UUID, limit int) ([]*types.LeadEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.LeadEvent
	if leadID == uuid.Nil {
		return results, nil
	}
	q := transaction.WithContext(ctx).
		Where("lead_id = ? AND consumed = ?", leadID, false).
		Order("occurred_at ASC, created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *leadEventRepo) MarkConsumed(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.LeadEvent{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"consumed":   true,
			"updated_at": time.Now(),
		}).Error
}

func (r *leadEventRepo) CountConsumedSince(ctx context.Context, tx *gorm.DB, leadID uuid.UUID, since time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if leadID == uuid.Nil {
		return 0, nil
	}
	var count int64
	err := transaction.WithContext(ctx).
		Model(&types.LeadEvent{}).
		Where("lead_id = ? AND consumed = ? AND occurred_at >= ?", leadID, true, since).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
