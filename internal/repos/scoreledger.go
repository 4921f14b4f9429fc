package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/leadflow-backend/internal/logger"
	"github.com/yungbote/leadflow-backend/internal/types"
)

type ScoreLedgerRepo interface {
	// CreateBatch inserts entries, skipping any whose (lead_id, event_id)
	// already exists. The skip is the engine's idempotency boundary: a
	// re-delivered window lands here and silently drops out. Returns the
	// number of rows actually inserted.
	CreateBatch(ctx context.Context, tx *gorm.DB, entries []*types.ScoreLedgerEntry) (int64, error)
	// GetLatest returns the lead's most recent entry, or nil when the lead
	// has no ledger yet. Its score_after is the authoritative score.
	GetLatest(ctx context.Context, tx *gorm.DB, leadID uuid.UUID) (*types.ScoreLedgerEntry, error)
	// AppliedEventIDs reports which of the given event ids already have a
	// ledger entry for the lead. A replayed pass uses it to keep
	// already-applied deltas out of its score chain.
	AppliedEventIDs(ctx context.Context, tx *gorm.DB, leadID uuid.UUID, eventIDs []string) (map[string]bool, error)
	ListByLead(ctx context.Context, tx *gorm.DB, leadID uuid.UUID) ([]*types.ScoreLedgerEntry, error)
}

type scoreLedgerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScoreLedgerRepo(db *gorm.DB, baseLog *logger.Logger) ScoreLedgerRepo {
	return &scoreLedgerRepo{db: db, log: baseLog.With("repo", "ScoreLedgerRepo")}
}

func (r *scoreLedgerRepo) CreateBatch(ctx context.Context, tx *gorm.DB, entries []*types.ScoreLedgerEntry) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(entries) == 0 {
		return 0, nil
	}
	for _, e := range entries {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
	}
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "lead_id"}, {Name: "event_id"}},
			DoNothing: true,
		}).
		Create(&entries)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *scoreLedgerRepo) GetLatest(ctx context.Context, tx *gorm.DB, leadID uuid.UUID) (*types.ScoreLedgerEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if leadID == uuid.Nil {
		return nil, nil
	}
	var entry types.ScoreLedgerEntry
	err := transaction.WithContext(ctx).
		Where("lead_id = ?", leadID).
		Order("applied_at DESC, created_at DESC").
		Limit(1).
		Find(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.ID == uuid.Nil {
		return nil, nil
	}
	return &entry, nil
}

func (r *scoreLedgerRepo) AppliedEventIDs(ctx context.Context, tx *gorm.DB, leadID uuid.UUID, eventIDs []string) (map[string]bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	applied := map[string]bool{}
	if leadID == uuid.Nil || len(eventIDs) == 0 {
		return applied, nil
	}
	var existing []string
	if err := transaction.WithContext(ctx).
		Model(&types.ScoreLedgerEntry{}).
		Where("lead_id = ? AND event_id IN ?", leadID, eventIDs).
		Pluck("event_id", &existing).Error; err != nil {
		return nil, err
	}
	for _, id := range existing {
		applied[id] = true
	}
	return applied, nil
}

func (r *scoreLedgerRepo) ListByLead(ctx context.Context, tx *gorm.DB, leadID uuid.UUID) ([]*types.ScoreLedgerEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ScoreLedgerEntry
	if leadID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("lead_id = ?", leadID).
		Order("applied_at ASC, created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
