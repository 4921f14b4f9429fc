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

type ScoringRuleRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rule *types.ScoringRule) (*types.ScoringRule, error)
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.ScoringRule, error)
	// Upsert writes the rule keyed by event_type; used by the seed loader.
	Upsert(ctx context.Context, tx *gorm.DB, rule *types.ScoringRule) error
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type scoringRuleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScoringRuleRepo(db *gorm.DB, baseLog *logger.Logger) ScoringRuleRepo {
	return &scoringRuleRepo{db: db, log: baseLog.With("repo", "ScoringRuleRepo")}
}

func (r *scoringRuleRepo) Create(ctx context.Context, tx *gorm.DB, rule *types.ScoringRule) (*types.ScoringRule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if rule == nil {
		return nil, nil
	}
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(rule).Error; err != nil {
		return nil, err
	}
	return rule, nil
}

func (r *scoringRuleRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.ScoringRule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ScoringRule
	if err := transaction.WithContext(ctx).
		Order("event_type ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *scoringRuleRepo) Upsert(ctx context.Context, tx *gorm.DB, rule *types.ScoringRule) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if rule == nil {
		return nil
	}
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_type"}},
			DoUpdates: clause.AssignmentColumns([]string{"points", "updated_at"}),
		}).
		Create(rule).Error
}

func (r *scoringRuleRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(ctx).
		Model(&types.ScoringRule{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *scoringRuleRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.ScoringRule{}).Error
}
