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

type AutomationRuleRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rule *types.AutomationRule) (*types.AutomationRule, error)
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.AutomationRule, error)
	ListEnabled(ctx context.Context, tx *gorm.DB) ([]*types.AutomationRule, error)
	Upsert(ctx context.Context, tx *gorm.DB, rule *types.AutomationRule) error
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type automationRuleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAutomationRuleRepo(db *gorm.DB, baseLog *logger.Logger) AutomationRuleRepo {
	return &automationRuleRepo{db: db, log: baseLog.With("repo", "AutomationRuleRepo")}
}

func (r *automationRuleRepo) Create(ctx context.Context, tx *gorm.DB, rule *types.AutomationRule) (*types.AutomationRule, error) {
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

func (r *automationRuleRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.AutomationRule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.AutomationRule
	if err := transaction.WithContext(ctx).
		Order("name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *automationRuleRepo) ListEnabled(ctx context.Context, tx *gorm.DB) ([]*types.AutomationRule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.AutomationRule
	if err := transaction.WithContext(ctx).
		Where("enabled = ?", true).
		Order("name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *automationRuleRepo) Upsert(ctx context.Context, tx *gorm.DB, rule *types.AutomationRule) error {
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
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"when_stage", "min_velocity", "action", "enabled", "updated_at"}),
		}).
		Create(rule).Error
}

func (r *automationRuleRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.AutomationRule{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *automationRuleRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.AutomationRule{}).Error
}
