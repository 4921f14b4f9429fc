package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/leadflow-backend/internal/logger"
	"github.com/yungbote/leadflow-backend/internal/types"
)

type AutomationExecutionRepo interface {
	// Insert records one firing keyed (lead_id, rule_id, date_bucket).
	// Returns false when the rule already fired for this lead today.
	Insert(ctx context.Context, tx *gorm.DB, exec *types.AutomationExecution) (bool, error)
	ListByLead(ctx context.Context, tx *gorm.DB, leadID uuid.UUID) ([]*types.AutomationExecution, error)
}

type automationExecutionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAutomationExecutionRepo(db *gorm.DB, baseLog *logger.Logger) AutomationExecutionRepo {
	return &automationExecutionRepo{db: db, log: baseLog.With("repo", "AutomationExecutionRepo")}
}

func (r *automationExecutionRepo) Insert(ctx context.Context, tx *gorm.DB, exec *types.AutomationExecution) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if exec == nil {
		return false, nil
	}
	if exec.ID == uuid.Nil {
		exec.ID = uuid.New()
	}
	if exec.Status == "" {
		exec.Status = types.AutomationStatusExecuted
	}
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "lead_id"}, {Name: "rule_id"}, {Name: "date_bucket"}},
			DoNothing: true,
		}).
		Create(exec)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *automationExecutionRepo) ListByLead(ctx context.Context, tx *gorm.DB, leadID uuid.UUID) ([]*types.AutomationExecution, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.AutomationExecution
	if leadID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("lead_id = ?", leadID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
