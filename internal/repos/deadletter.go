package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/leadflow-backend/internal/logger"
	"github.com/yungbote/leadflow-backend/internal/types"
)

type DeadLetterRepo interface {
	Create(ctx context.Context, tx *gorm.DB, record *types.DeadLetter) (*types.DeadLetter, error)
	List(ctx context.Context, tx *gorm.DB, limit int) ([]*types.DeadLetter, error)
}

type deadLetterRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDeadLetterRepo(db *gorm.DB, baseLog *logger.Logger) DeadLetterRepo {
	return &deadLetterRepo{db: db, log: baseLog.With("repo", "DeadLetterRepo")}
}

func (r *deadLetterRepo) Create(ctx context.Context, tx *gorm.DB, record *types.DeadLetter) (*types.DeadLetter, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if record == nil {
		return nil, nil
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (r *deadLetterRepo) List(ctx context.Context, tx *gorm.DB, limit int) ([]*types.DeadLetter, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.DeadLetter
	q := transaction.WithContext(ctx).Order("failed_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
