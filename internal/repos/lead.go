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

// StageThresholds is the configured score-to-stage contract. Decay needs it
// in SQL form, so it travels with the repo calls instead of being hard-coded
// policy.
type StageThresholds struct {
	QualifiedMin float64
	HotMin       float64
	WarmMin      float64
}

type LeadRepo interface {
	GetOrCreate(ctx context.Context, tx *gorm.DB, lead *types.Lead) (*types.Lead, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Lead, error)
	// AcquireLease flips lease_held false->true in one conditional update.
	// Returns nil (no error) when another holder is active.
	AcquireLease(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Lead, error)
	// ReleaseLease clears the lease and applies any final field updates in
	// the same write. Callers run it on every exit path.
	ReleaseLease(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
	// ReclaimStaleLeases clears leases whose last write is older than ttl.
	// Same conditional-update primitive as AcquireLease, so it cannot race a
	// live worker into a double grant.
	ReclaimStaleLeases(ctx context.Context, tx *gorm.DB, ttl time.Duration) (int64, error)
	// DecayInactive discounts the score of leads idle past window and
	// recomputes stage in the same statement. Lease-free by design.
	DecayInactive(ctx context.Context, tx *gorm.DB, window time.Duration, factor float64, thresholds StageThresholds) (int64, error)
}

type leadRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLeadRepo(db *gorm.DB, baseLog *logger.Logger) LeadRepo {
	return &leadRepo{db: db, log: baseLog.With("repo", "LeadRepo")}
}

func (r *leadRepo) GetOrCreate(ctx context.Context, tx *gorm.DB, lead *types.Lead) (*types.Lead, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if lead == nil {
		return nil, nil
	}
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	if lead.Stage == "" {
		lead.Stage = types.StageCold
	}
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		Create(lead).Error; err != nil {
		return nil, err
	}
	return r.GetByID(ctx, transaction, lead.ID)
}

func (r *leadRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Lead, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var lead types.Lead
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&lead).Error
	if err != nil {
		return nil, err
	}
	if lead.ID == uuid.Nil {
		return nil, nil
	}
	return &lead, nil
}

func (r *leadRepo) AcquireLease(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Lead, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	now := time.Now()
	res := transaction.WithContext(ctx).
		Model(&types.Lead{}).
		Where("id = ? AND lease_held = ?", id, false).
		Updates(map[string]interface{}{
			"lease_held": true,
			"updated_at": now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Either the lead does not exist or another worker holds the lease.
		// Both mean "not now" to the caller.
		r.log.Debug("Lease acquisition contended", "lead_id", id)
		return nil, nil
	}
	return r.GetByID(ctx, transaction, id)
}

func (r *leadRepo) ReleaseLease(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	updates := map[string]interface{}{}
	for k, v := range fields {
		updates[k] = v
	}
	updates["lease_held"] = false
	updates["updated_at"] = time.Now()
	return transaction.WithContext(ctx).
		Model(&types.Lead{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *leadRepo) ReclaimStaleLeases(ctx context.Context, tx *gorm.DB, ttl time.Duration) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	cutoff := time.Now().Add(-ttl)
	res := transaction.WithContext(ctx).
		Model(&types.Lead{}).
		Where("lease_held = ? AND updated_at < ?", true, cutoff).
		Updates(map[string]interface{}{
			"lease_held": false,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *leadRepo) DecayInactive(ctx context.Context, tx *gorm.DB, window time.Duration, factor float64, thresholds StageThresholds) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	cutoff := time.Now().Add(-window)
	// Single statement so each row's score and stage move together. SET
	// expressions see the pre-update score, so the CASE discounts the same
	// value the score assignment does. updated_at is the lease-staleness
	// clock and stays untouched: decaying a lead with a crashed holder's
	// lease must not push back its reclaim.
	res := transaction.WithContext(ctx).Exec(`
		UPDATE "lead"
		SET score = score * ?,
		    stage = CASE
		      WHEN score * ? >= ? THEN 'qualified'
		      WHEN score * ? >= ? THEN 'hot'
		      WHEN score * ? >= ? THEN 'warm'
		      ELSE 'cold'
		    END
		WHERE last_event_at IS NOT NULL
		  AND last_event_at < ?
		  AND score > 0
		  AND deleted_at IS NULL
	`, factor,
		factor, thresholds.QualifiedMin,
		factor, thresholds.HotMin,
		factor, thresholds.WarmMin,
		cutoff)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
