package scoring

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/leadflow-backend/internal/logger"
	"github.com/yungbote/leadflow-backend/internal/repos"
	"github.com/yungbote/leadflow-backend/internal/types"
)

func newTestLogger(t interface{ Fatalf(string, ...interface{}) }) *logger.Logger {
	log, err := logger.New("production")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

type fakeScoringRuleRepo struct {
	rules   []*types.ScoringRule
	listErr error
	upserts []*types.ScoringRule
}

func (f *fakeScoringRuleRepo) Create(ctx context.Context, tx *gorm.DB, rule *types.ScoringRule) (*types.ScoringRule, error) {
	f.rules = append(f.rules, rule)
	return rule, nil
}

func (f *fakeScoringRuleRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.ScoringRule, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.rules, nil
}

func (f *fakeScoringRuleRepo) Upsert(ctx context.Context, tx *gorm.DB, rule *types.ScoringRule) error {
	f.upserts = append(f.upserts, rule)
	return nil
}

func (f *fakeScoringRuleRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	return nil
}

func (f *fakeScoringRuleRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return nil
}

type fakeAutomationRuleRepo struct {
	rules   []*types.AutomationRule
	listErr error
	upserts []*types.AutomationRule
}

func (f *fakeAutomationRuleRepo) Create(ctx context.Context, tx *gorm.DB, rule *types.AutomationRule) (*types.AutomationRule, error) {
	f.rules = append(f.rules, rule)
	return rule, nil
}

func (f *fakeAutomationRuleRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.AutomationRule, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.rules, nil
}

func (f *fakeAutomationRuleRepo) ListEnabled(ctx context.Context, tx *gorm.DB) ([]*types.AutomationRule, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var enabled []*types.AutomationRule
	for _, r := range f.rules {
		if r.Enabled {
			enabled = append(enabled, r)
		}
	}
	return enabled, nil
}

func (f *fakeAutomationRuleRepo) Upsert(ctx context.Context, tx *gorm.DB, rule *types.AutomationRule) error {
	f.upserts = append(f.upserts, rule)
	return nil
}

func (f *fakeAutomationRuleRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	return nil
}

func (f *fakeAutomationRuleRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return nil
}

type fakeLeadRepo struct {
	leads map[uuid.UUID]*types.Lead
}

func newFakeLeadRepo() *fakeLeadRepo {
	return &fakeLeadRepo{leads: map[uuid.UUID]*types.Lead{}}
}

func (f *fakeLeadRepo) GetOrCreate(ctx context.Context, tx *gorm.DB, lead *types.Lead) (*types.Lead, error) {
	if existing, ok := f.leads[lead.ID]; ok {
		return existing, nil
	}
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	f.leads[lead.ID] = lead
	return lead, nil
}

func (f *fakeLeadRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Lead, error) {
	return f.leads[id], nil
}

func (f *fakeLeadRepo) AcquireLease(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Lead, error) {
	lead, ok := f.leads[id]
	if !ok || lead.LeaseHeld {
		return nil, nil
	}
	lead.LeaseHeld = true
	return lead, nil
}

func (f *fakeLeadRepo) ReleaseLease(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	if lead, ok := f.leads[id]; ok {
		lead.LeaseHeld = false
	}
	return nil
}

func (f *fakeLeadRepo) ReclaimStaleLeases(ctx context.Context, tx *gorm.DB, ttl time.Duration) (int64, error) {
	return 0, nil
}

func (f *fakeLeadRepo) DecayInactive(ctx context.Context, tx *gorm.DB, window time.Duration, factor float64, thresholds repos.StageThresholds) (int64, error) {
	return 0, nil
}

type fakeLeadEventRepo struct {
	events    []*types.LeadEvent
	insertErr error
}

func (f *fakeLeadEventRepo) Insert(ctx context.Context, tx *gorm.DB, event *types.LeadEvent) (bool, error) {
	if f.insertErr != nil {
		return false, f.insertErr
	}
	for _, e := range f.events {
		if e.EventID == event.EventID {
			return false, nil
		}
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	f.events = append(f.events, event)
	return true, nil
}

func (f *fakeLeadEventRepo) ListUnconsumed(ctx context.Context, tx *gorm.DB, leadID uuid.UUID, limit int) ([]*types.LeadEvent, error) {
	var backlog []*types.LeadEvent
	for _, e := range f.events {
		if e.LeadID == leadID && !e.Consumed {
			backlog = append(backlog, e)
		}
	}
	sort.SliceStable(backlog, func(i, j int) bool {
		return backlog[i].OccurredAt.Before(backlog[j].OccurredAt)
	})
	if limit > 0 && len(backlog) > limit {
		backlog = backlog[:limit]
	}
	return backlog, nil
}

func (f *fakeLeadEventRepo) MarkConsumed(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	set := map[uuid.UUID]bool{}
	for _, id := range ids {
		set[id] = true
	}
	for _, e := range f.events {
		if set[e.ID] {
			e.Consumed = true
		}
	}
	return nil
}

func (f *fakeLeadEventRepo) CountConsumedSince(ctx context.Context, tx *gorm.DB, leadID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	for _, e := range f.events {
		if e.LeadID == leadID && e.Consumed && !e.OccurredAt.Before(since) {
			count++
		}
	}
	return count, nil
}

type fakeLedgerRepo struct {
	tail    *types.ScoreLedgerEntry
	seen    map[string]bool
	entries []*types.ScoreLedgerEntry
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{seen: map[string]bool{}}
}

func (f *fakeLedgerRepo) CreateBatch(ctx context.Context, tx *gorm.DB, entries []*types.ScoreLedgerEntry) (int64, error) {
	var inserted int64
	for _, e := range entries {
		key := e.LeadID.String() + "/" + e.EventID
		if f.seen[key] {
			continue
		}
		f.seen[key] = true
		f.entries = append(f.entries, e)
		inserted++
	}
	return inserted, nil
}

func (f *fakeLedgerRepo) GetLatest(ctx context.Context, tx *gorm.DB, leadID uuid.UUID) (*types.ScoreLedgerEntry, error) {
	if len(f.entries) > 0 {
		return f.entries[len(f.entries)-1], nil
	}
	return f.tail, nil
}

func (f *fakeLedgerRepo) AppliedEventIDs(ctx context.Context, tx *gorm.DB, leadID uuid.UUID, eventIDs []string) (map[string]bool, error) {
	applied := map[string]bool{}
	for _, id := range eventIDs {
		if f.seen[leadID.String()+"/"+id] {
			applied[id] = true
		}
	}
	return applied, nil
}

func (f *fakeLedgerRepo) ListByLead(ctx context.Context, tx *gorm.DB, leadID uuid.UUID) ([]*types.ScoreLedgerEntry, error) {
	return f.entries, nil
}

type fakeWorkItemQueue struct {
	enqueued []uuid.UUID
}

func (f *fakeWorkItemQueue) Enqueue(ctx context.Context, tx *gorm.DB, leadID uuid.UUID) (*types.WorkItem, error) {
	f.enqueued = append(f.enqueued, leadID)
	return &types.WorkItem{ID: uuid.New(), LeadID: leadID, Status: types.WorkItemQueued}, nil
}

func (f *fakeWorkItemQueue) ClaimNextRunnable(ctx context.Context, tx *gorm.DB, policy repos.RunnablePolicy) (*types.WorkItem, error) {
	return nil, nil
}

func (f *fakeWorkItemQueue) Complete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return nil
}

func (f *fakeWorkItemQueue) Fail(ctx context.Context, tx *gorm.DB, id uuid.UUID, errMsg string) error {
	return nil
}

func (f *fakeWorkItemQueue) Defer(ctx context.Context, tx *gorm.DB, id uuid.UUID, runAfter time.Time) error {
	return nil
}

func (f *fakeWorkItemQueue) MarkDead(ctx context.Context, tx *gorm.DB, id uuid.UUID, errMsg string) error {
	return nil
}

func (f *fakeWorkItemQueue) CountByStatus(ctx context.Context, tx *gorm.DB) (map[string]int64, error) {
	return map[string]int64{}, nil
}

type fakeExecRepo struct {
	inserts   []*types.AutomationExecution
	seen      map[string]bool
	insertErr error
}

func newFakeExecRepo() *fakeExecRepo {
	return &fakeExecRepo{seen: map[string]bool{}}
}

func (f *fakeExecRepo) Insert(ctx context.Context, tx *gorm.DB, exec *types.AutomationExecution) (bool, error) {
	if f.insertErr != nil {
		return false, f.insertErr
	}
	key := exec.LeadID.String() + "/" + exec.RuleID.String() + "/" + exec.DateBucket
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	f.inserts = append(f.inserts, exec)
	return true, nil
}

func (f *fakeExecRepo) ListByLead(ctx context.Context, tx *gorm.DB, leadID uuid.UUID) ([]*types.AutomationExecution, error) {
	return f.inserts, nil
}

type fakeWorkBus struct {
	published []uuid.UUID
	err       error
}

func (f *fakeWorkBus) PublishWork(ctx context.Context, leadID uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, leadID)
	return nil
}
