package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/leadflow-backend/internal/logger"
	pkgerrors "github.com/yungbote/leadflow-backend/internal/pkg/errors"
	"github.com/yungbote/leadflow-backend/internal/repos"
	"github.com/yungbote/leadflow-backend/internal/types"
)

// WorkBus wakes queue consumers when new work lands. Optional; consumers
// poll regardless, the bus just shortens the pickup latency.
type WorkBus interface {
	PublishWork(ctx context.Context, leadID uuid.UUID) error
}

type IngestInput struct {
	EventID    string
	LeadID     uuid.UUID
	Name       string
	Email      string
	Type       string
	OccurredAt time.Time
	Metadata   map[string]interface{}
}

type IngestResult struct {
	LeadID    uuid.UUID
	Duplicate bool
}

// IngestService is the ingestion boundary: store the event with
// consumed=false, create the lead on first sight, hand the queue a work
// item. No scoring happens here.
type IngestService interface {
	Ingest(ctx context.Context, input IngestInput) (*IngestResult, error)
}

type ingestService struct {
	log    *logger.Logger
	leads  repos.LeadRepo
	events repos.LeadEventRepo
	queue  repos.WorkItemRepo
	bus    WorkBus
}

func NewIngestService(baseLog *logger.Logger, leads repos.LeadRepo, events repos.LeadEventRepo, queue repos.WorkItemRepo, bus WorkBus) IngestService {
	return &ingestService{
		log:    baseLog.With("service", "IngestService"),
		leads:  leads,
		events: events,
		queue:  queue,
		bus:    bus,
	}
}

func (s *ingestService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	if input.EventID == "" {
		return nil, fmt.Errorf("event_id is required: %w", pkgerrors.ErrInvalidArgument)
	}
	if input.Type == "" {
		return nil, fmt.Errorf("type is required: %w", pkgerrors.ErrInvalidArgument)
	}
	leadID := input.LeadID
	if leadID == uuid.Nil {
		leadID = uuid.New()
	}
	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	lead, err := s.leads.GetOrCreate(ctx, nil, &types.Lead{
		ID:    leadID,
		Name:  input.Name,
		Email: input.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("get-or-create lead: %w", err)
	}

	var metadata datatypes.JSON
	if len(input.Metadata) > 0 {
		raw, mErr := json.Marshal(input.Metadata)
		if mErr != nil {
			return nil, fmt.Errorf("encode metadata: %w", mErr)
		}
		metadata = datatypes.JSON(raw)
	}

	created, err := s.events.Insert(ctx, nil, &types.LeadEvent{
		EventID:    input.EventID,
		LeadID:     lead.ID,
		Type:       input.Type,
		OccurredAt: occurredAt,
		Metadata:   metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	if !created {
		s.log.Debug("Duplicate event submission", "event_id", input.EventID, "lead_id", lead.ID)
		return &IngestResult{LeadID: lead.ID, Duplicate: true}, nil
	}

	if _, err := s.queue.Enqueue(ctx, nil, lead.ID); err != nil {
		return nil, fmt.Errorf("enqueue work item: %w", err)
	}
	if s.bus != nil {
		if bErr := s.bus.PublishWork(ctx, lead.ID); bErr != nil {
			s.log.Warn("Work bus publish failed", "lead_id", lead.ID, "error", bErr)
		}
	}
	return &IngestResult{LeadID: lead.ID}, nil
}
