package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/leadflow-backend/internal/observability"
	pkgerrors "github.com/yungbote/leadflow-backend/internal/pkg/errors"
	"github.com/yungbote/leadflow-backend/internal/scoring"
)

type EventHandler struct {
	ingest  scoring.IngestService
	metrics *observability.Metrics
}

func NewEventHandler(ingest scoring.IngestService, metrics *observability.Metrics) *EventHandler {
	return &EventHandler{ingest: ingest, metrics: metrics}
}

// Ingest accepts one behavioral event. The response is always asynchronous
// from the scoring engine's perspective: 202 means "stored and queued",
// never "scored".
func (eh *EventHandler) Ingest(c *gin.Context) {
	var req struct {
		EventID   string                 `json:"event_id"`
		LeadID    string                 `json:"lead_id"`
		Name      string                 `json:"name"`
		Email     string                 `json:"email"`
		Type      string                 `json:"type"`
		Timestamp *time.Time             `json:"timestamp"`
		Metadata  map[string]interface{} `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	var leadID uuid.UUID
	if req.LeadID != "" {
		parsed, err := uuid.Parse(req.LeadID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "lead_id must be a uuid"})
			return
		}
		leadID = parsed
	}
	input := scoring.IngestInput{
		EventID:  req.EventID,
		LeadID:   leadID,
		Name:     req.Name,
		Email:    req.Email,
		Type:     req.Type,
		Metadata: req.Metadata,
	}
	if req.Timestamp != nil {
		input.OccurredAt = *req.Timestamp
	}
	result, err := eh.ingest.Ingest(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrInvalidArgument) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to ingest event"})
		return
	}
	if result.Duplicate {
		eh.metrics.EventDuplicate()
		c.JSON(http.StatusAccepted, gin.H{"lead_id": result.LeadID, "duplicate": true})
		return
	}
	eh.metrics.EventIngested()
	c.JSON(http.StatusAccepted, gin.H{"lead_id": result.LeadID, "duplicate": false})
}
