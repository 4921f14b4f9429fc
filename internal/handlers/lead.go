package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/leadflow-backend/internal/repos"
)

type LeadHandler struct {
	leads  repos.LeadRepo
	ledger repos.ScoreLedgerRepo
	execs  repos.AutomationExecutionRepo
}

func NewLeadHandler(leads repos.LeadRepo, ledger repos.ScoreLedgerRepo, execs repos.AutomationExecutionRepo) *LeadHandler {
	return &LeadHandler{leads: leads, ledger: ledger, execs: execs}
}

func (lh *LeadHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a uuid"})
		return
	}
	lead, err := lh.leads.GetByID(c.Request.Context(), nil, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load lead"})
		return
	}
	if lead == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "lead not found"})
		return
	}
	c.JSON(http.StatusOK, lead)
}

// History returns the lead's full score ledger in applied order: the audit
// chain of score_before/score_after per consumed event.
func (lh *LeadHandler) History(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a uuid"})
		return
	}
	entries, err := lh.ledger.ListByLead(c.Request.Context(), nil, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load score history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (lh *LeadHandler) Executions(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a uuid"})
		return
	}
	executions, err := lh.execs.ListByLead(c.Request.Context(), nil, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load executions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"executions": executions})
}
