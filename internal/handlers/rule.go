package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/leadflow-backend/internal/repos"
	"github.com/yungbote/leadflow-backend/internal/scoring"
	"github.com/yungbote/leadflow-backend/internal/types"
)

type RuleHandler struct {
	rules repos.ScoringRuleRepo
	cache *scoring.RuleCache
}

func NewRuleHandler(rules repos.ScoringRuleRepo, cache *scoring.RuleCache) *RuleHandler {
	return &RuleHandler{rules: rules, cache: cache}
}

func (rh *RuleHandler) Create(c *gin.Context) {
	var req struct {
		EventType string  `json:"event_type"`
		Points    float64 `json:"points"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.EventType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "event_type is required"})
		return
	}
	rule, err := rh.rules.Create(c.Request.Context(), nil, &types.ScoringRule{
		EventType: req.EventType,
		Points:    req.Points,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// New rules affect scoring only after the cache picks them up.
	if rErr := rh.cache.Refresh(c.Request.Context()); rErr != nil {
		c.JSON(http.StatusOK, gin.H{"rule": rule, "cache_refreshed": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rule": rule, "cache_refreshed": true})
}

func (rh *RuleHandler) List(c *gin.Context) {
	rules, err := rh.rules.ListAll(c.Request.Context(), nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list rules"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

func (rh *RuleHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a uuid"})
		return
	}
	var req struct {
		Points *float64 `json:"points"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Points == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := rh.rules.UpdateFields(c.Request.Context(), nil, id, map[string]interface{}{
		"points": *req.Points,
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update rule"})
		return
	}
	_ = rh.cache.Refresh(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"success": "true"})
}

func (rh *RuleHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a uuid"})
		return
	}
	if err := rh.rules.Delete(c.Request.Context(), nil, id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete rule"})
		return
	}
	_ = rh.cache.Refresh(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"success": "true"})
}

func (rh *RuleHandler) Refresh(c *gin.Context) {
	if err := rh.cache.Refresh(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": "true"})
}
