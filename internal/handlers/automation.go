package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/leadflow-backend/internal/repos"
	"github.com/yungbote/leadflow-backend/internal/scoring"
	"github.com/yungbote/leadflow-backend/internal/types"
)

type AutomationHandler struct {
	rules repos.AutomationRuleRepo
	cache *scoring.AutomationRuleCache
}

func NewAutomationHandler(rules repos.AutomationRuleRepo, cache *scoring.AutomationRuleCache) *AutomationHandler {
	return &AutomationHandler{rules: rules, cache: cache}
}

func (ah *AutomationHandler) Create(c *gin.Context) {
	var req struct {
		Name        string `json:"name"`
		WhenStage   string `json:"when_stage"`
		MinVelocity int    `json:"min_velocity"`
		Action      string `json:"action"`
		Enabled     *bool  `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Name == "" || req.WhenStage == "" || req.Action == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, when_stage and action are required"})
		return
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	rule, err := ah.rules.Create(c.Request.Context(), nil, &types.AutomationRule{
		Name:        req.Name,
		WhenStage:   req.WhenStage,
		MinVelocity: req.MinVelocity,
		Action:      req.Action,
		Enabled:     enabled,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	_ = ah.cache.Refresh(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"rule": rule})
}

func (ah *AutomationHandler) List(c *gin.Context) {
	rules, err := ah.rules.ListAll(c.Request.Context(), nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list automation rules"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

func (ah *AutomationHandler) Refresh(c *gin.Context) {
	if err := ah.cache.Refresh(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": "true"})
}
