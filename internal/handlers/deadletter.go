package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/leadflow-backend/internal/repos"
)

type DeadLetterHandler struct {
	deadLetters repos.DeadLetterRepo
}

func NewDeadLetterHandler(deadLetters repos.DeadLetterRepo) *DeadLetterHandler {
	return &DeadLetterHandler{deadLetters: deadLetters}
}

func (dh *DeadLetterHandler) List(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	records, err := dh.deadLetters.List(c.Request.Context(), nil, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list dead letters"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"dead_letters": records})
}
