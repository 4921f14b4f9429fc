package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/leadflow-backend/internal/handlers"
	"github.com/yungbote/leadflow-backend/internal/observability"
)

type RouterConfig struct {
	EventHandler      *handlers.EventHandler
	LeadHandler       *handlers.LeadHandler
	RuleHandler       *handlers.RuleHandler
	AutomationHandler *handlers.AutomationHandler
	DeadLetterHandler *handlers.DeadLetterHandler
	Healthcheck       *handlers.HealthcheckHandler
	Metrics           *observability.Metrics
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("leadflow"))

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthz", cfg.Healthcheck.Check)
	router.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))

	v1 := router.Group("/v1")
	{
		// Ingestion boundary
		v1.POST("/events", cfg.EventHandler.Ingest)
		// Lead read surface
		v1.GET("/leads/:id", cfg.LeadHandler.Get)
		v1.GET("/leads/:id/history", cfg.LeadHandler.History)
		v1.GET("/leads/:id/executions", cfg.LeadHandler.Executions)
		// Scoring rules
		v1.POST("/rules", cfg.RuleHandler.Create)
		v1.GET("/rules", cfg.RuleHandler.List)
		v1.PUT("/rules/:id", cfg.RuleHandler.Update)
		v1.DELETE("/rules/:id", cfg.RuleHandler.Delete)
		v1.POST("/rules/refresh", cfg.RuleHandler.Refresh)
		// Automations
		v1.POST("/automations", cfg.AutomationHandler.Create)
		v1.GET("/automations", cfg.AutomationHandler.List)
		v1.POST("/automations/refresh", cfg.AutomationHandler.Refresh)
		// Ops
		v1.GET("/deadletters", cfg.DeadLetterHandler.List)
	}

	return router
}
