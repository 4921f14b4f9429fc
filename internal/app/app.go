package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/leadflow-backend/internal/db"
	"github.com/yungbote/leadflow-backend/internal/logger"
	"github.com/yungbote/leadflow-backend/internal/observability"
	"github.com/yungbote/leadflow-backend/internal/server"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Services Services
	Metrics  *observability.Metrics

	cancel       context.CancelFunc
	otelShutdown func(context.Context) error
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "leadflow",
	})

	metrics := observability.NewMetrics()

	clientset, err := wireClients(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)

	serviceset, err := wireServices(log, cfg, reposet, clientset, metrics)
	if err != nil {
		log.Sync()
		return nil, err
	}

	routerCfg := wireHandlers(log, reposet, serviceset, metrics)
	router := server.NewRouter(routerCfg)

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clientset,
		Services:     serviceset,
		Metrics:      metrics,
		otelShutdown: otelShutdown,
	}, nil
}

func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.Services.Worker.Start(ctx)
	a.Services.LeaseSweeper.Start(ctx)
	a.Services.DecaySweeper.Start(ctx)

	if a.Cfg.RuleRefreshEvery > 0 {
		a.Services.RuleCache.StartRefresher(ctx, a.Cfg.RuleRefreshEvery)
		a.Services.AutomationCache.StartRefresher(ctx, a.Cfg.RuleRefreshEvery)
	}

	a.Metrics.StartQueueDepthPoller(ctx, a.Log, a.Repos.WorkItem, 15*time.Second)

	if a.Clients.WorkBus != nil {
		if err := a.Clients.WorkBus.StartForwarder(ctx, func(_ uuid.UUID) {
			a.Services.Worker.Wake()
		}); err != nil {
			a.Log.Warn("Work bus forwarder failed to start", "error", err)
		}
	}
}

func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Clients.WorkBus != nil {
		_ = a.Clients.WorkBus.Close()
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
