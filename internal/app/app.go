package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/notebook-backend/internal/data/postgres"
	"github.com/yungbote/notebook-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services

	pg *postgres.Service
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

	cfg := LoadConfig(log)

	pg, err := postgres.New(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	db := pg.DB()

	clients, err := wireClients(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}
	if err := clients.Vec.EnsureCollection(context.Background()); err != nil {
		clients.Close()
		log.Sync()
		return nil, fmt.Errorf("ensure qdrant collection: %w", err)
	}

	reposet := wireRepos(db, log)

	serviceset, err := wireServices(log, clients, reposet)
	if err != nil {
		clients.Close()
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, clients, reposet, serviceset)
	router := wireRouter(log, cfg, clients, handlerset)

	return &App{
		Log:      log,
		DB:       db,
		Router:   router,
		Cfg:      cfg,
		Clients:  clients,
		Repos:    reposet,
		Services: serviceset,
		pg:       pg,
	}, nil
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
	a.Clients.Close()
	if a.pg != nil {
		_ = a.pg.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
