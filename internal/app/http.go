package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/notebook-backend/internal/http"
	httpH "github.com/yungbote/notebook-backend/internal/http/handlers"
	"github.com/yungbote/notebook-backend/internal/platform/logger"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Notebook *httpH.NotebookHandler
	Source   *httpH.SourceHandler
	Ask      *httpH.AskHandler
}

func wireHandlers(log *logger.Logger, clients Clients, reposet Repos, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(),
		Notebook: httpH.NewNotebookHandler(log, reposet.Notebooks),
		Source:   httpH.NewSourceHandler(log, reposet.Notebooks, reposet.Sources, clients.Static, services.Pipeline, clients.Vec),
		Ask:      httpH.NewAskHandler(log, reposet.Notebooks, reposet.Sources, services.Retriever),
	}
}

func wireRouter(log *logger.Logger, cfg Config, clients Clients, handlers Handlers) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		Log:             log,
		StaticDir:       clients.Static.Root(),
		ServiceName:     cfg.ServiceName,
		HealthHandler:   handlers.Health,
		NotebookHandler: handlers.Notebook,
		SourceHandler:   handlers.Source,
		AskHandler:      handlers.Ask,
	})
}
