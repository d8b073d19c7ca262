package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/notebook-backend/internal/http/handlers"
	httpMW "github.com/yungbote/notebook-backend/internal/http/middleware"
	"github.com/yungbote/notebook-backend/internal/observability"
	"github.com/yungbote/notebook-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger
	// StaticDir, when set, is served under /static.
	StaticDir string
	// ServiceName labels otelgin spans.
	ServiceName string

	HealthHandler   *httpH.HealthHandler
	NotebookHandler *httpH.NotebookHandler
	SourceHandler   *httpH.SourceHandler
	AskHandler      *httpH.AskHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if observability.Enabled() {
		name := cfg.ServiceName
		if name == "" {
			name = "notebook-backend"
		}
		r.Use(otelgin.Middleware(name))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	if cfg.StaticDir != "" {
		r.Static("/static", cfg.StaticDir)
	}

	api := r.Group("/api")
	{
		if cfg.NotebookHandler != nil {
			api.POST("/notebooks", cfg.NotebookHandler.Create)
			api.GET("/notebooks", cfg.NotebookHandler.List)
			api.GET("/notebooks/:id", cfg.NotebookHandler.Get)
		}

		if cfg.SourceHandler != nil {
			api.POST("/notebooks/:id/sources", cfg.SourceHandler.Upload)
			api.DELETE("/sources/:id", cfg.SourceHandler.Delete)
		}

		if cfg.AskHandler != nil {
			api.POST("/notebooks/:id/ask", cfg.AskHandler.Ask)
		}
	}

	return r
}
