package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/lumikids/radiogen-backend/internal/http/handlers"
	httpMW "github.com/lumikids/radiogen-backend/internal/http/middleware"
	"github.com/lumikids/radiogen-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	HealthHandler  *httpH.HealthHandler
	ProgramHandler *httpH.ProgramHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readiness", cfg.HealthHandler.Ready)
	}

	api := r.Group("/api")
	{
		if cfg.ProgramHandler != nil {
			api.POST("/programs/generate", cfg.ProgramHandler.Generate)
			api.POST("/programs/status", cfg.ProgramHandler.Status)
		}
	}

	return r
}
