package app

import (
	"github.com/gin-gonic/gin"

	apihttp "github.com/lumikids/radiogen-backend/internal/http"
	"github.com/lumikids/radiogen-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, handlers Handlers) *gin.Engine {
	return apihttp.NewRouter(apihttp.RouterConfig{
		Log:            log,
		HealthHandler:  handlers.Health,
		ProgramHandler: handlers.Program,
	})
}
