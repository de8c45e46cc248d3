package app

import (
	httpH "github.com/lumikids/radiogen-backend/internal/http/handlers"
	"github.com/lumikids/radiogen-backend/internal/platform/logger"
)

type Handlers struct {
	Health  *httpH.HealthHandler
	Program *httpH.ProgramHandler
}

func wireHandlers(log *logger.Logger, svcs Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:  httpH.NewHealthHandler(svcs.Mixing),
		Program: httpH.NewProgramHandler(log, svcs.RadioProgram),
	}
}
