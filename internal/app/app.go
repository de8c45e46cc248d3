package app

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/lumikids/radiogen-backend/internal/platform/gcp"
	"github.com/lumikids/radiogen-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Store    gcp.ObjectStore
	Services Services
	Handlers Handlers
	Router   *gin.Engine
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

	store, err := gcp.NewObjectStore(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init object store: %w", err)
	}

	serviceset := wireServices(log, cfg, store)
	handlerset := wireHandlers(log, serviceset)
	router := wireRouter(log, handlerset)

	return &App{
		Log:      log,
		Cfg:      cfg,
		Store:    store,
		Services: serviceset,
		Handlers: handlerset,
		Router:   router,
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
	if a.Log != nil {
		a.Log.Sync()
	}
}
