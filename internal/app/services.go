package app

import (
	"github.com/lumikids/radiogen-backend/internal/platform/gcp"
	"github.com/lumikids/radiogen-backend/internal/platform/logger"
	"github.com/lumikids/radiogen-backend/internal/program"
	"github.com/lumikids/radiogen-backend/internal/services"
)

type Services struct {
	Mixing       services.MixingService
	AssetFetch   services.AssetFetchService
	Lock         services.GenerationLockService
	Publish      services.PublishService
	Scratch      services.ScratchService
	RadioProgram services.RadioProgramService
}

func wireServices(log *logger.Logger, cfg Config, store gcp.ObjectStore) Services {
	log.Info("Wiring services...")

	mixing := services.NewMixingService(log, cfg.FFmpegPath)
	fetch := services.NewAssetFetchService(log, nil, mixing, cfg.FetchConcurrency)
	lock := services.NewGenerationLockService(log, store, cfg.LockTimeout)
	publish := services.NewPublishService(log, store)
	scratch := services.NewScratchService(log, cfg.ScratchRoot)

	radio := services.NewRadioProgramService(
		log,
		program.AssetLocator{BaseURL: cfg.AssetBaseURL},
		fetch,
		mixing,
		lock,
		publish,
		scratch,
	)

	return Services{
		Mixing:       mixing,
		AssetFetch:   fetch,
		Lock:         lock,
		Publish:      publish,
		Scratch:      scratch,
		RadioProgram: radio,
	}
}
