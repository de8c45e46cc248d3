package app

import (
	"time"

	"github.com/lumikids/radiogen-backend/internal/platform/envutil"
	"github.com/lumikids/radiogen-backend/internal/platform/logger"
	"github.com/lumikids/radiogen-backend/internal/services"
)

type Config struct {
	Port             string
	AssetBaseURL     string
	FFmpegPath       string
	ScratchRoot      string
	LockTimeout      time.Duration
	FetchConcurrency int
	ScratchMaxAge    time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:             envutil.String("PORT", "8080"),
		AssetBaseURL:     envutil.String("ASSET_BASE_URL", ""),
		FFmpegPath:       envutil.String("FFMPEG_PATH", "ffmpeg"),
		ScratchRoot:      envutil.String("SCRATCH_ROOT", ""),
		LockTimeout:      envutil.Seconds("LOCK_TIMEOUT_SECONDS", services.DefaultLockTimeout),
		FetchConcurrency: envutil.Int("FETCH_CONCURRENCY", 4),
		ScratchMaxAge:    envutil.Seconds("SCRATCH_MAX_AGE_SECONDS", 2*time.Hour),
	}
	if cfg.AssetBaseURL == "" {
		log.Warn("ASSET_BASE_URL not set, system asset fetches will fail and fall back to silence")
	}
	return cfg
}
